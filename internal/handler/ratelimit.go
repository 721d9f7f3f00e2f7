package handler

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/repository"
)

// RateLimiter counts mutating requests per client in fixed windows stored in
// a repository.Cache, so instances sharing Redis share the budget.
type RateLimiter struct {
	cache    repository.Cache
	requests int
	window   time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter allowing requests per window.
func NewRateLimiter(cache repository.Cache, requests int, window time.Duration, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		cache:    cache,
		requests: requests,
		window:   window,
		logger:   logger.With().Str("component", "ratelimit").Logger(),
		now:      time.Now,
	}
}

// Middleware limits POST, PUT, PATCH and DELETE requests. Reads are not counted.
// When the cache is unreachable requests are let through.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}

		now := l.now()
		window := now.UnixNano() / int64(l.window)
		key := repository.CacheKey{}.RateLimit(clientKey(r), window)

		count, err := l.cache.Increment(r.Context(), key, 1)
		if err != nil {
			l.logger.Warn().Err(err).Msg("rate limit counter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if count == 1 {
			if err := l.cache.Expire(r.Context(), key, l.window); err != nil {
				l.logger.Warn().Err(err).Msg("failed to set rate limit window")
			}
		}

		remaining := int64(l.requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(l.requests) {
			reset := time.Unix(0, (window+1)*int64(l.window))
			retry := int(reset.Sub(now).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: APIError{
				Code:    CodeRateLimited,
				Message: "too many requests",
			}})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller: the user when authenticated, otherwise the remote address.
func clientKey(r *http.Request) string {
	if p := auth.GetPrincipal(r.Context()); p.IsAuthenticated() {
		return "user:" + p.ID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
