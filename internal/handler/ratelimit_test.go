package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/prn-tf/digital-galaxy/internal/cache/memory"
)

type brokenCache struct {
	*memory.Cache
}

func (brokenCache) Increment(ctx context.Context, key string, delta int64) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestRateLimiter_Windows(t *testing.T) {
	cache := memory.NewCache()
	defer cache.Stop()

	limiter := NewRateLimiter(cache, 1, time.Minute, zerolog.Nop())
	now := time.Date(2026, 1, 1, 12, 0, 10, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(method, remote string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, "/api/v1/chat", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "10.0.0.1:1111").Code)

	limited := send(http.MethodPost, "10.0.0.1:2222")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "51", limited.Header().Get("Retry-After"))

	// Other clients and reads are unaffected.
	assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "10.0.0.2:1111").Code)
	assert.Equal(t, http.StatusNoContent, send(http.MethodGet, "10.0.0.1:1111").Code)

	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusNoContent, send(http.MethodPost, "10.0.0.1:1111").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	limiter := NewRateLimiter(brokenCache{}, 1, time.Minute, zerolog.Nop())
	handler := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
}
