package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/prn-tf/digital-galaxy/internal/auth"
	"github.com/prn-tf/digital-galaxy/internal/metrics"
)

// DatabaseChecker reports database health for /health.
type DatabaseChecker interface {
	Health(ctx context.Context) error
}

// Router assembles the HTTP API.
type Router struct {
	api         *API
	realtime    *RealtimeHandler
	resolver    *auth.Resolver
	rateLimiter *RateLimiter
	metrics     *metrics.Metrics
	database    DatabaseChecker
	files       http.Handler
	maxBodySize int64
	logger      zerolog.Logger
}

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	API      *API
	Realtime *RealtimeHandler
	Resolver *auth.Resolver

	// RateLimiter is optional.
	RateLimiter *RateLimiter

	// Metrics is optional.
	Metrics *metrics.Metrics

	Database DatabaseChecker

	// FilesDir serves filesystem blobs under /files when set.
	FilesDir string

	MaxBodySize int64
	Logger      zerolog.Logger
}

// NewRouter creates a new Router.
func NewRouter(config RouterConfig) *Router {
	rt := &Router{
		api:         config.API,
		realtime:    config.Realtime,
		resolver:    config.Resolver,
		rateLimiter: config.RateLimiter,
		metrics:     config.Metrics,
		database:    config.Database,
		maxBodySize: config.MaxBodySize,
		logger:      config.Logger.With().Str("component", "router").Logger(),
	}
	if config.FilesDir != "" {
		rt.files = http.StripPrefix("/files", noDirListing(http.FileServer(http.Dir(config.FilesDir))))
	}
	return rt
}

// Handler returns the main HTTP handler.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestLogger(rt.logger))
	r.Use(middleware.Recoverer)
	r.Use(rt.metrics.InstrumentHandler)

	// Health check (no auth)
	r.Get("/health", rt.handleHealth)

	if rt.files != nil {
		r.Handle("/files/*", rt.files)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.Middleware(rt.resolver))
		if rt.rateLimiter != nil {
			r.Use(rt.rateLimiter.Middleware)
		}

		// Websocket upgrades carry no body.
		r.Get("/realtime/{channel}", rt.realtime.ServeHTTP)

		r.Group(func(r chi.Router) {
			r.Use(MaxBodySize(rt.maxBodySize))

			r.Post("/auth/register", rt.api.handleRegister)
			r.Post("/auth/login", rt.api.handleLogin)
			r.Get("/me", rt.api.handleMe)

			r.Get("/products", rt.api.handleListProducts)
			r.Post("/products", rt.api.handleCreateProduct)
			r.Get("/products/{id}", rt.api.handleGetProduct)
			r.Post("/products/{id}/download", rt.api.handleDownload)
			r.Post("/products/{id}/payment-requests", rt.api.handleCreateTicket)

			r.Get("/payment-requests", rt.api.handleListTickets)

			r.Get("/notifications", rt.api.handleListNotifications)
			r.Get("/chat", rt.api.handleListChat)
			r.Post("/chat", rt.api.handlePostChat)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/payment-requests/{id}/decision", rt.api.handleDecideTicket)
				r.Get("/users", rt.api.handleListUsers)
				r.Put("/users/{id}/blocked", rt.api.handleSetBlocked)
				r.Post("/notifications", rt.api.handleBroadcast)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: APIError{Code: CodeNotFound, Message: "route not found"}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: APIError{Code: "method_not_allowed", Message: "method not allowed"}})
	})

	return r
}

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// handleHealth reports liveness and database health.
func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	if rt.database == nil {
		writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "unknown"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := rt.database.Health(ctx); err != nil {
		rt.logger.Warn().Err(err).Msg("database health check failed")
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Database: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "healthy", Database: "ok"})
}

func noDirListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
