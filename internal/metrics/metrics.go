// Package metrics exposes Prometheus collectors for Digital Galaxy.
// A nil *Metrics is valid and records nothing, so tests and tools can skip it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "galaxy"

// Metrics holds the application collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	downloads         *prometheus.CounterVec
	ticketsCreated    prometheus.Counter
	ticketDecisions   *prometheus.CounterVec
	realtimePublished *prometheus.CounterVec
	subscribers       *prometheus.GaugeVec
	chatMessages      prometheus.Counter
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		downloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Total number of successful product downloads.",
			},
			[]string{"kind"},
		),

		ticketsCreated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tickets_created_total",
				Help:      "Total number of payment requests created.",
			},
		),

		ticketDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ticket_decisions_total",
				Help:      "Total number of payment request decisions.",
			},
			[]string{"outcome"},
		),

		realtimePublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "realtime_published_total",
				Help:      "Total number of realtime events published.",
			},
			[]string{"channel"},
		),

		subscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "realtime_subscribers",
				Help:      "Current number of realtime subscriptions.",
			},
			[]string{"channel"},
		),

		chatMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_messages_total",
				Help:      "Total number of chat messages posted.",
			},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),

		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		m.downloads,
		m.ticketsCreated,
		m.ticketDecisions,
		m.realtimePublished,
		m.subscribers,
		m.chatMessages,
		m.httpRequests,
		m.httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DownloadRecorded counts a successful download of the given retrieval kind.
func (m *Metrics) DownloadRecorded(kind string) {
	if m == nil {
		return
	}
	m.downloads.WithLabelValues(kind).Inc()
}

// TicketCreated counts a new payment request.
func (m *Metrics) TicketCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

// TicketDecided counts a decision with its outcome.
func (m *Metrics) TicketDecided(outcome string) {
	if m == nil {
		return
	}
	m.ticketDecisions.WithLabelValues(outcome).Inc()
}

// EventPublished counts an event published on channel.
func (m *Metrics) EventPublished(channel string) {
	if m == nil {
		return
	}
	m.realtimePublished.WithLabelValues(channel).Inc()
}

// SubscriberAdded increments the subscriber gauge of channel.
func (m *Metrics) SubscriberAdded(channel string) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(channel).Inc()
}

// SubscriberRemoved decrements the subscriber gauge of channel.
func (m *Metrics) SubscriberRemoved(channel string) {
	if m == nil {
		return
	}
	m.subscribers.WithLabelValues(channel).Dec()
}

// ChatMessagePosted counts a chat message.
func (m *Metrics) ChatMessagePosted() {
	if m == nil {
		return
	}
	m.chatMessages.Inc()
}

// InstrumentHandler records request counts and durations by chi route pattern.
func (m *Metrics) InstrumentHandler(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
