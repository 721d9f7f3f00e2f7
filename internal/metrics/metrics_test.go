package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.DownloadRecorded("file")
	m.DownloadRecorded("file")
	m.DownloadRecorded("external")
	m.TicketCreated()
	m.TicketDecided("approved")
	m.EventPublished("chat")
	m.SubscriberAdded("chat")
	m.SubscriberAdded("chat")
	m.SubscriberRemoved("chat")
	m.ChatMessagePosted()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloads.WithLabelValues("file")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads.WithLabelValues("external")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketsCreated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticketDecisions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.realtimePublished.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.subscribers.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatMessages))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.DownloadRecorded("file")
		m.TicketCreated()
		m.TicketDecided("rejected")
		m.EventPublished("notifications")
		m.SubscriberAdded("chat")
		m.SubscriberRemoved("chat")
		m.ChatMessagePosted()
	})

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	assert.NotNil(t, m.InstrumentHandler(h))
}

func TestMetrics_InstrumentHandlerUsesRoutePattern(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.InstrumentHandler)
	r.Get("/products/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/abc", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/products/def", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/products/{id}", "418")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "galaxy_http_requests_total"))
}
