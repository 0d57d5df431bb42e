package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the gateway's Prometheus collectors. Constructed once in
// main and passed by reference, like the shop registry.
type Metrics struct {
	HandshakesCompleted prometheus.Counter
	HandshakesFailed    *prometheus.CounterVec
	WebhooksDispatched  *prometheus.CounterVec
	WebhooksRejected    *prometheus.CounterVec
	ActiveShops         prometheus.Gauge

	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the gateway collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HandshakesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "oauth_handshakes_completed_total",
			Help: "Completed OAuth handshakes.",
		}),
		HandshakesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "oauth_handshakes_failed_total",
			Help: "Failed OAuth handshakes by reason.",
		}, []string{"reason"}),
		WebhooksDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_dispatched_total",
			Help: "Verified webhooks dispatched by topic.",
		}, []string{"topic"}),
		WebhooksRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhooks_rejected_total",
			Help: "Webhooks rejected before dispatch by reason.",
		}, []string{"reason"}),
		ActiveShops: factory.NewGauge(prometheus.GaugeOpts{
			Name: "active_shops",
			Help: "Shops currently marked active in the registry.",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
	}
}

// Handler wraps an http.Handler with request latency observation.
func (m *Metrics) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.requestDuration.
			WithLabelValues(r.Method, strconv.Itoa(sw.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
