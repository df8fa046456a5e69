package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HandshakeMetrics tracks session handshake exchanges between frontends.
type HandshakeMetrics struct {
	started  prometheus.Counter
	resolved *prometheus.CounterVec
	dropped  *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewHandshakeMetrics registers handshake metrics on the provided registerer.
func NewHandshakeMetrics(reg prometheus.Registerer) *HandshakeMetrics {
	if reg == nil {
		return &HandshakeMetrics{}
	}
	started := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handshake_started_total",
		Help: "Handshake exchanges opened by consumer frontends.",
	})
	resolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_resolved_total",
		Help: "Handshake exchanges resolved, labelled by outcome.",
	}, []string{"outcome"})
	dropped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_dropped_messages_total",
		Help: "Handshake messages rejected before delivery, labelled by reason.",
	}, []string{"reason"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "handshake_duration_seconds",
		Help:    "Time from exchange open to resolution in seconds.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	reg.MustRegister(started, resolved, dropped, duration)
	return &HandshakeMetrics{
		started:  started,
		resolved: resolved,
		dropped:  dropped,
		duration: duration,
	}
}

// IncStarted counts a newly opened exchange.
func (h *HandshakeMetrics) IncStarted() {
	if h == nil || h.started == nil {
		return
	}
	h.started.Inc()
}

// IncResolved counts a resolution with the given outcome (authenticated, not_authenticated, error, timeout).
func (h *HandshakeMetrics) IncResolved(outcome string) {
	if h == nil || h.resolved == nil {
		return
	}
	h.resolved.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncDropped counts a message rejected before delivery (origin_mismatch, unknown_exchange, malformed).
func (h *HandshakeMetrics) IncDropped(reason string) {
	if h == nil || h.dropped == nil {
		return
	}
	h.dropped.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveDuration records how long the exchange took to resolve.
func (h *HandshakeMetrics) ObserveDuration(duration time.Duration) {
	if h == nil || h.duration == nil {
		return
	}
	h.duration.Observe(duration.Seconds())
}
