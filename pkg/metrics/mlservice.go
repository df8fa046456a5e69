package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MLServiceMetrics tracks calls made to the assistant inference service.
type MLServiceMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMLServiceMetrics registers ML client metrics on the provided registerer.
func NewMLServiceMetrics(reg prometheus.Registerer) *MLServiceMetrics {
	if reg == nil {
		return &MLServiceMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ml_requests_total",
		Help: "Requests issued to the ML service, labelled by endpoint and status code.",
	}, []string{"endpoint", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ml_request_duration_seconds",
		Help:    "Duration of ML service requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})
	reg.MustRegister(requests, duration)
	return &MLServiceMetrics{
		requests: requests,
		duration: duration,
	}
}

// ObserveRequest records a completed request against the named endpoint.
func (m *MLServiceMetrics) ObserveRequest(endpoint string, status int, duration time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	m.requests.WithLabelValues(normalizeLabel(endpoint), strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(normalizeLabel(endpoint)).Observe(duration.Seconds())
}
