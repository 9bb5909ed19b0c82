package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	unauthorized prometheus.Counter
}

// NewMetrics creates the pipeline collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "courseweb",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Outbound enrollment API requests by method and status.",
		}, []string{"method", "code"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "courseweb",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Outbound enrollment API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		unauthorized: f.NewCounter(prometheus.CounterOpts{
			Namespace: "courseweb",
			Subsystem: "api",
			Name:      "unauthorized_total",
			Help:      "Responses with status 401.",
		}),
	}
}

func (m *Metrics) observe(method, code string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, code).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
