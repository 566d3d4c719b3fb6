package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is nil-safe.
type Metrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scct",
			Subsystem: "translate",
			Name:      "calls_total",
			Help:      "Translation requests by backend and result (ok, error, cache_hit).",
		}, []string{"backend", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scct",
			Subsystem: "translate",
			Name:      "backend_seconds",
			Help:      "Backend call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.latency)
	}
	return m
}

func (m *Metrics) observe(backend, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(backend, result).Inc()
	if result != "cache_hit" {
		m.latency.WithLabelValues(backend).Observe(d.Seconds())
	}
}
