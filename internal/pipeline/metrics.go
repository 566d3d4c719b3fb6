package pipeline

import "github.com/prometheus/client_golang/prometheus"

// Metrics is nil-safe.
type Metrics struct {
	seen        prometheus.Counter
	dropped     *prometheus.CounterVec
	processed   *prometheus.CounterVec
	storeErrors prometheus.Counter
	trFailures  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		seen: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scct", Subsystem: "pipeline", Name: "lines_seen_total",
			Help: "Complete lines read from the active chat log.",
		}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scct", Subsystem: "pipeline", Name: "lines_dropped_total",
			Help: "Lines not turned into messages, by reason.",
		}, []string{"reason"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scct", Subsystem: "pipeline", Name: "messages_processed_total",
			Help: "Chat messages translated and handed on, by category.",
		}, []string{"category"}),
		storeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scct", Subsystem: "pipeline", Name: "store_errors_total",
			Help: "Messages that could not be written to history.",
		}),
		trFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "scct", Subsystem: "pipeline", Name: "translation_failures_total",
			Help: "Messages whose translation failed.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.seen, m.dropped, m.processed, m.storeErrors, m.trFailures)
	}
	return m
}

func (m *Metrics) incSeen() {
	if m != nil {
		m.seen.Inc()
	}
}

func (m *Metrics) incDropped(reason string) {
	if m != nil {
		m.dropped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) incProcessed(category string) {
	if m != nil {
		m.processed.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) incStoreError() {
	if m != nil {
		m.storeErrors.Inc()
	}
}

func (m *Metrics) incTranslationFailure() {
	if m != nil {
		m.trFailures.Inc()
	}
}
