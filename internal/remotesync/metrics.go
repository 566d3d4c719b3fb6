package remotesync

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts sync outcomes. A nil *Metrics is valid and records nothing.
type Metrics struct {
	syncs       *prometheus.CounterVec
	dictFetches *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		syncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scct",
			Subsystem: "remotesync",
			Name:      "syncs_total",
			Help:      "Descriptor sync attempts by outcome.",
		}, []string{"outcome"}),
		dictFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scct",
			Subsystem: "remotesync",
			Name:      "dictionary_fetches_total",
			Help:      "Remote dictionary fetches by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.syncs, m.dictFetches)
	}
	return m
}

func (m *Metrics) observeSync(o Outcome) {
	if m == nil {
		return
	}
	m.syncs.WithLabelValues(string(o)).Inc()
}

func (m *Metrics) observeDictionary(ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.dictFetches.WithLabelValues(result).Inc()
}
