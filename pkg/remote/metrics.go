package remote

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes recorded by Metrics.
const (
	OutcomeSuccess = "success"
	OutcomeStatus  = "status_error"
	OutcomeError   = "transport_error"
)

// Metrics counts cache activity and outbound requests.
type Metrics struct {
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	Requests    *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg when non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "formengine",
			Subsystem: "remote",
			Name:      "cache_hits_total",
			Help:      "Option lists served from the remote data cache",
		}),
		CacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "formengine",
			Subsystem: "remote",
			Name:      "cache_misses_total",
			Help:      "Option list loads that required a request",
		}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "formengine",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Data source requests by source and outcome",
		}, []string{"source", "outcome"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.CacheHits, m.CacheMisses, m.Requests} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) hit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) miss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) request(source, outcome string) {
	if m != nil {
		m.Requests.WithLabelValues(source, outcome).Inc()
	}
}
