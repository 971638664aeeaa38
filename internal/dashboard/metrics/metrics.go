package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks dashboard cache effectiveness and computation latency.
type Metrics struct {
	CacheLookups *prometheus.CounterVec
	ComputeTime  prometheus.Histogram
}

// New registers the dashboard metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_dashboard_cache_lookups_total",
			Help: "Dashboard stats cache lookups, by result",
		}, []string{"result"}),
		ComputeTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idbcrm_dashboard_compute_seconds",
			Help:    "Time spent computing dashboard stats on a cache miss",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementLookup(result string) {
	if m != nil {
		m.CacheLookups.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) ObserveCompute(seconds float64) {
	if m != nil {
		m.ComputeTime.Observe(seconds)
	}
}
