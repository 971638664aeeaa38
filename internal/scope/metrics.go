package scope

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts scoped lookups that hit an existing row outside the caller's scope.
type Metrics struct {
	Denials *prometheus.CounterVec
}

// NewMetrics registers the scope metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer registers on reg.
func NewMetricsWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Denials: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_scope_denials_total",
			Help: "Lookups of existing rows rejected because they fall outside the actor's scope",
		}, []string{"entity"}),
	}
}

// IncrementDenied records a denial for an entity type.
func (m *Metrics) IncrementDenied(entity string) {
	if m != nil {
		m.Denials.WithLabelValues(entity).Inc()
	}
}
