package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts recorded timeline events.
type Metrics struct {
	Events *prometheus.CounterVec
}

// New registers the timeline metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Events: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_timeline_events_total",
			Help: "Timeline events recorded, by event type",
		}, []string{"type"}),
	}
}

// IncrementRecorded counts one committed-or-pending event of eventType.
func (m *Metrics) IncrementRecorded(eventType string) {
	if m != nil {
		m.Events.WithLabelValues(eventType).Inc()
	}
}
