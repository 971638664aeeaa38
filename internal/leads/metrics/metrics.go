package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks lead intake and pipeline movement.
type Metrics struct {
	Created        *prometheus.CounterVec
	StatusChanges  *prometheus.CounterVec
	BulkUpdateSize prometheus.Histogram
}

// New registers the lead metrics on the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Created: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_leads_created_total",
			Help: "Leads created, by source",
		}, []string{"source"}),
		StatusChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_lead_status_changes_total",
			Help: "Lead status transitions, by target status",
		}, []string{"status"}),
		BulkUpdateSize: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "idbcrm_lead_bulk_status_size",
			Help:    "Number of leads changed per bulk status request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
	}
}

func (m *Metrics) IncrementCreated(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "direct"
	}
	m.Created.WithLabelValues(source).Inc()
}

func (m *Metrics) IncrementStatusChange(status string) {
	if m != nil {
		m.StatusChanges.WithLabelValues(status).Inc()
	}
}

func (m *Metrics) ObserveBulkUpdate(n int) {
	if m != nil {
		m.BulkUpdateSize.Observe(float64(n))
	}
}
