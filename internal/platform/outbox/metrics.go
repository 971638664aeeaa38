package outbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks outbox publishing.
type Metrics struct {
	Published prometheus.Counter
	Failures  prometheus.Counter
	Pending   prometheus.Gauge
	Skipped   prometheus.Counter
}

// NewMetrics registers the outbox metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idbcrm_outbox_published_total",
			Help: "Outbox entries published to Kafka",
		}),
		Failures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idbcrm_outbox_publish_failures_total",
			Help: "Failed outbox publish batches",
		}),
		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "idbcrm_outbox_pending",
			Help: "Unpublished outbox entries at last poll",
		}),
		Skipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "idbcrm_outbox_polls_skipped_total",
			Help: "Polls skipped because the publish circuit was open",
		}),
	}
}

func (m *Metrics) addPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) incFailure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) setPending(n int) {
	if m != nil {
		m.Pending.Set(float64(n))
	}
}

func (m *Metrics) incSkipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}
