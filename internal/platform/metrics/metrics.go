// Package metrics holds the HTTP-level Prometheus metrics. Bounded contexts
// own their domain metrics next to their services.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP metrics for the application.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	LoginsTotal     *prometheus.CounterVec
}

// New creates and registers the HTTP metrics.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers on reg, which lets tests use a throwaway registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "idbcrm_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method", "status"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "idbcrm_http_in_flight_requests",
			Help: "Requests currently being served",
		}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "idbcrm_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(route, method string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}

// IncrementLogin records a login outcome: success, failure, locked or error.
func (m *Metrics) IncrementLogin(outcome string) {
	if m != nil {
		m.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}
