package pointer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for pointer resolution.
type Metrics struct {
	// Resolution outcomes by source, strategy and outcome
	Resolutions *prometheus.CounterVec

	// Resolution latency by source
	ResolveLatency *prometheus.HistogramVec
}

// NewMetrics registers resolution metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimledger_pointer_resolutions_total",
			Help: "Pointer resolutions by source, strategy and outcome",
		}, []string{"source", "strategy", "outcome"}), // outcome: resolved, not_found, ambiguous, type_mismatch, error

		ResolveLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "claimledger_pointer_resolve_duration_seconds",
			Help:    "Duration of pointer resolution by source",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"source"}),
	}
}

// ObserveResolution records one resolution attempt.
func (m *Metrics) ObserveResolution(source string, strategy Strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(source, strategy.String(), outcome).Inc()
	m.ResolveLatency.WithLabelValues(source).Observe(d.Seconds())
}
