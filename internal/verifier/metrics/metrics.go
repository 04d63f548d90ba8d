package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification service.
type Metrics struct {
	// Verdicts by transition kind, decision and violation category
	Decisions *prometheus.CounterVec

	ValidateLatency prometheus.Histogram

	// Audit emissions that failed and were dropped
	AuditFailures prometheus.Counter
}

// New registers the verifier metrics with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "claimledger_verifier_decisions_total",
			Help: "Verification verdicts by transition kind, decision and violation category",
		}, []string{"kind", "decision", "category"}),

		ValidateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "claimledger_verifier_validate_duration_seconds",
			Help:    "Duration of a full transaction validation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),

		AuditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_verifier_audit_failures_total",
			Help: "Audit events that could not be emitted",
		}),
	}
}

// IncrementDecision records a verdict. category is empty for accepts.
func (m *Metrics) IncrementDecision(kind, decision, category string) {
	if m != nil {
		m.Decisions.WithLabelValues(kind, decision, category).Inc()
	}
}

func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m != nil {
		m.ValidateLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementAuditFailure() {
	if m != nil {
		m.AuditFailures.Inc()
	}
}
