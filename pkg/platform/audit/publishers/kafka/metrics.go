package kafka

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the Kafka audit sink.
type Metrics struct {
	Published             prometheus.Counter
	PublishFailures       prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
	Consumed              prometheus.Counter
	ConsumeFailures       prometheus.Counter
}

// NewMetrics registers the sink metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Published: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_audit_kafka_published_total",
			Help: "Audit events produced to Kafka",
		}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_audit_kafka_publish_failures_total",
			Help: "Audit events that failed to produce",
		}),
		CircuitBreakerDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_audit_kafka_circuit_breaker_dropped_total",
			Help: "Audit events dropped while the circuit breaker was open",
		}),
		CircuitBreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "claimledger_audit_kafka_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open)",
		}),
		Consumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_audit_kafka_consumed_total",
			Help: "Audit events materialized from Kafka into the store",
		}),
		ConsumeFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "claimledger_audit_kafka_consume_failures_total",
			Help: "Audit records that could not be decoded or stored",
		}),
	}
}

func (m *Metrics) incPublished() {
	if m != nil {
		m.Published.Inc()
	}
}

func (m *Metrics) incPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

func (m *Metrics) incDropped() {
	if m != nil {
		m.CircuitBreakerDropped.Inc()
	}
}

func (m *Metrics) setCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
