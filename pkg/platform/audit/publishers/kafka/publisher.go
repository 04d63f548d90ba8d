// Package kafka streams audit events to a Kafka topic and materializes them
// back into an audit.Store.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	audit "claimledger/pkg/platform/audit"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives verification audit events.
const DefaultTopic = "claimledger.audit"

// ErrCircuitOpen is returned by Emit while the breaker drops events.
var ErrCircuitOpen = errors.New("audit kafka circuit open")

// Producer is the subset of *kgo.Client used by Publisher.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher implements audit.Emitter on top of Kafka.
type Publisher struct {
	producer Producer
	topic    string
	breaker  *CircuitBreaker
	metrics  *Metrics
	logger   *slog.Logger
	clock    func() time.Time
}

type Option func(*Publisher)

func WithTopic(topic string) Option {
	return func(p *Publisher) {
		if topic != "" {
			p.topic = topic
		}
	}
}

func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(p *Publisher) {
		if cb != nil {
			p.breaker = cb
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(producer Producer, opts ...Option) *Publisher {
	p := &Publisher{
		producer: producer,
		topic:    DefaultTopic,
		breaker:  NewCircuitBreaker(5, 30*time.Second),
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Emit produces event keyed by its transaction id so that all events of one
// transaction land on the same partition in order.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if !p.breaker.Allow() {
		p.metrics.incDropped()
		return ErrCircuitOpen
	}
	event = event.Normalize(p.clock())
	value, err := EncodeEvent(event)
	if err != nil {
		return err
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.TxID),
		Value: value,
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.metrics.incPublishFailures()
		if p.breaker.RecordFailure() {
			p.metrics.setCircuitBreakerState(true)
			if p.logger != nil {
				p.logger.WarnContext(ctx, "audit kafka circuit opened", "topic", p.topic, "error", err)
			}
		}
		return fmt.Errorf("produce audit event: %w", err)
	}
	p.breaker.RecordSuccess()
	p.metrics.setCircuitBreakerState(false)
	p.metrics.incPublished()
	return nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replication int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, partitions, replication, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}
