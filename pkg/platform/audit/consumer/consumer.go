// Package consumer materializes audit events from Kafka into an audit.Store.
package consumer

import (
	"context"
	"errors"
	"log/slog"

	audit "claimledger/pkg/platform/audit"
	auditkafka "claimledger/pkg/platform/audit/publishers/kafka"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Fetcher is the subset of *kgo.Client used by Consumer.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// Consumer polls audit records and appends them to a store. Undecodable
// records are logged and skipped.
type Consumer struct {
	fetcher Fetcher
	store   audit.Store
	metrics *auditkafka.Metrics
	logger  *slog.Logger
}

func New(fetcher Fetcher, store audit.Store, metrics *auditkafka.Metrics, logger *slog.Logger) *Consumer {
	return &Consumer{fetcher: fetcher, store: store, metrics: metrics, logger: logger}
}

// Run polls until ctx is cancelled or the client is closed.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.fetcher.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) {
				continue
			}
			c.log(ctx, "audit fetch failed", "topic", fe.Topic, "partition", fe.Partition, "error", fe.Err)
		}
		fetches.EachRecord(func(r *kgo.Record) {
			c.handle(ctx, r)
		})
	}
}

func (c *Consumer) handle(ctx context.Context, r *kgo.Record) {
	event, err := auditkafka.DecodeEvent(r.Value)
	if err != nil {
		c.countFailure()
		c.log(ctx, "audit record skipped", "offset", r.Offset, "error", err)
		return
	}
	if err := c.store.Append(ctx, event); err != nil {
		c.countFailure()
		c.log(ctx, "audit append failed", "tx_id", event.TxID, "error", err)
		return
	}
	if c.metrics != nil {
		c.metrics.Consumed.Inc()
	}
}

func (c *Consumer) countFailure() {
	if c.metrics != nil {
		c.metrics.ConsumeFailures.Inc()
	}
}

func (c *Consumer) log(ctx context.Context, msg string, args ...any) {
	if c.logger != nil {
		c.logger.WarnContext(ctx, msg, args...)
	}
}
