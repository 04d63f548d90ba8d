package client

import (
	"context"
	"errors"
	"log/slog"

	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
	"claimledger/pkg/platform/circuit"
	"claimledger/pkg/platform/sentinel"
)

// Failover queries the primary (usually a remote Client) and falls back to a
// secondary (usually the local index) while the primary is unavailable.
//
// The primary is always tried first so that its successes can close the
// breaker again; a primary answer is returned even while the breaker is open.
type Failover struct {
	primary   pointer.Querier
	secondary pointer.Querier
	breaker   *circuit.Breaker
	logger    *slog.Logger
}

type FailoverOption func(*Failover)

func WithBreaker(b *circuit.Breaker) FailoverOption {
	return func(f *Failover) {
		if b != nil {
			f.breaker = b
		}
	}
}

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *Failover) {
		f.logger = logger
	}
}

func NewFailover(primary, secondary pointer.Querier, opts ...FailoverOption) *Failover {
	f := &Failover{
		primary:   primary,
		secondary: secondary,
		breaker:   circuit.New("remote-query"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// Query implements pointer.Querier.
func (f *Failover) Query(ctx context.Context, stateType ledger.StateType, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	records, err := f.primary.Query(ctx, stateType, criteria)
	if err == nil {
		_, change := f.breaker.RecordSuccess()
		if change.Closed {
			f.log(ctx, "remote query recovered, circuit closed")
		}
		return records, nil
	}
	// Only infrastructure failures count against the primary.
	if ctx.Err() != nil || !errors.Is(err, sentinel.ErrUnavailable) {
		return nil, err
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.log(ctx, "remote query failing, circuit opened", "error", err)
	}
	if !useFallback {
		return nil, err
	}
	return f.secondary.Query(ctx, stateType, criteria)
}

// Degraded reports whether queries are currently served by the secondary.
func (f *Failover) Degraded() bool {
	return f.breaker.IsOpen()
}

func (f *Failover) log(ctx context.Context, msg string, args ...any) {
	if f.logger != nil {
		f.logger.WarnContext(ctx, msg, append([]any{"breaker", f.breaker.Name()}, args...)...)
	}
}
