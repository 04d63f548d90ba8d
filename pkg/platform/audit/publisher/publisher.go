// Package publisher emits audit events into an audit.Store, synchronously or
// through a bounded buffer drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "claimledger/pkg/platform/audit"
	"claimledger/pkg/platform/audit/worker"
)

// ErrBufferFull is returned by Emit in async mode when the buffer has no room.
var ErrBufferFull = errors.New("audit buffer full")

// ErrClosed is returned by Emit in async mode after Close.
var ErrClosed = errors.New("audit publisher closed")

// Publisher writes events to a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	clock  func() time.Time

	buffer chan audit.Event
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit enqueue into a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.buffer = make(chan audit.Event, n)
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(p *Publisher) {
		if clock != nil {
			p.clock = clock
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.buffer != nil {
		w := worker.NewWorker(store, p.buffer, p.logger)
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Emit records event. In async mode it never blocks: a full buffer returns
// ErrBufferFull and a cancelled context returns its error.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	event = event.Normalize(p.clock())
	if p.buffer == nil {
		return p.store.Append(ctx, event)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// List returns the events recorded for a transaction.
func (p *Publisher) List(ctx context.Context, txID string) ([]audit.Event, error) {
	return p.store.ListByTx(ctx, txID)
}

// Close stops accepting events and waits for the buffer to drain.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if !p.closed && p.buffer != nil {
		close(p.buffer)
	}
	p.closed = true
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}
