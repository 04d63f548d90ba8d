package worker

import (
	"context"
	"log/slog"

	audit "claimledger/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store. Append failures are
// logged and the worker moves on: auditing never blocks verification.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run returns when ctx is done or the inbox is closed and drained.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil && w.logger != nil {
				w.logger.ErrorContext(ctx, "audit append failed",
					"tx_id", event.TxID,
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
