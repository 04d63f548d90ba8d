package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names what was audited.
type Action string

const (
	// ActionTransactionValidated records a verification verdict.
	ActionTransactionValidated Action = "transaction_validated"
	// ActionQueryServed records a remote query answered from the local index.
	ActionQueryServed Action = "query_served"
)

// Decision is the outcome recorded with an event.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
	DecisionError    Decision = "error"
)

// Event is emitted by the verification service and the query transport. Keep
// it transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	TxID       string    `json:"tx_id,omitempty"`
	Kind       string    `json:"kind,omitempty"`
	StateTypes []string  `json:"state_types,omitempty"`
	Decision   Decision  `json:"decision"`
	// RuleID and Category are set for rejections.
	RuleID   string `json:"rule_id,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message,omitempty"`
	// Request metadata, when the event originates from an HTTP request.
	RequestID string `json:"request_id,omitempty"`
	ClientIP  string `json:"client_ip,omitempty"`
	Client    string `json:"client,omitempty"`
}

// Normalize fills in the ID and timestamp when unset.
func (e Event) Normalize(now time.Time) Event {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	return e
}

// Store persists and lists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByTx(ctx context.Context, txID string) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Emitter accepts audit events for delivery.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}
