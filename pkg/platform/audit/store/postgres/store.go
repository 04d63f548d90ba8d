package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	audit "claimledger/pkg/platform/audit"
	txcontext "claimledger/pkg/platform/tx"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed schema.sql
var schema string

// Migrate creates the audit tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate audit_events: %w", err)
	}
	return nil
}

// Store implements audit.Store on PostgreSQL. Appends are idempotent on the
// event id so replayed Kafka records are harmless.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Append inserts event. Events without an id get a fresh one.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	stateTypes := event.StateTypes
	if stateTypes == nil {
		stateTypes = []string{}
	}

	query := `
		INSERT INTO audit_events (
			id, timestamp, action, tx_id, kind, state_types,
			decision, rule_id, category, message,
			request_id, client_ip, client
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		event.ID,
		event.Timestamp,
		string(event.Action),
		event.TxID,
		event.Kind,
		pq.Array(stateTypes),
		string(event.Decision),
		event.RuleID,
		event.Category,
		event.Message,
		event.RequestID,
		event.ClientIP,
		event.Client,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

const selectColumns = `
	SELECT id, timestamp, action, tx_id, kind, state_types,
		   decision, rule_id, category, message,
		   request_id, client_ip, client
	FROM audit_events
`

// ListByTx returns the events of one transaction in insertion order.
func (s *Store) ListByTx(ctx context.Context, txID string) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`WHERE tx_id = $1 ORDER BY seq ASC`, txID)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListRecent returns the N most recent events.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+`ORDER BY timestamp DESC, seq DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]audit.Event, error) {
	var events []audit.Event
	for rows.Next() {
		var (
			event      audit.Event
			action     string
			decision   string
			stateTypes []string
		)
		err := rows.Scan(
			&event.ID,
			&event.Timestamp,
			&action,
			&event.TxID,
			&event.Kind,
			pq.Array(&stateTypes),
			&decision,
			&event.RuleID,
			&event.Category,
			&event.Message,
			&event.RequestID,
			&event.ClientIP,
			&event.Client,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		event.Action = audit.Action(action)
		event.Decision = audit.Decision(decision)
		if len(stateTypes) > 0 {
			event.StateTypes = stateTypes
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}
