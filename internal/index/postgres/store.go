// Package postgres persists the record index in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"claimledger/internal/index"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
	dErrors "claimledger/pkg/domain-errors"
	txcontext "claimledger/pkg/platform/tx"
)

//go:embed schema.sql
var schema string

// Migrate creates the index tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate ledger_records: %w", err)
	}
	return nil
}

// Store is a PostgreSQL-backed record index. Writes join the transaction in
// the context when there is one.
type Store struct {
	db       *sql.DB
	registry *codec.Registry
}

// New constructs a PostgreSQL-backed record index. registry decodes stored
// payloads back into records.
func New(db *sql.DB, registry *codec.Registry) *Store {
	return &Store{db: db, registry: registry}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) executor(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// Apply marks consumed versions and inserts created ones atomically.
func (s *Store) Apply(ctx context.Context, tx ledger.Transaction) error {
	if tx.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "transaction id is required")
	}
	if _, ok := txcontext.From(ctx); ok {
		return s.apply(ctx, tx)
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	if err := s.apply(txcontext.WithTx(ctx, sqlTx), tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit apply: %w", err)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, tx ledger.Transaction) error {
	if len(tx.Consumed) > 0 {
		hashes := make([]string, len(tx.Consumed))
		indexes := make([]int64, len(tx.Consumed))
		for i, in := range tx.Consumed {
			hashes[i] = in.Ref.TxHash
			indexes[i] = int64(in.Ref.Index)
		}
		query := `
			UPDATE ledger_records r
			SET consumed_by = $1
			FROM unnest($2::text[], $3::int[]) AS c(tx_hash, output_index)
			WHERE r.tx_hash = c.tx_hash AND r.output_index = c.output_index
		`
		if _, err := s.executor(ctx).ExecContext(ctx, query, tx.ID, pq.Array(hashes), pq.Array(indexes)); err != nil {
			return fmt.Errorf("mark consumed: %w", err)
		}
	}
	for _, out := range tx.CreatedRefs() {
		if err := s.Put(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Put(ctx context.Context, record ledger.AnyStateAndRef) error {
	if record.State == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	env, err := s.registry.Encode(record.State)
	if err != nil {
		return err
	}
	var linearID sql.NullString
	if id, ok := ledger.LinearIDOf(record.State); ok {
		linearID = sql.NullString{String: id.String(), Valid: true}
	}
	query := `
		INSERT INTO ledger_records (tx_hash, output_index, state_type, linear_id, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tx_hash, output_index) DO NOTHING
	`
	_, err = s.executor(ctx).ExecContext(ctx, query,
		record.Ref.TxHash,
		record.Ref.Index,
		string(env.Type),
		linearID,
		[]byte(env.Data),
	)
	if err != nil {
		return fmt.Errorf("insert record %s: %w", record.Ref, err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	var (
		where []string
		args  []any
	)
	if criteria.Ref != nil {
		args = append(args, criteria.Ref.TxHash, criteria.Ref.Index)
		where = append(where, fmt.Sprintf("tx_hash = $%d AND output_index = $%d", len(args)-1, len(args)))
	}
	if criteria.LinearID != nil {
		args = append(args, criteria.LinearID.String())
		where = append(where, fmt.Sprintf("linear_id = $%d", len(args)))
	}
	if criteria.UnconsumedOnly {
		where = append(where, "consumed_by IS NULL")
	}

	query := `SELECT tx_hash, output_index, state_type, payload FROM ledger_records`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY tx_hash, output_index"

	rows, err := s.executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []ledger.AnyStateAndRef
	for rows.Next() {
		var (
			env       codec.RecordEnvelope
			stateType string
			payload   []byte
		)
		if err := rows.Scan(&env.Ref.TxHash, &env.Ref.Index, &stateType, &payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		env.Type = ledger.StateType(stateType)
		env.Data = json.RawMessage(payload)
		record, err := s.registry.DecodeRecord(env)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", env.Ref, err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	index.SortByRef(out)
	return out, nil
}

// ConsumedBy returns the id of the transaction that consumed ref.
func (s *Store) ConsumedBy(ctx context.Context, ref ledger.StateRef) (string, bool, error) {
	rows, err := s.executor(ctx).QueryContext(ctx,
		`SELECT consumed_by FROM ledger_records WHERE tx_hash = $1 AND output_index = $2`,
		ref.TxHash, ref.Index)
	if err != nil {
		return "", false, fmt.Errorf("find consumption: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return "", false, rows.Err()
	}
	var consumedBy sql.NullString
	if err := rows.Scan(&consumedBy); err != nil {
		return "", false, fmt.Errorf("scan consumption: %w", err)
	}
	return consumedBy.String, consumedBy.Valid, nil
}
