package pointer

import (
	"context"

	"claimledger/internal/ledger"
	"claimledger/pkg/domain"
)

//go:generate mockgen -source=source.go -destination=mocks/mocks.go -package=mocks Querier,Index

// Criteria selects candidate records. Exactly one of Ref or LinearID is set
// by pointers; backends may support both at once.
type Criteria struct {
	Ref            *ledger.StateRef         `json:"ref,omitempty"`
	LinearID       *domain.UniqueIdentifier `json:"linear_id,omitempty"`
	UnconsumedOnly bool                     `json:"unconsumed_only,omitempty"`
}

// Matches applies the ref and identity parts of the criteria. Consumption is
// tracked by the backend, not by the record, so UnconsumedOnly is not checked.
func (c Criteria) Matches(sr ledger.AnyStateAndRef) bool {
	if c.Ref != nil && sr.Ref != *c.Ref {
		return false
	}
	if c.LinearID != nil {
		if sr.State == nil {
			return false
		}
		id, ok := ledger.LinearIDOf(sr.State)
		if !ok || id != *c.LinearID {
			return false
		}
	}
	return true
}

// Querier is a remote query capability.
type Querier interface {
	Query(ctx context.Context, stateType ledger.StateType, criteria Criteria) ([]ledger.AnyStateAndRef, error)
}

// Index is a local record index.
type Index interface {
	Find(ctx context.Context, criteria Criteria) ([]ledger.AnyStateAndRef, error)
}

// Source is one of the three places a pointer can be resolved against. The
// set is closed: build sources with FromQuery, FromIndex or FromTransaction.
type Source interface {
	// Name labels the source in metrics and traces.
	Name() string
	candidates(ctx context.Context, stateType ledger.StateType, criteria Criteria) ([]ledger.AnyStateAndRef, error)
}

type querySource struct {
	q Querier
}

// FromQuery resolves through a remote query capability. The target type is
// passed to the remote side as part of the query.
func FromQuery(q Querier) Source {
	return querySource{q: q}
}

func (s querySource) Name() string { return "query" }

func (s querySource) candidates(ctx context.Context, stateType ledger.StateType, criteria Criteria) ([]ledger.AnyStateAndRef, error) {
	return s.q.Query(ctx, stateType, criteria)
}

type indexSource struct {
	ix Index
}

// FromIndex resolves through a local record index.
func FromIndex(ix Index) Source {
	return indexSource{ix: ix}
}

func (s indexSource) Name() string { return "index" }

func (s indexSource) candidates(ctx context.Context, _ ledger.StateType, criteria Criteria) ([]ledger.AnyStateAndRef, error) {
	return s.ix.Find(ctx, criteria)
}

type transactionSource struct {
	tx ledger.Transaction
}

// FromTransaction resolves against the records of an in-flight transaction.
// Static criteria search consumed, referenced and created records; unconsumed
// criteria skip the consumed set.
func FromTransaction(tx ledger.Transaction) Source {
	return transactionSource{tx: tx}
}

func (s transactionSource) Name() string { return "transaction" }

func (s transactionSource) candidates(_ context.Context, _ ledger.StateType, criteria Criteria) ([]ledger.AnyStateAndRef, error) {
	var pool []ledger.AnyStateAndRef
	if !criteria.UnconsumedOnly {
		pool = append(pool, s.tx.Consumed...)
	}
	pool = append(pool, s.tx.Referenced...)
	pool = append(pool, s.tx.CreatedRefs()...)

	seen := make(map[ledger.StateRef]struct{}, len(pool))
	var out []ledger.AnyStateAndRef
	for _, sr := range pool {
		if sr.State == nil || !criteria.Matches(sr) {
			continue
		}
		if _, dup := seen[sr.Ref]; dup {
			continue
		}
		seen[sr.Ref] = struct{}{}
		out = append(out, sr)
	}
	return out, nil
}
