package client

import (
	"context"

	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
)

// IndexQuerier answers queries from a local index, keeping records of the
// requested type only.
type IndexQuerier struct {
	index pointer.Index
}

func NewIndexQuerier(index pointer.Index) *IndexQuerier {
	return &IndexQuerier{index: index}
}

func (q *IndexQuerier) Query(ctx context.Context, stateType ledger.StateType, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	found, err := q.index.Find(ctx, criteria)
	if err != nil {
		return nil, err
	}
	out := make([]ledger.AnyStateAndRef, 0, len(found))
	for _, sr := range found {
		if sr.State != nil && sr.State.StateType() == stateType {
			out = append(out, sr)
		}
	}
	return out, nil
}
