// Package index defines the local record index: the store of record versions
// a node knows about, with consumption tracking, that pointers resolve against
// through pointer.FromIndex.
//
// Implementations live in the memory, postgres and redis subpackages. A
// record version is immutable once written: putting the same reference twice
// keeps the first write.
package index

import (
	"context"
	"slices"
	"strings"

	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
)

// Store is a record index.
type Store interface {
	// Apply records an accepted transaction: consumed versions are marked
	// consumed and created versions are inserted under the transaction id.
	Apply(ctx context.Context, tx ledger.Transaction) error
	// Put inserts one record version, unconsumed.
	Put(ctx context.Context, record ledger.AnyStateAndRef) error
	// Find returns the versions matching criteria, ordered by reference.
	Find(ctx context.Context, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error)
}

// SortByRef orders records by transaction hash then output index.
func SortByRef(records []ledger.AnyStateAndRef) {
	slices.SortFunc(records, func(a, b ledger.AnyStateAndRef) int {
		if c := strings.Compare(a.Ref.TxHash, b.Ref.TxHash); c != 0 {
			return c
		}
		return a.Ref.Index - b.Ref.Index
	})
}
