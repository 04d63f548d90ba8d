package memory

import (
	"context"
	"sync"

	"claimledger/internal/index"
	"claimledger/internal/ledger"
	"claimledger/internal/pointer"
	"claimledger/pkg/domain"
	dErrors "claimledger/pkg/domain-errors"
)

// Store is an in-memory record index.
type Store struct {
	mu       sync.RWMutex
	records  map[ledger.StateRef]ledger.AnyStateAndRef
	consumed map[ledger.StateRef]string
	byLinear map[domain.UniqueIdentifier][]ledger.StateRef
}

func New() *Store {
	return &Store{
		records:  make(map[ledger.StateRef]ledger.AnyStateAndRef),
		consumed: make(map[ledger.StateRef]string),
		byLinear: make(map[domain.UniqueIdentifier][]ledger.StateRef),
	}
}

func (s *Store) Apply(_ context.Context, tx ledger.Transaction) error {
	if tx.ID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "transaction id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range tx.Consumed {
		s.consumed[in.Ref] = tx.ID
	}
	for _, out := range tx.CreatedRefs() {
		s.put(out)
	}
	return nil
}

func (s *Store) Put(_ context.Context, record ledger.AnyStateAndRef) error {
	if record.State == nil {
		return dErrors.New(dErrors.CodeInvalidInput, "record is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(record)
	return nil
}

func (s *Store) put(record ledger.AnyStateAndRef) {
	if record.State == nil {
		return
	}
	if _, exists := s.records[record.Ref]; exists {
		return
	}
	s.records[record.Ref] = record
	if id, ok := ledger.LinearIDOf(record.State); ok {
		s.byLinear[id] = append(s.byLinear[id], record.Ref)
	}
}

func (s *Store) Find(_ context.Context, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var refs []ledger.StateRef
	switch {
	case criteria.Ref != nil:
		refs = []ledger.StateRef{*criteria.Ref}
	case criteria.LinearID != nil:
		refs = s.byLinear[*criteria.LinearID]
	default:
		refs = make([]ledger.StateRef, 0, len(s.records))
		for ref := range s.records {
			refs = append(refs, ref)
		}
	}

	var out []ledger.AnyStateAndRef
	for _, ref := range refs {
		record, ok := s.records[ref]
		if !ok || !criteria.Matches(record) {
			continue
		}
		if _, spent := s.consumed[ref]; spent && criteria.UnconsumedOnly {
			continue
		}
		out = append(out, record)
	}
	index.SortByRef(out)
	return out, nil
}

// ConsumedBy returns the id of the transaction that consumed ref.
func (s *Store) ConsumedBy(ref ledger.StateRef) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txID, ok := s.consumed[ref]
	return txID, ok
}

// Len returns the number of stored versions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
