package memory

import (
	"context"
	"slices"
	"sync"

	audit "claimledger/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	byTx   map[string][]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byTx: make(map[string][]int)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.byTx = make(map[string][]int)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byTx[event.TxID] = append(s.byTx[event.TxID], len(s.events))
	s.events = append(s.events, event)
	return nil
}

// ListByTx returns the events of one transaction in append order.
func (s *InMemoryStore) ListByTx(_ context.Context, txID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Event, 0, len(s.byTx[txID]))
	for _, i := range s.byTx[txID] {
		out = append(out, s.events[i])
	}
	return out, nil
}

// ListRecent returns up to limit events, most recent first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	all := slices.Clone(s.events)
	s.mu.RUnlock()

	slices.SortStableFunc(all, func(a, b audit.Event) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
