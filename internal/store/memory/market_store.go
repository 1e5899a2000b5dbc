// Package memory provides in-memory store implementations for tests and
// cache-only deployments.
package memory

import (
	"context"
	"sort"
	"sync"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/store"
)

// MarketStore is an in-memory implementation of store.MarketStore.
type MarketStore struct {
	mu   sync.RWMutex
	data map[string]*store.MarketSnapshot
}

// NewMarketStore creates a new in-memory market store.
func NewMarketStore() *MarketStore {
	return &MarketStore{data: make(map[string]*store.MarketSnapshot)}
}

// Compile-time interface check.
var _ store.MarketStore = (*MarketStore)(nil)

// Upsert replaces the stored snapshot unless the incoming one is older.
func (s *MarketStore) Upsert(_ context.Context, snap *store.MarketSnapshot) error {
	if snap == nil || snap.Address == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[snap.Address]; ok && snap.Slot < existing.Slot {
		return nil
	}
	// Store a copy to prevent external mutation.
	snapCopy := *snap
	s.data[snap.Address] = &snapCopy
	return nil
}

// Get retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *MarketStore) Get(_ context.Context, address string) (*store.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[address]
	if !ok {
		return nil, store.ErrNotFound
	}
	snapCopy := *snap
	return &snapCopy, nil
}

// List retrieves every snapshot, ordered by address ASC.
func (s *MarketStore) List(_ context.Context) ([]*store.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*store.MarketSnapshot, 0, len(s.data))
	for _, snap := range s.data {
		snapCopy := *snap
		result = append(result, &snapCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result, nil
}

// ListByStatus retrieves snapshots with the given status, ordered by
// address ASC.
func (s *MarketStore) ListByStatus(_ context.Context, status program.MarketStatus) ([]*store.MarketSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.MarketSnapshot
	for _, snap := range s.data {
		if snap.Market.Status == status {
			snapCopy := *snap
			result = append(result, &snapCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Address < result[j].Address
	})
	return result, nil
}

// Delete removes one snapshot. Deleting a missing address is a no-op.
func (s *MarketStore) Delete(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, address)
	return nil
}
