package memory

import (
	"context"
	"sync"

	"cryptoscore-client/internal/store"
)

// EventStore is an in-memory implementation of store.EventStore. Events
// are kept in insertion order, which is assumed chronological.
type EventStore struct {
	mu     sync.RWMutex
	events []*store.ChangeEvent
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{}
}

// Compile-time interface check.
var _ store.EventStore = (*EventStore)(nil)

// Insert appends one event.
func (s *EventStore) Insert(_ context.Context, e *store.ChangeEvent) error {
	if e == nil || e.Address == "" || e.Kind == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	eventCopy := *e
	s.events = append(s.events, &eventCopy)
	return nil
}

// InsertBulk appends multiple events.
func (s *EventStore) InsertBulk(ctx context.Context, events []*store.ChangeEvent) error {
	for _, e := range events {
		if err := s.Insert(ctx, e); err != nil {
			return err
		}
	}
	return nil
}

// ListByAddress retrieves events for one market, newest first.
func (s *EventStore) ListByAddress(_ context.Context, address string, limit int) ([]*store.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.ChangeEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].Address != address {
			continue
		}
		eventCopy := *s.events[i]
		result = append(result, &eventCopy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// ListRecent retrieves the latest events across all markets, newest
// first.
func (s *EventStore) ListRecent(_ context.Context, limit int) ([]*store.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*store.ChangeEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		eventCopy := *s.events[i]
		result = append(result, &eventCopy)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}
