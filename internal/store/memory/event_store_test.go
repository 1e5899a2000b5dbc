package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cryptoscore-client/internal/store"
)

func event(kind, address string, at int64) *store.ChangeEvent {
	return &store.ChangeEvent{
		Kind:       kind,
		Address:    address,
		MatchID:    "match_123",
		Slot:       uint64(at),
		OccurredAt: time.Unix(at, 0),
	}
}

func TestEventStore_InsertAndList(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := s.Insert(ctx, event("growth", "addr1", i)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := s.ListByAddress(ctx, "addr1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	// Newest first.
	if got[0].Slot != 3 || got[2].Slot != 1 {
		t.Errorf("wrong order: %+v", got)
	}
}

func TestEventStore_ListByAddressFilters(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	s.Insert(ctx, event("created", "addr1", 1))
	s.Insert(ctx, event("created", "addr2", 2))

	got, err := s.ListByAddress(ctx, "addr2", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Address != "addr2" {
		t.Errorf("filter leaked: %+v", got)
	}
}

func TestEventStore_ListRecentLimit(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	for i := int64(1); i <= 10; i++ {
		s.Insert(ctx, event("surge", "addr1", i))
	}

	got, err := s.ListRecent(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected limit 4, got %d", len(got))
	}
	if got[0].Slot != 10 {
		t.Errorf("newest event must come first, got slot %d", got[0].Slot)
	}
}

func TestEventStore_InsertBulk(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	events := []*store.ChangeEvent{
		event("created", "addr1", 1),
		event("growth", "addr1", 2),
	}
	if err := s.InsertBulk(ctx, events); err != nil {
		t.Fatal(err)
	}

	got, _ := s.ListRecent(ctx, 0)
	if len(got) != 2 {
		t.Errorf("expected 2 events, got %d", len(got))
	}
}

func TestEventStore_InvalidInput(t *testing.T) {
	s := NewEventStore()
	ctx := context.Background()

	if err := s.Insert(ctx, nil); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("nil event: %v", err)
	}
	if err := s.Insert(ctx, &store.ChangeEvent{Kind: "growth"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("missing address: %v", err)
	}
	if err := s.Insert(ctx, &store.ChangeEvent{Address: "addr1"}); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("missing kind: %v", err)
	}
}
