package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptoscore-client/internal/store"
)

func testEvent(kind, address string, at int64) *store.ChangeEvent {
	return &store.ChangeEvent{
		Kind:       kind,
		Address:    address,
		MatchID:    "match_123",
		Slot:       uint64(at),
		OccurredAt: time.Unix(at, 0).UTC(),
	}
}

func TestEventStore_InsertAndListByAddress(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewEventStore(conn)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, testEvent("created", "addr1", 1_700_000_001)))
	require.NoError(t, s.Insert(ctx, testEvent("growth", "addr1", 1_700_000_002)))
	require.NoError(t, s.Insert(ctx, testEvent("created", "addr2", 1_700_000_003)))

	got, err := s.ListByAddress(ctx, "addr1", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Newest first.
	assert.Equal(t, "growth", got[0].Kind)
	assert.Equal(t, "created", got[1].Kind)
	assert.Equal(t, "match_123", got[0].MatchID)
}

func TestEventStore_InsertBulkAndListRecent(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewEventStore(conn)
	ctx := context.Background()

	events := []*store.ChangeEvent{
		testEvent("created", "addr1", 1_700_000_001),
		testEvent("growth", "addr1", 1_700_000_002),
		testEvent("surge", "addr2", 1_700_000_003),
		testEvent("resolved", "addr2", 1_700_000_004),
	}
	events[1].ParticipantDelta = 7
	events[2].PoolDelta = 2_000_000_000
	require.NoError(t, s.InsertBulk(ctx, events))

	got, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "resolved", got[0].Kind)
	assert.Equal(t, "surge", got[1].Kind)
	assert.Equal(t, uint64(2_000_000_000), got[1].PoolDelta)
}

func TestEventStore_EmptyBulkIsNoop(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewEventStore(conn)
	assert.NoError(t, s.InsertBulk(context.Background(), nil))
}

func TestEventStore_InvalidInput(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	s := NewEventStore(conn)
	ctx := context.Background()

	assert.ErrorIs(t, s.Insert(ctx, &store.ChangeEvent{Kind: "growth"}), store.ErrInvalidInput)
	assert.ErrorIs(t, s.Insert(ctx, &store.ChangeEvent{Address: "addr1"}), store.ErrInvalidInput)
}
