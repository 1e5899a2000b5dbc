// Package store persists last-known-good account snapshots and the
// change-event journal, so a restarted consumer serves cached data while
// the sync layer catches up.
package store

import (
	"context"
	"time"

	"cryptoscore-client/internal/program"
)

// MarketSnapshot is one observed market state with freshness metadata.
// Addresses are base58 strings so every backend keys them the same way.
type MarketSnapshot struct {
	Address    string
	Market     program.Market
	Slot       uint64
	ObservedAt time.Time
}

// ChangeEvent is one detected market change, journaled append-only.
type ChangeEvent struct {
	Kind             string
	Address          string
	MatchID          string
	ParticipantDelta uint32
	PoolDelta        uint64
	Slot             uint64
	OccurredAt       time.Time
}

// MarketStore holds the last-known-good snapshot per market address.
type MarketStore interface {
	// Upsert replaces the stored snapshot. A snapshot older than the
	// stored one (lower slot) is dropped silently: snapshots may arrive
	// out of order and replace must stay idempotent.
	Upsert(ctx context.Context, snap *MarketSnapshot) error

	// Get retrieves one snapshot. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address string) (*MarketSnapshot, error)

	// List retrieves every snapshot, ordered by address ASC.
	List(ctx context.Context) ([]*MarketSnapshot, error)

	// ListByStatus retrieves snapshots with the given status, ordered by
	// address ASC.
	ListByStatus(ctx context.Context, status program.MarketStatus) ([]*MarketSnapshot, error)

	// Delete removes one snapshot. Deleting a missing address is a no-op.
	Delete(ctx context.Context, address string) error
}

// EventStore journals change events.
type EventStore interface {
	// Insert appends one event.
	Insert(ctx context.Context, e *ChangeEvent) error

	// InsertBulk appends multiple events.
	InsertBulk(ctx context.Context, events []*ChangeEvent) error

	// ListByAddress retrieves events for one market, newest first,
	// capped at limit (0 means no cap).
	ListByAddress(ctx context.Context, address string, limit int) ([]*ChangeEvent, error)

	// ListRecent retrieves the latest events across all markets, newest
	// first, capped at limit (0 means no cap).
	ListRecent(ctx context.Context, limit int) ([]*ChangeEvent, error)
}
