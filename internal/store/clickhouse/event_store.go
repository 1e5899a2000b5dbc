package clickhouse

import (
	"context"
	"fmt"

	"cryptoscore-client/internal/store"
)

// EventStore implements store.EventStore using ClickHouse.
type EventStore struct {
	conn *Conn
}

// NewEventStore creates a new EventStore.
func NewEventStore(conn *Conn) *EventStore {
	return &EventStore{conn: conn}
}

// Compile-time interface check.
var _ store.EventStore = (*EventStore)(nil)

// Insert appends one event.
func (s *EventStore) Insert(ctx context.Context, e *store.ChangeEvent) error {
	return s.InsertBulk(ctx, []*store.ChangeEvent{e})
}

// InsertBulk appends multiple events in one batch.
func (s *EventStore) InsertBulk(ctx context.Context, events []*store.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.Address == "" || e.Kind == "" {
			return store.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO change_events (
			event_kind, address, match_id, participant_delta, pool_delta, slot, occurred_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Kind, e.Address, e.MatchID,
			e.ParticipantDelta, e.PoolDelta, e.Slot, e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// ListByAddress retrieves events for one market, newest first.
func (s *EventStore) ListByAddress(ctx context.Context, address string, limit int) ([]*store.ChangeEvent, error) {
	query := `
		SELECT event_kind, address, match_id, participant_delta, pool_delta, slot, occurred_at
		FROM change_events
		WHERE address = ?
		ORDER BY occurred_at DESC
	`
	args := []interface{}{address}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events by address: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// ListRecent retrieves the latest events across all markets, newest
// first.
func (s *EventStore) ListRecent(ctx context.Context, limit int) ([]*store.ChangeEvent, error) {
	query := `
		SELECT event_kind, address, match_id, participant_delta, pool_delta, slot, occurred_at
		FROM change_events
		ORDER BY occurred_at DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

type eventRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanEvents(rows eventRows) ([]*store.ChangeEvent, error) {
	var result []*store.ChangeEvent
	for rows.Next() {
		var e store.ChangeEvent
		if err := rows.Scan(&e.Kind, &e.Address, &e.MatchID, &e.ParticipantDelta, &e.PoolDelta, &e.Slot, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return result, nil
}
