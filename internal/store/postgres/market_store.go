package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
	"cryptoscore-client/internal/store"
)

// MarketStore implements store.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *Pool
}

// NewMarketStore creates a new MarketStore.
func NewMarketStore(pool *Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Compile-time interface check.
var _ store.MarketStore = (*MarketStore)(nil)

const snapshotColumns = `
	address, factory_address, creator, match_id, entry_fee,
	kickoff_time, end_time, status, outcome, total_pool,
	participant_count, home_count, draw_count, away_count,
	is_public, bump, slot, observed_at
`

// Upsert replaces the stored snapshot unless the incoming one carries a
// lower slot than what is already stored.
func (s *MarketStore) Upsert(ctx context.Context, snap *store.MarketSnapshot) error {
	if snap == nil || snap.Address == "" {
		return store.ErrInvalidInput
	}

	query := `
		INSERT INTO market_snapshots (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (address) DO UPDATE SET
			factory_address = EXCLUDED.factory_address,
			creator = EXCLUDED.creator,
			match_id = EXCLUDED.match_id,
			entry_fee = EXCLUDED.entry_fee,
			kickoff_time = EXCLUDED.kickoff_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			outcome = EXCLUDED.outcome,
			total_pool = EXCLUDED.total_pool,
			participant_count = EXCLUDED.participant_count,
			home_count = EXCLUDED.home_count,
			draw_count = EXCLUDED.draw_count,
			away_count = EXCLUDED.away_count,
			is_public = EXCLUDED.is_public,
			bump = EXCLUDED.bump,
			slot = EXCLUDED.slot,
			observed_at = EXCLUDED.observed_at,
			updated_at = now()
		WHERE EXCLUDED.slot >= market_snapshots.slot
	`

	m := snap.Market
	var outcome *int16
	if m.Outcome != nil {
		v := int16(*m.Outcome)
		outcome = &v
	}

	_, err := s.pool.Exec(ctx, query,
		snap.Address,
		m.Factory.String(),
		m.Creator.String(),
		m.MatchID,
		int64(m.EntryFee),
		m.KickoffTime,
		m.EndTime,
		int16(m.Status),
		outcome,
		int64(m.TotalPool),
		int64(m.ParticipantCount),
		int64(m.HomeCount),
		int64(m.DrawCount),
		int64(m.AwayCount),
		m.IsPublic,
		int16(m.Bump),
		int64(snap.Slot),
		snap.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert market snapshot: %w", err)
	}
	return nil
}

// Get retrieves one snapshot. Returns ErrNotFound if not exists.
func (s *MarketStore) Get(ctx context.Context, address string) (*store.MarketSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM market_snapshots WHERE address = $1`

	row := s.pool.QueryRow(ctx, query, address)
	snap, err := scanSnapshot(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get market snapshot: %w", err)
	}
	return snap, nil
}

// List retrieves every snapshot, ordered by address ASC.
func (s *MarketStore) List(ctx context.Context) ([]*store.MarketSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM market_snapshots ORDER BY address ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list market snapshots: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// ListByStatus retrieves snapshots with the given status, ordered by
// address ASC.
func (s *MarketStore) ListByStatus(ctx context.Context, status program.MarketStatus) ([]*store.MarketSnapshot, error) {
	query := `SELECT ` + snapshotColumns + ` FROM market_snapshots WHERE status = $1 ORDER BY address ASC`

	rows, err := s.pool.Query(ctx, query, int16(status))
	if err != nil {
		return nil, fmt.Errorf("list market snapshots by status: %w", err)
	}
	defer rows.Close()

	return scanSnapshots(rows)
}

// Delete removes one snapshot. Deleting a missing address is a no-op.
func (s *MarketStore) Delete(ctx context.Context, address string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM market_snapshots WHERE address = $1`, address)
	if err != nil {
		return fmt.Errorf("delete market snapshot: %w", err)
	}
	return nil
}

func scanSnapshot(row pgx.Row) (*store.MarketSnapshot, error) {
	var (
		snap             store.MarketSnapshot
		factory, creator string
		entryFee         int64
		status           int16
		outcome          *int16
		totalPool        int64
		participants     int64
		home, draw, away int64
		bump             int16
		slot             int64
	)
	err := row.Scan(
		&snap.Address, &factory, &creator, &snap.Market.MatchID, &entryFee,
		&snap.Market.KickoffTime, &snap.Market.EndTime, &status, &outcome, &totalPool,
		&participants, &home, &draw, &away,
		&snap.Market.IsPublic, &bump, &slot, &snap.ObservedAt,
	)
	if err != nil {
		return nil, err
	}

	factoryPk, err := pubkey.FromBase58(factory)
	if err != nil {
		return nil, fmt.Errorf("parse factory address: %w", err)
	}
	creatorPk, err := pubkey.FromBase58(creator)
	if err != nil {
		return nil, fmt.Errorf("parse creator address: %w", err)
	}

	snap.Market.Factory = factoryPk
	snap.Market.Creator = creatorPk
	snap.Market.EntryFee = uint64(entryFee)
	snap.Market.Status = program.MarketStatus(status)
	if outcome != nil {
		v := program.MatchOutcome(*outcome)
		snap.Market.Outcome = &v
	}
	snap.Market.TotalPool = uint64(totalPool)
	snap.Market.ParticipantCount = uint32(participants)
	snap.Market.HomeCount = uint32(home)
	snap.Market.DrawCount = uint32(draw)
	snap.Market.AwayCount = uint32(away)
	snap.Market.Bump = uint8(bump)
	snap.Slot = uint64(slot)
	return &snap, nil
}

func scanSnapshots(rows pgx.Rows) ([]*store.MarketSnapshot, error) {
	var result []*store.MarketSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan market snapshot: %w", err)
		}
		result = append(result, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market snapshots: %w", err)
	}
	return result, nil
}
