package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB starts a PostgreSQL container, applies the schema, and
// returns a pool plus a cleanup function.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySchema mirrors the embedded migration. The migrations package
// imports this one, so the test applies the DDL directly.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	ddl := `
	CREATE TABLE IF NOT EXISTS market_snapshots (
		address           TEXT PRIMARY KEY,
		factory_address   TEXT        NOT NULL,
		creator           TEXT        NOT NULL,
		match_id          TEXT        NOT NULL,
		entry_fee         BIGINT      NOT NULL,
		kickoff_time      BIGINT      NOT NULL,
		end_time          BIGINT      NOT NULL,
		status            SMALLINT    NOT NULL,
		outcome           SMALLINT,
		total_pool        BIGINT      NOT NULL,
		participant_count BIGINT      NOT NULL,
		home_count        BIGINT      NOT NULL,
		draw_count        BIGINT      NOT NULL,
		away_count        BIGINT      NOT NULL,
		is_public         BOOLEAN     NOT NULL,
		bump              SMALLINT    NOT NULL,
		slot              BIGINT      NOT NULL,
		observed_at       TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	_, err := pool.Exec(ctx, ddl)
	require.NoError(t, err, "failed to apply schema")
}
