// Package main runs the market watcher service:
// - Sync (continuous): push subscriptions with polling fallback
// - Scan (scheduled): program-wide market discovery and change detection
// - Persistence: last-known-good snapshots and a change-event journal
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cryptoscore-client/internal/observability"
	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
	"cryptoscore-client/internal/rpc"
	"cryptoscore-client/internal/store"
	chstore "cryptoscore-client/internal/store/clickhouse"
	"cryptoscore-client/internal/store/memory"
	"cryptoscore-client/internal/store/migrations"
	pgstore "cryptoscore-client/internal/store/postgres"
	"cryptoscore-client/internal/subscription"
	"cryptoscore-client/internal/syncer"
	"cryptoscore-client/internal/watch"
)

// Watcher wires the sync, detection and persistence components.
type Watcher struct {
	scanInterval time.Duration

	client   rpc.Client
	sync     *syncer.Syncer
	detector *watch.Detector
	markets  store.MarketStore
	journal  store.EventStore
	metrics  *observability.Metrics
	logger   *log.Logger

	mu       sync.Mutex
	previous watch.Snapshot
	watched  map[pubkey.PublicKey]struct{}
}

func main() {
	loadEnvFile()

	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	pushEnabled := flag.Bool("push", true, "Use push subscriptions (polling-only when false)")
	commitment := flag.String("commitment", "confirmed", "Commitment level: processed, confirmed, finalized")
	scanInterval := flag.Duration("scan-interval", 1*time.Minute, "Program-wide market scan interval")
	pollInterval := flag.Duration("poll-interval", 15*time.Second, "Fallback polling interval")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address")

	flag.Parse()

	logger := log.New(os.Stdout, "[watcher] ", log.LstdFlags|log.Lshortfile)

	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if *pushEnabled && *wsEndpoint == "" {
		logger.Fatal("--ws-endpoint is required when push is enabled")
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}
	cmt, err := parseCommitment(*commitment)
	if err != nil {
		logger.Fatalf("Invalid commitment: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	markets, journal, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	client := rpc.NewHTTPClient(*rpcEndpoint)

	var dial subscription.Dialer
	if *pushEnabled {
		endpoint := *wsEndpoint
		dial = func(ctx context.Context) (rpc.AccountStream, error) {
			return rpc.DialAccountStream(ctx, endpoint, nil)
		}
	}

	w := &Watcher{
		scanInterval: *scanInterval,
		client:       client,
		detector:     watch.NewDetector(watch.DefaultConfig()),
		markets:      markets,
		journal:      journal,
		metrics:      metrics,
		logger:       logger,
		watched:      make(map[pubkey.PublicKey]struct{}),
	}

	syncCfg := syncer.DefaultConfig()
	syncCfg.PushEnabled = *pushEnabled
	syncCfg.PollInterval = *pollInterval
	syncCfg.Commitment = cmt
	syncCfg.Subscription.Commitment = cmt
	syncCfg.Health = client
	syncCfg.OnUpdate = w.handleUpdate
	syncCfg.OnDecodeError = func(_ pubkey.PublicKey, kind program.AccountKind) {
		metrics.DecodeErrors.WithLabelValues(kind.String()).Inc()
	}
	syncCfg.OnEvent = func(e subscription.Event) {
		metrics.SubscriptionEvents.WithLabelValues(e.Type.String()).Inc()
	}
	w.sync = syncer.New(client, dial, &invalidationLog{logger: logger}, syncCfg, logger)

	done := make(chan error, 1)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	go w.startHTTPServer(*metricsAddr)

	err = w.Run(ctx)
	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Watcher error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// Run watches the factory singleton, runs the sync loops, and scans for
// markets on the scan interval.
func (w *Watcher) Run(ctx context.Context) error {
	factory, _, err := program.DeriveFactory()
	if err != nil {
		return fmt.Errorf("derive factory address: %w", err)
	}
	if err := w.sync.Watch(factory, program.KindFactory); err != nil {
		return fmt.Errorf("watch factory: %w", err)
	}
	w.logger.Printf("Watching factory %s", factory)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.sync.Run(ctx)
	}()

	// One scan up front so the watcher is useful before the first tick.
	w.scan(ctx)

	ticker := time.NewTicker(w.scanInterval)
	defer ticker.Stop()
	gauge := time.NewTicker(5 * time.Second)
	defer gauge.Stop()

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			w.scan(ctx)
		case <-gauge.C:
			w.metrics.ConnectionState.Set(connStateValue(w.sync.ConnState()))
		}
	}
}

// scan runs one discovery cycle: list markets, persist snapshots, diff
// against the previous cycle, journal the changes, and keep the watched
// target set aligned with markets that can still change.
func (w *Watcher) scan(ctx context.Context) {
	start := time.Now()
	current, err := w.sync.ListMarkets(ctx)
	if err != nil {
		w.metrics.ScanErrors.Inc()
		w.logger.Printf("Market scan failed: %v", err)
		return
	}
	w.metrics.ScanDuration.Observe(time.Since(start).Seconds())

	slot, err := w.client.GetSlot(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		w.logger.Printf("Get slot: %v", err)
	}

	snapshot := make(watch.Snapshot, len(current))
	for addr, m := range current {
		snapshot[addr] = m
		w.persistSnapshot(ctx, addr, m, slot)
		w.adjustWatch(addr, m)
	}

	w.mu.Lock()
	previous := w.previous
	w.previous = snapshot
	w.mu.Unlock()

	events := w.detector.Diff(previous, snapshot)
	for _, e := range events {
		w.metrics.ChangeEvents.WithLabelValues(e.Kind.String()).Inc()
		w.logger.Printf("Market %s: %s", e.Address, e.Kind)
	}
	w.journalEvents(ctx, events, slot)

	w.mu.Lock()
	w.metrics.WatchedTargets.Set(float64(len(w.watched)))
	w.mu.Unlock()
}

// adjustWatch subscribes markets that can still change and releases
// finalized ones.
func (w *Watcher) adjustWatch(addr pubkey.PublicKey, m program.Market) {
	final := m.Status == program.StatusResolved || m.Status == program.StatusCancelled

	w.mu.Lock()
	_, watching := w.watched[addr]
	w.mu.Unlock()

	switch {
	case !final && !watching:
		if err := w.sync.Watch(addr, program.KindMarket); err != nil {
			w.logger.Printf("Watch market %s: %v", addr, err)
			return
		}
		w.mu.Lock()
		w.watched[addr] = struct{}{}
		w.mu.Unlock()
	case final && watching:
		w.sync.Unwatch(addr)
		w.mu.Lock()
		delete(w.watched, addr)
		w.mu.Unlock()
	}
}

// handleUpdate receives every decoded observation from the sync layer.
func (w *Watcher) handleUpdate(u syncer.Update) {
	source := "poll"
	if u.Source == syncer.SourcePush {
		source = "push"
	}
	w.metrics.AccountUpdates.WithLabelValues(source, u.Kind.String()).Inc()
	w.metrics.LastUpdateAt.Set(float64(time.Now().Unix()))

	if m, ok := u.Record.(program.Market); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		w.persistSnapshot(ctx, u.Address, m, u.Slot)
	}
}

func (w *Watcher) persistSnapshot(ctx context.Context, addr pubkey.PublicKey, m program.Market, slot uint64) {
	err := w.markets.Upsert(ctx, &store.MarketSnapshot{
		Address:    addr.String(),
		Market:     m,
		Slot:       slot,
		ObservedAt: time.Now().UTC(),
	})
	if err != nil {
		w.metrics.SnapshotWriteErrors.Inc()
		w.logger.Printf("Persist snapshot %s: %v", addr, err)
		return
	}
	w.metrics.SnapshotWrites.Inc()
}

func (w *Watcher) journalEvents(ctx context.Context, events []watch.Event, slot uint64) {
	if len(events) == 0 {
		return
	}
	records := make([]*store.ChangeEvent, len(events))
	for i, e := range events {
		records[i] = &store.ChangeEvent{
			Kind:             e.Kind.String(),
			Address:          e.Address.String(),
			MatchID:          e.Market.MatchID,
			ParticipantDelta: e.ParticipantDelta,
			PoolDelta:        e.PoolDelta,
			Slot:             slot,
			OccurredAt:       time.Now().UTC(),
		}
	}
	if err := w.journal.InsertBulk(ctx, records); err != nil {
		w.metrics.JournalWriteErrors.Inc()
		w.logger.Printf("Journal events: %v", err)
		return
	}
	w.metrics.JournalWrites.Add(float64(len(records)))
}

// startHTTPServer serves /metrics and /healthz.
func (w *Watcher) startHTTPServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		json.NewEncoder(rw).Encode(map[string]interface{}{
			"status":     "ok",
			"connection": w.sync.ConnState().String(),
		})
	})

	w.logger.Printf("HTTP server listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		w.logger.Printf("HTTP server error: %v", err)
	}
}

// invalidationLog is the cache collaborator for a headless watcher: it
// has no query cache to clear, so invalidations become log lines that
// downstream consumers can act on.
type invalidationLog struct {
	logger *log.Logger
}

func (l *invalidationLog) Invalidate(keys ...string) {
	l.logger.Printf("Invalidate %s", strings.Join(keys, ", "))
}

func (l *invalidationLog) InvalidateAll() {
	l.logger.Printf("Invalidate all scopes")
}

func parseCommitment(s string) (rpc.Commitment, error) {
	switch rpc.Commitment(s) {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return rpc.Commitment(s), nil
	default:
		return "", fmt.Errorf("unknown commitment %q", s)
	}
}

func connStateValue(s subscription.ConnectionState) float64 {
	switch s {
	case subscription.Connected:
		return 1
	case subscription.Degraded:
		return 2
	default:
		return 0
	}
}

// createStores creates the snapshot store and event journal.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (store.MarketStore, store.EventStore, func(), error) {
	if useMemory {
		return memory.NewMarketStore(), memory.NewEventStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run postgres migrations: %w", err)
	}

	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}

	cleanup := func() {
		pool.Close()
		chConn.Close()
	}
	return pgstore.NewMarketStore(pool), chstore.NewEventStore(chConn), cleanup, nil
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
