// Package syncer decides, per watched target, whether push or polling is
// the authoritative freshness source, and scopes every cache invalidation
// to the keys a change can actually affect.
package syncer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
	"cryptoscore-client/internal/rpc"
	"cryptoscore-client/internal/subscription"
)

// ErrNoSigner is returned by Submit when no signer is configured.
var ErrNoSigner = errors.New("no signer configured")

// Mode is the authoritative freshness source for a target.
type Mode int

const (
	ModePolling Mode = iota
	ModePush
)

// String returns the mode name.
func (m Mode) String() string {
	if m == ModePush {
		return "push"
	}
	return "polling"
}

// Source tags where an update came from.
type Source int

const (
	SourcePoll Source = iota
	SourcePush
)

// Update is one decoded account observation.
type Update struct {
	Address pubkey.PublicKey
	Kind    program.AccountKind
	Record  program.Record
	Slot    uint64
	Source  Source
}

// Invalidator is the query-cache collaborator. Invalidations are scoped
// by key; InvalidateAll is reserved for global changes.
type Invalidator interface {
	Invalidate(keys ...string)
	InvalidateAll()
}

// Signer signs and broadcasts a built instruction. Submission is never
// retried here: resubmitting a state-mutating call without chain-side
// idempotency is unsafe.
type Signer interface {
	SignAndSend(ctx context.Context, ins *program.Instruction) (string, error)
}

// Config configures the orchestrator.
type Config struct {
	// PushEnabled turns the subscription layer on. When false every
	// target polls on PollInterval.
	PushEnabled bool
	// PollInterval is the fixed polling period.
	PollInterval time.Duration
	// StalenessWindow is how long the syncer tolerates total silence
	// while nominally connected before forcing an invalidation cycle.
	StalenessWindow time.Duration
	// RetryInterval is how often parked push targets are re-armed.
	RetryInterval time.Duration
	// Commitment applies to polling reads.
	Commitment rpc.Commitment
	// Subscription configures the embedded subscription manager. Its
	// Handler field is owned by the syncer.
	Subscription subscription.Config
	// Health feeds the subscription manager's probe. Usually the same
	// rpc client used for polling.
	Health subscription.HealthChecker
	// Signer handles Submit. Optional.
	Signer Signer
	// OnUpdate receives every decoded observation, push or poll.
	OnUpdate func(Update)
	// OnDecodeError is told about undecodable account payloads. Optional.
	OnDecodeError func(addr pubkey.PublicKey, kind program.AccountKind)
	// OnEvent observes subscription lifecycle events. Optional.
	OnEvent func(subscription.Event)
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PushEnabled:     true,
		PollInterval:    15 * time.Second,
		StalenessWindow: 2 * time.Minute,
		RetryInterval:   30 * time.Second,
		Commitment:      rpc.CommitmentConfirmed,
		Subscription:    subscription.DefaultConfig(),
	}
}

// Syncer orchestrates push subscriptions and fallback polling over a
// watched target set.
type Syncer struct {
	cfg     Config
	client  rpc.Client
	cache   Invalidator
	manager *subscription.Manager
	logger  *log.Logger

	mu         sync.Mutex
	targets    map[pubkey.PublicKey]program.AccountKind
	lastUpdate time.Time
}

// New creates a syncer. dial may be nil when push is disabled.
func New(client rpc.Client, dial subscription.Dialer, cache Invalidator, cfg Config, logger *log.Logger) *Syncer {
	if logger == nil {
		logger = log.Default()
	}
	def := DefaultConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.StalenessWindow <= 0 {
		cfg.StalenessWindow = def.StalenessWindow
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}

	s := &Syncer{
		cfg:        cfg,
		client:     client,
		cache:      cache,
		logger:     logger,
		targets:    make(map[pubkey.PublicKey]program.AccountKind),
		lastUpdate: time.Now(),
	}

	if cfg.PushEnabled && dial != nil {
		subCfg := cfg.Subscription
		subCfg.Handler = s.handlePush
		s.manager = subscription.NewManager(dial, cfg.Health, subCfg, logger)
	}
	return s
}

// Watch adds a target. With push enabled the subscription starts
// immediately; either way the target joins the polling set as a fallback.
func (s *Syncer) Watch(addr pubkey.PublicKey, kind program.AccountKind) error {
	s.mu.Lock()
	s.targets[addr] = kind
	s.mu.Unlock()

	if s.manager != nil {
		if _, err := s.manager.Subscribe(addr, kind); err != nil {
			return err
		}
	}
	return nil
}

// Unwatch removes a target and releases its subscription.
func (s *Syncer) Unwatch(addr pubkey.PublicKey) {
	s.mu.Lock()
	delete(s.targets, addr)
	s.mu.Unlock()

	if s.manager != nil {
		s.manager.Unsubscribe(addr)
	}
}

// Mode reports the authoritative source for a target: push only while
// the subscription is live, polling in every other state. A target that
// parked in fallback reports polling until a clean reconnect.
func (s *Syncer) Mode(addr pubkey.PublicKey) Mode {
	if s.manager == nil {
		return ModePolling
	}
	if s.manager.State(addr) == subscription.StateSubscribed {
		return ModePush
	}
	return ModePolling
}

// ConnState reports the transport health, or Disconnected when push is
// disabled.
func (s *Syncer) ConnState() subscription.ConnectionState {
	if s.manager == nil {
		return subscription.Disconnected
	}
	return s.manager.ConnState()
}

// Run drives the polling, retry and staleness loops until ctx is
// cancelled, then tears down the subscription layer synchronously.
func (s *Syncer) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		s.pollLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.stalenessLoop(ctx)
	}()

	if s.manager != nil {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.eventLoop(ctx)
		}()
		go func() {
			defer wg.Done()
			s.retryLoop(ctx)
		}()
	}

	<-ctx.Done()
	if s.manager != nil {
		s.manager.Close()
	}
	wg.Wait()
	return ctx.Err()
}

// Submit signs and broadcasts an instruction, then invalidates the given
// scope regardless of outcome so consumers re-check on-chain truth. No
// automatic resubmission.
func (s *Syncer) Submit(ctx context.Context, ins *program.Instruction, scope ...string) (string, error) {
	if s.cfg.Signer == nil {
		return "", ErrNoSigner
	}
	sig, err := s.cfg.Signer.SignAndSend(ctx, ins)
	if len(scope) == 0 {
		scope = []string{KeyMarkets}
	}
	s.cache.Invalidate(scope...)
	return sig, err
}

// ListMarkets scans every market account of the program and decodes the
// ones carrying the market discriminator. Undecodable accounts are
// skipped, not fatal.
func (s *Syncer) ListMarkets(ctx context.Context) (map[pubkey.PublicKey]program.Market, error) {
	accounts, err := s.client.GetProgramAccounts(ctx, program.MarketProgramID, s.cfg.Commitment)
	if err != nil {
		return nil, err
	}
	markets := make(map[pubkey.PublicKey]program.Market, len(accounts))
	for _, ka := range accounts {
		if !program.HasDiscriminator(ka.Account.Data, program.KindMarket) {
			continue
		}
		m, err := program.DecodeMarket(ka.Account.Data)
		if err != nil {
			s.logger.Printf("skip undecodable market %s: %v", ka.Pubkey, err)
			continue
		}
		markets[ka.Pubkey] = *m
	}
	return markets, nil
}

// handlePush receives raw pushed bytes from the subscription manager.
func (s *Syncer) handlePush(addr pubkey.PublicKey, kind program.AccountKind, u rpc.AccountUpdate) {
	s.handleAccount(addr, kind, u.Data, u.Slot, SourcePush)
}

// handleAccount decodes one observation and applies scoped invalidation.
// A decode failure marks the item unavailable and conservatively
// invalidates its detail scope; it never propagates.
func (s *Syncer) handleAccount(addr pubkey.PublicKey, kind program.AccountKind, data []byte, slot uint64, src Source) {
	s.touch()

	record, err := program.DecodeAccount(data)
	if err != nil {
		s.logger.Printf("decode %s account %s: %v", kind, addr, err)
		if s.cfg.OnDecodeError != nil {
			s.cfg.OnDecodeError(addr, kind)
		}
		s.invalidateFallback(addr, kind)
		return
	}
	if record.Kind() != kind {
		s.logger.Printf("account %s: expected %s, decoded %s", addr, kind, record.Kind())
	}

	s.invalidate(addr, record)
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate(Update{Address: addr, Kind: record.Kind(), Record: record, Slot: slot, Source: src})
	}
}

// invalidate applies the scoping rules: a market touches its detail view
// and the list; a participant touches its market and its user; user
// stats touch the user scope; the factory singleton is the only global
// invalidation.
func (s *Syncer) invalidate(addr pubkey.PublicKey, record program.Record) {
	switch r := record.(type) {
	case program.Factory:
		s.cache.InvalidateAll()
	case program.Market:
		s.cache.Invalidate(KeyMarket(addr), KeyMarkets)
	case program.Participant:
		s.cache.Invalidate(KeyMarket(r.Market), KeyUser(r.User))
	case program.UserStats:
		s.cache.Invalidate(KeyUser(r.User))
	}
}

func (s *Syncer) invalidateFallback(addr pubkey.PublicKey, kind program.AccountKind) {
	switch kind {
	case program.KindFactory:
		s.cache.InvalidateAll()
	case program.KindMarket:
		s.cache.Invalidate(KeyMarket(addr), KeyMarkets)
	default:
		// Participant and user-stats scopes need decoded fields; without
		// them there is nothing narrower than the list to clear.
		s.cache.Invalidate(KeyMarkets)
	}
}

func (s *Syncer) touch() {
	s.mu.Lock()
	s.lastUpdate = time.Now()
	s.mu.Unlock()
}

// pollLoop fetches every target whose authoritative mode is polling.
func (s *Syncer) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

func (s *Syncer) pollOnce(ctx context.Context) {
	s.mu.Lock()
	addrs := make([]pubkey.PublicKey, 0, len(s.targets))
	kinds := make([]program.AccountKind, 0, len(s.targets))
	for addr, kind := range s.targets {
		if s.manager != nil && s.manager.State(addr) == subscription.StateSubscribed {
			continue
		}
		addrs = append(addrs, addr)
		kinds = append(kinds, kind)
	}
	s.mu.Unlock()

	if len(addrs) == 0 {
		return
	}

	// During a full push outage every target is in this set, so the batch
	// cap is exactly when chunking matters: one oversized request would be
	// rejected whole and refresh nothing.
	for start := 0; start < len(addrs); start += rpc.MaxMultipleAccounts {
		end := start + rpc.MaxMultipleAccounts
		if end > len(addrs) {
			end = len(addrs)
		}
		infos, err := s.client.GetMultipleAccounts(ctx, addrs[start:end], s.cfg.Commitment)
		if err != nil {
			s.logger.Printf("poll batch %d..%d: %v", start, end-1, err)
			continue
		}
		for i, info := range infos {
			if info == nil {
				continue
			}
			s.handleAccount(addrs[start+i], kinds[start+i], info.Data, info.Slot, SourcePoll)
		}
	}
}

// eventLoop mirrors subscription events into log lines and the optional
// OnEvent hook. Mode changes are derived from manager state, so nothing
// else reacts here.
func (s *Syncer) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-s.manager.Events():
			if !ok {
				return
			}
			if s.cfg.OnEvent != nil {
				s.cfg.OnEvent(e)
			}
			switch e.Type {
			case subscription.EventFallbackRecommended:
				s.logger.Printf("push for %s parked after %d attempts, polling takes over", e.Address, e.Attempts)
			case subscription.EventSubscribed:
				s.logger.Printf("push live for %s", e.Address)
			}
		}
	}
}

// retryLoop re-arms parked push targets so a recovered endpoint switches
// the target back to push.
func (s *Syncer) retryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			addrs := make([]pubkey.PublicKey, 0, len(s.targets))
			for addr := range s.targets {
				addrs = append(addrs, addr)
			}
			s.mu.Unlock()
			for _, addr := range addrs {
				if s.manager.State(addr) == subscription.StateFallbackRecommended {
					s.manager.Retry(addr)
				}
			}
		}
	}
}

// stalenessLoop forces one invalidation cycle when nothing has been
// observed for the whole window while the transport claims to be fine.
// Long silence is treated as suspicious even without an error.
func (s *Syncer) stalenessLoop(ctx context.Context) {
	interval := s.cfg.StalenessWindow / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			stale := time.Since(s.lastUpdate) > s.cfg.StalenessWindow
			hasTargets := len(s.targets) > 0
			s.mu.Unlock()
			if !stale || !hasTargets {
				continue
			}
			if s.manager != nil && s.manager.ConnState() != subscription.Connected {
				continue
			}
			s.logger.Printf("no updates for %v, forcing refresh", s.cfg.StalenessWindow)
			s.cache.Invalidate(KeyMarkets)
			s.pollOnce(ctx)
			s.touch()
		}
	}
}
