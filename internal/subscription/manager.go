package subscription

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
	"cryptoscore-client/internal/rpc"
)

// ErrManagerClosed is returned by Subscribe after Close.
var ErrManagerClosed = errors.New("subscription manager closed")

// Dialer opens a fresh push transport. The manager dials lazily on the
// first subscribe and again after every connection loss.
type Dialer func(ctx context.Context) (rpc.AccountStream, error)

// HealthChecker is the probe surface, satisfied by rpc.Client.
type HealthChecker interface {
	GetHealth(ctx context.Context) error
}

// Config configures the subscription manager.
type Config struct {
	// Commitment applies to every subscription.
	Commitment rpc.Commitment
	// BackoffBase is the first retry delay after a failure.
	BackoffBase time.Duration
	// BackoffCap bounds the exponential retry delay.
	BackoffCap time.Duration
	// MaxAttempts is how many consecutive failures a target retries
	// before it parks and recommends fallback.
	MaxAttempts int
	// RateLimitCooldown is the wait after a throttled attempt. Throttled
	// attempts do not count against MaxAttempts.
	RateLimitCooldown time.Duration
	// ProbeInterval is the health probe period. Zero disables the probe.
	ProbeInterval time.Duration
	// ProbeFailureThreshold is how many consecutive probe failures flip
	// the connection state to degraded.
	ProbeFailureThreshold int
	// Handler receives pushed updates for every watched target.
	Handler Handler
}

// DefaultConfig returns the default manager configuration.
func DefaultConfig() Config {
	return Config{
		Commitment:            rpc.CommitmentConfirmed,
		BackoffBase:           500 * time.Millisecond,
		BackoffCap:            30 * time.Second,
		MaxAttempts:           5,
		RateLimitCooldown:     10 * time.Second,
		ProbeInterval:         30 * time.Second,
		ProbeFailureThreshold: 3,
	}
}

// Handle identifies one live subscription. It stays valid until Release
// or manager teardown.
type Handle struct {
	m    *Manager
	addr pubkey.PublicKey
}

// Address returns the watched address.
func (h *Handle) Address() pubkey.PublicKey { return h.addr }

// Release unsubscribes the target and blocks until its goroutine exits.
func (h *Handle) Release() { h.m.Unsubscribe(h.addr) }

type target struct {
	addr     pubkey.PublicKey
	kind     program.AccountKind
	state    State
	attempts int
	handle   *Handle

	ctx     context.Context
	cancel  context.CancelFunc
	retryCh chan struct{}
	done    chan struct{}
}

// Manager runs one retry state machine per watched address on top of a
// shared push transport. Subscribe is idempotent, Unsubscribe and Close
// are synchronous.
type Manager struct {
	cfg     Config
	dial    Dialer
	health  HealthChecker
	logger  *log.Logger
	backoff Backoff

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu        sync.Mutex
	dialMu    sync.Mutex
	closed    bool
	targets   map[pubkey.PublicKey]*target
	conn      rpc.AccountStream
	connState ConnectionState

	events chan Event
}

// NewManager creates a manager and starts its health probe. health may
// be nil to disable probing.
func NewManager(dial Dialer, health HealthChecker, cfg Config, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	def := DefaultConfig()
	if cfg.Commitment == "" {
		cfg.Commitment = def.Commitment
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = def.BackoffBase
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = def.BackoffCap
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RateLimitCooldown <= 0 {
		cfg.RateLimitCooldown = def.RateLimitCooldown
	}
	if cfg.ProbeFailureThreshold <= 0 {
		cfg.ProbeFailureThreshold = def.ProbeFailureThreshold
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:       cfg,
		dial:      dial,
		health:    health,
		logger:    logger,
		backoff:   Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap},
		ctx:       ctx,
		cancel:    cancel,
		targets:   make(map[pubkey.PublicKey]*target),
		connState: Disconnected,
		events:    make(chan Event, 64),
	}

	if m.health != nil && cfg.ProbeInterval > 0 {
		m.wg.Add(1)
		go m.probeLoop()
	}
	return m
}

// Events exposes manager events. The channel is buffered and never
// blocks the manager; it is closed by Close.
func (m *Manager) Events() <-chan Event { return m.events }

// Subscribe starts watching an address. Subscribing an address that is
// already watched returns the existing handle.
func (m *Manager) Subscribe(addr pubkey.PublicKey, kind program.AccountKind) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrManagerClosed
	}
	if t, ok := m.targets[addr]; ok {
		return t.handle, nil
	}

	t := &target{
		addr:    addr,
		kind:    kind,
		state:   StateSubscribing,
		retryCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	t.ctx, t.cancel = context.WithCancel(m.ctx)
	t.handle = &Handle{m: m, addr: addr}
	m.targets[addr] = t

	m.wg.Add(1)
	go m.runTarget(t)
	return t.handle, nil
}

// Unsubscribe stops watching an address and blocks until its goroutine
// has fully torn down. Unknown addresses are a no-op.
func (m *Manager) Unsubscribe(addr pubkey.PublicKey) {
	m.mu.Lock()
	t, ok := m.targets[addr]
	if ok {
		delete(m.targets, addr)
		t.cancel()
	}
	m.mu.Unlock()
	if ok {
		<-t.done
	}
}

// Retry re-arms a target that parked in StateFallbackRecommended. The
// backoff counter resets and the target subscribes again immediately.
func (m *Manager) Retry(addr pubkey.PublicKey) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.targets[addr]
	if !ok || t.state != StateFallbackRecommended {
		return
	}
	select {
	case t.retryCh <- struct{}{}:
	default:
	}
}

// State reports the lifecycle state of one target.
func (m *Manager) State(addr pubkey.PublicKey) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.targets[addr]; ok {
		return t.state
	}
	return StateUnsubscribed
}

// ConnState reports the aggregate transport health.
func (m *Manager) ConnState() ConnectionState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connState
}

// Close tears down every target and the shared connection, then waits
// for all goroutines.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	conn := m.conn
	m.mu.Unlock()

	m.cancel()
	if conn != nil {
		conn.Close()
	}
	m.wg.Wait()
	close(m.events)
}

func (m *Manager) runTarget(t *target) {
	defer m.wg.Done()
	defer close(t.done)
	defer m.setTargetState(t, StateUnsubscribed)

	for {
		if t.ctx.Err() != nil {
			return
		}
		m.setTargetState(t, StateSubscribing)

		conn, err := m.getConn(t.ctx)
		if err == nil {
			var id int64
			var updates <-chan rpc.AccountUpdate
			id, updates, err = conn.SubscribeAccount(t.ctx, t.addr, m.cfg.Commitment)
			if err == nil {
				m.onSubscribed(t, id)
				if !m.consume(t, conn, id, updates) {
					return
				}
				err = rpc.ErrConnectionLost
			}
		}
		if t.ctx.Err() != nil {
			return
		}
		if !m.waitRetry(t, err) {
			return
		}
	}
}

// consume forwards updates until the channel closes. Returns false when
// the target was cancelled, true when the connection was lost.
func (m *Manager) consume(t *target, conn rpc.AccountStream, id int64, updates <-chan rpc.AccountUpdate) bool {
	for {
		select {
		case <-t.ctx.Done():
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			conn.UnsubscribeAccount(ctx, id)
			cancel()
			return false
		case u, ok := <-updates:
			if !ok {
				return true
			}
			if m.cfg.Handler != nil {
				m.cfg.Handler(t.addr, t.kind, u)
			}
		}
	}
}

// waitRetry applies the failure policy for one attempt. Returns false
// when the target should exit.
func (m *Manager) waitRetry(t *target, err error) bool {
	if rpc.IsRateLimited(err) {
		// Throttling is not a connection failure. Cool off without
		// touching the backoff counter so one noisy window does not
		// push the target into fallback.
		m.setConnState(Degraded)
		m.emit(Event{Type: EventRateLimited, Address: t.addr, Kind: t.kind, Attempts: t.attempts, Err: err})
		return m.sleep(t.ctx, m.cfg.RateLimitCooldown)
	}

	m.mu.Lock()
	t.attempts++
	attempts := t.attempts
	m.mu.Unlock()
	m.emit(Event{Type: EventError, Address: t.addr, Kind: t.kind, Attempts: attempts, Err: err})
	m.logger.Printf("subscription %s attempt %d failed: %v", t.addr, attempts, err)

	if attempts > m.cfg.MaxAttempts {
		m.setTargetState(t, StateFallbackRecommended)
		m.emit(Event{Type: EventFallbackRecommended, Address: t.addr, Kind: t.kind, Attempts: attempts, Err: err})
		select {
		case <-t.ctx.Done():
			return false
		case <-t.retryCh:
			m.mu.Lock()
			t.attempts = 0
			m.mu.Unlock()
			return true
		}
	}

	m.setTargetState(t, StateErrorBackoff)
	return m.sleep(t.ctx, m.backoff.Delay(attempts))
}

func (m *Manager) onSubscribed(t *target, id int64) {
	m.mu.Lock()
	t.state = StateSubscribed
	t.attempts = 0
	m.connState = Connected
	m.mu.Unlock()
	m.emit(Event{Type: EventSubscribed, Address: t.addr, Kind: t.kind})
}

// getConn returns the shared connection, dialing if needed. Only one
// dial runs at a time; targets queue behind dialMu.
func (m *Manager) getConn(ctx context.Context) (rpc.AccountStream, error) {
	m.dialMu.Lock()
	defer m.dialMu.Unlock()

	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()
	if conn != nil {
		select {
		case <-conn.Done():
		default:
			return conn, nil
		}
	}

	conn, err := m.dial(ctx)
	if err != nil {
		m.setConnState(Disconnected)
		return nil, err
	}

	m.mu.Lock()
	m.conn = conn
	m.connState = Connected
	m.mu.Unlock()

	m.wg.Add(1)
	go m.watchConn(conn)
	return conn, nil
}

// watchConn marks the transport disconnected when it dies.
func (m *Manager) watchConn(conn rpc.AccountStream) {
	defer m.wg.Done()
	select {
	case <-m.ctx.Done():
		return
	case <-conn.Done():
	}
	m.mu.Lock()
	if m.conn == conn {
		m.conn = nil
		m.connState = Disconnected
	}
	m.mu.Unlock()
	m.logger.Printf("push connection lost")
}

func (m *Manager) probeLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.ProbeInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(m.ctx, m.cfg.ProbeInterval)
			err := m.health.GetHealth(ctx)
			cancel()
			if err != nil {
				failures++
				if failures >= m.cfg.ProbeFailureThreshold {
					m.setConnState(Degraded)
					m.logger.Printf("health probe failed %d times: %v", failures, err)
				}
				continue
			}
			failures = 0
			m.mu.Lock()
			if m.conn != nil && m.connState == Degraded {
				m.connState = Connected
			}
			m.mu.Unlock()
		}
	}
}

func (m *Manager) setTargetState(t *target, s State) {
	m.mu.Lock()
	t.state = s
	m.mu.Unlock()
}

func (m *Manager) setConnState(s ConnectionState) {
	m.mu.Lock()
	m.connState = s
	m.mu.Unlock()
}

func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
