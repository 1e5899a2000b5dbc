// Package watch diffs successive market snapshots into user-visible
// events: created, growth, resolved and surge. Every event kind carries
// its own cooldown so a burst collapses to one notification per window.
package watch

import (
	"bytes"
	"sort"
	"time"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
)

// EventKind classifies detector events.
type EventKind int

const (
	// EventCreated fires for a market absent from the previous snapshot.
	EventCreated EventKind = iota
	// EventGrowth fires when a market's participant count increases.
	EventGrowth
	// EventResolved fires once when a market reaches a final status.
	EventResolved
	// EventSurge fires when the prize pool grows beyond the relative
	// threshold in one cycle.
	EventSurge
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventCreated:
		return "created"
	case EventGrowth:
		return "growth"
	case EventResolved:
		return "resolved"
	case EventSurge:
		return "surge"
	default:
		return "unknown"
	}
}

// Event is one detected change.
type Event struct {
	Kind    EventKind
	Address pubkey.PublicKey
	Market  program.Market
	// ParticipantDelta is set for growth events.
	ParticipantDelta uint32
	// PoolDelta is set for surge events, in lamports.
	PoolDelta uint64
}

// Snapshot is a market collection keyed by address.
type Snapshot map[pubkey.PublicKey]program.Market

// Config configures the detector.
type Config struct {
	// CreatedCapPerCycle bounds created events per diff so a cold cache
	// does not flood notifications.
	CreatedCapPerCycle int
	// SurgeThreshold is the minimum relative pool increase for a surge
	// event, e.g. 0.10 for ten percent.
	SurgeThreshold float64
	// Per-kind cooldown windows.
	CreatedCooldown  time.Duration
	GrowthCooldown   time.Duration
	ResolvedCooldown time.Duration
	SurgeCooldown    time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}

// DefaultConfig returns the default detector configuration.
func DefaultConfig() Config {
	return Config{
		CreatedCapPerCycle: 5,
		SurgeThreshold:     0.10,
		CreatedCooldown:    5 * time.Minute,
		GrowthCooldown:     time.Minute,
		ResolvedCooldown:   time.Hour,
		SurgeCooldown:      10 * time.Minute,
	}
}

// Detector turns snapshot pairs into events. It is stateful: resolved
// markets are remembered so the event is one-shot, and cooldown windows
// persist across diffs.
type Detector struct {
	cfg       Config
	cooldowns *cooldownTable
	resolved  map[pubkey.PublicKey]struct{}
}

// NewDetector creates a detector.
func NewDetector(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.CreatedCapPerCycle <= 0 {
		cfg.CreatedCapPerCycle = def.CreatedCapPerCycle
	}
	if cfg.SurgeThreshold <= 0 {
		cfg.SurgeThreshold = def.SurgeThreshold
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Detector{
		cfg:       cfg,
		cooldowns: newCooldownTable(),
		resolved:  make(map[pubkey.PublicKey]struct{}),
	}
}

// isFinal reports whether a market can no longer change outcome.
func isFinal(s program.MarketStatus) bool {
	return s == program.StatusResolved || s == program.StatusCancelled
}

// Diff compares two snapshots of the same collection and returns the
// events that pass their cooldowns. An empty previous snapshot is a
// baseline: nothing fires.
func (d *Detector) Diff(prev, curr Snapshot) []Event {
	now := d.cfg.Now()
	var events []Event

	if len(prev) > 0 {
		events = append(events, d.detectCreated(prev, curr, now)...)
	}

	for addr, cur := range curr {
		before, ok := prev[addr]
		if !ok {
			continue
		}

		if cur.ParticipantCount > before.ParticipantCount {
			if d.cooldowns.allow(cooldownKey{EventGrowth, addr}, now, d.cfg.GrowthCooldown) {
				events = append(events, Event{
					Kind:             EventGrowth,
					Address:          addr,
					Market:           cur,
					ParticipantDelta: cur.ParticipantCount - before.ParticipantCount,
				})
			}
		}

		if isFinal(cur.Status) && !isFinal(before.Status) {
			if _, seen := d.resolved[addr]; !seen {
				d.resolved[addr] = struct{}{}
				events = append(events, Event{Kind: EventResolved, Address: addr, Market: cur})
			}
		}

		if before.TotalPool > 0 && cur.TotalPool > before.TotalPool {
			delta := cur.TotalPool - before.TotalPool
			if float64(delta)/float64(before.TotalPool) > d.cfg.SurgeThreshold {
				if d.cooldowns.allow(cooldownKey{EventSurge, addr}, now, d.cfg.SurgeCooldown) {
					events = append(events, Event{
						Kind:      EventSurge,
						Address:   addr,
						Market:    cur,
						PoolDelta: delta,
					})
				}
			}
		}
	}

	return events
}

// detectCreated finds markets new in this snapshot, in stable address
// order so the per-cycle cap cuts deterministically.
func (d *Detector) detectCreated(prev, curr Snapshot, now time.Time) []Event {
	var fresh []pubkey.PublicKey
	for addr := range curr {
		if _, ok := prev[addr]; !ok {
			fresh = append(fresh, addr)
		}
	}
	sort.Slice(fresh, func(i, j int) bool {
		return bytes.Compare(fresh[i][:], fresh[j][:]) < 0
	})

	var events []Event
	for _, addr := range fresh {
		if len(events) >= d.cfg.CreatedCapPerCycle {
			break
		}
		if !d.cooldowns.allow(cooldownKey{EventCreated, addr}, now, d.cfg.CreatedCooldown) {
			continue
		}
		events = append(events, Event{Kind: EventCreated, Address: addr, Market: curr[addr]})
	}
	return events
}
