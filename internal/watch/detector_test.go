package watch

import (
	"testing"
	"time"

	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
)

func addr(i byte) pubkey.PublicKey {
	var p pubkey.PublicKey
	p[0] = i
	return p
}

func market(status program.MarketStatus, participants uint32, pool uint64) program.Market {
	return program.Market{
		MatchID:          "match_123",
		Status:           status,
		ParticipantCount: participants,
		TotalPool:        pool,
	}
}

// fakeClock lets tests move through cooldown windows.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func newTestDetector(clock *fakeClock) *Detector {
	cfg := DefaultConfig()
	cfg.Now = clock.now
	return NewDetector(cfg)
}

func countKind(events []Event, kind EventKind) int {
	n := 0
	for _, e := range events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

func TestEmptyPreviousIsBaseline(t *testing.T) {
	d := newTestDetector(newFakeClock())

	curr := Snapshot{}
	for i := byte(1); i <= 10; i++ {
		curr[addr(i)] = market(program.StatusOpen, 0, 0)
	}

	if events := d.Diff(Snapshot{}, curr); len(events) != 0 {
		t.Errorf("first observation must not flood created events, got %d", len(events))
	}
}

func TestCreatedCapPerCycle(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 0, 0)}
	curr := Snapshot{addr(1): prev[addr(1)]}
	for i := byte(10); i < 18; i++ {
		curr[addr(i)] = market(program.StatusOpen, 0, 0)
	}

	events := d.Diff(prev, curr)
	if got := countKind(events, EventCreated); got != 5 {
		t.Errorf("expected created events capped at 5, got %d", got)
	}
}

func TestCreatedDedupWithinCooldown(t *testing.T) {
	clock := newFakeClock()
	d := newTestDetector(clock)

	prev := Snapshot{addr(1): market(program.StatusOpen, 0, 0)}
	curr := Snapshot{
		addr(1): prev[addr(1)],
		addr(2): market(program.StatusOpen, 0, 0),
	}

	if got := countKind(d.Diff(prev, curr), EventCreated); got != 1 {
		t.Fatalf("expected 1 created event, got %d", got)
	}
	if got := countKind(d.Diff(prev, curr), EventCreated); got != 0 {
		t.Errorf("created inside the cooldown window must collapse, got %d", got)
	}

	clock.advance(DefaultConfig().CreatedCooldown + time.Second)
	if got := countKind(d.Diff(prev, curr), EventCreated); got != 1 {
		t.Errorf("expired cooldown must allow the event again, got %d", got)
	}
}

func TestGrowthDelta(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 3, 100)}
	curr := Snapshot{addr(1): market(program.StatusOpen, 5, 100)}

	events := d.Diff(prev, curr)
	if len(events) != 1 || events[0].Kind != EventGrowth {
		t.Fatalf("expected one growth event, got %+v", events)
	}
	if events[0].ParticipantDelta != 2 {
		t.Errorf("delta = %d, want 2", events[0].ParticipantDelta)
	}

	// Same pair again inside the cooldown window.
	if events := d.Diff(prev, curr); len(events) != 0 {
		t.Errorf("growth must respect its cooldown, got %+v", events)
	}
}

func TestResolvedOneShot(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusLive, 5, 500)}
	curr := Snapshot{addr(1): market(program.StatusResolved, 5, 500)}

	events := d.Diff(prev, curr)
	if got := countKind(events, EventResolved); got != 1 {
		t.Fatalf("expected exactly one resolved event, got %d", got)
	}

	// Feeding the same pair again must stay silent.
	if events := d.Diff(prev, curr); len(events) != 0 {
		t.Errorf("resolved must be one-shot, got %+v", events)
	}

	// Subsequent snapshots where the market stays resolved are silent too.
	later := Snapshot{addr(1): market(program.StatusResolved, 6, 500)}
	events = d.Diff(curr, later)
	if got := countKind(events, EventResolved); got != 0 {
		t.Errorf("resolved re-fired on a still-resolved market")
	}
}

func TestCancelledIsFinal(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 2, 100)}
	curr := Snapshot{addr(1): market(program.StatusCancelled, 2, 100)}

	if got := countKind(d.Diff(prev, curr), EventResolved); got != 1 {
		t.Errorf("cancellation must fire the final-state event, got %d", got)
	}
}

func TestSurgeThreshold(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 5, 100)}
	small := Snapshot{addr(1): market(program.StatusOpen, 5, 105)}
	if got := countKind(d.Diff(prev, small), EventSurge); got != 0 {
		t.Errorf("5%% pool growth must not surge, got %d", got)
	}

	big := Snapshot{addr(1): market(program.StatusOpen, 5, 120)}
	events := d.Diff(prev, big)
	if got := countKind(events, EventSurge); got != 1 {
		t.Fatalf("20%% pool growth must surge, got %d events", got)
	}
	for _, e := range events {
		if e.Kind == EventSurge && e.PoolDelta != 20 {
			t.Errorf("surge delta = %d, want 20", e.PoolDelta)
		}
	}
}

func TestSurgeAndGrowthCooldownsAreIndependent(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 5, 100)}
	curr := Snapshot{addr(1): market(program.StatusOpen, 9, 150)}

	// One diff triggers both kinds; each passes its own cooldown.
	events := d.Diff(prev, curr)
	if countKind(events, EventGrowth) != 1 || countKind(events, EventSurge) != 1 {
		t.Fatalf("expected growth and surge together, got %+v", events)
	}

	// Growth cooling down does not block a later surge.
	later := Snapshot{addr(1): market(program.StatusOpen, 9, 200)}
	events = d.Diff(curr, later)
	if countKind(events, EventSurge) != 0 {
		// Surge has its own window too, which is still open.
		t.Errorf("surge fired inside its cooldown window")
	}
}

func TestZeroPoolNeverSurges(t *testing.T) {
	d := newTestDetector(newFakeClock())

	prev := Snapshot{addr(1): market(program.StatusOpen, 0, 0)}
	curr := Snapshot{addr(1): market(program.StatusOpen, 1, 1_000_000)}

	if got := countKind(d.Diff(prev, curr), EventSurge); got != 0 {
		t.Errorf("growth from an empty pool is not a surge, got %d", got)
	}
}
