package watch

import (
	"sync"
	"time"

	"cryptoscore-client/internal/pubkey"
)

type cooldownKey struct {
	kind EventKind
	addr pubkey.PublicKey
}

// cooldownTable tracks per-key notification windows. Entries self-expire
// on the sweep that runs alongside lookups.
type cooldownTable struct {
	mu      sync.Mutex
	entries map[cooldownKey]time.Time
	checks  int
}

func newCooldownTable() *cooldownTable {
	return &cooldownTable{entries: make(map[cooldownKey]time.Time)}
}

// allow reports whether an event for this key may fire now, and if so
// opens a new window. Expired entries are swept periodically so the
// table does not grow with dead keys.
func (c *cooldownTable) allow(k cooldownKey, now time.Time, window time.Duration) bool {
	if window <= 0 {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks++
	if c.checks >= 64 {
		c.checks = 0
		for key, exp := range c.entries {
			if !now.Before(exp) {
				delete(c.entries, key)
			}
		}
	}

	if exp, ok := c.entries[k]; ok && now.Before(exp) {
		return false
	}
	c.entries[k] = now.Add(window)
	return true
}
