package subscription

import "time"

// Backoff computes capped exponential delays.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
}

// Delay returns the wait before the given retry attempt. Attempt 1 waits
// Base, attempt 2 waits 2*Base, and so on, capped at Cap.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= b.Cap {
			return b.Cap
		}
	}
	if d > b.Cap {
		return b.Cap
	}
	return d
}
