// Package subscription maintains per-address push subscriptions against a
// remote node: idempotent subscribe, capped exponential reconnect backoff,
// rate-limit-aware error classification and a periodic health probe.
package subscription

import (
	"cryptoscore-client/internal/program"
	"cryptoscore-client/internal/pubkey"
	"cryptoscore-client/internal/rpc"
)

// State is the lifecycle state of one watched target.
type State int

const (
	StateUnsubscribed State = iota
	StateSubscribing
	StateSubscribed
	StateErrorBackoff
	// StateFallbackRecommended means retries for this target are parked
	// after exceeding max attempts; the owner should poll and call Retry
	// to re-arm push.
	StateFallbackRecommended
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnsubscribed:
		return "unsubscribed"
	case StateSubscribing:
		return "subscribing"
	case StateSubscribed:
		return "subscribed"
	case StateErrorBackoff:
		return "error_backoff"
	case StateFallbackRecommended:
		return "fallback_recommended"
	default:
		return "unknown"
	}
}

// ConnectionState is the aggregate transport health.
type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connected
	// Degraded means the transport responds but should not be leaned on:
	// rate limiting, or repeated probe failures while channels look open.
	Degraded
)

// String returns the connection state name.
func (c ConnectionState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// EventType classifies manager events.
type EventType int

const (
	// EventSubscribed fires when a target reaches Subscribed, including
	// after a reconnect.
	EventSubscribed EventType = iota
	// EventError fires on a failed subscribe attempt or a lost channel.
	EventError
	// EventRateLimited fires when the transport signals throttling; the
	// backoff counter is not incremented for these.
	EventRateLimited
	// EventFallbackRecommended fires once when a target exceeds max
	// attempts and parks.
	EventFallbackRecommended
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventSubscribed:
		return "subscribed"
	case EventError:
		return "error"
	case EventRateLimited:
		return "rate_limited"
	case EventFallbackRecommended:
		return "fallback_recommended"
	default:
		return "unknown"
	}
}

// Event is one observable state change of a watched target.
type Event struct {
	Type     EventType
	Address  pubkey.PublicKey
	Kind     program.AccountKind
	Attempts int
	Err      error
}

// Handler receives raw pushed account bytes for a watched target. The
// manager passes data through without decoding semantics.
type Handler func(addr pubkey.PublicKey, kind program.AccountKind, update rpc.AccountUpdate)
