package rpc

import (
	"errors"
	"fmt"
)

// Transport errors. ConnectionLost and SubscriptionFailed are retried
// with capped exponential backoff by the subscription layer; RateLimited
// triggers a cool-down without the aggressive backoff multiplier, since
// retrying faster makes it worse.
var (
	ErrConnectionLost     = errors.New("connection lost")
	ErrRateLimited        = errors.New("rate limited")
	ErrSubscriptionFailed = errors.New("subscription failed")
	ErrClosed             = errors.New("client closed")
)

// JSON-RPC error codes that signal throttling. Providers are not uniform
// here: public nodes surface HTTP 429, some return -32005 (node behind /
// resource exhausted in its rate-limit variant) or a vendor 429 code.
const (
	codeRateLimited       = 429
	codeResourceExhausted = -32005
)

// rpcError is a JSON-RPC 2.0 error object.
type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// classifyRPCError maps a JSON-RPC error object onto the typed taxonomy.
// Classification is by code, never by message matching.
func classifyRPCError(e *rpcError) error {
	switch e.Code {
	case codeRateLimited, codeResourceExhausted:
		return fmt.Errorf("%w: %v", ErrRateLimited, e)
	default:
		return e
	}
}

// IsRateLimited reports whether err is a throttling signal.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
