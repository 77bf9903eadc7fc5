package safety

import (
	"errors"
	"fmt"
	"time"
)

// ErrEngineDisabled indicates the engine-enabled feature flag is off.
var ErrEngineDisabled = errors.New("decision engine is disabled")

// BreakerOpenError reports a call rejected by an open circuit breaker
// before the service was attempted. It is distinct from a service failure
// so callers and metrics can tell "didn't try" from "tried and failed".
type BreakerOpenError struct {
	Service  string
	OpenedAt time.Time
	Cooldown time.Duration
}

// Error returns the error message.
func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for service %q", e.Service)
}

// RateLimitedError reports a caller-visible rate limit rejection. It is
// distinct from any service failure: the request was never admitted.
type RateLimitedError struct {
	Key    string
	Limit  int
	Window time.Duration

	// Remaining is the caller's quota left in the current window, zero
	// on rejection unless the window slid between check and report.
	Remaining int

	// RetryAfter is how long until the oldest in-window call expires and
	// a slot frees up.
	RetryAfter time.Duration
}

// Error returns the error message.
func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limit exceeded for caller %q (%d per %s, retry after %s)",
		e.Key, e.Limit, e.Window, e.RetryAfter)
}
