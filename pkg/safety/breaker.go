package safety

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for one service key.
type BreakerState string

const (
	// StateClosed permits all calls.
	StateClosed BreakerState = "closed"

	// StateOpen rejects all calls until the cooldown elapses.
	StateOpen BreakerState = "open"

	// StateHalfOpen permits calls while probing for recovery.
	StateHalfOpen BreakerState = "half-open"
)

// BreakerConfig configures the circuit breaker thresholds.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default 5.
	FailureThreshold int `yaml:"failure_threshold"`

	// SuccessThreshold is the half-open success count that closes the
	// breaker again. Default 3.
	SuccessThreshold int `yaml:"success_threshold"`

	// Cooldown is how long an open breaker rejects calls before the next
	// check transitions it to half-open. Default 5 minutes.
	Cooldown time.Duration `yaml:"cooldown"`
}

// DefaultBreakerConfig returns the default breaker thresholds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 3,
		Cooldown:         5 * time.Minute,
	}
}

// withDefaults fills zero values.
func (c BreakerConfig) withDefaults() BreakerConfig {
	d := DefaultBreakerConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = d.SuccessThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	return c
}

// BreakerSnapshot is a point-in-time view of one breaker's state.
type BreakerSnapshot struct {
	State        BreakerState
	FailureCount int
	SuccessCount int
	OpenedAt     time.Time
}

// breakerEntry holds the mutable state for one service key. Each entry has
// its own lock so unrelated services never contend.
type breakerEntry struct {
	mu           sync.Mutex
	state        BreakerState
	failureCount int
	successCount int
	openedAt     time.Time
	lastTouched  time.Time
}

// Breaker is a keyed circuit breaker: one independent three-state machine
// per service identifier, mutated only through Allow, RecordSuccess, and
// RecordFailure.
type Breaker struct {
	config BreakerConfig
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*breakerEntry
}

// NewBreaker creates a keyed circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	return &Breaker{
		config:  config.withDefaults(),
		now:     time.Now,
		entries: make(map[string]*breakerEntry),
	}
}

// entry returns the state for a key, creating it closed on first use.
func (b *Breaker) entry(key string) *breakerEntry {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if ok {
		return e
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok = b.entries[key]; ok {
		return e
	}
	e = &breakerEntry{state: StateClosed}
	b.entries[key] = e
	return e
}

// Allow reports whether a call to the keyed service is currently permitted.
//
// Closed and half-open permit. Open rejects until the cooldown has elapsed,
// at which point this check transitions the breaker to half-open and
// permits. The invariant: no call is ever permitted while open and not yet
// past cooldown.
func (b *Breaker) Allow(key string) bool {
	e := b.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastTouched = b.now()

	switch e.state {
	case StateOpen:
		if b.now().Sub(e.openedAt) > b.config.Cooldown {
			e.state = StateHalfOpen
			e.successCount = 0
			return true
		}
		return false
	default:
		return true
	}
}

// RecordSuccess records a successful call. In half-open, enough successes
// close the breaker and reset both counters; in closed, the consecutive
// failure count resets.
func (b *Breaker) RecordSuccess(key string) {
	e := b.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastTouched = b.now()

	switch e.state {
	case StateHalfOpen:
		e.successCount++
		if e.successCount >= b.config.SuccessThreshold {
			e.state = StateClosed
			e.failureCount = 0
			e.successCount = 0
			e.openedAt = time.Time{}
		}
	case StateClosed:
		e.failureCount = 0
	}
}

// RecordFailure records a failed call. In closed, reaching the failure
// threshold opens the breaker; any failure in half-open re-opens it
// immediately with a fresh cooldown.
func (b *Breaker) RecordFailure(key string) {
	e := b.entry(key)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lastTouched = b.now()

	switch e.state {
	case StateClosed:
		e.failureCount++
		if e.failureCount >= b.config.FailureThreshold {
			e.state = StateOpen
			e.openedAt = b.now()
		}
	case StateHalfOpen:
		e.state = StateOpen
		e.failureCount = 0
		e.successCount = 0
		e.openedAt = b.now()
	}
}

// State returns a snapshot of the breaker for one key. Unknown keys report
// closed.
func (b *Breaker) State(key string) BreakerSnapshot {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()
	if !ok {
		return BreakerSnapshot{State: StateClosed}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return BreakerSnapshot{
		State:        e.state,
		FailureCount: e.failureCount,
		SuccessCount: e.successCount,
		OpenedAt:     e.openedAt,
	}
}

// Snapshot returns the state of every known breaker key.
func (b *Breaker) Snapshot() map[string]BreakerSnapshot {
	b.mu.RLock()
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	b.mu.RUnlock()

	out := make(map[string]BreakerSnapshot, len(keys))
	for _, k := range keys {
		out[k] = b.State(k)
	}
	return out
}

// Prune drops closed entries that have not been touched within maxIdle.
// Open and half-open entries are always kept.
func (b *Breaker) Prune(maxIdle time.Duration) int {
	cutoff := b.now().Add(-maxIdle)

	b.mu.Lock()
	defer b.mu.Unlock()

	pruned := 0
	for key, e := range b.entries {
		e.mu.Lock()
		idle := e.state == StateClosed && e.lastTouched.Before(cutoff)
		e.mu.Unlock()
		if idle {
			delete(b.entries, key)
			pruned++
		}
	}
	return pruned
}
