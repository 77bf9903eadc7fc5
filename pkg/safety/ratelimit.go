package safety

import (
	"sync"
	"time"
)

// RateLimitConfig configures the per-caller sliding window.
type RateLimitConfig struct {
	// Limit is the maximum number of calls per window. Default 100.
	Limit int `yaml:"limit"`

	// Window is the sliding window duration. Default 1 minute.
	Window time.Duration `yaml:"window"`
}

// DefaultRateLimitConfig returns the default limit of 100 calls per minute.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{Limit: 100, Window: time.Minute}
}

// withDefaults fills zero values.
func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.Limit <= 0 {
		c.Limit = d.Limit
	}
	if c.Window <= 0 {
		c.Window = d.Window
	}
	return c
}

// rateWindow is the bounded timestamp queue for one caller key.
type rateWindow struct {
	mu     sync.Mutex
	stamps []time.Time
}

// RateLimiter is a keyed sliding-window rate limiter. A call is permitted
// iff the number of recorded timestamps within the window is below the
// limit; permitted calls record the current timestamp.
//
// Each caller key owns its own lock; only the key registry itself is
// shared.
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.RWMutex
	windows map[string]*rateWindow
}

// NewRateLimiter creates a keyed sliding-window rate limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  config.withDefaults(),
		now:     time.Now,
		windows: make(map[string]*rateWindow),
	}
}

// window returns the timestamp queue for a key, creating it on first use.
func (rl *RateLimiter) window(key string) *rateWindow {
	rl.mu.RLock()
	w, ok := rl.windows[key]
	rl.mu.RUnlock()
	if ok {
		return w
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if w, ok = rl.windows[key]; ok {
		return w
	}
	// The queue never grows beyond the limit, so pre-size it.
	w = &rateWindow{stamps: make([]time.Time, 0, rl.config.Limit)}
	rl.windows[key] = w
	return w
}

// Allow reports whether a call for the key is within the rate limit and,
// if so, records it.
func (rl *RateLimiter) Allow(key string) bool {
	w := rl.window(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.config.Window)

	// Drop expired timestamps from the front; the queue is in insertion
	// order so the first fresh stamp ends the scan.
	keep := 0
	for keep < len(w.stamps) && !w.stamps[keep].After(cutoff) {
		keep++
	}
	if keep > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[keep:]...)
	}

	if len(w.stamps) >= rl.config.Limit {
		return false
	}
	w.stamps = append(w.stamps, now)
	return true
}

// Remaining returns how many calls the key has left in the current window.
func (rl *RateLimiter) Remaining(key string) int {
	w := rl.window(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.Window)
	fresh := 0
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			fresh++
		}
	}
	if fresh >= rl.config.Limit {
		return 0
	}
	return rl.config.Limit - fresh
}

// RetryAfter returns how long the key must wait before a call can be
// admitted again: the time until the oldest in-window timestamp slides
// out. Zero when the key is under the limit.
func (rl *RateLimiter) RetryAfter(key string) time.Duration {
	w := rl.window(key)
	w.mu.Lock()
	defer w.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.config.Window)
	fresh := 0
	var oldest time.Time
	for _, ts := range w.stamps {
		if ts.After(cutoff) {
			if fresh == 0 {
				oldest = ts
			}
			fresh++
		}
	}
	if fresh < rl.config.Limit {
		return 0
	}
	return oldest.Add(rl.config.Window).Sub(now)
}

// Prune drops caller keys whose entire window has expired.
func (rl *RateLimiter) Prune() int {
	cutoff := rl.now().Add(-rl.config.Window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	pruned := 0
	for key, w := range rl.windows {
		w.mu.Lock()
		empty := len(w.stamps) == 0 || !w.stamps[len(w.stamps)-1].After(cutoff)
		w.mu.Unlock()
		if empty {
			delete(rl.windows, key)
			pruned++
		}
	}
	return pruned
}
