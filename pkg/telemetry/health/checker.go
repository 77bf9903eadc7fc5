// Package health aggregates component health checks into one snapshot
// for liveness and readiness probing.
package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CheckFunc probes one component. Nil means healthy.
type CheckFunc func(ctx context.Context) error

// CheckResult is the outcome of one component's check.
type CheckResult struct {
	// Status is "ok" or "unhealthy".
	Status string `json:"status"`

	// Message carries the failure detail for unhealthy components.
	Message string `json:"message,omitempty"`

	// Duration is how long the check took.
	Duration time.Duration `json:"duration_ms,omitempty"`
}

// Status is the aggregated system health.
type Status struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Checks holds per-component results.
	Checks map[string]CheckResult `json:"checks,omitempty"`

	// Timestamp is when the snapshot was taken.
	Timestamp time.Time `json:"timestamp"`
}

// ErrCheckTimeout is reported for a check that outlives its deadline.
var ErrCheckTimeout = errors.New("health check timed out")

// Checker runs registered component checks concurrently under a per-check
// timeout.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
}

// New creates a checker. A zero timeout defaults to 5 seconds per check.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{checks: make(map[string]CheckFunc), timeout: timeout}
}

// Register adds or replaces a named component check.
func (c *Checker) Register(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Unregister removes a named component check.
func (c *Checker) Unregister(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Check runs every registered check concurrently and aggregates the
// results. The overall status is "ok" only when every component passes.
func (c *Checker) Check(ctx context.Context) Status {
	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	status := Status{
		Status:    "ok",
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now(),
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for name, fn := range checks {
		wg.Add(1)
		go func(name string, fn CheckFunc) {
			defer wg.Done()
			result := c.run(ctx, fn)

			mu.Lock()
			status.Checks[name] = result
			if result.Status != "ok" {
				status.Status = "degraded"
			}
			mu.Unlock()
		}(name, fn)
	}
	wg.Wait()
	return status
}

// run executes one check under the per-check timeout.
func (c *Checker) run(ctx context.Context, fn CheckFunc) CheckResult {
	checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	done := make(chan error, 1)
	go func() { done <- fn(checkCtx) }()

	var err error
	select {
	case err = <-done:
	case <-checkCtx.Done():
		err = ErrCheckTimeout
	}

	result := CheckResult{Status: "ok", Duration: time.Since(started)}
	if err != nil {
		result.Status = "unhealthy"
		result.Message = err.Error()
	}
	return result
}
