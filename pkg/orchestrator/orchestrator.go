package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"carelogic/arbiter/pkg/facts"
	"carelogic/arbiter/pkg/rules"
	"carelogic/arbiter/pkg/safety"
)

// Config configures the service orchestrator.
type Config struct {
	// MaxConcurrent bounds how many services run at once. Default 10.
	MaxConcurrent int `yaml:"max_concurrent"`

	// ServiceTimeout is the per-service deadline. Default 5 seconds.
	ServiceTimeout time.Duration `yaml:"service_timeout"`

	// MaxRecommendations caps the priority orchestrator's output. Zero
	// means unlimited. Ignored by the flat orchestrator.
	MaxRecommendations int `yaml:"max_recommendations"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrent:  10,
		ServiceTimeout: 5 * time.Second,
	}
}

// withDefaults fills zero values.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = d.MaxConcurrent
	}
	if c.ServiceTimeout <= 0 {
		c.ServiceTimeout = d.ServiceTimeout
	}
	return c
}

// ExecuteOptions narrows one orchestration.
type ExecuteOptions struct {
	// ServiceIDs restricts execution to these services. Empty means every
	// service registered for the trigger type.
	ServiceIDs []string

	// Timeout overrides the configured per-service deadline.
	Timeout time.Duration
}

// Orchestrator runs the decision services for a trigger type concurrently,
// isolating each service's failure, timeout, and breaker state from its
// siblings.
type Orchestrator struct {
	config    Config
	registry  *Registry
	evaluator *rules.Evaluator
	safety    *safety.Manager
	logger    *slog.Logger
}

// New creates an orchestrator. The safety manager may be nil, in which case
// breaker checks and metrics reporting are skipped.
func New(config Config, registry *Registry, evaluator *rules.Evaluator, mgr *safety.Manager, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		config:    config.withDefaults(),
		registry:  registry,
		evaluator: evaluator,
		safety:    mgr,
		logger:    logger.With("component", "orchestrator"),
	}
}

// Registry returns the service registry.
func (o *Orchestrator) Registry() *Registry {
	return o.registry
}

// Execute runs every candidate service for the trigger type and aggregates
// their recommendations in dispatch order. An empty candidate list is a
// no-op. The returned error covers only candidate resolution; per-service
// outcomes are reported in the result, never as an error.
func (o *Orchestrator) Execute(ctx context.Context, triggerType string, factsCtx facts.Context, extra map[string]any, opts ExecuteOptions) (*Result, error) {
	started := time.Now()

	candidates, err := o.candidates(triggerType, opts.ServiceIDs)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	if len(candidates) == 0 {
		return result, nil
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = o.config.ServiceTimeout
	}

	result.tally(o.runServices(ctx, candidates, factsCtx, extra, timeout))
	result.Elapsed = time.Since(started)

	o.logger.Debug("orchestration completed",
		"trigger", triggerType,
		"candidates", len(candidates),
		"executed", result.ExecutedCount,
		"skipped", result.SkippedCount,
		"failed", result.FailedCount,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// candidates resolves the services to run: explicit ids when given, else
// all services registered for the trigger type.
func (o *Orchestrator) candidates(triggerType string, ids []string) ([]Service, error) {
	if len(ids) == 0 {
		return o.registry.ServicesFor(triggerType), nil
	}
	out := make([]Service, 0, len(ids))
	for _, id := range ids {
		svc, ok := o.registry.Service(id)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownService, id)
		}
		out = append(out, svc)
	}
	return out, nil
}

// runServices dispatches a batch of services under the concurrency gate
// and returns their results in dispatch order.
func (o *Orchestrator) runServices(ctx context.Context, services []Service, factsCtx facts.Context, extra map[string]any, timeout time.Duration) []ServiceResult {
	results := make([]ServiceResult, len(services))
	permits := make(chan struct{}, o.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i, svc := range services {
		wg.Add(1)
		go func(i int, svc Service) {
			defer wg.Done()
			permits <- struct{}{}
			defer func() { <-permits }()
			results[i] = o.runService(ctx, svc, factsCtx, extra, timeout)
		}(i, svc)
	}
	wg.Wait()
	return results
}

// serviceOutcome carries a service call's return values across the timeout
// select.
type serviceOutcome struct {
	applicable      bool
	recommendations []rules.Recommendation
	err             error
}

// runService takes one service through its full lifecycle: breaker check,
// gate conditions, applicability check, then execution under the deadline.
func (o *Orchestrator) runService(ctx context.Context, svc Service, factsCtx facts.Context, extra map[string]any, timeout time.Duration) ServiceResult {
	started := time.Now()
	result := ServiceResult{ServiceID: svc.ID(), Status: StatusRunning}

	if o.safety != nil {
		if err := o.safety.AllowCall(svc.ID()); err != nil {
			result.Status = StatusSkippedByBreaker
			result.Detail = err.Error()
			result.Elapsed = time.Since(started)
			return result
		}
	}

	for _, cond := range svc.Conditions() {
		ok, err := o.evaluator.Evaluate(cond, factsCtx)
		if err != nil || !ok {
			result.Status = StatusSkipped
			result.Detail = "gate condition not satisfied"
			if err != nil {
				result.Detail = fmt.Sprintf("gate condition error: %v", err)
			}
			result.Elapsed = time.Since(started)
			return result
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	outcome, timedOut := o.call(callCtx, svc, factsCtx, extra)
	result.Elapsed = time.Since(started)

	switch {
	case timedOut:
		result.Status = StatusTimedOut
		result.Err = context.DeadlineExceeded
		o.recordFailure(svc.ID(), result.Elapsed)
	case outcome.err != nil:
		if errors.Is(outcome.err, context.DeadlineExceeded) {
			result.Status = StatusTimedOut
		} else {
			result.Status = StatusFailed
		}
		result.Err = &ServiceError{ServiceID: svc.ID(), Cause: outcome.err}
		o.recordFailure(svc.ID(), result.Elapsed)
		o.logger.Warn("service execution failed",
			"service", svc.ID(), "status", string(result.Status), "error", outcome.err)
	case !outcome.applicable:
		result.Status = StatusSkipped
		result.Detail = "service declined execution"
	default:
		result.Status = StatusCompleted
		result.Recommendations = outcome.recommendations
		for i := range result.Recommendations {
			if result.Recommendations[i].ServiceID == "" {
				result.Recommendations[i].ServiceID = svc.ID()
			}
		}
		o.recordSuccess(svc.ID(), result.Elapsed)
	}
	return result
}

// call invokes ShouldExecute then Execute in a separate goroutine so a
// service that ignores its context cannot hold up the orchestration past
// the deadline. On timeout the goroutine is abandoned; its eventual result
// is discarded.
func (o *Orchestrator) call(ctx context.Context, svc Service, factsCtx facts.Context, extra map[string]any) (serviceOutcome, bool) {
	done := make(chan serviceOutcome, 1)

	go func() {
		var out serviceOutcome
		defer func() {
			if r := recover(); r != nil {
				out = serviceOutcome{err: fmt.Errorf("service %q panicked: %v", svc.ID(), r)}
			}
			done <- out
		}()

		ok, err := svc.ShouldExecute(ctx, factsCtx, extra)
		if err != nil {
			out = serviceOutcome{err: err}
			return
		}
		if !ok {
			out = serviceOutcome{applicable: false}
			return
		}

		recs, err := svc.Execute(ctx, factsCtx, extra)
		out = serviceOutcome{applicable: true, recommendations: recs, err: err}
	}()

	select {
	case out := <-done:
		return out, false
	case <-ctx.Done():
		return serviceOutcome{}, true
	}
}

func (o *Orchestrator) recordSuccess(serviceID string, elapsed time.Duration) {
	if o.safety == nil {
		return
	}
	o.safety.RecordSuccess(serviceID)
	o.safety.RecordLatency(elapsed, true)
}

func (o *Orchestrator) recordFailure(serviceID string, elapsed time.Duration) {
	if o.safety == nil {
		return
	}
	o.safety.RecordFailure(serviceID)
	o.safety.RecordLatency(elapsed, false)
}
