package arbiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carelogic/arbiter/pkg/config"
	"carelogic/arbiter/pkg/facts"
	"carelogic/arbiter/pkg/orchestrator"
	"carelogic/arbiter/pkg/rules"
	"carelogic/arbiter/pkg/safety"
	"carelogic/arbiter/pkg/telemetry/health"
	"carelogic/arbiter/pkg/telemetry/logging"
	"carelogic/arbiter/pkg/telemetry/metrics"
)

// Engine is the assembled decision engine. Construct one per process with
// New and share it across request handlers; all mutable state inside is
// concurrency-safe.
type Engine struct {
	config *config.Config
	logger *slog.Logger

	rules      *rules.Engine
	fileSource *rules.FileSource
	libraryIDs map[string]bool

	registry *orchestrator.Registry
	orch     *orchestrator.Orchestrator
	priority *orchestrator.PriorityOrchestrator

	safety    *safety.Manager
	collector *metrics.Collector
	checker   *health.Checker
}

// New builds an engine from configuration. A nil logger builds one from
// the telemetry section; a nil config uses defaults.
func New(cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Telemetry.Logging)
		if err != nil {
			return nil, err
		}
	}

	e := &Engine{
		config:     cfg,
		logger:     logger,
		libraryIDs: make(map[string]bool),
		registry:   orchestrator.NewRegistry(),
		safety:     safety.NewManager(cfg.Safety, logger),
		collector:  metrics.NewCollector(cfg.Telemetry.Metrics, nil),
		checker:    health.New(0),
	}

	var sources []rules.Source
	if cfg.Rules.LibraryEnabled() {
		library := rules.Library()
		for _, set := range library {
			e.libraryIDs[set.Name] = true
		}
		sources = append(sources, rules.NewMemorySource(library...))
	}
	if cfg.Rules.Path != "" {
		e.fileSource = rules.NewFileSource(cfg.Rules.Path, logger)
		sources = append(sources, e.fileSource)
	}

	rulesEngine, err := rules.NewEngine(rules.NewMultiSource(sources...), cfg.Rules.Evaluator, logger)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	e.rules = rulesEngine

	evaluator := rules.NewEvaluator(cfg.Rules.Evaluator, logger)
	e.orch = orchestrator.New(cfg.Orchestrator, e.registry, evaluator, e.safety, logger)
	e.priority = orchestrator.NewPriority(e.orch)

	if cfg.Rules.Watch && e.fileSource != nil {
		err := e.fileSource.Watch(context.Background(), func() {
			if err := e.rules.Reload(context.Background()); err != nil {
				logger.Error("rule reload failed, keeping previous generation", "error", err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("watch rules: %w", err)
		}
	}

	if err := e.safety.Start(); err != nil {
		return nil, err
	}

	e.checker.Register("rules", func(ctx context.Context) error {
		if len(e.rules.RuleSets()) == 0 {
			return fmt.Errorf("no rule sets loaded")
		}
		return nil
	})
	e.checker.Register("safety", func(ctx context.Context) error {
		status := e.safety.HealthCheck()
		if !status.Healthy {
			return fmt.Errorf("unhealthy: %d open breakers", len(status.OpenBreakers))
		}
		return nil
	})

	return e, nil
}

// RegisterService adds a decision service to the orchestrator registry.
func (e *Engine) RegisterService(svc orchestrator.Service) error {
	return e.registry.Register(svc)
}

// UnregisterService removes a decision service by id.
func (e *Engine) UnregisterService(id string) bool {
	return e.registry.Unregister(id)
}

// Rules exposes the rules engine for administrative operations (reload,
// rule toggling).
func (e *Engine) Rules() *rules.Engine {
	return e.rules
}

// Safety exposes the safety manager for flags, health, and metrics.
func (e *Engine) Safety() *safety.Manager {
	return e.safety
}

// Metrics exposes the Prometheus collector.
func (e *Engine) Metrics() *metrics.Collector {
	return e.collector
}

// Health runs the component health checks.
func (e *Engine) Health(ctx context.Context) health.Status {
	return e.checker.Check(ctx)
}

// Close stops the rule watcher and the safety maintenance sweep.
func (e *Engine) Close() error {
	var firstErr error
	if e.fileSource != nil {
		if err := e.fileSource.Close(); err != nil {
			firstErr = err
		}
	}
	if err := e.safety.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// DecideOptions narrows one decision request.
type DecideOptions struct {
	// CallerKey identifies the caller for rate limiting and A/B
	// allocation. Empty skips the rate limit check.
	CallerKey string

	// RuleSets restricts fallback rule evaluation to named sets.
	RuleSets []string

	// Category restricts fallback rule evaluation to one category.
	Category string

	// Priority restricts fallback rule evaluation to one priority.
	Priority *rules.Priority

	// ServiceIDs restricts orchestration to explicit services.
	ServiceIDs []string

	// ServiceTimeout overrides the configured per-service deadline.
	ServiceTimeout time.Duration

	// Prioritized uses the priority-banded orchestrator with the
	// configured recommendation cap.
	Prioritized bool
}

// DecideResult is the outcome of one decision request.
type DecideResult struct {
	// RequestID uniquely identifies this decision.
	RequestID string

	// Recommendations is the final, possibly empty, recommendation set.
	Recommendations []rules.Recommendation

	// Orchestration holds the per-service results. Nil when no services
	// were registered for the trigger.
	Orchestration *orchestrator.Result

	// RuleBatch holds the rule evaluation details when the rules engine
	// ran as fallback. Nil otherwise.
	RuleBatch *rules.RecommendationBatch

	// Elapsed is the end-to-end decision time.
	Elapsed time.Duration
}

// Decide runs one decision request: flag gate, rate limit, service
// orchestration, then rule fallback when orchestration yields nothing and
// hybrid fallback is enabled.
func (e *Engine) Decide(ctx context.Context, triggerType string, factsCtx facts.Context, extra map[string]any, opts DecideOptions) (*DecideResult, error) {
	started := time.Now()

	if !e.safety.FlagEnabled(safety.FlagEngineEnabled) {
		e.collector.RecordDecision(triggerType, "disabled", time.Since(started), 0)
		return nil, safety.ErrEngineDisabled
	}

	if opts.CallerKey != "" {
		if err := e.safety.AllowRequest(opts.CallerKey); err != nil {
			e.collector.RecordRateLimited()
			e.collector.RecordDecision(triggerType, "rate-limited", time.Since(started), 0)
			return nil, err
		}
	}

	result := &DecideResult{RequestID: uuid.NewString()}

	orchResult, err := e.orchestrate(ctx, triggerType, factsCtx, extra, opts)
	if err != nil {
		e.collector.RecordDecision(triggerType, "error", time.Since(started), 0)
		return nil, err
	}
	result.Orchestration = orchResult
	result.Recommendations = orchResult.Recommendations
	e.recordOrchestration(orchResult)

	if len(result.Recommendations) == 0 && e.safety.FlagEnabled(safety.FlagHybridFallback) {
		batch, err := e.evaluateRules(factsCtx, opts)
		if err != nil {
			e.collector.RecordDecision(triggerType, "error", time.Since(started), 0)
			return nil, err
		}
		if batch != nil {
			result.RuleBatch = batch
			result.Recommendations = batch.Recommendations
			e.recordRuleBatch(batch)
		}
	}

	result.Elapsed = time.Since(started)
	e.safety.RecordLatency(result.Elapsed, true)
	e.collector.RecordDecision(triggerType, "ok", result.Elapsed, len(result.Recommendations))

	e.logger.Debug("decision completed",
		"request_id", result.RequestID,
		"trigger", triggerType,
		"recommendations", len(result.Recommendations),
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// orchestrate runs the flat or priority orchestrator per the options.
func (e *Engine) orchestrate(ctx context.Context, triggerType string, factsCtx facts.Context, extra map[string]any, opts DecideOptions) (*orchestrator.Result, error) {
	execOpts := orchestrator.ExecuteOptions{
		ServiceIDs: opts.ServiceIDs,
		Timeout:    opts.ServiceTimeout,
	}
	if opts.Prioritized {
		return e.priority.Execute(ctx, triggerType, factsCtx, extra, execOpts)
	}
	return e.orch.Execute(ctx, triggerType, factsCtx, extra, execOpts)
}

// evaluateRules runs the fallback rule evaluation, honoring the custom
// rules and parallel evaluation flags. It returns nil when the flags leave
// no rule sets eligible.
func (e *Engine) evaluateRules(factsCtx facts.Context, opts DecideOptions) (*rules.RecommendationBatch, error) {
	names := opts.RuleSets
	if !e.safety.FlagEnabled(safety.FlagCustomRules) {
		names = e.libraryOnly(names)
		if len(names) == 0 {
			return nil, nil
		}
	}

	return e.rules.Evaluate(factsCtx, rules.EvaluateOptions{
		RuleSets:   names,
		Category:   opts.Category,
		Priority:   opts.Priority,
		Sequential: !e.safety.FlagEnabled(safety.FlagParallelEvaluation),
	})
}

// libraryOnly narrows rule-set names to the prebuilt library. An empty
// input selects the whole library.
func (e *Engine) libraryOnly(names []string) []string {
	if len(names) == 0 {
		out := make([]string, 0, len(e.libraryIDs))
		for _, set := range e.rules.RuleSets() {
			if e.libraryIDs[set.Name] {
				out = append(out, set.Name)
			}
		}
		return out
	}
	out := make([]string, 0, len(names))
	for _, name := range names {
		if e.libraryIDs[name] {
			out = append(out, name)
		}
	}
	return out
}

// recordOrchestration publishes per-service metrics and breaker states.
func (e *Engine) recordOrchestration(result *orchestrator.Result) {
	for _, sr := range result.Services {
		e.collector.RecordServiceExecution(sr.ServiceID, string(sr.Status), sr.Elapsed)
		e.collector.SetBreakerState(sr.ServiceID, string(e.safety.BreakerState(sr.ServiceID).State))
	}
}

// recordRuleBatch publishes rule evaluation metrics.
func (e *Engine) recordRuleBatch(batch *rules.RecommendationBatch) {
	e.collector.RecordRulesEvaluated(batch.EvaluatedRules)
	seen := make(map[string]bool, len(batch.Recommendations))
	for _, rec := range batch.Recommendations {
		key := rec.RuleSet + "/" + rec.RuleID
		if !seen[key] {
			seen[key] = true
			e.collector.RecordRuleHit(rec.RuleSet, rec.RuleID)
		}
	}
}
