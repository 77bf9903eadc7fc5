package rules

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"carelogic/arbiter/pkg/facts"
)

// EvaluateOptions narrows an engine evaluation.
type EvaluateOptions struct {
	// RuleSets selects which rule sets to evaluate. Empty means all.
	RuleSets []string

	// Category keeps only rules of the given category.
	Category string

	// Priority keeps only rules of the given priority. Nil means all.
	Priority *Priority

	// Sequential evaluates rules one at a time instead of fanning out.
	Sequential bool
}

// Engine owns the loaded rule sets and turns triggered rules into a
// recommendation batch.
//
// The engine holds no per-request state; rule sets are replaced atomically
// on reload, so evaluations racing a reload see either the old or the new
// generation, never a mix.
type Engine struct {
	source    Source
	evaluator *Evaluator
	logger    *slog.Logger

	mu   sync.RWMutex
	sets []*RuleSet
}

// NewEngine creates a rules engine and performs the initial load from the
// source.
func NewEngine(source Source, evalCfg EvaluatorConfig, logger *slog.Logger) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("rule source cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		source:    source,
		evaluator: NewEvaluator(evalCfg, logger),
		logger:    logger,
	}
	if err := e.Reload(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// Reload loads rule sets from the source, validates them, and atomically
// swaps them in. A source that yields no rule sets is rejected with
// ErrNoRuleSets and the previous generation stays live.
func (e *Engine) Reload(ctx context.Context) error {
	sets, err := e.source.Load(ctx)
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		return ErrNoRuleSets
	}

	totalRules := 0
	for _, set := range sets {
		if err := set.Validate(); err != nil {
			return err
		}
		totalRules += len(set.Rules)
	}

	e.mu.Lock()
	e.sets = sets
	e.mu.Unlock()

	e.logger.Info("rule sets loaded",
		"rule_sets", len(sets),
		"rules", totalRules,
	)
	return nil
}

// RuleSets returns the loaded rule sets. The slice is a copy; the sets
// themselves are shared and must not be mutated.
func (e *Engine) RuleSets() []*RuleSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*RuleSet, len(e.sets))
	copy(out, e.sets)
	return out
}

// SetRuleEnabled toggles a rule between requests. It returns false when no
// rule with the given id exists in the named set.
func (e *Engine) SetRuleEnabled(setName, ruleID string, enabled bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, set := range e.sets {
		if set.Name != setName {
			continue
		}
		for _, rule := range set.Rules {
			if rule.ID == ruleID {
				rule.Enabled = enabled
				return true
			}
		}
	}
	return false
}

// Evaluate evaluates the selected rule sets against the fact context and
// renders the triggered rules into a recommendation batch: one
// recommendation per action, attributed to the owning rule.
//
// A failure inside one rule never aborts the batch; it is isolated at the
// rule boundary inside RuleSet.Evaluate. Evaluate itself errors only when
// the options name a rule set that is not loaded.
func (e *Engine) Evaluate(factsCtx facts.Context, opts EvaluateOptions) (*RecommendationBatch, error) {
	start := time.Now()

	selected, err := e.selectSets(opts.RuleSets)
	if err != nil {
		return nil, err
	}

	filter := Filter{Category: opts.Category, Priority: opts.Priority}
	batch := &RecommendationBatch{RequestID: uuid.NewString()}

	for _, set := range selected {
		batch.EvaluatedRules += len(set.Rules)
		var triggered []TriggeredRule
		if opts.Sequential {
			triggered = set.EvaluateSequential(e.evaluator, factsCtx, filter, e.logger)
		} else {
			triggered = set.Evaluate(e.evaluator, factsCtx, filter, e.logger)
		}
		for _, tr := range triggered {
			batch.TriggeredRules++
			for _, action := range tr.Actions {
				batch.Recommendations = append(batch.Recommendations, Recommendation{
					Action:   action,
					RuleID:   tr.Rule.ID,
					RuleName: tr.Rule.Name,
					Category: tr.Rule.Category,
					RuleSet:  set.Name,
				})
			}
		}
	}

	batch.ElapsedTime = time.Since(start)

	e.logger.Debug("rules evaluated",
		"request_id", batch.RequestID,
		"evaluated", batch.EvaluatedRules,
		"triggered", batch.TriggeredRules,
		"recommendations", len(batch.Recommendations),
		"elapsed", batch.ElapsedTime,
	)
	return batch, nil
}

// selectSets resolves the requested rule-set names against the loaded sets.
func (e *Engine) selectSets(names []string) ([]*RuleSet, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(names) == 0 {
		out := make([]*RuleSet, len(e.sets))
		copy(out, e.sets)
		return out, nil
	}

	byName := make(map[string]*RuleSet, len(e.sets))
	for _, set := range e.sets {
		byName[set.Name] = set
	}

	out := make([]*RuleSet, 0, len(names))
	for _, name := range names {
		set, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownRuleSet, name)
		}
		out = append(out, set)
	}
	return out, nil
}
