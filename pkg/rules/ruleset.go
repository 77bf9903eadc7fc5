package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"carelogic/arbiter/pkg/facts"
)

// RuleSet is a named, ordered collection of rules. Rules within a set are
// independent (no shared mutable state), so candidates are evaluated
// concurrently.
type RuleSet struct {
	// Name identifies the rule set within the engine.
	Name string `yaml:"name"`

	// Description documents what the set covers.
	Description string `yaml:"description,omitempty"`

	// Rules are the member rules, in insertion order. Insertion order is
	// the tiebreak for equal priorities.
	Rules []*Rule `yaml:"rules"`
}

// Filter narrows the candidate rules of a set before evaluation. Zero
// values mean "no filter".
type Filter struct {
	// Category keeps only rules of the given category.
	Category string

	// Priority keeps only rules of the given priority. Nil means all.
	Priority *Priority
}

// TriggeredRule pairs a triggered rule with the actions it emitted.
type TriggeredRule struct {
	Rule    *Rule
	Actions []Action
}

// evalOutcome carries one rule's result back through the fan-in channel.
type evalOutcome struct {
	index     int
	triggered bool
	actions   []Action
}

// Evaluate evaluates all candidate rules concurrently and returns the
// triggered ones sorted by priority rank ascending (critical first). Ties
// keep insertion order: results are buffered and stable-sorted, so output
// order never depends on goroutine completion order.
//
// A panic or error inside a single rule is isolated: it is logged and the
// rule treated as not triggered.
func (rs *RuleSet) Evaluate(ev *Evaluator, ctx facts.Context, filter Filter, logger *slog.Logger) []TriggeredRule {
	if logger == nil {
		logger = slog.Default()
	}

	candidates := rs.candidates(filter)
	if len(candidates) == 0 {
		return nil
	}

	outcomes := make([]evalOutcome, len(candidates))
	var wg sync.WaitGroup
	for i, rule := range candidates {
		wg.Add(1)
		go func(i int, rule *Rule) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("rule evaluation panicked",
						"rule_set", rs.Name,
						"rule_id", rule.ID,
						"panic", fmt.Sprint(r),
					)
				}
			}()

			triggered, actions, err := rule.Evaluate(ev, ctx)
			if err != nil {
				logger.Warn("rule evaluation error, treating as not triggered",
					"rule_set", rs.Name,
					"rule_id", rule.ID,
					"error", err,
				)
				return
			}
			outcomes[i] = evalOutcome{index: i, triggered: triggered, actions: actions}
		}(i, rule)
	}
	wg.Wait()

	triggered := make([]TriggeredRule, 0, len(candidates))
	for i, outcome := range outcomes {
		if outcome.triggered {
			triggered = append(triggered, TriggeredRule{Rule: candidates[i], Actions: outcome.actions})
		}
	}

	// Stable sort preserves insertion order among equal priorities.
	sort.SliceStable(triggered, func(i, j int) bool {
		return triggered[i].Rule.Priority < triggered[j].Rule.Priority
	})

	return triggered
}

// EvaluateSequential is Evaluate without the fan-out: candidates run one
// after another on the calling goroutine, with the same per-rule isolation
// and the same priority-sorted output. Used when parallel evaluation is
// flagged off for debugging.
func (rs *RuleSet) EvaluateSequential(ev *Evaluator, ctx facts.Context, filter Filter, logger *slog.Logger) []TriggeredRule {
	if logger == nil {
		logger = slog.Default()
	}

	candidates := rs.candidates(filter)
	triggered := make([]TriggeredRule, 0, len(candidates))
	for _, rule := range candidates {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("rule evaluation panicked",
						"rule_set", rs.Name,
						"rule_id", rule.ID,
						"panic", fmt.Sprint(r),
					)
				}
			}()

			ok, actions, err := rule.Evaluate(ev, ctx)
			if err != nil {
				logger.Warn("rule evaluation error, treating as not triggered",
					"rule_set", rs.Name,
					"rule_id", rule.ID,
					"error", err,
				)
				return
			}
			if ok {
				triggered = append(triggered, TriggeredRule{Rule: rule, Actions: actions})
			}
		}()
	}

	sort.SliceStable(triggered, func(i, j int) bool {
		return triggered[i].Rule.Priority < triggered[j].Rule.Priority
	})
	return triggered
}

// candidates applies the filter to the member rules.
func (rs *RuleSet) candidates(filter Filter) []*Rule {
	out := make([]*Rule, 0, len(rs.Rules))
	for _, rule := range rs.Rules {
		if filter.Category != "" && rule.Category != filter.Category {
			continue
		}
		if filter.Priority != nil && rule.Priority != *filter.Priority {
			continue
		}
		out = append(out, rule)
	}
	return out
}

// Validate checks the rule set for structural problems: empty names,
// duplicate rule IDs, rules without actions.
func (rs *RuleSet) Validate() error {
	var problems []string
	if rs.Name == "" {
		problems = append(problems, "rule set name is empty")
	}

	seen := make(map[string]struct{}, len(rs.Rules))
	for _, rule := range rs.Rules {
		if rule.ID == "" {
			problems = append(problems, fmt.Sprintf("rule %q has no id", rule.Name))
			continue
		}
		if _, dup := seen[rule.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = struct{}{}
		if len(rule.Actions) == 0 {
			problems = append(problems, fmt.Sprintf("rule %q has no actions", rule.ID))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{RuleSet: rs.Name, Errors: problems}
	}
	return nil
}
