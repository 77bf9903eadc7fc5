package rules

import "carelogic/arbiter/pkg/facts"

// Priority ranks rules for output ordering. Lower rank sorts first.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityHigh     Priority = 1
	PriorityMedium   Priority = 2
	PriorityLow      Priority = 3
	PriorityInfo     Priority = 4
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityCritical:
		return "critical"
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	case PriorityInfo:
		return "info"
	default:
		return "unknown"
	}
}

// ParsePriority parses a priority name. Unknown names map to
// PriorityMedium.
func ParsePriority(s string) Priority {
	switch s {
	case "critical":
		return PriorityCritical
	case "high":
		return PriorityHigh
	case "medium", "":
		return PriorityMedium
	case "low":
		return PriorityLow
	case "info":
		return PriorityInfo
	default:
		return PriorityMedium
	}
}

// Rule is a named decision unit: a set of conditions that, when all
// satisfied, emits the rule's actions as recommendations.
//
// Rules are immutable during a request. Enabled may be toggled by an
// operator between requests; a disabled rule never triggers.
type Rule struct {
	// ID uniquely identifies the rule within its rule set.
	ID string `yaml:"id"`

	// Name is the human-readable rule name.
	Name string `yaml:"name"`

	// Category groups related rules (e.g. "medication-safety").
	Category string `yaml:"category,omitempty"`

	// Priority ranks the rule's output. Defaults to PriorityMedium.
	Priority Priority `yaml:"-"`

	// Conditions are ANDed: the rule triggers iff every top-level
	// condition evaluates true. Semantically identical to a single
	// KindAll node at the root.
	Conditions []*Condition `yaml:"conditions"`

	// Actions are emitted when the rule triggers.
	Actions []Action `yaml:"actions"`

	// Enabled gates the rule. Disabled rules evaluate to not triggered
	// without touching their conditions.
	Enabled bool `yaml:"enabled"`
}

// Evaluate reports whether the rule triggers for the given context and, if
// so, returns its actions. Evaluation short-circuits on the first false
// condition.
func (r *Rule) Evaluate(ev *Evaluator, ctx facts.Context) (bool, []Action, error) {
	if !r.Enabled {
		return false, nil, nil
	}

	for _, cond := range r.Conditions {
		ok, err := ev.Evaluate(cond, ctx)
		if err != nil {
			return false, nil, &EvaluationError{RuleID: r.ID, Cause: err}
		}
		if !ok {
			return false, nil, nil
		}
	}

	return true, r.Actions, nil
}
