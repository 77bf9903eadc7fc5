package rules

import "time"

// Severity classifies how urgent a recommendation is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Action is a recommendation descriptor attached to a rule. Triggered rules
// emit one Recommendation per action; actions are never mutated after
// creation.
type Action struct {
	// Type categorizes the action (e.g. "alert", "suggestion", "order").
	Type string `yaml:"type"`

	// Summary is the short human-readable headline.
	Summary string `yaml:"summary"`

	// Detail is the longer explanation shown to the clinician.
	Detail string `yaml:"detail,omitempty"`

	// Severity is one of info, warning, critical.
	Severity Severity `yaml:"severity,omitempty"`

	// Suggestions are concrete follow-up steps.
	Suggestions []string `yaml:"suggestions,omitempty"`

	// Links reference supporting material (guidelines, monographs).
	Links []string `yaml:"links,omitempty"`
}

// Recommendation is one output of a triggered rule, attributed back to the
// rule that produced it.
type Recommendation struct {
	// Action is the recommendation payload.
	Action Action

	// RuleID identifies the rule that produced this recommendation.
	RuleID string

	// RuleName is the human-readable name of that rule.
	RuleName string

	// Category is the owning rule's category.
	Category string

	// RuleSet is the name of the rule set the rule belongs to, when the
	// recommendation came out of the rules engine (empty for service
	// recommendations).
	RuleSet string

	// ServiceID identifies the decision service that produced this
	// recommendation, when it did not come from a rule.
	ServiceID string
}

// RecommendationBatch is the output of a rules-engine evaluation.
type RecommendationBatch struct {
	// RequestID uniquely identifies the evaluation.
	RequestID string

	// Recommendations are the merged outputs of all triggered rules,
	// ordered by rule priority.
	Recommendations []Recommendation

	// EvaluatedRules is the number of candidate rules evaluated.
	EvaluatedRules int

	// TriggeredRules is the number of rules that triggered.
	TriggeredRules int

	// ElapsedTime is the total evaluation time.
	ElapsedTime time.Duration
}
