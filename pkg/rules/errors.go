package rules

import (
	"errors"
	"fmt"
)

// Common sentinel errors.
var (
	// ErrUnknownRuleSet indicates an evaluation request named a rule set
	// that is not loaded.
	ErrUnknownRuleSet = errors.New("unknown rule set")

	// ErrNoRuleSets indicates the engine has no rule sets loaded.
	ErrNoRuleSets = errors.New("no rule sets loaded")
)

// ConditionError reports a data problem during condition evaluation. It is
// only surfaced when the evaluator runs in strict mode; the forgiving
// default swallows these and evaluates the condition false.
type ConditionError struct {
	Field   string
	Message string
	Cause   error
}

// Error returns the error message.
func (e *ConditionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("condition on field %q: %s: %v", e.Field, e.Message, e.Cause)
	}
	return fmt.Sprintf("condition on field %q: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ConditionError) Unwrap() error {
	return e.Cause
}

// EvaluationError reports a failure inside a single rule's evaluation.
// It is caught at the per-rule boundary and never aborts a batch.
type EvaluationError struct {
	RuleID string
	Cause  error
}

// Error returns the error message.
func (e *EvaluationError) Error() string {
	return fmt.Sprintf("rule %s: evaluation failed: %v", e.RuleID, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// LoadError reports a failure to load or parse rule definitions.
type LoadError struct {
	Source string
	Cause  error
}

// Error returns the error message.
func (e *LoadError) Error() string {
	return fmt.Sprintf("loading rules from %s: %v", e.Source, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ValidationError reports invalid rule definitions.
type ValidationError struct {
	RuleSet string
	Errors  []string
}

// Error returns the error message.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("rule set %s: %s", e.RuleSet, e.Errors[0])
	}
	return fmt.Sprintf("rule set %s: %d validation errors: %v", e.RuleSet, len(e.Errors), e.Errors)
}
