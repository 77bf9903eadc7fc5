// Package rules implements the declarative clinical rule engine: condition
// evaluation over fact contexts, rules with priorities and output actions,
// rule sets with parallel evaluation, and the engine that merges triggered
// results into a recommendation batch.
//
// # Evaluation model
//
// A condition is a boolean predicate over a field path in a fact context
// (see package facts). Conditions compose with all/any/not nodes. A rule
// triggers when every one of its top-level conditions evaluates true, which
// is the same as wrapping them in a single "all" node.
//
// Condition evaluation is forgiving by default: absent fields and values
// that fail numeric or date coercion evaluate to "not satisfied" rather
// than erroring. This is a deliberate, documented policy carried over from
// the system this engine replaces; enable StrictMode on the evaluator to
// surface those cases as errors instead. Even in strict mode an error never
// aborts a batch - it is caught at the rule boundary, logged, and the rule
// treated as not triggered.
//
// # Ordering
//
// Rule sets evaluate their candidate rules concurrently, buffer every
// result, and stable-sort triggered rules by priority rank (critical first)
// so output order never depends on goroutine completion order.
package rules
