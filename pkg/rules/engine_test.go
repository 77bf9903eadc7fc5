package rules

import (
	"context"
	"errors"
	"testing"

	"carelogic/arbiter/pkg/facts"
)

func newTestEngine(t *testing.T, sets ...*RuleSet) *Engine {
	t.Helper()
	engine, err := NewEngine(NewMemorySource(sets...), EvaluatorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func seniorCareSet() *RuleSet {
	return &RuleSet{
		Name: "screening",
		Rules: []*Rule{{
			ID:       "senior-care",
			Name:     "Senior care",
			Category: "preventive-care",
			Priority: PriorityMedium,
			Enabled:  true,
			Conditions: []*Condition{
				FieldTyped("patient.age", OperatorGreaterEqual, 65, ValueTypeNumber),
			},
			Actions: []Action{{Type: "suggestion", Summary: "senior-care", Severity: SeverityInfo}},
		}},
	}
}

func TestEngineEvaluateTriggered(t *testing.T) {
	engine := newTestEngine(t, seniorCareSet())

	batch, err := engine.Evaluate(facts.Context{
		"patient": map[string]any{"age": float64(70)},
	}, EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if batch.RequestID == "" {
		t.Error("batch has no request id")
	}
	if len(batch.Recommendations) != 1 {
		t.Fatalf("got %d recommendations, want 1", len(batch.Recommendations))
	}
	rec := batch.Recommendations[0]
	if rec.Action.Summary != "senior-care" {
		t.Errorf("summary = %q, want senior-care", rec.Action.Summary)
	}
	if rec.RuleID != "senior-care" || rec.Category != "preventive-care" || rec.RuleSet != "screening" {
		t.Errorf("provenance not attributed: %+v", rec)
	}
	if batch.TriggeredRules != 1 || batch.EvaluatedRules != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", batch.TriggeredRules, batch.EvaluatedRules)
	}
}

func TestEngineEvaluateNotTriggered(t *testing.T) {
	engine := newTestEngine(t, seniorCareSet())

	batch, err := engine.Evaluate(facts.Context{
		"patient": map[string]any{"age": float64(40)},
	}, EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(batch.Recommendations) != 0 {
		t.Errorf("got %d recommendations, want empty batch", len(batch.Recommendations))
	}
}

func TestEngineRuleSetSelection(t *testing.T) {
	other := &RuleSet{
		Name: "other",
		Rules: []*Rule{{
			ID: "always", Enabled: true,
			Actions: []Action{{Summary: "always"}},
		}},
	}
	engine := newTestEngine(t, seniorCareSet(), other)

	ctx := facts.Context{"patient": map[string]any{"age": float64(70)}}

	batch, err := engine.Evaluate(ctx, EvaluateOptions{RuleSets: []string{"other"}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(batch.Recommendations) != 1 || batch.Recommendations[0].Action.Summary != "always" {
		t.Errorf("rule set selection leaked other sets: %+v", batch.Recommendations)
	}

	if _, err := engine.Evaluate(ctx, EvaluateOptions{RuleSets: []string{"missing"}}); !errors.Is(err, ErrUnknownRuleSet) {
		t.Errorf("error = %v, want ErrUnknownRuleSet", err)
	}
}

func TestEngineSetRuleEnabled(t *testing.T) {
	engine := newTestEngine(t, seniorCareSet())
	ctx := facts.Context{"patient": map[string]any{"age": float64(70)}}

	if !engine.SetRuleEnabled("screening", "senior-care", false) {
		t.Fatal("SetRuleEnabled() returned false for existing rule")
	}
	batch, err := engine.Evaluate(ctx, EvaluateOptions{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(batch.Recommendations) != 0 {
		t.Error("disabled rule still triggered")
	}

	if engine.SetRuleEnabled("screening", "nope", true) {
		t.Error("SetRuleEnabled() returned true for unknown rule")
	}
}

func TestEngineReloadSwapsAtomically(t *testing.T) {
	source := NewMemorySource(seniorCareSet())
	engine, err := NewEngine(source, EvaluatorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	source.SetRuleSets([]*RuleSet{{
		Name:  "replacement",
		Rules: []*Rule{{ID: "r", Enabled: true, Actions: []Action{{Summary: "new"}}}},
	}})
	if err := engine.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	sets := engine.RuleSets()
	if len(sets) != 1 || sets[0].Name != "replacement" {
		t.Errorf("reload did not swap rule sets: %v", sets)
	}
}

func TestEngineRejectsEmptySource(t *testing.T) {
	if _, err := NewEngine(NewMemorySource(), EvaluatorConfig{}, nil); !errors.Is(err, ErrNoRuleSets) {
		t.Errorf("NewEngine() error = %v, want ErrNoRuleSets", err)
	}
}

func TestEngineReloadRejectsEmptySource(t *testing.T) {
	source := NewMemorySource(seniorCareSet())
	engine, err := NewEngine(source, EvaluatorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	source.SetRuleSets(nil)
	if err := engine.Reload(context.Background()); !errors.Is(err, ErrNoRuleSets) {
		t.Fatalf("Reload() error = %v, want ErrNoRuleSets", err)
	}

	// Previous generation stays live after a failed reload.
	if sets := engine.RuleSets(); len(sets) != 1 || sets[0].Name != "screening" {
		t.Error("failed reload clobbered the loaded rule sets")
	}
}

func TestEngineReloadRejectsInvalid(t *testing.T) {
	source := NewMemorySource(seniorCareSet())
	engine, err := NewEngine(source, EvaluatorConfig{}, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}

	source.SetRuleSets([]*RuleSet{{Name: "", Rules: []*Rule{{ID: "r"}}}})
	if err := engine.Reload(context.Background()); err == nil {
		t.Fatal("Reload() should reject invalid rule sets")
	}

	// Previous generation stays live after a failed reload.
	if sets := engine.RuleSets(); len(sets) != 1 || sets[0].Name != "screening" {
		t.Error("failed reload clobbered the loaded rule sets")
	}
}
