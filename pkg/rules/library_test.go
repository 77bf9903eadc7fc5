package rules

import (
	"testing"

	"carelogic/arbiter/pkg/facts"
)

func TestLibraryValidates(t *testing.T) {
	for _, set := range Library() {
		if err := set.Validate(); err != nil {
			t.Errorf("library set %s invalid: %v", set.Name, err)
		}
	}
}

func TestLibraryWarfarinInteraction(t *testing.T) {
	engine := newTestEngine(t, Library()...)

	batch, err := engine.Evaluate(facts.Context{
		"patient": map[string]any{
			"age": float64(58),
			"medications": []any{
				map[string]any{"name": "warfarin 5mg", "class": "anticoagulant"},
				map[string]any{"name": "ibuprofen 400mg", "class": "nsaid"},
			},
		},
	}, EvaluateOptions{RuleSets: []string{"medication-safety"}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	found := false
	for _, rec := range batch.Recommendations {
		if rec.RuleID == "warfarin-nsaid-interaction" {
			found = true
			if rec.Action.Severity != SeverityCritical {
				t.Errorf("severity = %v, want critical", rec.Action.Severity)
			}
		}
	}
	if !found {
		t.Error("warfarin + NSAID interaction did not trigger")
	}
}

func TestLibraryMetforminRenal(t *testing.T) {
	engine := newTestEngine(t, Library()...)

	ctx := facts.Context{
		"patient": map[string]any{
			"age": float64(72),
			"medications": []any{
				map[string]any{"name": "metformin 500mg", "class": "biguanide"},
			},
		},
		"labs": map[string]any{
			"egfr": map[string]any{"value": float64(22)},
		},
	}

	batch, err := engine.Evaluate(ctx, EvaluateOptions{Category: "medication-safety"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	ids := make(map[string]bool)
	for _, rec := range batch.Recommendations {
		ids[rec.RuleID] = true
	}
	if !ids["metformin-renal-dosing"] {
		t.Error("metformin renal dosing rule did not trigger")
	}
	// Category filter keeps preventive-care rules out even though the
	// patient is 72.
	if ids["senior-care-plan"] {
		t.Error("category filter leaked preventive-care rule")
	}
}

func TestLibraryPriorityOrdering(t *testing.T) {
	engine := newTestEngine(t, Library()...)

	// Trip rules across several priorities at once.
	ctx := facts.Context{
		"patient": map[string]any{
			"age": float64(70),
			"medications": []any{
				map[string]any{"name": "warfarin", "class": "anticoagulant"},
				map[string]any{"name": "naproxen", "class": "nsaid"},
				map[string]any{"name": "zolpidem", "class": "z-drug"},
			},
		},
	}

	batch, err := engine.Evaluate(ctx, EvaluateOptions{RuleSets: []string{"medication-safety"}})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(batch.Recommendations) < 2 {
		t.Fatalf("expected multiple recommendations, got %d", len(batch.Recommendations))
	}
	// Critical interaction sorts before the high-priority sedative alert.
	if batch.Recommendations[0].RuleID != "warfarin-nsaid-interaction" {
		t.Errorf("first recommendation = %s, want warfarin-nsaid-interaction", batch.Recommendations[0].RuleID)
	}
}
