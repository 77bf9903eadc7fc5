package rules

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"carelogic/arbiter/pkg/facts"
)

const sampleRuleYAML = `
rule_sets:
  - name: medication-safety
    description: Interaction checks
    rules:
      - id: warfarin-aspirin
        name: Warfarin + aspirin
        category: medication-safety
        priority: critical
        conditions:
          - field: patient.medications[].name
            operator: contains
            value: warfarin
          - kind: any
            children:
              - field: patient.medications[].name
                operator: contains
                value: aspirin
        actions:
          - type: alert
            summary: Bleeding risk
            severity: critical
            suggestions:
              - Review antiplatelet indication
      - id: disabled-rule
        name: Disabled
        priority: low
        enabled: false
        conditions:
          - field: patient.age
            operator: exists
        actions:
          - type: alert
            summary: never
`

func TestParseRuleSets(t *testing.T) {
	sets, err := ParseRuleSets([]byte(sampleRuleYAML))
	if err != nil {
		t.Fatalf("ParseRuleSets() error = %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("got %d rule sets, want 1", len(sets))
	}

	set := sets[0]
	if set.Name != "medication-safety" || len(set.Rules) != 2 {
		t.Fatalf("unexpected set: %s with %d rules", set.Name, len(set.Rules))
	}

	first := set.Rules[0]
	if first.Priority != PriorityCritical {
		t.Errorf("priority = %v, want critical", first.Priority)
	}
	if !first.Enabled {
		t.Error("enabled should default to true")
	}
	if len(first.Conditions) != 2 || first.Conditions[1].kind() != KindAny {
		t.Error("composite condition not parsed")
	}
	if set.Rules[1].Enabled {
		t.Error("explicit enabled: false not honored")
	}

	// The parsed rule actually evaluates.
	ev := NewEvaluator(EvaluatorConfig{}, nil)
	triggered, _, err := first.Evaluate(ev, facts.Context{
		"patient": map[string]any{
			"medications": []any{
				map[string]any{"name": "warfarin"},
				map[string]any{"name": "aspirin 81mg"},
			},
		},
	})
	if err != nil || !triggered {
		t.Errorf("parsed rule evaluation = (%v, %v), want (true, nil)", triggered, err)
	}
}

func TestParseRuleSetsErrors(t *testing.T) {
	if _, err := ParseRuleSets([]byte("rule_sets: []")); err == nil {
		t.Error("empty document should error")
	}
	if _, err := ParseRuleSets([]byte("{not yaml")); err == nil {
		t.Error("malformed YAML should error")
	}
}

func TestFileSourceLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	if err := os.WriteFile(path, []byte(sampleRuleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	// A broken file in the same directory is skipped, not fatal.
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{nope"), 0o644); err != nil {
		t.Fatal(err)
	}

	source := NewFileSource(dir, nil)
	sets, err := source.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sets) != 1 || sets[0].Name != "medication-safety" {
		t.Errorf("got %d sets", len(sets))
	}
}

func TestFileSourceMissingPath(t *testing.T) {
	source := NewFileSource("/nonexistent/rules.yaml", nil)
	if _, err := source.Load(context.Background()); err == nil {
		t.Error("Load() should fail for missing path")
	}
}
