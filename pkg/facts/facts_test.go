package facts

import (
	"reflect"
	"testing"
)

func sampleContext() Context {
	return Context{
		"patient": map[string]any{
			"age":  float64(70),
			"name": map[string]any{"family": "Osler", "given": "William"},
			"medications": []any{
				map[string]any{"name": "warfarin", "dose": float64(5)},
				map[string]any{"name": "metformin", "dose": float64(500)},
			},
			"conditions": []any{
				map[string]any{
					"code": "E11",
					"annotations": []any{
						map[string]any{"text": "type 2"},
						map[string]any{"text": "controlled"},
					},
				},
			},
		},
		"encounter": map[string]any{"type": "outpatient"},
	}
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		want      any
		wantFound bool
	}{
		{
			name:      "nested scalar",
			path:      "patient.age",
			want:      float64(70),
			wantFound: true,
		},
		{
			name:      "deeply nested scalar",
			path:      "patient.name.family",
			want:      "Osler",
			wantFound: true,
		},
		{
			name:      "fan-out across sequence",
			path:      "patient.medications[].name",
			want:      []any{"warfarin", "metformin"},
			wantFound: true,
		},
		{
			name:      "implicit fan-out without marker",
			path:      "patient.medications.name",
			want:      []any{"warfarin", "metformin"},
			wantFound: true,
		},
		{
			name:      "nested fan-out flattens",
			path:      "patient.conditions[].annotations[].text",
			want:      []any{"type 2", "controlled"},
			wantFound: true,
		},
		{
			name:      "missing leaf",
			path:      "patient.weight",
			wantFound: false,
		},
		{
			name:      "missing intermediate key",
			path:      "labs.hba1c.value",
			wantFound: false,
		},
		{
			name:      "path through scalar",
			path:      "patient.age.years",
			wantFound: false,
		},
		{
			name:      "fan-out with no resolving elements",
			path:      "patient.medications[].route",
			wantFound: false,
		},
		{
			name:      "whole mapping",
			path:      "encounter",
			want:      map[string]any{"type": "outpatient"},
			wantFound: true,
		},
		{
			name:      "empty path",
			path:      "",
			wantFound: false,
		},
	}

	ctx := sampleContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Extract(tt.path, ctx)
			if found != tt.wantFound {
				t.Fatalf("Extract(%q) found = %v, want %v", tt.path, found, tt.wantFound)
			}
			if tt.wantFound && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %#v, want %#v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractNilContext(t *testing.T) {
	if _, found := Extract("patient.age", nil); found {
		t.Error("Extract on nil context should report absent")
	}
}

func TestExtractEmptySequence(t *testing.T) {
	ctx := Context{"patient": map[string]any{"medications": []any{}}}
	if _, found := Extract("patient.medications[].name", ctx); found {
		t.Error("fan-out over empty sequence should report absent")
	}
}
