package ai

import (
	"testing"
)

func TestUnmarshalFlexible_ObjectVariants(t *testing.T) {
	type entity struct {
		EntityType string  `json:"entity_type"`
		Name       string  `json:"name"`
		Confidence float64 `json:"confidence,omitempty"`
	}

	tests := []struct {
		name  string
		input string
		want  entity
	}{
		{
			name:  "valid json object",
			input: `{"entity_type":"Survivor","name":"Sarah"}`,
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
		{
			name:  "unquoted keys and single quotes",
			input: `{entity_type: 'Survivor', name: 'Sarah'}`,
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
		{
			name:  "trailing comma",
			input: `{"entity_type":"Survivor","name":"Sarah",}`,
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
		{
			name:  "missing endbracket",
			input: `{"entity_type":"Survivor","name":"Sarah"`,
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
		{
			name:  "stringified invalid json object",
			input: `"{entity_type: 'Survivor', name: 'Sarah'}"`,
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
		{
			name:  "duplicate leading brace",
			input: "{\n{\n  \"entity_type\": \"Survivor\",\n  \"name\": \"Sarah\"\n}\n",
			want:  entity{EntityType: "Survivor", Name: "Sarah"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got entity
			if err := UnmarshalFlexible(tc.input, &got); err != nil {
				t.Fatalf("UnmarshalFlexible() error = %v", err)
			}
			if got.EntityType != tc.want.EntityType || got.Name != tc.want.Name {
				t.Fatalf("UnmarshalFlexible() got = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestUnmarshalFlexible_ArrayVariants(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	input := `[{name:'Sarah'},{name:'David Chen',}]`
	var got []entity
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if len(got) != 2 || got[0].Name != "Sarah" || got[1].Name != "David Chen" {
		t.Fatalf("UnmarshalFlexible() got = %+v, want Sarah and David Chen", got)
	}
}

func TestUnmarshalFlexible_Unrecoverable(t *testing.T) {
	type entity struct {
		Name string `json:"name"`
	}

	var got entity
	if err := UnmarshalFlexible("static noise", &got); err == nil {
		t.Fatalf("UnmarshalFlexible() expected error for unrecoverable input")
	}
}

func TestUnmarshalFlexible_NestedExtraction(t *testing.T) {
	type extraction struct {
		Summary  string `json:"summary"`
		Entities []struct {
			EntityType string `json:"entity_type"`
			Name       string `json:"name"`
		} `json:"entities"`
	}

	input := `"{\n  \"summary\": \"Medic spotted near the river.\",\n  \"entities\": [{\"entity_type\": \"Survivor\", \"name\": \"Sarah\"}, {\"entity_type\": \"Biome\", \"name\": \"River Delta\"}]\n}"`
	var got extraction
	if err := UnmarshalFlexible(input, &got); err != nil {
		t.Fatalf("UnmarshalFlexible() error = %v", err)
	}
	if got.Summary != "Medic spotted near the river." {
		t.Fatalf("UnmarshalFlexible() summary = %q", got.Summary)
	}
	if len(got.Entities) != 2 || got.Entities[1].Name != "River Delta" {
		t.Fatalf("UnmarshalFlexible() entities = %+v", got.Entities)
	}
}
