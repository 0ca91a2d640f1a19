package schema

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    EntityType
		wantErr bool
	}{
		{name: "survivor", input: "Survivor", want: EntitySurvivor},
		{name: "biome", input: "Biome", want: EntityBiome},
		{name: "broadcast", input: "Broadcast", want: EntityBroadcast},
		{name: "unknown label", input: "Monster", wantErr: true},
		{name: "wrong case is rejected", input: "survivor", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntityType(tt.input)
			if tt.wantErr {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if verr.Reason != ReasonUnknownEntityType {
					t.Fatalf("expected reason %s, got %s", ReasonUnknownEntityType, verr.Reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected nil error, got %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRelationshipEndpoints(t *testing.T) {
	tests := []struct {
		rel    RelationshipType
		source EntityType
		target EntityType
	}{
		{RelHasSkill, EntitySurvivor, EntitySkill},
		{RelHasNeed, EntitySurvivor, EntityNeed},
		{RelFoundResource, EntitySurvivor, EntityResource},
		{RelInBiome, EntitySurvivor, EntityBiome},
		{RelCanHelp, EntitySurvivor, EntitySurvivor},
		{RelTreats, EntitySkill, EntityNeed},
	}

	for _, tt := range tests {
		source, target := tt.rel.Endpoints()
		if source != tt.source || target != tt.target {
			t.Fatalf("%s: expected %s->%s, got %s->%s", tt.rel, tt.source, tt.target, source, target)
		}
	}
}

func TestEntityValidate(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
		reason string
	}{
		{
			name:   "valid",
			entity: Entity{Type: EntitySurvivor, Name: "Sarah", Confidence: 0.9},
		},
		{
			name:   "empty name",
			entity: Entity{Type: EntitySkill, Name: "", Confidence: 1},
			reason: ReasonEmptyName,
		},
		{
			name:   "unknown type",
			entity: Entity{Type: EntityType("Alien"), Name: "Zork", Confidence: 1},
			reason: ReasonUnknownEntityType,
		},
		{
			name:   "confidence above one",
			entity: Entity{Type: EntityNeed, Name: "Water", Confidence: 1.5},
			reason: ReasonInvalidConfidence,
		},
		{
			name:   "negative confidence",
			entity: Entity{Type: EntityNeed, Name: "Water", Confidence: -0.1},
			reason: ReasonInvalidConfidence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entity.Validate()
			if tt.reason == "" {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if verr.Reason != tt.reason {
				t.Fatalf("expected reason %s, got %s", tt.reason, verr.Reason)
			}
		})
	}
}

func TestExtractionResultRecordRoundTrip(t *testing.T) {
	extractedAt := time.Date(2026, 5, 12, 14, 0, 0, 0, time.UTC)
	result := &ExtractionResult{
		MediaURI:  "s3://beacon-media/uploads/cache.jpg",
		MediaType: "image",
		Entities: []Entity{
			{Type: EntitySurvivor, Name: "Sarah", Properties: map[string]any{"role": "Medic"}, Confidence: 0.95},
			{Type: EntityResource, Name: "Supply Cache", Confidence: 0.8},
		},
		Relationships: []Relationship{
			{Type: RelFoundResource, SourceName: "Sarah", TargetName: "Supply Cache", Confidence: 0.8},
		},
		Summary:       "Medic found a supply cache.",
		BroadcastInfo: &BroadcastInfo{Title: "Cache Report", BroadcastType: "report"},
		Metadata:      map[string]any{"scene_type": "supply_depot"},
		ExtractedAt:   extractedAt,
	}

	record := result.ToRecord()
	got, err := ExtractionResultFromRecord(record)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !reflect.DeepEqual(got, result) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, result)
	}
}

func TestExtractionResultFromRecord_RejectsUnknownTypes(t *testing.T) {
	record := map[string]any{
		"media_uri":  "s3://beacon-media/uploads/report.txt",
		"media_type": "text",
		"entities": []any{
			map[string]any{"entity_type": "Dragon", "name": "Smaug", "confidence": 0.9},
		},
	}
	_, err := ExtractionResultFromRecord(record)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != ReasonUnknownEntityType {
		t.Fatalf("expected reason %s, got %s", ReasonUnknownEntityType, verr.Reason)
	}

	record["entities"] = []any{}
	record["relationships"] = []any{
		map[string]any{"relationship_type": "EATS", "source": "a", "target": "b"},
	}
	_, err = ExtractionResultFromRecord(record)
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Reason != ReasonUnknownRelationshipType {
		t.Fatalf("expected reason %s, got %s", ReasonUnknownRelationshipType, verr.Reason)
	}
}
