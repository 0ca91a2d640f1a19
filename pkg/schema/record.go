package schema

import (
	"fmt"
	"time"
)

// The record form is a map of primitives, lists and maps. It is what
// crosses the extractor/agent/persistence boundary, so the keys below are
// part of the external contract and must not change.

// ToRecord converts the extraction result into its transport-neutral
// record form.
func (r *ExtractionResult) ToRecord() map[string]any {
	entities := make([]any, 0, len(r.Entities))
	for _, e := range r.Entities {
		entities = append(entities, map[string]any{
			"entity_type": string(e.Type),
			"name":        e.Name,
			"properties":  e.Properties,
			"confidence":  e.Confidence,
		})
	}

	relationships := make([]any, 0, len(r.Relationships))
	for _, rel := range r.Relationships {
		relationships = append(relationships, map[string]any{
			"relationship_type": string(rel.Type),
			"source":            rel.SourceName,
			"target":            rel.TargetName,
			"properties":        rel.Properties,
			"confidence":        rel.Confidence,
		})
	}

	record := map[string]any{
		"media_uri":     r.MediaURI,
		"media_type":    r.MediaType,
		"entities":      entities,
		"relationships": relationships,
		"summary":       r.Summary,
		"metadata":      r.Metadata,
		"extracted_at":  r.ExtractedAt.UTC().Format(time.RFC3339),
	}
	if r.BroadcastInfo != nil {
		record["broadcast_info"] = map[string]any{
			"title":          r.BroadcastInfo.Title,
			"broadcast_type": r.BroadcastInfo.BroadcastType,
		}
	}
	return record
}

// ExtractionResultFromRecord reconstructs an ExtractionResult from its
// record form. Unknown entity or relationship types are rejected with a
// ValidationError, never coerced.
func ExtractionResultFromRecord(record map[string]any) (*ExtractionResult, error) {
	result := &ExtractionResult{
		MediaURI:  stringField(record, "media_uri"),
		MediaType: stringField(record, "media_type"),
		Summary:   stringField(record, "summary"),
	}

	if meta, ok := record["metadata"].(map[string]any); ok {
		result.Metadata = meta
	}
	if raw := stringField(record, "extracted_at"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid extracted_at %q: %w", raw, err)
		}
		result.ExtractedAt = ts
	}
	if bi, ok := record["broadcast_info"].(map[string]any); ok {
		result.BroadcastInfo = &BroadcastInfo{
			Title:         stringField(bi, "title"),
			BroadcastType: stringField(bi, "broadcast_type"),
		}
	}

	rawEntities, err := listField(record, "entities")
	if err != nil {
		return nil, err
	}
	for i, raw := range rawEntities {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("entity %d is not a record", i)
		}
		entityType, err := ParseEntityType(stringField(item, "entity_type"))
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		entity := Entity{
			Type:       entityType,
			Name:       stringField(item, "name"),
			Confidence: floatField(item, "confidence", 1.0),
		}
		if props, ok := item["properties"].(map[string]any); ok {
			entity.Properties = props
		}
		result.Entities = append(result.Entities, entity)
	}

	rawRelationships, err := listField(record, "relationships")
	if err != nil {
		return nil, err
	}
	for i, raw := range rawRelationships {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("relationship %d is not a record", i)
		}
		relType, err := ParseRelationshipType(stringField(item, "relationship_type"))
		if err != nil {
			return nil, fmt.Errorf("relationship %d: %w", i, err)
		}
		rel := Relationship{
			Type:       relType,
			SourceName: stringField(item, "source"),
			TargetName: stringField(item, "target"),
			Confidence: floatField(item, "confidence", 1.0),
		}
		if props, ok := item["properties"].(map[string]any); ok {
			rel.Properties = props
		}
		result.Relationships = append(result.Relationships, rel)
	}

	return result, nil
}

func stringField(record map[string]any, key string) string {
	s, _ := record[key].(string)
	return s
}

func floatField(record map[string]any, key string, fallback float64) float64 {
	switch v := record[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	default:
		return fallback
	}
}

func listField(record map[string]any, key string) ([]any, error) {
	raw, ok := record[key]
	if !ok || raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s is not a list", key)
	}
	return list, nil
}
