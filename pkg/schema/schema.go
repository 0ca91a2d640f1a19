package schema

import (
	"fmt"
	"time"
)

// EntityType identifies the kind of node an extracted entity maps to.
// The set is closed: values outside it are rejected at the parsing
// boundary so a hallucinated label never reaches the graph.
type EntityType string

const (
	EntitySurvivor  EntityType = "Survivor"
	EntitySkill     EntityType = "Skill"
	EntityNeed      EntityType = "Need"
	EntityResource  EntityType = "Resource"
	EntityBiome     EntityType = "Biome"
	EntityBroadcast EntityType = "Broadcast"
)

var entityTypes = map[EntityType]struct{}{
	EntitySurvivor:  {},
	EntitySkill:     {},
	EntityNeed:      {},
	EntityResource:  {},
	EntityBiome:     {},
	EntityBroadcast: {},
}

// EntityTypes returns all valid entity types in a stable order.
func EntityTypes() []EntityType {
	return []EntityType{
		EntitySurvivor,
		EntitySkill,
		EntityNeed,
		EntityResource,
		EntityBiome,
		EntityBroadcast,
	}
}

// Valid reports whether t is a member of the closed entity type set.
func (t EntityType) Valid() bool {
	_, ok := entityTypes[t]
	return ok
}

// ParseEntityType converts a raw label into an EntityType, rejecting
// unknown values with a ValidationError.
func ParseEntityType(s string) (EntityType, error) {
	t := EntityType(s)
	if !t.Valid() {
		return "", &ValidationError{
			Reason: ReasonUnknownEntityType,
			Detail: fmt.Sprintf("unknown entity type %q", s),
		}
	}
	return t, nil
}

// RelationshipType identifies the kind of edge between two nodes. Each
// relationship type declares fixed endpoint entity types.
type RelationshipType string

const (
	RelHasSkill      RelationshipType = "HAS_SKILL"
	RelHasNeed       RelationshipType = "HAS_NEED"
	RelFoundResource RelationshipType = "FOUND_RESOURCE"
	RelInBiome       RelationshipType = "IN_BIOME"
	RelCanHelp       RelationshipType = "CAN_HELP"
	RelTreats        RelationshipType = "TREATS"
)

type endpoints struct {
	source EntityType
	target EntityType
}

var relationshipEndpoints = map[RelationshipType]endpoints{
	RelHasSkill:      {EntitySurvivor, EntitySkill},
	RelHasNeed:       {EntitySurvivor, EntityNeed},
	RelFoundResource: {EntitySurvivor, EntityResource},
	RelInBiome:       {EntitySurvivor, EntityBiome},
	RelCanHelp:       {EntitySurvivor, EntitySurvivor},
	RelTreats:        {EntitySkill, EntityNeed},
}

// RelationshipTypes returns all valid relationship types in a stable order.
func RelationshipTypes() []RelationshipType {
	return []RelationshipType{
		RelHasSkill,
		RelHasNeed,
		RelFoundResource,
		RelInBiome,
		RelCanHelp,
		RelTreats,
	}
}

// Valid reports whether t is a member of the closed relationship type set.
func (t RelationshipType) Valid() bool {
	_, ok := relationshipEndpoints[t]
	return ok
}

// Endpoints returns the entity types an edge of this relationship type
// must connect, source first.
func (t RelationshipType) Endpoints() (EntityType, EntityType) {
	e := relationshipEndpoints[t]
	return e.source, e.target
}

// ParseRelationshipType converts a raw label into a RelationshipType,
// rejecting unknown values with a ValidationError.
func ParseRelationshipType(s string) (RelationshipType, error) {
	t := RelationshipType(s)
	if !t.Valid() {
		return "", &ValidationError{
			Reason: ReasonUnknownRelationshipType,
			Detail: fmt.Sprintf("unknown relationship type %q", s),
		}
	}
	return t, nil
}

// Entity is a node candidate extracted from one media item. Name is the
// human-readable label used for identity matching; it is only assumed
// unique within a type, never across types.
type Entity struct {
	Type       EntityType     `json:"entity_type"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties,omitempty"`
	Confidence float64        `json:"confidence"`
}

// Validate checks the entity against the construction rules: a known
// type, a non-empty name, and a confidence within [0, 1].
func (e Entity) Validate() error {
	if !e.Type.Valid() {
		return &ValidationError{
			Reason: ReasonUnknownEntityType,
			Detail: fmt.Sprintf("unknown entity type %q", string(e.Type)),
		}
	}
	if e.Name == "" {
		return &ValidationError{
			Reason: ReasonEmptyName,
			Detail: fmt.Sprintf("entity of type %s has an empty name", e.Type),
		}
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return &ValidationError{
			Reason: ReasonInvalidConfidence,
			Detail: fmt.Sprintf("confidence %v outside [0,1]", e.Confidence),
		}
	}
	return nil
}

// Relationship is an edge candidate. Source and target are referenced by
// entity name and resolved against the same extraction batch first, then
// against the durable store.
type Relationship struct {
	Type       RelationshipType `json:"relationship_type"`
	SourceName string           `json:"source"`
	TargetName string           `json:"target"`
	Properties map[string]any   `json:"properties,omitempty"`
	Confidence float64          `json:"confidence"`
}

// Validate checks the relationship against the construction rules.
func (r Relationship) Validate() error {
	if !r.Type.Valid() {
		return &ValidationError{
			Reason: ReasonUnknownRelationshipType,
			Detail: fmt.Sprintf("unknown relationship type %q", string(r.Type)),
		}
	}
	if r.SourceName == "" || r.TargetName == "" {
		return &ValidationError{
			Reason: ReasonEmptyName,
			Detail: fmt.Sprintf("relationship %s has an empty endpoint name", r.Type),
		}
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return &ValidationError{
			Reason: ReasonInvalidConfidence,
			Detail: fmt.Sprintf("confidence %v outside [0,1]", r.Confidence),
		}
	}
	return nil
}

// BroadcastInfo carries the suggested provenance record metadata for one
// extraction. When absent, the persistence layer synthesizes a default.
type BroadcastInfo struct {
	Title         string `json:"title"`
	BroadcastType string `json:"broadcast_type"`
}

// ExtractionResult is the complete structured output of analyzing one
// media item, and the unit of work for one persistence transaction.
type ExtractionResult struct {
	MediaURI      string         `json:"media_uri"`
	MediaType     string         `json:"media_type"`
	Entities      []Entity       `json:"entities"`
	Relationships []Relationship `json:"relationships"`
	Summary       string         `json:"summary"`
	BroadcastInfo *BroadcastInfo `json:"broadcast_info,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ExtractedAt   time.Time      `json:"extracted_at"`
}
