package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/schema"
)

// ErrExtractionFailed wraps any failure to turn a media item into an
// extraction result. The item can be retried as a whole; nothing was
// persisted.
var ErrExtractionFailed = errors.New("extraction failed")

// MediaFetcher loads raw media bytes for a URI. The returned content type
// may be empty when the backing store does not know it.
type MediaFetcher interface {
	Fetch(ctx context.Context, uri string) (data []byte, contentType string, err error)
}

// Extractor turns one media item into a structured extraction result.
type Extractor interface {
	Extract(ctx context.Context, mediaURI string) (*schema.ExtractionResult, error)
}

// New returns the extractor for the given media type.
func New(mediaType string, client ai.GraphAIClient, fetcher MediaFetcher) (Extractor, error) {
	switch mediaType {
	case "text":
		return NewTextExtractor(client, fetcher), nil
	case "image":
		return NewImageExtractor(client, fetcher), nil
	case "audio":
		return NewAudioExtractor(client, fetcher), nil
	default:
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrExtractionFailed, mediaType)
	}
}

// extractionPayload is the JSON shape requested from the model. Types are
// plain strings on purpose: hallucinated labels pass through here and get
// rejected with a recorded reason at save time instead of vanishing.
type extractionPayload struct {
	Summary       string                `json:"summary" jsonschema_description:"One paragraph description of the scene or content"`
	SceneType     string                `json:"scene_type" jsonschema_description:"camp, rescue, supply_depot, hazard, medical, shelter or other"`
	UrgencyLevel  string                `json:"urgency_level" jsonschema_description:"critical, high, medium or low"`
	Entities      []entityPayload       `json:"entities"`
	Relationships []relationshipPayload `json:"relationships"`
	BroadcastInfo broadcastInfoPayload  `json:"broadcast_info"`
	LocationHints []string              `json:"location_hints"`
}

type entityPayload struct {
	EntityType string         `json:"entity_type" jsonschema_description:"Survivor, Skill, Need, Resource or Biome"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
	Confidence float64        `json:"confidence"`
}

type relationshipPayload struct {
	RelationshipType string         `json:"relationship_type" jsonschema_description:"HAS_SKILL, HAS_NEED, FOUND_RESOURCE, IN_BIOME, CAN_HELP or TREATS"`
	Source           string         `json:"source"`
	Target           string         `json:"target"`
	Properties       map[string]any `json:"properties"`
	Confidence       float64        `json:"confidence"`
}

type broadcastInfoPayload struct {
	Title         string `json:"title"`
	BroadcastType string `json:"broadcast_type" jsonschema_description:"report, alert, request or update"`
}

const defaultConfidence = 0.8

func (p *extractionPayload) toResult(mediaURI, mediaType string) *schema.ExtractionResult {
	result := &schema.ExtractionResult{
		MediaURI:    mediaURI,
		MediaType:   mediaType,
		Summary:     p.Summary,
		Metadata:    map[string]any{},
		ExtractedAt: time.Now().UTC(),
	}

	if p.SceneType != "" {
		result.Metadata["scene_type"] = p.SceneType
	}
	if p.UrgencyLevel != "" {
		result.Metadata["urgency_level"] = p.UrgencyLevel
	}
	if len(p.LocationHints) > 0 {
		result.Metadata["location_hints"] = p.LocationHints
	}
	if p.BroadcastInfo.Title != "" || p.BroadcastInfo.BroadcastType != "" {
		result.BroadcastInfo = &schema.BroadcastInfo{
			Title:         p.BroadcastInfo.Title,
			BroadcastType: p.BroadcastInfo.BroadcastType,
		}
	}

	for _, e := range p.Entities {
		confidence := e.Confidence
		if confidence == 0 {
			confidence = defaultConfidence
		}
		result.Entities = append(result.Entities, schema.Entity{
			Type:       schema.EntityType(e.EntityType),
			Name:       e.Name,
			Properties: e.Properties,
			Confidence: confidence,
		})
	}
	for _, r := range p.Relationships {
		confidence := r.Confidence
		if confidence == 0 {
			confidence = defaultConfidence
		}
		result.Relationships = append(result.Relationships, schema.Relationship{
			Type:       schema.RelationshipType(r.RelationshipType),
			SourceName: r.Source,
			TargetName: r.Target,
			Properties: r.Properties,
			Confidence: confidence,
		})
	}

	return result
}
