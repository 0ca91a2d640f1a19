package extract

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/schema"
)

type fakeAIClient struct {
	responses  []extractionPayload
	calls      int
	failAfter  int
	transcript string
}

func (f *fakeAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return errors.New("model unavailable")
	}
	idx := f.calls
	if idx >= len(f.responses) {
		idx = len(f.responses) - 1
	}
	f.calls++
	raw, err := json.Marshal(f.responses[idx])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (f *fakeAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}

func (f *fakeAIClient) GenerateImageDescription(ctx context.Context, prompt string, image ai.Base64Image) (string, error) {
	raw, err := json.Marshal(f.responses[0])
	return string(raw), err
}

func (f *fakeAIClient) GenerateAudioTranscription(ctx context.Context, audio []byte, language string) (string, error) {
	return f.transcript, nil
}

func (f *fakeAIClient) ResetMetrics()               {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

type fakeFetcher struct {
	data        []byte
	contentType string
}

func (f *fakeFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	return f.data, f.contentType, nil
}

func TestTextExtractor_Extract(t *testing.T) {
	client := &fakeAIClient{
		responses: []extractionPayload{
			{
				Summary: "Medic Sarah found a supply cache.",
				Entities: []entityPayload{
					{EntityType: "Survivor", Name: "Sarah", Confidence: 0.95},
					{EntityType: "Resource", Name: "Supply Cache"},
				},
				Relationships: []relationshipPayload{
					{RelationshipType: "FOUND_RESOURCE", Source: "Sarah", Target: "Supply Cache", Confidence: 0.9},
				},
				BroadcastInfo: broadcastInfoPayload{Title: "Cache Report", BroadcastType: "report"},
			},
		},
	}
	fetcher := &fakeFetcher{data: []byte("Sarah the medic reports a supply cache near the river.")}

	extractor := NewTextExtractor(client, fetcher)
	result, err := extractor.Extract(context.Background(), "s3://beacon-media/report.txt")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if result.MediaType != "text" {
		t.Fatalf("expected media type text, got %s", result.MediaType)
	}
	if len(result.Entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(result.Entities))
	}
	if result.Entities[0].Type != schema.EntitySurvivor || result.Entities[0].Confidence != 0.95 {
		t.Fatalf("unexpected first entity: %+v", result.Entities[0])
	}
	if result.Entities[1].Confidence != defaultConfidence {
		t.Fatalf("expected default confidence %v, got %v", defaultConfidence, result.Entities[1].Confidence)
	}
	if result.BroadcastInfo == nil || result.BroadcastInfo.Title != "Cache Report" {
		t.Fatalf("unexpected broadcast info: %+v", result.BroadcastInfo)
	}
	if result.ExtractedAt.IsZero() {
		t.Fatalf("expected extracted_at to be set")
	}
}

func TestTextExtractor_KeepsUnknownTypesForValidation(t *testing.T) {
	client := &fakeAIClient{
		responses: []extractionPayload{
			{
				Summary: "Something strange.",
				Entities: []entityPayload{
					{EntityType: "Monster", Name: "Grendel", Confidence: 0.7},
				},
			},
		},
	}
	extractor := NewTextExtractor(client, &fakeFetcher{data: []byte("report")})

	result, err := extractor.Extract(context.Background(), "s3://beacon-media/report.txt")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(result.Entities) != 1 {
		t.Fatalf("expected the unknown-typed entity to be kept, got %d entities", len(result.Entities))
	}
	if result.Entities[0].Validate() == nil {
		t.Fatalf("expected validation to reject the unknown type later")
	}
}

func TestChunkText(t *testing.T) {
	short, err := chunkText("a brief report", 100)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(short) != 1 || short[0] != "a brief report" {
		t.Fatalf("expected single untouched chunk, got %v", short)
	}

	long := strings.Repeat("survivor spotted near the ridge. ", 200)
	chunks, err := chunkText(long, 50)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if strings.Join(chunks, "") != long {
		t.Fatalf("chunks do not reassemble to the original text")
	}
}

func TestMergeResults(t *testing.T) {
	a := &schema.ExtractionResult{
		MediaURI:  "s3://beacon-media/long.txt",
		MediaType: "text",
		Summary:   "First part.",
		Entities: []schema.Entity{
			{Type: schema.EntitySurvivor, Name: "Sarah", Confidence: 0.8, Properties: map[string]any{"role": "Medic"}},
			{Type: schema.EntitySkill, Name: "First Aid", Confidence: 0.9},
		},
		Relationships: []schema.Relationship{
			{Type: schema.RelHasSkill, SourceName: "Sarah", TargetName: "First Aid", Confidence: 0.7},
		},
	}
	b := &schema.ExtractionResult{
		MediaURI:  "s3://beacon-media/long.txt",
		MediaType: "text",
		Summary:   "Second part.",
		Entities: []schema.Entity{
			{Type: schema.EntitySurvivor, Name: "sarah", Confidence: 0.95, Properties: map[string]any{"condition": "good"}},
		},
		Relationships: []schema.Relationship{
			{Type: schema.RelHasSkill, SourceName: "Sarah", TargetName: "First Aid", Confidence: 0.85},
		},
	}

	merged := mergeResults([]*schema.ExtractionResult{a, b})

	if len(merged.Entities) != 2 {
		t.Fatalf("expected case-insensitive entity merge, got %d entities", len(merged.Entities))
	}
	sarah := merged.Entities[0]
	if sarah.Confidence != 0.95 {
		t.Fatalf("expected highest confidence to win, got %v", sarah.Confidence)
	}
	if sarah.Properties["role"] != "Medic" || sarah.Properties["condition"] != "good" {
		t.Fatalf("expected property union, got %+v", sarah.Properties)
	}
	if len(merged.Relationships) != 1 {
		t.Fatalf("expected relationship dedupe, got %d", len(merged.Relationships))
	}
	if merged.Relationships[0].Confidence != 0.85 {
		t.Fatalf("expected highest relationship confidence, got %v", merged.Relationships[0].Confidence)
	}
	if merged.Summary != "First part. Second part." {
		t.Fatalf("unexpected merged summary: %q", merged.Summary)
	}
}

func TestAudioExtractor_UsesTranscript(t *testing.T) {
	client := &fakeAIClient{
		transcript: "Sarah needs water at the east camp.",
		responses: []extractionPayload{
			{
				Summary: "Water request.",
				Entities: []entityPayload{
					{EntityType: "Survivor", Name: "Sarah", Confidence: 0.9},
					{EntityType: "Need", Name: "Water", Confidence: 0.9},
				},
				Relationships: []relationshipPayload{
					{RelationshipType: "HAS_NEED", Source: "Sarah", Target: "Water", Confidence: 0.9},
				},
			},
		},
	}
	extractor := NewAudioExtractor(client, &fakeFetcher{data: []byte{0x01}})

	result, err := extractor.Extract(context.Background(), "s3://beacon-media/radio.ogg")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.MediaType != "audio" {
		t.Fatalf("expected media type audio, got %s", result.MediaType)
	}
	if result.Metadata["transcript"] != "Sarah needs water at the east camp." {
		t.Fatalf("expected transcript in metadata, got %+v", result.Metadata)
	}
	if len(result.Entities) != 2 || len(result.Relationships) != 1 {
		t.Fatalf("unexpected extraction: %d entities, %d relationships", len(result.Entities), len(result.Relationships))
	}
}

func TestNew_UnsupportedMediaType(t *testing.T) {
	_, err := New("video", &fakeAIClient{}, &fakeFetcher{})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
}
