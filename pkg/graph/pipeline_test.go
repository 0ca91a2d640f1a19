package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/extract"
	"github.com/survivornet/beacon/backend/pkg/schema"
)

type stubAIClient struct {
	response  string
	embedding []float32
	embedErr  error
}

func (c *stubAIClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return c.response, nil
}

func (c *stubAIClient) GenerateCompletionWithFormat(ctx context.Context, name, description, prompt string, out any, opts ...ai.GenerateOption) error {
	return ai.UnmarshalFlexible(c.response, out)
}

func (c *stubAIClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	return c.embedding, c.embedErr
}

func (c *stubAIClient) GenerateImageDescription(ctx context.Context, prompt string, image ai.Base64Image) (string, error) {
	return c.response, nil
}

func (c *stubAIClient) GenerateAudioTranscription(ctx context.Context, audio []byte, language string) (string, error) {
	return "transcript", nil
}

func (c *stubAIClient) ResetMetrics()               {}
func (c *stubAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

type stubFetcher struct{}

func (stubFetcher) Fetch(ctx context.Context, uri string) ([]byte, string, error) {
	return []byte("field report"), "text/plain", nil
}

const stubExtraction = `{
	"summary": "Medic Sarah offering first aid.",
	"entities": [
		{"entity_type": "Survivor", "name": "Sarah", "confidence": 0.95},
		{"entity_type": "Skill", "name": "First Aid", "confidence": 0.9}
	],
	"relationships": [
		{"relationship_type": "HAS_SKILL", "source": "Sarah", "target": "First Aid", "confidence": 0.9}
	],
	"broadcast_info": {"title": "Field Report", "broadcast_type": "report"}
}`

func TestProcessMedia(t *testing.T) {
	s := newMemStore()
	aiClient := &stubAIClient{response: stubExtraction, embedding: []float32{0.5, 0.25}}
	client := NewClient(NewClientParams{Store: s, AI: aiClient})

	stats, err := client.ProcessMedia(context.Background(), stubFetcher{}, Attachment{
		MediaURI:  "s3://beacon-media/report.txt",
		MediaType: "text",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if stats.EntitiesCreated != 2 || stats.RelationshipsCreated != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	broadcast := s.broadcasts[stats.BroadcastID]
	if broadcast == nil {
		t.Fatalf("broadcast not committed")
	}
	if len(broadcast.record.Embedding) != 2 {
		t.Fatalf("expected summary embedding on the broadcast, got %v", broadcast.record.Embedding)
	}
}

func TestProcessMedia_SeedsSurvivorHint(t *testing.T) {
	s := newMemStore()
	aiClient := &stubAIClient{response: stubExtraction}
	client := NewClient(NewClientParams{Store: s, AI: aiClient})

	stats, err := client.ProcessMedia(context.Background(), stubFetcher{}, Attachment{
		MediaURI:     "s3://beacon-media/report.txt",
		MediaType:    "text",
		SurvivorHint: "David Chen",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	// Sarah, First Aid, plus the seeded sender.
	if stats.EntitiesCreated != 3 {
		t.Fatalf("expected the hinted sender to be created, got %+v", stats)
	}
	if s.findNode(schema.EntitySurvivor, "David Chen") == nil {
		t.Fatalf("hinted survivor missing from the graph")
	}
}

func TestProcessMedia_SurvivorHintMatchingExtractionIsNotDuplicated(t *testing.T) {
	s := newMemStore()
	aiClient := &stubAIClient{response: stubExtraction}
	client := NewClient(NewClientParams{Store: s, AI: aiClient})

	stats, err := client.ProcessMedia(context.Background(), stubFetcher{}, Attachment{
		MediaURI:     "s3://beacon-media/report.txt",
		MediaType:    "text",
		SurvivorHint: "sarah",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if stats.EntitiesCreated != 2 {
		t.Fatalf("expected no duplicate for the extracted sender, got %+v", stats)
	}
}

func TestProcessMedia_EmbeddingFailureIsNotFatal(t *testing.T) {
	s := newMemStore()
	aiClient := &stubAIClient{response: stubExtraction, embedErr: errors.New("embedding server down")}
	client := NewClient(NewClientParams{Store: s, AI: aiClient})

	stats, err := client.ProcessMedia(context.Background(), stubFetcher{}, Attachment{
		MediaURI:  "s3://beacon-media/report.txt",
		MediaType: "text",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	broadcast := s.broadcasts[stats.BroadcastID]
	if broadcast == nil || broadcast.record.Embedding != nil {
		t.Fatalf("expected broadcast without embedding")
	}
}

func TestProcessMedia_UnsupportedMediaType(t *testing.T) {
	s := newMemStore()
	client := NewClient(NewClientParams{Store: s, AI: &stubAIClient{response: stubExtraction}})

	stats, err := client.ProcessMedia(context.Background(), stubFetcher{}, Attachment{
		MediaURI:  "s3://beacon-media/clip.mp4",
		MediaType: "video",
	})
	if !errors.Is(err, extract.ErrExtractionFailed) {
		t.Fatalf("expected ErrExtractionFailed, got %v", err)
	}
	if len(stats.Errors) != 1 || stats.Errors[0].Reason != schema.ReasonExtractionFailed {
		t.Fatalf("expected batch extraction_failed, got %+v", stats.Errors)
	}
	if s.broadcastCount() != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestProcessBacklog_SiblingsSurviveFailures(t *testing.T) {
	s := newMemStore()
	client := NewClient(NewClientParams{
		Store:    s,
		AI:       &stubAIClient{response: stubExtraction},
		Parallel: 2,
	})

	attachments := []Attachment{
		{MediaURI: "s3://beacon-media/one.txt", MediaType: "text"},
		{MediaURI: "s3://beacon-media/clip.mp4", MediaType: "video"},
		{MediaURI: "s3://beacon-media/two.txt", MediaType: "text"},
	}
	results := client.ProcessBacklog(context.Background(), stubFetcher{}, attachments)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].Err != nil || results[2].Err != nil {
		t.Fatalf("expected text items to succeed: %v, %v", results[0].Err, results[2].Err)
	}
	if results[1].Err == nil {
		t.Fatalf("expected the video item to fail")
	}
	if results[1].Attachment.MediaURI != "s3://beacon-media/clip.mp4" {
		t.Fatalf("result order does not match input order")
	}
	if s.broadcastCount() != 2 {
		t.Fatalf("expected 2 committed broadcasts, got %d", s.broadcastCount())
	}
}
