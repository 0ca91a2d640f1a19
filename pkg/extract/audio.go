package extract

import (
	"context"
	"fmt"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/schema"
)

// AudioExtractor extracts survivor network data from audio broadcasts by
// transcribing them and running the transcript through text extraction.
type AudioExtractor struct {
	client  ai.GraphAIClient
	fetcher MediaFetcher
	text    *TextExtractor
}

// NewAudioExtractor creates an audio extractor backed by the given AI
// client and media fetcher.
func NewAudioExtractor(client ai.GraphAIClient, fetcher MediaFetcher) *AudioExtractor {
	return &AudioExtractor{
		client:  client,
		fetcher: fetcher,
		text:    NewTextExtractor(client, fetcher),
	}
}

// Extract fetches and transcribes the audio behind mediaURI, then
// extracts from the transcript. The transcript is kept in the result
// metadata so operators can audit what the model heard.
func (e *AudioExtractor) Extract(ctx context.Context, mediaURI string) (*schema.ExtractionResult, error) {
	data, _, err := e.fetcher.Fetch(ctx, mediaURI)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, mediaURI, err)
	}

	transcript, err := e.client.GenerateAudioTranscription(ctx, data, "")
	if err != nil {
		return nil, fmt.Errorf("%w: transcribe %s: %v", ErrExtractionFailed, mediaURI, err)
	}
	if transcript == "" {
		return nil, fmt.Errorf("%w: empty transcript for %s", ErrExtractionFailed, mediaURI)
	}

	result, err := e.text.extractFromText(ctx, mediaURI, "audio", transcript)
	if err != nil {
		return nil, err
	}
	if result.Metadata == nil {
		result.Metadata = map[string]any{}
	}
	result.Metadata["transcript"] = transcript
	return result, nil
}
