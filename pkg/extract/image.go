package extract

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/schema"
)

// ImageExtractor extracts survivor network data from images via a vision
// model.
type ImageExtractor struct {
	client  ai.GraphAIClient
	fetcher MediaFetcher
}

// NewImageExtractor creates an image extractor backed by the given AI
// client and media fetcher.
func NewImageExtractor(client ai.GraphAIClient, fetcher MediaFetcher) *ImageExtractor {
	return &ImageExtractor{client: client, fetcher: fetcher}
}

// Extract fetches the image behind mediaURI, asks the vision model for
// the structured JSON directly, and parses the response leniently.
func (e *ImageExtractor) Extract(ctx context.Context, mediaURI string) (*schema.ExtractionResult, error) {
	data, contentType, err := e.fetcher.Fetch(ctx, mediaURI)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, mediaURI, err)
	}

	image := ai.Base64Image{
		Prefix: dataURLPrefix(contentType, mediaURI),
		Base64: base64.StdEncoding.EncodeToString(data),
	}

	response, err := e.client.GenerateImageDescription(ctx, imageDescriptionPrompt, image)
	if err != nil {
		return nil, fmt.Errorf("%w: describe %s: %v", ErrExtractionFailed, mediaURI, err)
	}

	var payload extractionPayload
	if err := ai.UnmarshalFlexible(response, &payload); err != nil {
		return nil, fmt.Errorf("%w: parse vision response for %s: %v", ErrExtractionFailed, mediaURI, err)
	}

	return payload.toResult(mediaURI, "image"), nil
}

func dataURLPrefix(contentType, mediaURI string) string {
	if contentType == "" {
		switch {
		case strings.HasSuffix(mediaURI, ".png"):
			contentType = "image/png"
		case strings.HasSuffix(mediaURI, ".webp"):
			contentType = "image/webp"
		default:
			contentType = "image/jpeg"
		}
	}
	return "data:" + contentType + ";base64,"
}
