package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/schema"

	"github.com/pkoukk/tiktoken-go"
)

// chunkTokens is the per-request token budget for text extraction. Long
// reports are split and the per-chunk results merged, so one oversized
// transcript never silently loses its tail.
const chunkTokens = 6000

// TextExtractor extracts survivor network data from plain text reports.
type TextExtractor struct {
	client  ai.GraphAIClient
	fetcher MediaFetcher
}

// NewTextExtractor creates a text extractor backed by the given AI client
// and media fetcher.
func NewTextExtractor(client ai.GraphAIClient, fetcher MediaFetcher) *TextExtractor {
	return &TextExtractor{client: client, fetcher: fetcher}
}

// Extract fetches the text behind mediaURI and runs structured extraction
// over it, chunking when the content exceeds the token budget.
func (e *TextExtractor) Extract(ctx context.Context, mediaURI string) (*schema.ExtractionResult, error) {
	data, _, err := e.fetcher.Fetch(ctx, mediaURI)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch %s: %v", ErrExtractionFailed, mediaURI, err)
	}

	result, err := e.extractFromText(ctx, mediaURI, "text", string(data))
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *TextExtractor) extractFromText(ctx context.Context, mediaURI, mediaType, text string) (*schema.ExtractionResult, error) {
	chunks, err := chunkText(text, chunkTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtractionFailed, err)
	}

	results := make([]*schema.ExtractionResult, 0, len(chunks))
	for i, chunk := range chunks {
		var payload extractionPayload
		err := e.client.GenerateCompletionWithFormat(
			ctx,
			"broadcast_extraction",
			"Entities and relationships extracted from one survivor network broadcast",
			chunk,
			&payload,
			ai.WithSystemPrompts(ExtractionPrompt),
		)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d/%d of %s: %v", ErrExtractionFailed, i+1, len(chunks), mediaURI, err)
		}
		results = append(results, payload.toResult(mediaURI, mediaType))
	}

	return mergeResults(results), nil
}

// chunkText splits text into pieces of at most maxTokens tokens using the
// o200k_base encoding. Splitting happens on token boundaries; the token
// count is what the model sees, not bytes.
func chunkText(text string, maxTokens int) ([]string, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return nil, err
	}

	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return []string{text}, nil
	}

	chunks := make([]string, 0, len(tokens)/maxTokens+1)
	for start := 0; start < len(tokens); start += maxTokens {
		end := min(start+maxTokens, len(tokens))
		chunks = append(chunks, enc.Decode(tokens[start:end]))
	}
	return chunks, nil
}

// mergeResults folds per-chunk results into one. Entities collapse on
// (type, lowercased name) and relationships on (type, source, target),
// keeping the highest confidence and the union of properties.
func mergeResults(results []*schema.ExtractionResult) *schema.ExtractionResult {
	if len(results) == 1 {
		return results[0]
	}

	merged := &schema.ExtractionResult{
		MediaURI:    results[0].MediaURI,
		MediaType:   results[0].MediaType,
		Metadata:    map[string]any{},
		ExtractedAt: results[0].ExtractedAt,
	}

	summaries := make([]string, 0, len(results))
	entityIdx := make(map[string]int)
	relIdx := make(map[string]int)
	for _, r := range results {
		if r.Summary != "" {
			summaries = append(summaries, r.Summary)
		}
		if merged.BroadcastInfo == nil && r.BroadcastInfo != nil {
			merged.BroadcastInfo = r.BroadcastInfo
		}
		for k, v := range r.Metadata {
			merged.Metadata[k] = v
		}

		for _, entity := range r.Entities {
			key := string(entity.Type) + "\x00" + strings.ToLower(entity.Name)
			idx, seen := entityIdx[key]
			if !seen {
				entityIdx[key] = len(merged.Entities)
				merged.Entities = append(merged.Entities, entity)
				continue
			}
			mergeEntity(&merged.Entities[idx], entity)
		}

		for _, rel := range r.Relationships {
			key := string(rel.Type) + "\x00" + strings.ToLower(rel.SourceName) + "\x00" + strings.ToLower(rel.TargetName)
			idx, seen := relIdx[key]
			if !seen {
				relIdx[key] = len(merged.Relationships)
				merged.Relationships = append(merged.Relationships, rel)
				continue
			}
			if rel.Confidence > merged.Relationships[idx].Confidence {
				merged.Relationships[idx].Confidence = rel.Confidence
			}
		}
	}
	merged.Summary = strings.Join(summaries, " ")

	return merged
}

func mergeEntity(dst *schema.Entity, src schema.Entity) {
	if src.Confidence > dst.Confidence {
		dst.Confidence = src.Confidence
	}
	if len(src.Properties) == 0 {
		return
	}
	if dst.Properties == nil {
		dst.Properties = map[string]any{}
	}
	for k, v := range src.Properties {
		if _, ok := dst.Properties[k]; !ok {
			dst.Properties[k] = v
		}
	}
}
