package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/survivornet/beacon/backend/pkg/extract"
	"github.com/survivornet/beacon/backend/pkg/logger"
	"github.com/survivornet/beacon/backend/pkg/schema"

	"golang.org/x/sync/errgroup"
)

// Attachment identifies one media item waiting to be processed.
type Attachment struct {
	MediaURI  string `json:"media_uri"`
	MediaType string `json:"media_type"`
	// SurvivorHint names the survivor who sent the broadcast, when the
	// uploader knows it. The hint is seeded into the batch so the sender
	// exists in the graph even if the extractor misses them.
	SurvivorHint string `json:"survivor_hint,omitempty"`
}

// Result pairs one attachment with the outcome of processing it.
type Result struct {
	Attachment Attachment
	Stats      *SaveStats
	Err        error
}

// ProcessMedia runs the full pipeline for one media item: extraction,
// summary embedding and the save transaction. Extraction failures do not
// partially mutate the graph; they surface as a batch-level error in the
// returned stats.
func (c *Client) ProcessMedia(ctx context.Context, fetcher extract.MediaFetcher, attachment Attachment) (*SaveStats, error) {
	extractor, err := extract.New(attachment.MediaType, c.ai, fetcher)
	if err != nil {
		return extractionFailure(err), fmt.Errorf("failed to process %s: %w", attachment.MediaURI, err)
	}

	result, err := extractor.Extract(ctx, attachment.MediaURI)
	if err != nil {
		return extractionFailure(err), fmt.Errorf("failed to extract %s: %w", attachment.MediaURI, err)
	}
	seedSurvivor(result, attachment.SurvivorHint)

	embedding := c.embedSummary(ctx, result.Summary)

	stats, err := c.SaveExtraction(ctx, result, embedding)
	if err != nil {
		return stats, err
	}

	logger.Info("media processed",
		"media_uri", attachment.MediaURI,
		"media_type", attachment.MediaType,
		"broadcast_id", stats.BroadcastID,
		"entities_created", stats.EntitiesCreated,
		"entities_found_existing", stats.EntitiesFoundExisting,
		"relationships_created", stats.RelationshipsCreated,
		"skipped", len(stats.Errors),
	)
	return stats, nil
}

// ProcessBacklog processes a batch of attachments with bounded
// parallelism. Each item is its own transaction; one item failing never
// cancels or rolls back its siblings.
func (c *Client) ProcessBacklog(ctx context.Context, fetcher extract.MediaFetcher, attachments []Attachment) []Result {
	results := make([]Result, len(attachments))

	var group errgroup.Group
	group.SetLimit(c.parallel)
	for i, attachment := range attachments {
		group.Go(func() error {
			stats, err := c.ProcessMedia(ctx, fetcher, attachment)
			results[i] = Result{Attachment: attachment, Stats: stats, Err: err}
			return nil
		})
	}
	group.Wait()

	return results
}

// embedSummary computes the summary embedding outside the save
// transaction. Embeddings only serve retrieval, so failures degrade to a
// broadcast without one instead of failing the batch.
func (c *Client) embedSummary(ctx context.Context, summary string) []float32 {
	if c.ai == nil || summary == "" {
		return nil
	}
	embedding, err := c.ai.GenerateEmbedding(ctx, []byte(summary))
	if err != nil {
		logger.Warn("failed to embed broadcast summary", "error", err)
		return nil
	}
	return embedding
}

// seedSurvivor prepends the hinted sender as a Survivor entity unless
// the extractor already found them. Identity resolution dedupes against
// the store as usual, so a known sender resolves to their existing node.
func seedSurvivor(result *schema.ExtractionResult, hint string) {
	if hint == "" {
		return
	}
	for _, entity := range result.Entities {
		if entity.Type == schema.EntitySurvivor && strings.EqualFold(entity.Name, hint) {
			return
		}
	}
	result.Entities = append([]schema.Entity{{
		Type:       schema.EntitySurvivor,
		Name:       hint,
		Confidence: 1,
	}}, result.Entities...)
}

func extractionFailure(err error) *SaveStats {
	stats := newSaveStats()
	stats.addError(-1, ItemKindBatch, schema.ReasonExtractionFailed, err.Error())
	return stats
}
