package graph

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/survivornet/beacon/backend/pkg/logger"
	"github.com/survivornet/beacon/backend/pkg/schema"
	"github.com/survivornet/beacon/backend/pkg/store"

	"github.com/google/uuid"
)

// SaveExtraction persists one extraction result as a single atomic
// transaction: broadcast record, nodes, edges and provenance links either
// all commit or none do. Malformed or unresolvable items are skipped and
// recorded in the returned stats without failing the batch.
//
// On a write conflict the whole transaction is rerun with fresh identity
// resolution, so two concurrent batches mentioning the same new entity
// converge on one node. The returned stats are non-nil even on failure.
func (c *Client) SaveExtraction(ctx context.Context, result *schema.ExtractionResult, embedding []float32) (*SaveStats, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		stats, err := c.trySave(ctx, result, embedding)
		if err == nil {
			return stats, nil
		}
		lastErr = err
		if !errors.Is(err, store.ErrConflict) {
			break
		}
		logger.Warn("save transaction conflicted, retrying",
			"media_uri", result.MediaURI,
			"attempt", attempt,
			"max_retries", c.maxRetries,
		)
	}

	stats := newSaveStats()
	stats.addError(-1, ItemKindBatch, schema.ReasonTransactionFailed, lastErr.Error())
	return stats, fmt.Errorf("failed to save extraction for %s: %w", result.MediaURI, lastErr)
}

func (c *Client) trySave(ctx context.Context, result *schema.ExtractionResult, embedding []float32) (*SaveStats, error) {
	ctx, cancel := context.WithTimeout(ctx, c.txTimeout)
	defer cancel()

	stats := newSaveStats()
	err := c.store.RunTransaction(ctx, func(ctx context.Context, m store.Mutation) error {
		res := newResolver(m)

		broadcastID, err := m.CreateBroadcast(ctx, broadcastRecord(result, embedding))
		if err != nil {
			return fmt.Errorf("failed to create broadcast record: %w", err)
		}
		stats.BroadcastID = broadcastID

		if err := c.saveEntities(ctx, m, res, result, broadcastID, stats); err != nil {
			return err
		}
		if err := c.saveRelationships(ctx, m, res, result, broadcastID, stats); err != nil {
			return err
		}

		return m.MarkBroadcastProcessed(ctx, broadcastID)
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (c *Client) saveEntities(
	ctx context.Context,
	m store.Mutation,
	res *resolver,
	result *schema.ExtractionResult,
	broadcastID uuid.UUID,
	stats *SaveStats,
) error {
	for i, entity := range result.Entities {
		if err := entity.Validate(); err != nil {
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				stats.addError(i, ItemKindEntity, verr.Reason, verr.Detail)
				continue
			}
			return err
		}

		nodeID, existed, err := res.resolveEntity(ctx, entity)
		if err != nil {
			return err
		}
		if existed {
			stats.EntitiesFoundExisting++
		} else {
			nodeID, err = m.CreateNode(ctx, entity.Type, entity.Name, nodeProperties(entity))
			if err != nil {
				return fmt.Errorf("failed to create %s %q: %w", entity.Type, entity.Name, err)
			}
			res.bind(entity.Type, entity.Name, nodeID)
			stats.EntitiesCreated++
		}

		if err := m.LinkNodeProvenance(ctx, broadcastID, nodeID); err != nil {
			return fmt.Errorf("failed to link %s %q to broadcast: %w", entity.Type, entity.Name, err)
		}
	}
	return nil
}

func (c *Client) saveRelationships(
	ctx context.Context,
	m store.Mutation,
	res *resolver,
	result *schema.ExtractionResult,
	broadcastID uuid.UUID,
	stats *SaveStats,
) error {
	for i, rel := range result.Relationships {
		if err := rel.Validate(); err != nil {
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				stats.addError(i, ItemKindRelationship, verr.Reason, verr.Detail)
				continue
			}
			return err
		}

		wantSource, wantTarget := rel.Type.Endpoints()
		sourceID, err := res.resolveEndpoint(ctx, rel.SourceName, wantSource)
		if err != nil {
			if recordEndpointError(stats, i, err) {
				continue
			}
			return err
		}
		targetID, err := res.resolveEndpoint(ctx, rel.TargetName, wantTarget)
		if err != nil {
			if recordEndpointError(stats, i, err) {
				continue
			}
			return err
		}

		edgeID, err := m.CreateEdge(ctx, rel.Type, sourceID, targetID, edgeProperties(rel))
		if err != nil {
			return fmt.Errorf("failed to create %s edge %q -> %q: %w", rel.Type, rel.SourceName, rel.TargetName, err)
		}
		if err := m.LinkEdgeProvenance(ctx, broadcastID, edgeID); err != nil {
			return fmt.Errorf("failed to link %s edge to broadcast: %w", rel.Type, err)
		}
		stats.RelationshipsCreated++
	}
	return nil
}

// recordEndpointError turns per-item resolution failures into stats
// entries. It reports false for batch-level errors, which abort the
// transaction instead.
func recordEndpointError(stats *SaveStats, index int, err error) bool {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		stats.addError(index, ItemKindRelationship, verr.Reason, verr.Detail)
		return true
	}
	var rerr *schema.ResolutionError
	if errors.As(err, &rerr) {
		stats.addError(index, ItemKindRelationship, schema.ReasonUnresolvedEndpoint, rerr.Error())
		return true
	}
	return false
}

func broadcastRecord(result *schema.ExtractionResult, embedding []float32) store.BroadcastRecord {
	record := store.BroadcastRecord{
		Summary:   result.Summary,
		MediaURI:  result.MediaURI,
		Embedding: embedding,
	}
	if result.BroadcastInfo != nil {
		record.Title = result.BroadcastInfo.Title
		record.BroadcastType = result.BroadcastInfo.BroadcastType
	}
	if record.Title == "" {
		record.Title = synthesizeTitle(result)
	}
	if record.BroadcastType == "" {
		record.BroadcastType = "report"
	}
	return record
}

// synthesizeTitle builds a fallback broadcast title from the media URI so
// provenance records stay identifiable even without extractor metadata.
func synthesizeTitle(result *schema.ExtractionResult) string {
	uri := result.MediaURI
	if idx := strings.LastIndexByte(uri, '/'); idx >= 0 && idx < len(uri)-1 {
		uri = uri[idx+1:]
	}
	if uri == "" {
		uri = "unknown source"
	}
	return fmt.Sprintf("Broadcast from %s", uri)
}

func nodeProperties(entity schema.Entity) map[string]any {
	props := make(map[string]any, len(entity.Properties)+1)
	for k, v := range entity.Properties {
		props[k] = v
	}
	props["confidence"] = entity.Confidence
	return props
}

func edgeProperties(rel schema.Relationship) map[string]any {
	props := make(map[string]any, len(rel.Properties)+1)
	for k, v := range rel.Properties {
		props[k] = v
	}
	props["confidence"] = rel.Confidence
	return props
}
