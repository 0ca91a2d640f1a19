package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/survivornet/beacon/backend/internal/storage"
	"github.com/survivornet/beacon/backend/internal/util"
	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/graph"
	"github.com/survivornet/beacon/backend/pkg/logger"
	"github.com/survivornet/beacon/backend/pkg/memory"
	"github.com/survivornet/beacon/backend/pkg/store/pgstore"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessBroadcastMessage handles one broadcast_queue delivery: extract
// the media, save the graph mutation, and enqueue a memory entry. A
// returned error sends the message through the retry/DLQ path; recorded
// per-item skips do not.
func ProcessBroadcastMessage(
	ctx context.Context,
	media *storage.MediaStore,
	aiClient ai.GraphAIClient,
	conn *pgxpool.Pool,
	syncer *memory.Syncer,
	msg string,
) error {
	data := new(BroadcastJobMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("malformed broadcast job: %w", err)
	}
	if data.MediaURI == "" || data.MediaType == "" {
		return errors.New("broadcast job missing media_uri or media_type")
	}

	client := graph.NewClient(graph.NewClientParams{
		Store:      pgstore.New(conn),
		AI:         aiClient,
		MaxRetries: int(util.GetEnvNumeric("GRAPH_MAX_RETRIES", 3)),
	})

	stats, err := client.ProcessMedia(ctx, media, graph.Attachment{
		MediaURI:     data.MediaURI,
		MediaType:    data.MediaType,
		SurvivorHint: data.SurvivorHint,
	})
	if err != nil {
		return err
	}

	for _, itemErr := range stats.Errors {
		logger.Warn("skipped extraction item",
			"media_uri", data.MediaURI,
			"correlation_id", data.CorrelationID,
			"item_index", itemErr.ItemIndex,
			"item_kind", itemErr.ItemKind,
			"reason", itemErr.Reason,
			"detail", itemErr.Detail,
		)
	}

	if syncer != nil {
		syncer.Enqueue(memory.Entry{
			BroadcastID:           stats.BroadcastID,
			EntitiesCreated:       stats.EntitiesCreated,
			EntitiesFoundExisting: stats.EntitiesFoundExisting,
			RelationshipsCreated:  stats.RelationshipsCreated,
		})
	}

	return nil
}
