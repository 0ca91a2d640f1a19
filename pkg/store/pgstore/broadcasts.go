package pgstore

import (
	"context"
	"errors"

	"github.com/survivornet/beacon/backend/pkg/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const broadcastColumns = `
	b.id, b.title, b.broadcast_type, b.summary, b.media_uri, b.processed, b.created_at,
	(SELECT count(*) FROM broadcast_nodes bn WHERE bn.broadcast_id = b.id) AS node_count,
	(SELECT count(*) FROM broadcast_edges be WHERE be.broadcast_id = b.id) AS edge_count`

// GetBroadcast returns one broadcast with its provenance counts.
func (s *Store) GetBroadcast(ctx context.Context, id uuid.UUID) (*store.Broadcast, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT`+broadcastColumns+` FROM broadcasts b WHERE b.id = $1`,
		id,
	)

	broadcast, err := scanBroadcast(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return broadcast, nil
}

// SearchBroadcasts ranks broadcasts by cosine distance between their
// summary embedding and the query embedding. Broadcasts without an
// embedding are excluded. The limit is clamped to [1, 100].
func (s *Store) SearchBroadcasts(ctx context.Context, embedding []float32, limit int) ([]store.Broadcast, error) {
	limit = searchLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT`+broadcastColumns+`
		 FROM broadcasts b
		 WHERE b.embedding IS NOT NULL
		 ORDER BY b.embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var broadcasts []store.Broadcast
	for rows.Next() {
		broadcast, err := scanBroadcast(rows)
		if err != nil {
			return nil, err
		}
		broadcasts = append(broadcasts, *broadcast)
	}
	return broadcasts, rows.Err()
}

func searchLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}

func scanBroadcast(row pgx.Row) (*store.Broadcast, error) {
	var b store.Broadcast
	err := row.Scan(
		&b.ID, &b.Title, &b.BroadcastType, &b.Summary, &b.MediaURI,
		&b.Processed, &b.CreatedAt, &b.NodeCount, &b.EdgeCount,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
