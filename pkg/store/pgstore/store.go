package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/survivornet/beacon/backend/pkg/schema"
	"github.com/survivornet/beacon/backend/pkg/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Postgres error codes treated as write conflicts. 23505 covers the
// unique index on (type, lower(name)): two concurrent batches creating
// the same new entity hit it, and a rerun resolves to the winner's node.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
)

// Store implements store.GraphStore and store.BroadcastReader on
// PostgreSQL with pgvector for broadcast summary search.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on the given connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// RunTransaction runs fn in a serializable transaction. Serialization
// failures, deadlocks and duplicate-node constraint hits are reported as
// store.ErrConflict so the caller can rerun the whole unit.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, m store.Mutation) error) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		return fn(ctx, &mutation{tx: tx})
	})
	if err != nil {
		return mapTxError(err)
	}
	return nil
}

func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeUniqueViolation:
			return fmt.Errorf("postgres %s (%s): %w", pgErr.Code, pgErr.Message, store.ErrConflict)
		}
	}
	return err
}

// mutation wraps one open pgx transaction. All statements run on the
// transaction, so lookups observe the batch's own uncommitted writes.
type mutation struct {
	tx pgx.Tx
}

func (m *mutation) FindNode(ctx context.Context, entityType schema.EntityType, name string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := m.tx.QueryRow(ctx,
		`SELECT id FROM nodes WHERE type = $1 AND lower(name) = lower($2)`,
		string(entityType), name,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func (m *mutation) FindNodesByName(ctx context.Context, name string) ([]store.NodeRef, error) {
	rows, err := m.tx.Query(ctx,
		`SELECT id, type, name FROM nodes WHERE lower(name) = lower($1) ORDER BY created_at`,
		name,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []store.NodeRef
	for rows.Next() {
		var (
			ref store.NodeRef
			typ string
		)
		if err := rows.Scan(&ref.ID, &typ, &ref.Name); err != nil {
			return nil, err
		}
		ref.Type = schema.EntityType(typ)
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (m *mutation) CreateNode(ctx context.Context, entityType schema.EntityType, name string, properties map[string]any) (uuid.UUID, error) {
	props, err := marshalProperties(properties)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = m.tx.Exec(ctx,
		`INSERT INTO nodes (id, type, name, properties) VALUES ($1, $2, $3, $4)`,
		id, string(entityType), name, props,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (m *mutation) CreateEdge(ctx context.Context, edgeType schema.RelationshipType, sourceID, targetID uuid.UUID, properties map[string]any) (uuid.UUID, error) {
	props, err := marshalProperties(properties)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	_, err = m.tx.Exec(ctx,
		`INSERT INTO edges (id, type, source_id, target_id, properties) VALUES ($1, $2, $3, $4, $5)`,
		id, string(edgeType), sourceID, targetID, props,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (m *mutation) CreateBroadcast(ctx context.Context, record store.BroadcastRecord) (uuid.UUID, error) {
	var embedding any
	if record.Embedding != nil {
		embedding = pgvector.NewVector(record.Embedding)
	}

	id := uuid.New()
	_, err := m.tx.Exec(ctx,
		`INSERT INTO broadcasts (id, title, broadcast_type, summary, media_uri, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, record.Title, record.BroadcastType, record.Summary, record.MediaURI, embedding,
	)
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func (m *mutation) LinkNodeProvenance(ctx context.Context, broadcastID, nodeID uuid.UUID) error {
	_, err := m.tx.Exec(ctx,
		`INSERT INTO broadcast_nodes (broadcast_id, node_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		broadcastID, nodeID,
	)
	return err
}

func (m *mutation) LinkEdgeProvenance(ctx context.Context, broadcastID, edgeID uuid.UUID) error {
	_, err := m.tx.Exec(ctx,
		`INSERT INTO broadcast_edges (broadcast_id, edge_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		broadcastID, edgeID,
	)
	return err
}

func (m *mutation) MarkBroadcastProcessed(ctx context.Context, broadcastID uuid.UUID) error {
	tag, err := m.tx.Exec(ctx,
		`UPDATE broadcasts SET processed = TRUE WHERE id = $1`,
		broadcastID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("broadcast %s: %w", broadcastID, store.ErrNotFound)
	}
	return nil
}

func marshalProperties(properties map[string]any) ([]byte, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	props, err := json.Marshal(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to encode properties: %w", err)
	}
	return props, nil
}
