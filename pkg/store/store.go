package store

import (
	"context"
	"errors"
	"time"

	"github.com/survivornet/beacon/backend/pkg/schema"

	"github.com/google/uuid"
)

// ErrConflict is returned by RunTransaction when the underlying store
// detected a write conflict (serialization failure, deadlock, or a
// duplicate-node constraint hit by a concurrent batch). The caller may
// re-run the whole transaction, identity resolution included.
var ErrConflict = errors.New("graph store write conflict")

// ErrNotFound is returned by read operations for missing records.
var ErrNotFound = errors.New("not found")

// NodeRef identifies a persisted node by id, type and name.
type NodeRef struct {
	ID   uuid.UUID
	Type schema.EntityType
	Name string
}

// BroadcastRecord is the input for creating one broadcast provenance node.
type BroadcastRecord struct {
	Title         string
	BroadcastType string
	Summary       string
	MediaURI      string
	// Embedding of the summary for retrieval. Optional; computed outside
	// the transaction and stored as-is.
	Embedding []float32
}

// Mutation is the write surface available inside one transaction. All
// operations observe the transaction's own uncommitted writes, and none
// of them are durable until the transaction commits.
type Mutation interface {
	// FindNode matches case-insensitively on (type, name).
	FindNode(ctx context.Context, entityType schema.EntityType, name string) (uuid.UUID, bool, error)
	// FindNodesByName matches case-insensitively on name across all types.
	FindNodesByName(ctx context.Context, name string) ([]NodeRef, error)
	CreateNode(ctx context.Context, entityType schema.EntityType, name string, properties map[string]any) (uuid.UUID, error)
	CreateEdge(ctx context.Context, edgeType schema.RelationshipType, sourceID, targetID uuid.UUID, properties map[string]any) (uuid.UUID, error)
	CreateBroadcast(ctx context.Context, record BroadcastRecord) (uuid.UUID, error)
	LinkNodeProvenance(ctx context.Context, broadcastID, nodeID uuid.UUID) error
	LinkEdgeProvenance(ctx context.Context, broadcastID, edgeID uuid.UUID) error
	MarkBroadcastProcessed(ctx context.Context, broadcastID uuid.UUID) error
}

// GraphStore commits mutations as one atomic unit: fn either commits in
// full or rolls back in full. Returned conflicts wrap ErrConflict.
type GraphStore interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context, m Mutation) error) error
}

// Broadcast is the read model for one provenance record.
type Broadcast struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	BroadcastType string    `json:"broadcast_type"`
	Summary       string    `json:"summary"`
	MediaURI      string    `json:"media_uri"`
	Processed     bool      `json:"processed"`
	NodeCount     int       `json:"node_count"`
	EdgeCount     int       `json:"edge_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// BroadcastReader is the read surface used by the API layer.
type BroadcastReader interface {
	GetBroadcast(ctx context.Context, id uuid.UUID) (*Broadcast, error)
	// SearchBroadcasts ranks stored broadcasts by summary embedding
	// similarity. Retrieval only; identity resolution never uses it.
	SearchBroadcasts(ctx context.Context, embedding []float32, limit int) ([]Broadcast, error)
}
