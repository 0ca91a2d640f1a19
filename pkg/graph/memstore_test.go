package graph

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/survivornet/beacon/backend/pkg/schema"
	"github.com/survivornet/beacon/backend/pkg/store"

	"github.com/google/uuid"
)

// memStore is an in-memory store.GraphStore with real transaction
// semantics: writes stage in an overlay and only merge into the base maps
// on commit. Conflicts and per-operation failures can be injected.
type memStore struct {
	mu sync.Mutex

	nodes      map[uuid.UUID]*memNode
	edges      map[uuid.UUID]*memEdge
	broadcasts map[uuid.UUID]*memBroadcast

	// conflictsLeft makes RunTransaction fail with ErrConflict that many
	// times before letting a transaction through.
	conflictsLeft int
	// failOp makes the named mutation operation fail inside transactions.
	failOp string
}

type memNode struct {
	id         uuid.UUID
	typ        schema.EntityType
	name       string
	properties map[string]any
}

type memEdge struct {
	id       uuid.UUID
	typ      schema.RelationshipType
	sourceID uuid.UUID
	targetID uuid.UUID
}

type memBroadcast struct {
	id        uuid.UUID
	record    store.BroadcastRecord
	processed bool
	nodeIDs   []uuid.UUID
	edgeIDs   []uuid.UUID
}

func newMemStore() *memStore {
	return &memStore{
		nodes:      map[uuid.UUID]*memNode{},
		edges:      map[uuid.UUID]*memEdge{},
		broadcasts: map[uuid.UUID]*memBroadcast{},
	}
}

func (s *memStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, m store.Mutation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflictsLeft > 0 {
		s.conflictsLeft--
		return fmt.Errorf("injected serialization failure: %w", store.ErrConflict)
	}

	tx := &memTx{
		store:      s,
		nodes:      map[uuid.UUID]*memNode{},
		edges:      map[uuid.UUID]*memEdge{},
		broadcasts: map[uuid.UUID]*memBroadcast{},
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for id, n := range tx.nodes {
		s.nodes[id] = n
	}
	for id, e := range tx.edges {
		s.edges[id] = e
	}
	for id, b := range tx.broadcasts {
		s.broadcasts[id] = b
	}
	return nil
}

func (s *memStore) nodeCount() int      { s.mu.Lock(); defer s.mu.Unlock(); return len(s.nodes) }
func (s *memStore) edgeCount() int      { s.mu.Lock(); defer s.mu.Unlock(); return len(s.edges) }
func (s *memStore) broadcastCount() int { s.mu.Lock(); defer s.mu.Unlock(); return len(s.broadcasts) }

func (s *memStore) findNode(typ schema.EntityType, name string) *memNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.nodes {
		if n.typ == typ && strings.EqualFold(n.name, name) {
			return n
		}
	}
	return nil
}

// memTx is the overlay for one open transaction.
type memTx struct {
	store      *memStore
	nodes      map[uuid.UUID]*memNode
	edges      map[uuid.UUID]*memEdge
	broadcasts map[uuid.UUID]*memBroadcast
}

func (t *memTx) fail(op string) error {
	if t.store.failOp == op {
		return fmt.Errorf("injected %s failure", op)
	}
	return nil
}

func (t *memTx) visibleNodes(yield func(*memNode) bool) {
	for _, n := range t.store.nodes {
		if !yield(n) {
			return
		}
	}
	for _, n := range t.nodes {
		if !yield(n) {
			return
		}
	}
}

func (t *memTx) FindNode(ctx context.Context, entityType schema.EntityType, name string) (uuid.UUID, bool, error) {
	if err := t.fail("FindNode"); err != nil {
		return uuid.Nil, false, err
	}
	var found *memNode
	t.visibleNodes(func(n *memNode) bool {
		if n.typ == entityType && strings.EqualFold(n.name, name) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		return uuid.Nil, false, nil
	}
	return found.id, true, nil
}

func (t *memTx) FindNodesByName(ctx context.Context, name string) ([]store.NodeRef, error) {
	if err := t.fail("FindNodesByName"); err != nil {
		return nil, err
	}
	var refs []store.NodeRef
	t.visibleNodes(func(n *memNode) bool {
		if strings.EqualFold(n.name, name) {
			refs = append(refs, store.NodeRef{ID: n.id, Type: n.typ, Name: n.name})
		}
		return true
	})
	return refs, nil
}

func (t *memTx) CreateNode(ctx context.Context, entityType schema.EntityType, name string, properties map[string]any) (uuid.UUID, error) {
	if err := t.fail("CreateNode"); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	t.nodes[id] = &memNode{id: id, typ: entityType, name: name, properties: properties}
	return id, nil
}

func (t *memTx) CreateEdge(ctx context.Context, edgeType schema.RelationshipType, sourceID, targetID uuid.UUID, properties map[string]any) (uuid.UUID, error) {
	if err := t.fail("CreateEdge"); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	t.edges[id] = &memEdge{id: id, typ: edgeType, sourceID: sourceID, targetID: targetID}
	return id, nil
}

func (t *memTx) CreateBroadcast(ctx context.Context, record store.BroadcastRecord) (uuid.UUID, error) {
	if err := t.fail("CreateBroadcast"); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	t.broadcasts[id] = &memBroadcast{id: id, record: record}
	return id, nil
}

func (t *memTx) LinkNodeProvenance(ctx context.Context, broadcastID, nodeID uuid.UUID) error {
	if err := t.fail("LinkNodeProvenance"); err != nil {
		return err
	}
	b := t.broadcasts[broadcastID]
	if b == nil {
		return fmt.Errorf("unknown broadcast %s", broadcastID)
	}
	b.nodeIDs = append(b.nodeIDs, nodeID)
	return nil
}

func (t *memTx) LinkEdgeProvenance(ctx context.Context, broadcastID, edgeID uuid.UUID) error {
	if err := t.fail("LinkEdgeProvenance"); err != nil {
		return err
	}
	b := t.broadcasts[broadcastID]
	if b == nil {
		return fmt.Errorf("unknown broadcast %s", broadcastID)
	}
	b.edgeIDs = append(b.edgeIDs, edgeID)
	return nil
}

func (t *memTx) MarkBroadcastProcessed(ctx context.Context, broadcastID uuid.UUID) error {
	if err := t.fail("MarkBroadcastProcessed"); err != nil {
		return err
	}
	b := t.broadcasts[broadcastID]
	if b == nil {
		return fmt.Errorf("unknown broadcast %s", broadcastID)
	}
	b.processed = true
	return nil
}
