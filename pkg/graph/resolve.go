package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/survivornet/beacon/backend/pkg/schema"
	"github.com/survivornet/beacon/backend/pkg/store"

	"github.com/google/uuid"
)

// resolver maps entity mentions to graph nodes for one extraction batch.
// Matching is a deliberately conservative case-insensitive exact match on
// (type, name): false merges damage the graph more than duplicates.
//
// Resolution order is batch-first, then store, and all store lookups run
// inside the open transaction so a concurrent batch's uncommitted nodes
// are never observed. A resolver is created fresh per transaction attempt
// and must not be reused across attempts.
type resolver struct {
	m store.Mutation

	// byTypeName holds every entity seen in this batch, keyed by
	// (type, lowercased name). The bound id for a New entity is the id
	// that was actually created, so later mentions reuse it.
	byTypeName map[string]resolvedNode
	// byName indexes the same bindings by lowercased name only, for
	// endpoint type checking.
	byName map[string][]resolvedNode
}

type resolvedNode struct {
	id   uuid.UUID
	typ  schema.EntityType
	name string
}

func newResolver(m store.Mutation) *resolver {
	return &resolver{
		m:          m,
		byTypeName: make(map[string]resolvedNode),
		byName:     make(map[string][]resolvedNode),
	}
}

func batchKey(entityType schema.EntityType, name string) string {
	return string(entityType) + "\x00" + strings.ToLower(name)
}

// resolveEntity decides whether the candidate corresponds to an existing
// node. It returns the node id and whether the node already existed in
// the batch or the store.
func (r *resolver) resolveEntity(ctx context.Context, entity schema.Entity) (uuid.UUID, bool, error) {
	if node, ok := r.byTypeName[batchKey(entity.Type, entity.Name)]; ok {
		return node.id, true, nil
	}

	id, found, err := r.m.FindNode(ctx, entity.Type, entity.Name)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up %s %q: %w", entity.Type, entity.Name, err)
	}
	if found {
		r.bind(entity.Type, entity.Name, id)
		return id, true, nil
	}
	return uuid.Nil, false, nil
}

// bind records a (type, name) → node id mapping for the rest of the batch.
func (r *resolver) bind(entityType schema.EntityType, name string, id uuid.UUID) {
	node := resolvedNode{id: id, typ: entityType, name: name}
	r.byTypeName[batchKey(entityType, name)] = node
	lower := strings.ToLower(name)
	r.byName[lower] = append(r.byName[lower], node)
}

// resolveEndpoint resolves a relationship endpoint name against the batch
// first, then the store. A name that resolves only to nodes of the wrong
// type yields a ValidationError; a name that resolves to nothing yields a
// ResolutionError. Both are per-relationship failures.
//
// A correctly typed node always wins, wherever it lives: a same-named
// batch entity of another type never shadows a store node of the
// expected type.
func (r *resolver) resolveEndpoint(ctx context.Context, name string, want schema.EntityType) (uuid.UUID, error) {
	if node, ok := r.byTypeName[batchKey(want, name)]; ok {
		return node.id, nil
	}

	id, found, err := r.m.FindNode(ctx, want, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up %s %q: %w", want, name, err)
	}
	if found {
		r.bind(want, name, id)
		return id, nil
	}

	if others := r.byName[strings.ToLower(name)]; len(others) > 0 {
		return uuid.Nil, &schema.ValidationError{
			Reason: schema.ReasonIncompatibleEndpoints,
			Detail: fmt.Sprintf("endpoint %q resolved to a %s node, expected %s", name, others[0].typ, want),
		}
	}

	refs, err := r.m.FindNodesByName(ctx, name)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to look up nodes named %q: %w", name, err)
	}
	if len(refs) > 0 {
		return uuid.Nil, &schema.ValidationError{
			Reason: schema.ReasonIncompatibleEndpoints,
			Detail: fmt.Sprintf("endpoint %q exists as a %s node, expected %s", name, refs[0].Type, want),
		}
	}

	return uuid.Nil, &schema.ResolutionError{
		Name:   name,
		Detail: fmt.Sprintf("no %s entity in batch or store", want),
	}
}
