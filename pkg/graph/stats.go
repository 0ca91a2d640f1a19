package graph

import (
	"github.com/google/uuid"
)

// Item kinds used in error descriptors.
const (
	ItemKindEntity       = "entity"
	ItemKindRelationship = "relationship"
	ItemKindBatch        = "batch"
)

// ErrorDescriptor records one skipped item (or the batch-level failure)
// with enough context for the caller to explain the discrepancy.
type ErrorDescriptor struct {
	ItemIndex int    `json:"item_index"`
	ItemKind  string `json:"item_kind"`
	Reason    string `json:"reason"`
	Detail    string `json:"detail,omitempty"`
}

// SaveStats is the sole contract returned to whatever orchestrates media
// processing. Field names are read by key downstream and must not change.
type SaveStats struct {
	EntitiesCreated       int               `json:"entities_created"`
	EntitiesFoundExisting int               `json:"entities_found_existing"`
	RelationshipsCreated  int               `json:"relationships_created"`
	BroadcastID           uuid.UUID         `json:"broadcast_id"`
	Errors                []ErrorDescriptor `json:"errors"`
}

func newSaveStats() *SaveStats {
	return &SaveStats{
		Errors: []ErrorDescriptor{},
	}
}

func (s *SaveStats) addError(index int, kind, reason, detail string) {
	s.Errors = append(s.Errors, ErrorDescriptor{
		ItemIndex: index,
		ItemKind:  kind,
		Reason:    reason,
		Detail:    detail,
	})
}
