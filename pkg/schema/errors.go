package schema

// Reason codes reported in SaveStats error descriptors. Downstream
// summarization reads these by value, so they must stay stable.
const (
	ReasonEmptyName               = "empty_name"
	ReasonUnknownEntityType       = "unknown_entity_type"
	ReasonUnknownRelationshipType = "unknown_relationship_type"
	ReasonInvalidConfidence       = "invalid_confidence"
	ReasonIncompatibleEndpoints   = "incompatible_endpoints"
	ReasonUnresolvedEndpoint      = "unresolved_endpoint"
	ReasonTransactionFailed       = "transaction_failed"
	ReasonExtractionFailed        = "extraction_failed"
)

// ValidationError describes a malformed entity or relationship. It is
// recovered locally: the offending item is skipped and recorded, and the
// rest of the batch continues.
type ValidationError struct {
	Reason string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return e.Reason + ": " + e.Detail
}

// ResolutionError describes a relationship endpoint that could not be
// resolved to any entity, neither in the batch nor in the store. Like
// ValidationError it is a per-item failure, not a batch failure.
type ResolutionError struct {
	Name   string
	Detail string
}

func (e *ResolutionError) Error() string {
	if e.Detail == "" {
		return "unresolved endpoint " + e.Name
	}
	return "unresolved endpoint " + e.Name + ": " + e.Detail
}
