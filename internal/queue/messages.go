package queue

// BroadcastJobMsg is the payload published per uploaded media item. The
// worker extracts the media and persists the resulting graph mutation.
type BroadcastJobMsg struct {
	MediaURI      string `json:"media_uri"`
	MediaType     string `json:"media_type"`
	CorrelationID string `json:"correlation_id"`
	// SurvivorHint optionally names the survivor who sent the broadcast.
	SurvivorHint string `json:"survivor_hint,omitempty"`
}
