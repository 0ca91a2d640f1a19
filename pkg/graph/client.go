package graph

import (
	"time"

	"github.com/survivornet/beacon/backend/pkg/ai"
	"github.com/survivornet/beacon/backend/pkg/store"
)

// NewClientParams holds the dependencies and tuning knobs for a Client.
type NewClientParams struct {
	Store store.GraphStore
	// AI is used to embed broadcast summaries and is optional; without it
	// broadcasts are stored without an embedding.
	AI ai.GraphAIClient
	// MaxRetries bounds how often a conflicted save transaction is rerun.
	MaxRetries int
	// Parallel bounds how many media items ProcessBacklog works on at once.
	Parallel int
	// TxTimeout bounds a single save transaction attempt.
	TxTimeout time.Duration
}

// Client turns extraction results into committed graph mutations.
type Client struct {
	store      store.GraphStore
	ai         ai.GraphAIClient
	maxRetries int
	parallel   int
	txTimeout  time.Duration
}

// NewClient creates a graph client. Zero values in params fall back to
// defaults suitable for a single worker process.
func NewClient(params NewClientParams) *Client {
	if params.MaxRetries <= 0 {
		params.MaxRetries = 3
	}
	if params.Parallel <= 0 {
		params.Parallel = 4
	}
	if params.TxTimeout <= 0 {
		params.TxTimeout = 30 * time.Second
	}

	return &Client{
		store:      params.Store,
		ai:         params.AI,
		maxRetries: params.MaxRetries,
		parallel:   params.Parallel,
		txTimeout:  params.TxTimeout,
	}
}
