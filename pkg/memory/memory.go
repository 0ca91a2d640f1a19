package memory

import (
	"context"
	"time"

	"github.com/survivornet/beacon/backend/internal/util"
	"github.com/survivornet/beacon/backend/pkg/leaselock"
	"github.com/survivornet/beacon/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is one processed-broadcast memory for the response agents: what
// was reported, where it came from, and how the save went. Summary and
// media URI are pulled from the broadcast row at insert time.
type Entry struct {
	BroadcastID           uuid.UUID
	EntitiesCreated       int
	EntitiesFoundExisting int
	RelationshipsCreated  int
}

// Syncer persists processed-broadcast memories in the background. The
// pipeline enqueues without blocking; when the buffer is full, entries
// are dropped, since memories are derived data and the graph remains the
// source of truth.
type Syncer struct {
	pool    *pgxpool.Pool
	locks   *leaselock.Client
	entries chan Entry
}

const syncLeaseKey = "memory-sync"

// NewSyncer creates a syncer with the given buffer size.
func NewSyncer(pool *pgxpool.Pool, buffer int) *Syncer {
	if buffer <= 0 {
		buffer = 256
	}
	return &Syncer{
		pool:    pool,
		locks:   leaselock.New(pool),
		entries: make(chan Entry, buffer),
	}
}

// Enqueue hands an entry to the background loop. It never blocks.
func (s *Syncer) Enqueue(entry Entry) {
	select {
	case s.entries <- entry:
	default:
		logger.Warn("memory buffer full, dropping entry", "broadcast_id", entry.BroadcastID)
	}
}

// Run drains the buffer until ctx is canceled. Writes happen under a
// shared lease so multiple workers do not insert concurrently.
func (s *Syncer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-s.entries:
			s.persist(ctx, entry)
		}
	}
}

func (s *Syncer) persist(ctx context.Context, entry Entry) {
	err := s.locks.WithLease(ctx, syncLeaseKey, leaselock.Options{
		TTL:  time.Minute,
		Wait: true,
	}, func(ctx context.Context) error {
		return util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
			_, err := s.pool.Exec(ctx,
				`INSERT INTO memories (broadcast_id, media_uri, summary, entities_created, entities_found_existing, relationships_created)
				 SELECT b.id, b.media_uri, b.summary, $2, $3, $4
				 FROM broadcasts b WHERE b.id = $1
				 ON CONFLICT (broadcast_id) DO NOTHING`,
				entry.BroadcastID,
				entry.EntitiesCreated, entry.EntitiesFoundExisting, entry.RelationshipsCreated,
			)
			return err
		})
	})
	if err != nil {
		logger.Error("failed to persist memory", "broadcast_id", entry.BroadcastID, "err", err)
	}
}
