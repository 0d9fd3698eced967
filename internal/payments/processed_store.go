package payments

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ProcessedStore records webhook events that were already handled, keyed by
// provider + event id.
type ProcessedStore struct {
	db execer
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("payments: pgx pool required")
	}
	return &ProcessedStore{db: pool}
}

func NewProcessedStoreWithExec(exec execer) *ProcessedStore {
	if exec == nil {
		panic("payments: exec required")
	}
	return &ProcessedStore{db: exec}
}

// MarkProcessed inserts the event id, returning false when it was already
// present. Insert-first keeps the check-and-set atomic.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	query := `
		INSERT INTO processed_events (provider, event_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("payments: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}
