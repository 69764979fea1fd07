package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository is the durable deduplication marker for provider webhook
// events. Only the external event id and the time it was first seen are
// retained.
type EventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(pool *pgxpool.Pool) *EventRepository {
	return &EventRepository{pool: pool}
}

func (r *EventRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Record claims the event id. Returns true when this call was the first to
// see it; false when an earlier delivery already claimed it. Run inside
// the same transaction as the event's ledger effect, the insert and the
// effect commit or roll back together.
func (r *EventRepository) Record(ctx context.Context, eventID string) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`INSERT INTO provider_events (event_id, seen_at)
		 VALUES ($1, $2)
		 ON CONFLICT (event_id) DO NOTHING`,
		eventID, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("record provider event: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
