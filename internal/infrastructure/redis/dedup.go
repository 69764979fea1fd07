package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupKeyPrefix = "webhook:event:"

// DedupCache is a best-effort fast path in front of the durable event
// marker: a hit lets the coordinator skip the database round-trip on
// provider redeliveries. The Postgres unique insert stays the source of
// truth, so cache misses and cache failures are always safe.
type DedupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDedupCache creates a dedup cache with the given entry TTL.
func NewDedupCache(client *redis.Client, ttl time.Duration) *DedupCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DedupCache{client: client, ttl: ttl}
}

// Seen reports whether the event id was already applied. Errors are
// returned so the caller can log them, but must be treated as "not seen".
func (c *DedupCache) Seen(ctx context.Context, eventID string) (bool, error) {
	err := c.client.Get(ctx, dedupKeyPrefix+eventID).Err()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSeen records the event id after its effect was durably applied.
func (c *DedupCache) MarkSeen(ctx context.Context, eventID string) error {
	return c.client.Set(ctx, dedupKeyPrefix+eventID, 1, c.ttl).Err()
}
