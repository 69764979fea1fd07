package reconcile

import (
	"context"
)

// EventRecorder is the durable first-delivery claim for provider events.
type EventRecorder interface {
	// Record returns true when eventID has never been seen before.
	Record(ctx context.Context, eventID string) (bool, error)
}

// TransactionManager runs fn with a transaction bound to the context, so
// repository calls made inside fn share one commit.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// DedupCache is an optional fast-path replay filter in front of the
// durable event table. Both methods are best effort: a cache miss or
// cache failure only costs a database round trip.
type DedupCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string) error
}
