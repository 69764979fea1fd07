package message

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines message persistence. Status updates are conditional
// on the transient PENDING state so a crashed-and-replayed dispatch cannot
// overwrite a recorded outcome.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Message, error)
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*Message, error)

	// MarkSentIfPending stamps SENT and sentAt while the message is still
	// PENDING. Returns false when the precondition failed.
	MarkSentIfPending(ctx context.Context, id uuid.UUID, sentAt time.Time) (bool, error)

	// MarkFailedIfPending stamps FAILED while the message is still PENDING.
	MarkFailedIfPending(ctx context.Context, id uuid.UUID) (bool, error)
}
