package messaging

import (
	"context"

	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/google/uuid"
)

// MessageQueries exposes the read side of the notification audit log.
type MessageQueries struct {
	messageRepo message.Repository
}

// NewMessageQueries creates a new MessageQueries.
func NewMessageQueries(messageRepo message.Repository) *MessageQueries {
	return &MessageQueries{messageRepo: messageRepo}
}

// GetByID retrieves a message by its ID.
func (q *MessageQueries) GetByID(ctx context.Context, id uuid.UUID) (*message.Message, error) {
	return q.messageRepo.GetByID(ctx, id)
}

// ListByStudent lists a student's messages, newest first.
func (q *MessageQueries) ListByStudent(ctx context.Context, studentID uuid.UUID, limit, offset int) ([]*message.Message, error) {
	return q.messageRepo.ListByStudent(ctx, studentID, limit, offset)
}
