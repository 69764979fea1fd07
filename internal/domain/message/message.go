package message

import (
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/google/uuid"
)

// Channel represents the delivery channel of a notification
type Channel string

const (
	ChannelSMS      Channel = "SMS"
	ChannelWhatsApp Channel = "WHATSAPP"
	ChannelEmail    Channel = "EMAIL"
)

// Valid reports whether the channel is one the data model knows about.
func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail:
		return true
	}
	return false
}

// Status represents the delivery status of a message
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

// Message is one attempted outbound notification to a student's parent.
// Rows are append-only audit history: a failed send is never mutated into
// a retry, the caller issues a new message instead.
type Message struct {
	ID        uuid.UUID
	StudentID uuid.UUID
	ParentID  uuid.UUID
	Channel   Channel
	Content   string
	Status    Status
	CreatedAt time.Time
	SentAt    *time.Time
}

// NewMessage creates a pending message addressed to the parent linked to
// the student. The parent id is resolved by the caller through the student
// record, never taken from user input.
func NewMessage(studentID, parentID uuid.UUID, channel Channel, content string) (*Message, error) {
	if !channel.Valid() {
		return nil, errors.NewValidationError("channel", "unknown channel "+string(channel))
	}
	if content == "" {
		return nil, errors.NewValidationError("content", "cannot be empty")
	}

	return &Message{
		ID:        uuid.New(),
		StudentID: studentID,
		ParentID:  parentID,
		Channel:   channel,
		Content:   content,
		Status:    StatusPending,
		CreatedAt: time.Now(),
	}, nil
}

// MarkSent records a successful delivery.
func (m *Message) MarkSent(at time.Time) {
	m.Status = StatusSent
	m.SentAt = &at
}

// MarkFailed records a failed delivery attempt.
func (m *Message) MarkFailed() {
	m.Status = StatusFailed
}
