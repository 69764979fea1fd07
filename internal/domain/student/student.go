package student

import (
	"time"

	"github.com/google/uuid"
)

// Student is a read-only projection of the enrollment record. The ledger
// and dispatcher never mutate students; they only resolve ownership and
// delivery targets through them.
type Student struct {
	ID        uuid.UUID
	UserID    string
	FullName  string
	ParentID  *uuid.UUID
	CreatedAt time.Time
}

// Parent is the guardian linked to one or more students. The phone number
// is the delivery target for SMS/WhatsApp notifications.
type Parent struct {
	ID        uuid.UUID
	UserID    string
	FullName  string
	Phone     string
	CreatedAt time.Time
}
