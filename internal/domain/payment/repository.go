package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter holds the optional filters for listing payments.
type ListFilter struct {
	StudentID *uuid.UUID
	Status    *Status
	Month     *int
	Year      *int
	Limit     int
	Offset    int
	SortBy    string
	SortOrder string
}

// Repository defines payment persistence. Creation relies on a
// unique-constraint-enforced insert (at most one non-cancelled payment per
// student and period); all lifecycle transitions after creation go through
// the conditional updates, which no-op when the row left the expected
// state. That compare-and-swap is the only cross-instance coordination.
type Repository interface {
	// Create inserts a new payment. Returns ErrDuplicatePeriod when a
	// non-cancelled payment already exists for (student, month, year).
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)
	List(ctx context.Context, f ListFilter) ([]*Payment, error)

	// SettleIfNotTerminal marks the payment PAID and stamps method,
	// external reference and settle time, but only while the current
	// status is PENDING or OVERDUE. Returns false (no error) when the
	// precondition failed or the payment does not exist.
	SettleIfNotTerminal(ctx context.Context, id uuid.UUID, method Method, externalReference string, settledAt time.Time) (bool, error)

	// CancelIfNotTerminal marks the payment CANCELLED under the same
	// precondition as SettleIfNotTerminal.
	CancelIfNotTerminal(ctx context.Context, id uuid.UUID) (bool, error)
}
