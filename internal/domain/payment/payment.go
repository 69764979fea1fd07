package payment

import (
	"fmt"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/google/uuid"
)

// Status represents the payment status in the state machine
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

// Method represents how a payment was settled
type Method string

const (
	MethodStripe Method = "STRIPE"
)

// Payment represents one monthly tuition obligation for a student.
// Status is the only mutable lifecycle field; method, external reference
// and settledAt are stamped once, when reconciliation settles the payment.
type Payment struct {
	ID                uuid.UUID
	StudentID         uuid.UUID
	AmountCents       int64
	Month             int
	Year              int
	Status            Status
	Method            *Method
	ExternalReference *string
	CreatedAt         time.Time
	SettledAt         *time.Time
}

// Amount returns a human-readable representation of the amount.
func (p *Payment) Amount() string {
	whole := p.AmountCents / 100
	frac := p.AmountCents % 100
	if frac < 0 {
		frac = -frac
	}
	return fmt.Sprintf("%d.%02d", whole, frac)
}

// NewPayment creates a new pending payment for a (student, month, year) period.
func NewPayment(studentID uuid.UUID, amountCents int64, month, year int) (*Payment, error) {
	if amountCents <= 0 {
		return nil, errors.ErrInvalidAmount
	}
	if month < 1 || month > 12 {
		return nil, errors.NewValidationError("month", "must be between 1 and 12")
	}
	if year < 2000 {
		return nil, errors.NewValidationError("year", "must be 2000 or later")
	}

	return &Payment{
		ID:          uuid.New(),
		StudentID:   studentID,
		AmountCents: amountCents,
		Month:       month,
		Year:        year,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}, nil
}

// CanTransitionTo checks if the payment can transition to the given status
func (p *Payment) CanTransitionTo(newStatus Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {
			StatusPaid,
			StatusOverdue,
			StatusCancelled,
		},
		StatusOverdue: {
			StatusPaid,
			StatusCancelled,
		},
		StatusPaid:      {}, // Terminal state
		StatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[p.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

// TransitionTo transitions the payment to a new status
func (p *Payment) TransitionTo(newStatus Status) error {
	if !p.CanTransitionTo(newStatus) {
		return errors.NewDomainError(
			"invalid_transition",
			"cannot transition from "+string(p.Status)+" to "+string(newStatus),
			errors.ErrInvalidStateTransition,
		)
	}
	p.Status = newStatus
	return nil
}

// MarkPaid settles the payment, stamping method, provider reference and settle time.
func (p *Payment) MarkPaid(method Method, externalReference string, settledAt time.Time) error {
	if err := p.TransitionTo(StatusPaid); err != nil {
		return err
	}
	p.Method = &method
	p.ExternalReference = &externalReference
	p.SettledAt = &settledAt
	return nil
}

// MarkCancelled transitions the payment to cancelled status
func (p *Payment) MarkCancelled() error {
	return p.TransitionTo(StatusCancelled)
}

// MarkOverdue flags a pending payment that passed its due period.
func (p *Payment) MarkOverdue() error {
	return p.TransitionTo(StatusOverdue)
}

// IsTerminal checks if the payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusPaid || p.Status == StatusCancelled
}
