package dues

import (
	"context"

	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/google/uuid"
)

// PaymentQueries exposes the read side of the dues ledger.
type PaymentQueries struct {
	paymentRepo payment.Repository
}

// NewPaymentQueries creates a new PaymentQueries.
func NewPaymentQueries(paymentRepo payment.Repository) *PaymentQueries {
	return &PaymentQueries{paymentRepo: paymentRepo}
}

// GetByID retrieves a payment by its ID.
func (q *PaymentQueries) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	return q.paymentRepo.GetByID(ctx, id)
}

// List lists payments matching the filter.
func (q *PaymentQueries) List(ctx context.Context, f payment.ListFilter) ([]*payment.Payment, error) {
	return q.paymentRepo.List(ctx, f)
}
