package dues

import (
	"context"

	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/google/uuid"
)

// CreatePaymentRequest holds the input for creating a payment.
type CreatePaymentRequest struct {
	StudentID   uuid.UUID
	AmountCents int64
	Month       int
	Year        int
}

// CreatePaymentUseCase creates monthly tuition obligations.
type CreatePaymentUseCase struct {
	paymentRepo payment.Repository
	studentRepo student.Repository
}

// NewCreatePaymentUseCase creates a new CreatePaymentUseCase.
func NewCreatePaymentUseCase(
	paymentRepo payment.Repository,
	studentRepo student.Repository,
) *CreatePaymentUseCase {
	return &CreatePaymentUseCase{
		paymentRepo: paymentRepo,
		studentRepo: studentRepo,
	}
}

// Execute creates a pending payment for the student and period. The
// duplicate-period rule is not checked here: the insert itself enforces
// it, so two concurrent requests for the same period cannot both succeed.
func (uc *CreatePaymentUseCase) Execute(ctx context.Context, req CreatePaymentRequest) (*payment.Payment, error) {
	p, err := payment.NewPayment(req.StudentID, req.AmountCents, req.Month, req.Year)
	if err != nil {
		return nil, err
	}

	if _, err := uc.studentRepo.GetByID(ctx, req.StudentID); err != nil {
		return nil, err
	}

	if err := uc.paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
