package dues

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/identity"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/andresrivas/colegio-ledger/internal/gateway/checkout"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
)

// CheckoutConfig holds the per-deployment checkout session settings.
type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
	Timeout    time.Duration
}

// CreateCheckoutUseCase opens hosted checkout sessions for pending
// payments. The call is read-only with respect to the ledger: payment
// status only ever changes through webhook reconciliation.
type CreateCheckoutUseCase struct {
	paymentRepo payment.Repository
	studentRepo student.Repository
	gateway     checkout.Gateway
	breaker     *gobreaker.CircuitBreaker[*checkout.Session]
	cfg         CheckoutConfig
}

// NewCreateCheckoutUseCase creates a new CreateCheckoutUseCase.
func NewCreateCheckoutUseCase(
	paymentRepo payment.Repository,
	studentRepo student.Repository,
	gateway checkout.Gateway,
	cfg CheckoutConfig,
) *CreateCheckoutUseCase {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*checkout.Session](gobreaker.Settings{
		Name:        gateway.Name(),
		MaxRequests: 10,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
	return &CreateCheckoutUseCase{
		paymentRepo: paymentRepo,
		studentRepo: studentRepo,
		gateway:     gateway,
		breaker:     breaker,
		cfg:         cfg,
	}
}

// Execute authorizes the caller against the payment's owning student and
// opens a checkout session carrying the payment id as opaque metadata.
func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, caller identity.Caller, paymentID uuid.UUID) (string, error) {
	p, err := uc.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return "", err
	}

	if err := uc.authorize(ctx, caller, p); err != nil {
		return "", err
	}

	if p.IsTerminal() {
		return "", domainErrors.ErrAlreadySettled
	}

	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	sess, err := uc.breaker.Execute(func() (*checkout.Session, error) {
		return uc.gateway.CreateSession(callCtx, checkout.SessionRequest{
			AmountCents: p.AmountCents,
			Currency:    uc.cfg.Currency,
			Description: fmt.Sprintf("Tuition %02d/%d", p.Month, p.Year),
			Metadata: map[string]string{
				"payment_id": p.ID.String(),
				"student_id": p.StudentID.String(),
			},
			SuccessURL: uc.cfg.SuccessURL,
			CancelURL:  uc.cfg.CancelURL,
		})
	})
	if err != nil {
		return "", mapGatewayError(err)
	}
	return sess.RedirectURL, nil
}

// authorize admits administrators, the owning student and the student's
// guardian. Ownership checks go through named repository queries.
func (uc *CreateCheckoutUseCase) authorize(ctx context.Context, caller identity.Caller, p *payment.Payment) error {
	switch caller.Role {
	case identity.RoleAdmin:
		return nil
	case identity.RoleStudent:
		st, err := uc.studentRepo.GetByID(ctx, p.StudentID)
		if err != nil {
			return err
		}
		if st.UserID != caller.UserID {
			return domainErrors.ErrForbidden
		}
		return nil
	case identity.RoleParent:
		linked, err := uc.studentRepo.IsParentOf(ctx, caller.UserID, p.StudentID)
		if err != nil {
			return err
		}
		if !linked {
			return domainErrors.ErrForbidden
		}
		return nil
	default:
		return domainErrors.ErrForbidden
	}
}

// mapGatewayError folds transport failures into the two caller-visible
// gateway errors. Timeouts are retryable: nothing was written to the
// ledger before or after the provider call.
func mapGatewayError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("checkout session: %w", domainErrors.ErrGatewayTimeout)
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("checkout session: %w", domainErrors.ErrGatewayFailure)
	case errors.Is(err, domainErrors.ErrGatewayFailure), errors.Is(err, domainErrors.ErrGatewayTimeout):
		return err
	default:
		return fmt.Errorf("checkout session: %v: %w", err, domainErrors.ErrGatewayFailure)
	}
}
