package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/andresrivas/colegio-ledger/internal/domain/student"
	"github.com/andresrivas/colegio-ledger/internal/gateway/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// SendRequest holds the input for dispatching a parent notification.
type SendRequest struct {
	StudentID uuid.UUID
	Channel   message.Channel
	Content   string
}

// CreateAndSendUseCase persists a message record and attempts delivery
// through the notification gateway. The audit row is written before the
// provider call, so a crash mid-send leaves a PENDING row rather than a
// silent loss.
type CreateAndSendUseCase struct {
	messageRepo message.Repository
	studentRepo student.Repository
	gateway     notify.Gateway
	breaker     *gobreaker.CircuitBreaker[*notify.Result]
	sendTimeout time.Duration
	logger      zerolog.Logger
}

// NewCreateAndSendUseCase creates a new CreateAndSendUseCase.
func NewCreateAndSendUseCase(
	messageRepo message.Repository,
	studentRepo student.Repository,
	gateway notify.Gateway,
	sendTimeout time.Duration,
	logger zerolog.Logger,
) *CreateAndSendUseCase {
	if sendTimeout <= 0 {
		sendTimeout = 15 * time.Second
	}
	breaker := gobreaker.NewCircuitBreaker[*notify.Result](gobreaker.Settings{
		Name:        gateway.Name(),
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 10 && failureRatio >= 0.6
		},
	})
	return &CreateAndSendUseCase{
		messageRepo: messageRepo,
		studentRepo: studentRepo,
		gateway:     gateway,
		breaker:     breaker,
		sendTimeout: sendTimeout,
		logger:      logger,
	}
}

// Execute resolves the student's parent, records the message and tries to
// deliver it once. Delivery failures are not errors to the caller: the
// message comes back FAILED and the row stays as audit history.
func (uc *CreateAndSendUseCase) Execute(ctx context.Context, req SendRequest) (*message.Message, error) {
	if !uc.gateway.Supports(req.Channel) {
		if !req.Channel.Valid() {
			return nil, domainErrors.NewValidationError("channel", "unknown channel "+string(req.Channel))
		}
		return nil, fmt.Errorf("channel %s: %w", req.Channel, domainErrors.ErrUnsupportedChannel)
	}

	st, parent, err := uc.studentRepo.GetWithParent(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}

	m, err := message.NewMessage(st.ID, parent.ID, req.Channel, req.Content)
	if err != nil {
		return nil, err
	}
	if err := uc.messageRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	sendCtx, cancel := context.WithTimeout(ctx, uc.sendTimeout)
	defer cancel()

	result, err := uc.breaker.Execute(func() (*notify.Result, error) {
		return uc.gateway.Send(sendCtx, req.Channel, parent.Phone, req.Content)
	})
	if err != nil || !result.Success {
		uc.failMessage(ctx, m, result, err)
		return m, nil
	}

	sentAt := time.Now()
	updated, err := uc.messageRepo.MarkSentIfPending(ctx, m.ID, sentAt)
	if err != nil {
		return nil, err
	}
	if updated {
		m.MarkSent(sentAt)
	}
	uc.logger.Info().
		Str("message_id", m.ID.String()).
		Str("channel", string(req.Channel)).
		Str("provider_message_id", result.ProviderMessageID).
		Msg("message delivered")
	return m, nil
}

// failMessage stamps the row FAILED. The stamp uses the parent context so a
// send timeout does not also cancel the status write; if even that context
// is gone the row stays PENDING and the failure is only logged.
func (uc *CreateAndSendUseCase) failMessage(ctx context.Context, m *message.Message, result *notify.Result, sendErr error) {
	evt := uc.logger.Warn().Str("message_id", m.ID.String()).Str("channel", string(m.Channel))
	switch {
	case sendErr != nil && errors.Is(sendErr, context.DeadlineExceeded):
		evt = evt.Str("reason", "provider timeout")
	case sendErr != nil:
		evt = evt.Err(sendErr)
	case result != nil:
		evt = evt.Str("reason", result.ErrorMessage)
	}
	evt.Msg("message delivery failed")

	if updated, err := uc.messageRepo.MarkFailedIfPending(ctx, m.ID); err != nil {
		uc.logger.Error().Err(err).Str("message_id", m.ID.String()).Msg("could not record delivery failure")
	} else if updated {
		m.MarkFailed()
	}
}
