package reconcile

import (
	"context"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/gateway/checkout"
	"github.com/andresrivas/colegio-ledger/internal/infrastructure/observability"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Coordinator applies verified provider events to the dues ledger.
//
// It holds no state of its own and takes no in-process locks: dedup and
// terminal-state protection live in the database as a unique insert and a
// conditional update inside one transaction, so any number of instances
// can receive the same delivery concurrently and at most one applies it.
type Coordinator struct {
	payments payment.Repository
	events   EventRecorder
	tx       TransactionManager
	verifier checkout.WebhookVerifier
	cache    DedupCache
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// NewCoordinator creates a new Coordinator. cache may be nil; the durable
// event table alone is enough for correctness.
func NewCoordinator(
	payments payment.Repository,
	events EventRecorder,
	tx TransactionManager,
	verifier checkout.WebhookVerifier,
	cache DedupCache,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Coordinator {
	return &Coordinator{
		payments: payments,
		events:   events,
		tx:       tx,
		verifier: verifier,
		cache:    cache,
		logger:   logger,
		metrics:  metrics,
	}
}

// VerifyAndParse authenticates a raw webhook delivery and parses it into
// an event. Deliveries that fail here must be rejected without touching
// the ledger.
func (c *Coordinator) VerifyAndParse(rawBody []byte, signatureHeader string) (*checkout.Event, error) {
	return c.verifier.VerifyAndParse(rawBody, signatureHeader)
}

// Apply reconciles one verified event with the ledger. It is idempotent:
// replays and out-of-order deliveries degrade to acknowledged no-ops. An
// error return means the event was NOT durably applied and the provider
// should redeliver.
func (c *Coordinator) Apply(ctx context.Context, evt *checkout.Event) error {
	start := time.Now()
	log := c.logger.With().
		Str("event_id", evt.ID).
		Str("event_kind", string(evt.Kind)).
		Logger()

	if c.cacheSeen(ctx, evt.ID) {
		log.Debug().Msg("event replay short-circuited by cache")
		c.observe(evt.Kind, "duplicate", start)
		return nil
	}

	outcome := "applied"
	err := c.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		fresh, err := c.events.Record(txCtx, evt.ID)
		if err != nil {
			return err
		}
		if !fresh {
			outcome = "duplicate"
			log.Debug().Msg("event already recorded, acknowledging replay")
			return nil
		}

		switch evt.Kind {
		case checkout.EventCheckoutCompleted:
			return c.applyCompleted(txCtx, log, evt, &outcome)
		case checkout.EventPaymentFailed:
			return c.applyFailed(txCtx, log, evt, &outcome)
		default:
			outcome = "ignored"
			log.Info().Msg("unrecognized event kind acknowledged unprocessed")
			return nil
		}
	})
	if err != nil {
		c.observe(evt.Kind, "error", start)
		return err
	}

	c.cacheMark(ctx, evt.ID)
	c.observe(evt.Kind, outcome, start)
	return nil
}

// applyCompleted settles the payment referenced by the session metadata.
// Completion events whose provider-side status is not "paid" are recorded
// but change nothing; the provider sends a separate event once the money
// actually moves.
func (c *Coordinator) applyCompleted(ctx context.Context, log zerolog.Logger, evt *checkout.Event, outcome *string) error {
	if evt.PaymentStatus != "paid" {
		*outcome = "ignored"
		log.Info().Str("payment_status", evt.PaymentStatus).Msg("checkout completed without settled funds, nothing to apply")
		return nil
	}

	paymentID, ok := c.paymentRef(log, evt, outcome)
	if !ok {
		return nil
	}

	updated, err := c.payments.SettleIfNotTerminal(ctx, paymentID, payment.MethodStripe, evt.SessionID, time.Now())
	if err != nil {
		return err
	}
	if !updated {
		*outcome = "noop"
		log.Info().Str("payment_id", paymentID.String()).Msg("settlement skipped, payment missing or already terminal")
		return nil
	}
	log.Info().Str("payment_id", paymentID.String()).Str("session_id", evt.SessionID).Msg("payment settled")
	return nil
}

// applyFailed cancels the referenced payment unless it already reached a
// terminal state. A failure arriving after a successful settlement of the
// same payment is the classic out-of-order delivery and must lose.
func (c *Coordinator) applyFailed(ctx context.Context, log zerolog.Logger, evt *checkout.Event, outcome *string) error {
	paymentID, ok := c.paymentRef(log, evt, outcome)
	if !ok {
		return nil
	}

	updated, err := c.payments.CancelIfNotTerminal(ctx, paymentID)
	if err != nil {
		return err
	}
	if !updated {
		*outcome = "noop"
		log.Info().Str("payment_id", paymentID.String()).Msg("cancellation skipped, payment missing or already terminal")
		return nil
	}
	log.Info().Str("payment_id", paymentID.String()).Msg("payment cancelled after provider failure")
	return nil
}

// paymentRef extracts the ledger payment id from the event metadata.
// Events without a usable reference are acknowledged, they can never
// become applicable on redelivery.
func (c *Coordinator) paymentRef(log zerolog.Logger, evt *checkout.Event, outcome *string) (uuid.UUID, bool) {
	if evt.PaymentID == "" {
		*outcome = "ignored"
		log.Warn().Msg("event carries no payment reference, acknowledging")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(evt.PaymentID)
	if err != nil {
		*outcome = "ignored"
		log.Warn().Str("payment_ref", evt.PaymentID).Msg("event carries malformed payment reference, acknowledging")
		return uuid.Nil, false
	}
	return id, true
}

func (c *Coordinator) cacheSeen(ctx context.Context, eventID string) bool {
	if c.cache == nil {
		return false
	}
	seen, err := c.cache.Seen(ctx, eventID)
	if err != nil {
		c.logger.Debug().Err(err).Msg("dedup cache read failed, falling through to database")
		return false
	}
	return seen
}

// cacheMark runs only after the transaction committed. Marking earlier
// would let a failed apply shadow its own redelivery.
func (c *Coordinator) cacheMark(ctx context.Context, eventID string) {
	if c.cache == nil {
		return
	}
	if err := c.cache.MarkSeen(ctx, eventID); err != nil {
		c.logger.Debug().Err(err).Msg("dedup cache write failed")
	}
}

func (c *Coordinator) observe(kind checkout.EventKind, outcome string, start time.Time) {
	if c.metrics == nil {
		return
	}
	c.metrics.WebhookEvents.WithLabelValues(string(kind), outcome).Inc()
	c.metrics.ReconciliationDuration.Observe(time.Since(start).Seconds())
}
