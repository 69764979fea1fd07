package reconcile_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/application/reconcile"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/gateway/checkout"
	"github.com/andresrivas/colegio-ledger/internal/testutil"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// memoryCache is an in-process stand-in for the redis dedup fast path.
type memoryCache struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{seen: make(map[string]bool)}
}

func (c *memoryCache) Seen(_ context.Context, eventID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	return c.seen[eventID], nil
}

func (c *memoryCache) MarkSeen(_ context.Context, eventID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.seen[eventID] = true
	return nil
}

func coordinatorFixture() (*reconcile.Coordinator, *testutil.MockPaymentRepository, *testutil.MockEventRecorder) {
	paymentRepo := testutil.NewMockPaymentRepository()
	events := testutil.NewMockEventRecorder()
	tx := &testutil.MockTransactionManager{}
	c := reconcile.NewCoordinator(paymentRepo, events, tx, nil, nil, zerolog.Nop(), nil)
	return c, paymentRepo, events
}

func completedEvent(eventID string, paymentID uuid.UUID) *checkout.Event {
	return &checkout.Event{
		ID:            eventID,
		Kind:          checkout.EventCheckoutCompleted,
		SessionID:     "cs_" + eventID,
		PaymentStatus: "paid",
		PaymentID:     paymentID.String(),
	}
}

func failedEvent(eventID string, paymentID uuid.UUID) *checkout.Event {
	return &checkout.Event{
		ID:        eventID,
		Kind:      checkout.EventPaymentFailed,
		PaymentID: paymentID.String(),
	}
}

func TestApply_CheckoutCompleted_Settles(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_1", p.ID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID, got %s", stored.Status)
	}
	if stored.Method == nil || *stored.Method != payment.MethodStripe {
		t.Error("settlement method not stamped")
	}
	if stored.ExternalReference == nil || *stored.ExternalReference != "cs_evt_1" {
		t.Error("external reference not stamped with session id")
	}
	if stored.SettledAt == nil {
		t.Error("settled_at not stamped")
	}
}

func TestApply_CheckoutCompleted_SettlesOverdue(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	p.Status = payment.StatusOverdue
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_1", p.ID)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID, got %s", stored.Status)
	}
}

// Replaying the same delivery must be an acknowledged no-op: the payment
// keeps its first settlement stamp.
func TestApply_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	evt := completedEvent("evt_dup", p.ID)
	if err := c.Apply(ctx, evt); err != nil {
		t.Fatal(err)
	}
	first, _ := paymentRepo.GetByID(ctx, p.ID)

	if err := c.Apply(ctx, evt); err != nil {
		t.Fatalf("replay must be acknowledged, got %v", err)
	}
	second, _ := paymentRepo.GetByID(ctx, p.ID)

	if *first.SettledAt != *second.SettledAt {
		t.Error("replay must not restamp the settlement time")
	}
}

// Out-of-order: a stale failure arriving after settlement must lose.
func TestApply_FailureAfterSettlement(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_ok", p.ID)); err != nil {
		t.Fatal(err)
	}
	if err := c.Apply(ctx, failedEvent("evt_late_failure", p.ID)); err != nil {
		t.Fatalf("stale failure must be acknowledged, got %v", err)
	}

	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("stale failure overwrote settlement: %s", stored.Status)
	}
}

func TestApply_PaymentFailed_Cancels(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, failedEvent("evt_fail", p.ID)); err != nil {
		t.Fatal(err)
	}
	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", stored.Status)
	}
}

func TestApply_CompletedButUnpaid(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	evt := completedEvent("evt_unpaid", p.ID)
	evt.PaymentStatus = "unpaid"
	if err := c.Apply(ctx, evt); err != nil {
		t.Fatal(err)
	}
	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPending {
		t.Fatalf("unpaid completion must not settle, got %s", stored.Status)
	}
}

func TestApply_UnknownKindAcknowledged(t *testing.T) {
	ctx := context.Background()
	c, _, _ := coordinatorFixture()

	err := c.Apply(ctx, &checkout.Event{ID: "evt_odd", Kind: checkout.EventUnknown})
	if err != nil {
		t.Fatalf("unknown kinds must be acknowledged, got %v", err)
	}
}

func TestApply_MissingPaymentReference(t *testing.T) {
	ctx := context.Background()
	c, _, _ := coordinatorFixture()

	err := c.Apply(ctx, &checkout.Event{
		ID:            "evt_nometa",
		Kind:          checkout.EventCheckoutCompleted,
		PaymentStatus: "paid",
	})
	if err != nil {
		t.Fatalf("event without metadata must be acknowledged, got %v", err)
	}
}

func TestApply_UnknownPaymentIsNoop(t *testing.T) {
	ctx := context.Background()
	c, _, _ := coordinatorFixture()

	if err := c.Apply(ctx, completedEvent("evt_ghost", uuid.New())); err != nil {
		t.Fatalf("event for missing payment must be acknowledged, got %v", err)
	}
}

// A storage failure must propagate so the provider redelivers; the event
// claim must not survive the failed apply.
func TestApply_StorageErrorPropagates(t *testing.T) {
	ctx := context.Background()
	paymentRepo := testutil.NewMockPaymentRepository()
	events := testutil.NewMockEventRecorder()

	storageErr := fmt.Errorf("connection reset")
	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)
	paymentRepo.SettleIfNotTerminalFunc = func(context.Context, uuid.UUID, payment.Method, string, time.Time) (bool, error) {
		return false, storageErr
	}

	// Roll back the event claim when the tx function fails, as Postgres would.
	tx := &testutil.MockTransactionManager{}
	tx.WithTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		if err := fn(ctx); err != nil {
			events.Forget("evt_err")
			return err
		}
		return nil
	}

	cache := newMemoryCache()
	c := reconcile.NewCoordinator(paymentRepo, events, tx, nil, cache, zerolog.Nop(), nil)

	err := c.Apply(ctx, completedEvent("evt_err", p.ID))
	if !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error to propagate, got %v", err)
	}
	if seen, _ := cache.Seen(ctx, "evt_err"); seen {
		t.Error("failed apply must not mark the cache")
	}

	// Redelivery after the fault clears must now succeed.
	paymentRepo.SettleIfNotTerminalFunc = nil
	if err := c.Apply(ctx, completedEvent("evt_err", p.ID)); err != nil {
		t.Fatalf("redelivery after failure must apply, got %v", err)
	}
	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID after redelivery, got %s", stored.Status)
	}
}

func TestApply_CacheShortCircuitsReplay(t *testing.T) {
	ctx := context.Background()
	paymentRepo := testutil.NewMockPaymentRepository()
	events := testutil.NewMockEventRecorder()
	cache := newMemoryCache()
	c := reconcile.NewCoordinator(paymentRepo, events, &testutil.MockTransactionManager{}, nil, cache, zerolog.Nop(), nil)

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_c", p.ID)); err != nil {
		t.Fatal(err)
	}
	if seen, _ := cache.Seen(ctx, "evt_c"); !seen {
		t.Fatal("successful apply must mark the cache")
	}

	// Drop the durable claim; the cache alone must absorb the replay.
	events.Forget("evt_c")
	if err := c.Apply(ctx, completedEvent("evt_c", p.ID)); err != nil {
		t.Fatal(err)
	}
}

func TestApply_CacheFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	paymentRepo := testutil.NewMockPaymentRepository()
	cache := newMemoryCache()
	cache.err = fmt.Errorf("redis down")
	c := reconcile.NewCoordinator(paymentRepo, testutil.NewMockEventRecorder(), &testutil.MockTransactionManager{}, nil, cache, zerolog.Nop(), nil)

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_r", p.ID)); err != nil {
		t.Fatalf("cache failure must not block the apply, got %v", err)
	}
	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID, got %s", stored.Status)
	}
}

// Many instances receiving the same delivery concurrently: the payment is
// settled exactly once.
func TestApply_ConcurrentSameEvent(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 200_00, 6, 2026)
	paymentRepo.Seed(p)

	var g errgroup.Group
	for i := 0; i < 16; i++ {
		g.Go(func() error {
			return c.Apply(ctx, completedEvent("evt_burst", p.ID))
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID, got %s", stored.Status)
	}
}

// Full lifecycle: settle, replay, then a stale failure; the ledger must
// read PAID with the original stamp throughout.
func TestApply_EndToEndOutOfOrderStory(t *testing.T) {
	ctx := context.Background()
	c, paymentRepo, _ := coordinatorFixture()

	p := testutil.NewTestPayment(uuid.New(), 450_00, 8, 2026)
	paymentRepo.Seed(p)

	if err := c.Apply(ctx, completedEvent("evt_story_1", p.ID)); err != nil {
		t.Fatal(err)
	}
	if err := c.Apply(ctx, completedEvent("evt_story_1", p.ID)); err != nil {
		t.Fatal(err)
	}
	if err := c.Apply(ctx, failedEvent("evt_story_2", p.ID)); err != nil {
		t.Fatal(err)
	}

	stored, _ := paymentRepo.GetByID(ctx, p.ID)
	if stored.Status != payment.StatusPaid {
		t.Fatalf("expected PAID at end of story, got %s", stored.Status)
	}
	if stored.ExternalReference == nil || *stored.ExternalReference != "cs_evt_story_1" {
		t.Error("external reference must point at the settling session")
	}
}
