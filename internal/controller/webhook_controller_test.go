package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresrivas/colegio-ledger/internal/application/reconcile"
	"github.com/andresrivas/colegio-ledger/internal/domain/payment"
	"github.com/andresrivas/colegio-ledger/internal/gateway/checkout"
	"github.com/andresrivas/colegio-ledger/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const webhookTestSecret = "whsec_handler_test"

func signedWebhookRequest(t *testing.T, body []byte) *http.Request {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(webhookTestSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-provider", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature",
		fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil))))
	return req
}

func webhookFixture(t *testing.T) (*WebhookController, *testutil.MockPaymentRepository) {
	t.Helper()
	paymentRepo := testutil.NewMockPaymentRepository()
	verifier := checkout.NewStripeGateway("sk_test", webhookTestSecret)
	coordinator := reconcile.NewCoordinator(
		paymentRepo,
		testutil.NewMockEventRecorder(),
		&testutil.MockTransactionManager{},
		verifier,
		nil,
		zerolog.Nop(),
		nil,
	)
	return NewWebhookController(coordinator), paymentRepo
}

func completedEventBody(t *testing.T, eventID, sessionID, paymentID string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_status": "paid",
				"metadata":       map[string]string{"payment_id": paymentID},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestHandleWebhook_SettlesPayment(t *testing.T) {
	h, paymentRepo := webhookFixture(t)

	p := testutil.NewTestPayment(testutil.NewTestStudent("u1", nil).ID, 100_00, 2, 2026)
	paymentRepo.Seed(p)

	body := completedEventBody(t, "evt_h1", "cs_h1", p.ID.String())
	w := httptest.NewRecorder()
	h.HandlePaymentProvider(w, signedWebhookRequest(t, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())

	stored, err := paymentRepo.GetByID(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, stored.Status)
}

func TestHandleWebhook_InvalidSignature(t *testing.T) {
	h, paymentRepo := webhookFixture(t)

	p := testutil.NewTestPayment(testutil.NewTestStudent("u1", nil).ID, 100_00, 2, 2026)
	paymentRepo.Seed(p)

	body := completedEventBody(t, "evt_h2", "cs_h2", p.ID.String())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-provider", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	w := httptest.NewRecorder()
	h.HandlePaymentProvider(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	stored, err := paymentRepo.GetByID(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, stored.Status, "rejected delivery must not touch the ledger")
}

func TestHandleWebhook_MissingSignatureHeader(t *testing.T) {
	h, _ := webhookFixture(t)

	body := completedEventBody(t, "evt_h3", "cs_h3", "")
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment-provider", bytes.NewReader(body))

	w := httptest.NewRecorder()
	h.HandlePaymentProvider(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebhook_ReplayAcknowledged(t *testing.T) {
	h, paymentRepo := webhookFixture(t)

	p := testutil.NewTestPayment(testutil.NewTestStudent("u1", nil).ID, 100_00, 2, 2026)
	paymentRepo.Seed(p)

	body := completedEventBody(t, "evt_h4", "cs_h4", p.ID.String())
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.HandlePaymentProvider(w, signedWebhookRequest(t, body))
		assert.Equal(t, http.StatusOK, w.Code, "delivery %d", i+1)
	}

	stored, err := paymentRepo.GetByID(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPaid, stored.Status)
}

func TestHandleWebhook_UnknownEventAcknowledged(t *testing.T) {
	h, _ := webhookFixture(t)

	body, err := json.Marshal(map[string]any{
		"id":   "evt_h5",
		"type": "invoice.created",
		"data": map[string]any{"object": map[string]any{"id": "in_1"}},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.HandlePaymentProvider(w, signedWebhookRequest(t, body))
	assert.Equal(t, http.StatusOK, w.Code)
}
