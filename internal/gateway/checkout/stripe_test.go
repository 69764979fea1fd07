package checkout

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func signPayload(t *testing.T, secret string, ts int64, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func completedPayload(eventID, sessionID, paymentStatus, paymentID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"id":   eventID,
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":             sessionID,
				"payment_status": paymentStatus,
				"metadata":       map[string]string{"payment_id": paymentID},
			},
		},
	})
	return body
}

func fixedClockGateway(at time.Time) *StripeGateway {
	return NewStripeGateway("sk_test", testWebhookSecret, WithClock(func() time.Time { return at }))
}

func TestVerifyAndParse_ValidCompleted(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_1", "cs_live_1", "paid", "11111111-1111-1111-1111-111111111111")
	header := signPayload(t, testWebhookSecret, now.Unix(), body)

	ev, err := g.VerifyAndParse(body, header)
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Kind)
	assert.Equal(t, "cs_live_1", ev.SessionID)
	assert.Equal(t, "paid", ev.PaymentStatus)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", ev.PaymentID)
}

func TestVerifyAndParse_PaymentFailedKind(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body, _ := json.Marshal(map[string]any{
		"id":   "evt_2",
		"type": "payment_intent.payment_failed",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "pi_1",
				"metadata": map[string]string{"payment_id": "22222222-2222-2222-2222-222222222222"},
			},
		},
	})
	header := signPayload(t, testWebhookSecret, now.Unix(), body)

	ev, err := g.VerifyAndParse(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventPaymentFailed, ev.Kind)
}

func TestVerifyAndParse_UnrecognizedTypeIsUnknown(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body, _ := json.Marshal(map[string]any{
		"id":   "evt_3",
		"type": "customer.subscription.updated",
		"data": map[string]any{"object": map[string]any{"id": "sub_1"}},
	})
	header := signPayload(t, testWebhookSecret, now.Unix(), body)

	ev, err := g.VerifyAndParse(body, header)
	require.NoError(t, err)
	assert.Equal(t, EventUnknown, ev.Kind)
}

func TestVerifyAndParse_WrongSecret(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_4", "cs_1", "paid", "")
	header := signPayload(t, "whsec_other_secret", now.Unix(), body)

	_, err := g.VerifyAndParse(body, header)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
}

func TestVerifyAndParse_TamperedBody(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_5", "cs_1", "paid", "")
	header := signPayload(t, testWebhookSecret, now.Unix(), body)
	tampered := completedPayload("evt_5", "cs_1", "paid", "33333333-3333-3333-3333-333333333333")

	_, err := g.VerifyAndParse(tampered, header)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
}

func TestVerifyAndParse_StaleTimestamp(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_6", "cs_1", "paid", "")
	header := signPayload(t, testWebhookSecret, now.Add(-6*time.Minute).Unix(), body)

	_, err := g.VerifyAndParse(body, header)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
}

func TestVerifyAndParse_FutureTimestamp(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_7", "cs_1", "paid", "")
	header := signPayload(t, testWebhookSecret, now.Add(6*time.Minute).Unix(), body)

	_, err := g.VerifyAndParse(body, header)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature)
}

func TestVerifyAndParse_MalformedHeaders(t *testing.T) {
	g := fixedClockGateway(time.Now())
	body := completedPayload("evt_8", "cs_1", "paid", "")

	for _, header := range []string{
		"",
		"t=notanumber,v1=deadbeef",
		"v1=deadbeef",
		fmt.Sprintf("t=%d", time.Now().Unix()),
	} {
		_, err := g.VerifyAndParse(body, header)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSignature, "header %q", header)
	}
}

// Secret rotation: the header may carry several v1 signatures and any
// single match must pass.
func TestVerifyAndParse_MultipleSignatures(t *testing.T) {
	now := time.Now()
	g := fixedClockGateway(now)

	body := completedPayload("evt_9", "cs_1", "paid", "")
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(body)
	goodSig := hex.EncodeToString(mac.Sum(nil))
	header := fmt.Sprintf("t=%d,v1=00ff00ff,v1=%s", now.Unix(), goodSig)

	_, err := g.VerifyAndParse(body, header)
	require.NoError(t, err)
}

func TestCreateSession_Success(t *testing.T) {
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = r.PostForm
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_ok",
			"url": "https://checkout.stripe.com/c/pay/cs_test_ok",
		})
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", testWebhookSecret, WithBaseURL(srv.URL))
	sess, err := g.CreateSession(t.Context(), SessionRequest{
		AmountCents: 150_00,
		Currency:    "USD",
		Description: "Tuition 05/2026",
		Metadata:    map[string]string{"payment_id": "abc"},
		SuccessURL:  "https://portal.example.com/ok",
		CancelURL:   "https://portal.example.com/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_test_ok", sess.ID)
	assert.NotEmpty(t, sess.RedirectURL)

	assert.Equal(t, "payment", gotForm["mode"][0])
	assert.Equal(t, "15000", gotForm["line_items[0][price_data][unit_amount]"][0])
	assert.Equal(t, "usd", gotForm["line_items[0][price_data][currency]"][0])
	assert.Equal(t, "abc", gotForm["metadata[payment_id]"][0])
}

func TestCreateSession_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	g := NewStripeGateway("sk_test", testWebhookSecret, WithBaseURL(srv.URL))
	_, err := g.CreateSession(t.Context(), SessionRequest{AmountCents: 100, Currency: "USD"})
	assert.ErrorIs(t, err, domainErrors.ErrGatewayFailure)
}
