package checkout

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
)

const (
	stripeAPIBase = "https://api.stripe.com/v1"

	// signatureTolerance bounds how old a signed webhook timestamp may be
	// before it is rejected as a replay.
	signatureTolerance = 5 * time.Minute
)

// StripeGateway talks to the Stripe REST API directly: this core only
// needs session creation and webhook verification, so the handful of
// fields involved are handled without the vendor SDK.
type StripeGateway struct {
	secretKey     string
	webhookSecret string
	httpClient    *http.Client
	baseURL       string
	now           func() time.Time
}

// StripeOption configures a StripeGateway.
type StripeOption func(*StripeGateway)

// WithHTTPClient overrides the HTTP client (timeouts are enforced by the
// caller's context either way).
func WithHTTPClient(c *http.Client) StripeOption {
	return func(g *StripeGateway) { g.httpClient = c }
}

// WithBaseURL points the gateway at a different API host (tests).
func WithBaseURL(u string) StripeOption {
	return func(g *StripeGateway) { g.baseURL = u }
}

// WithClock overrides the clock used for signature tolerance checks (tests).
func WithClock(now func() time.Time) StripeOption {
	return func(g *StripeGateway) { g.now = now }
}

// NewStripeGateway creates a Stripe-backed checkout gateway.
func NewStripeGateway(secretKey, webhookSecret string, opts ...StripeOption) *StripeGateway {
	g := &StripeGateway{
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       stripeAPIBase,
		now:           time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *StripeGateway) Name() string { return "stripe" }

// CreateSession opens a hosted checkout session.
func (g *StripeGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", req.Description)
	for k, v := range req.Metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build checkout request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+g.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read checkout response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("checkout session rejected (status %d): %w",
			resp.StatusCode, domainErrors.ErrGatewayFailure)
	}

	var out struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode checkout response: %w", err)
	}
	if out.ID == "" || out.URL == "" {
		return nil, fmt.Errorf("checkout response missing session fields: %w",
			domainErrors.ErrGatewayFailure)
	}
	return &Session{ID: out.ID, RedirectURL: out.URL}, nil
}

// VerifyAndParse validates the Stripe-Signature header against the webhook
// secret and parses the payload into a tagged Event. No field is trusted
// before the signature check passes.
func (g *StripeGateway) VerifyAndParse(rawBody []byte, signatureHeader string) (*Event, error) {
	ts, signatures, err := parseSignatureHeader(signatureHeader)
	if err != nil {
		return nil, err
	}

	age := g.now().Sub(time.Unix(ts, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return nil, domainErrors.ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(g.webhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(rawBody)
	expected := mac.Sum(nil)

	valid := false
	for _, sig := range signatures {
		decoded, err := hex.DecodeString(sig)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			valid = true
			break
		}
	}
	if !valid {
		return nil, domainErrors.ErrInvalidSignature
	}

	return parseEvent(rawBody)
}

// parseSignatureHeader splits "t=<unix>,v1=<hex>[,v1=<hex>...]". Stripe may
// send multiple v1 entries during secret rotation.
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, domainErrors.ErrInvalidSignature
	}

	var (
		ts         int64
		signatures []string
		haveTS     bool
	)
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil, domainErrors.ErrInvalidSignature
			}
			ts = parsed
			haveTS = true
		case "v1":
			signatures = append(signatures, v)
		}
	}
	if !haveTS || len(signatures) == 0 {
		return 0, nil, domainErrors.ErrInvalidSignature
	}
	return ts, signatures, nil
}

// parseEvent maps the verified payload into the closed event set.
func parseEvent(rawBody []byte) (*Event, error) {
	var payload struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string            `json:"id"`
				PaymentStatus string            `json:"payment_status"`
				Metadata      map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", domainErrors.ErrInvalidSignature)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("webhook payload missing event id: %w", domainErrors.ErrInvalidSignature)
	}

	ev := &Event{
		ID:            payload.ID,
		SessionID:     payload.Data.Object.ID,
		PaymentStatus: payload.Data.Object.PaymentStatus,
		PaymentID:     payload.Data.Object.Metadata["payment_id"],
	}

	switch payload.Type {
	case "checkout.session.completed":
		ev.Kind = EventCheckoutCompleted
	case "payment_intent.payment_failed":
		ev.Kind = EventPaymentFailed
	default:
		ev.Kind = EventUnknown
	}
	return ev, nil
}
