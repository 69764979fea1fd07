package checkout

import (
	"context"
)

// SessionRequest describes the hosted checkout session to open. Metadata
// is carried opaquely by the provider and echoed back on webhook events.
type SessionRequest struct {
	AmountCents int64
	Currency    string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// Session is the provider's handle on an opened checkout session.
type Session struct {
	ID          string
	RedirectURL string
}

// Gateway is the hosted-checkout capability of the payment provider.
type Gateway interface {
	// Name returns the provider name.
	Name() string
	// CreateSession opens a hosted checkout session and returns the URL
	// the payer should be redirected to. It has no side effect on the
	// internal ledger.
	CreateSession(ctx context.Context, req SessionRequest) (*Session, error)
}

// WebhookVerifier is the trust boundary for inbound provider events:
// verify the signature first, only then parse fields out of the payload.
type WebhookVerifier interface {
	// VerifyAndParse checks the payload signature against the shared
	// webhook secret and parses it into a tagged Event. Returns
	// ErrInvalidSignature for unsigned or tampered payloads.
	VerifyAndParse(rawBody []byte, signatureHeader string) (*Event, error)
}
