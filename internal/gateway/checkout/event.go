package checkout

// EventKind is the closed set of provider event variants the
// reconciliation coordinator switches over. Anything the provider sends
// outside this set parses as EventUnknown and is acknowledged unprocessed.
type EventKind string

const (
	EventCheckoutCompleted EventKind = "checkout_completed"
	EventPaymentFailed     EventKind = "payment_failed"
	EventUnknown           EventKind = "unknown"
)

// Event is a verified, parsed provider webhook event. Only the fields the
// reconciliation logic depends on survive parsing; the rest of the
// provider payload is dropped at the trust boundary.
type Event struct {
	// ID is the provider's unique event id, the deduplication key for
	// at-least-once delivery.
	ID   string
	Kind EventKind

	// SessionID is the provider's checkout session id, recorded as the
	// payment's external reference on settlement.
	SessionID string

	// PaymentStatus is the provider-side payment state carried by
	// checkout completion events ("paid", "unpaid", ...).
	PaymentStatus string

	// PaymentID is the ledger payment id echoed back from the session
	// metadata. Empty when the event carries no recognizable metadata.
	PaymentID string
}
