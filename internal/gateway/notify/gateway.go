package notify

import (
	"context"

	"github.com/andresrivas/colegio-ledger/internal/domain/message"
)

// Result is the gateway's report on one delivery attempt.
type Result struct {
	Success           bool
	ProviderMessageID string
	ErrorMessage      string
}

// Gateway is the send-and-report-result capability for parent
// notifications. Implementations perform exactly one attempt per call;
// retry policy belongs to the caller.
type Gateway interface {
	// Name returns the gateway name.
	Name() string
	// Supports reports whether a transport is wired for the channel.
	Supports(channel message.Channel) bool
	// Send delivers body to the destination phone over the given channel.
	Send(ctx context.Context, channel message.Channel, destinationPhone, body string) (*Result, error)
}
