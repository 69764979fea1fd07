package notify

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/andresrivas/colegio-ledger/internal/domain/message"
	"github.com/google/uuid"
)

// SentRecord captures one delivery the mock performed.
type SentRecord struct {
	Channel message.Channel
	To      string
	Body    string
}

// MockGateway is an in-memory notification gateway for tests.
type MockGateway struct {
	latency     time.Duration
	failSend    bool
	timeoutSend bool

	// Sent records every successful delivery attempt.
	Sent []SentRecord
}

type MockOption func(*MockGateway)

func WithLatency(d time.Duration) MockOption {
	return func(g *MockGateway) { g.latency = d }
}

// WithSendFailure makes every attempt report an unsuccessful result.
func WithSendFailure() MockOption {
	return func(g *MockGateway) { g.failSend = true }
}

// WithTimeout makes every attempt fail with a gateway timeout.
func WithTimeout() MockOption {
	return func(g *MockGateway) { g.timeoutSend = true }
}

func NewMockGateway(opts ...MockOption) *MockGateway {
	g := &MockGateway{}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) Name() string { return "mock" }

func (g *MockGateway) Supports(channel message.Channel) bool {
	return channel == message.ChannelSMS || channel == message.ChannelWhatsApp
}

func (g *MockGateway) Send(ctx context.Context, channel message.Channel, destinationPhone, body string) (*Result, error) {
	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.timeoutSend {
		return nil, domainErrors.ErrGatewayTimeout
	}
	if g.failSend {
		return &Result{Success: false, ErrorMessage: "simulated delivery failure"}, nil
	}

	g.Sent = append(g.Sent, SentRecord{Channel: channel, To: destinationPhone, Body: body})
	return &Result{
		Success:           true,
		ProviderMessageID: fmt.Sprintf("SM%s", uuid.New().String()[:10]),
	}, nil
}
