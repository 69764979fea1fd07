package checkout

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/andresrivas/colegio-ledger/internal/domain/errors"
	"github.com/google/uuid"
)

// MockGateway is an in-memory checkout gateway for tests and local runs.
type MockGateway struct {
	name    string
	latency time.Duration
	fail    bool

	// Sessions records every session the mock opened.
	Sessions []SessionRequest
}

type MockOption func(*MockGateway)

func WithLatency(d time.Duration) MockOption {
	return func(g *MockGateway) { g.latency = d }
}

func WithFailure() MockOption {
	return func(g *MockGateway) { g.fail = true }
}

func NewMockGateway(opts ...MockOption) *MockGateway {
	g := &MockGateway{name: "mock"}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *MockGateway) Name() string { return g.name }

func (g *MockGateway) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	if g.latency > 0 {
		select {
		case <-time.After(g.latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if g.fail {
		return nil, domainErrors.ErrGatewayFailure
	}

	g.Sessions = append(g.Sessions, req)
	id := fmt.Sprintf("cs_test_%s", uuid.New().String()[:8])
	return &Session{
		ID:          id,
		RedirectURL: "https://checkout.example.com/pay/" + id,
	}, nil
}
