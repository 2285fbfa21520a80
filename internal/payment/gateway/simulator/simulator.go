// Package simulator decides charges by a fixed success probability. It is
// wired only outside production.
package simulator

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

const Provider = "simulator"

// RandomSource yields floats in [0, 1).
type RandomSource interface {
	Float64() float64
}

type Gateway struct {
	mu          sync.Mutex
	rnd         RandomSource
	successRate func() float64
	delay       time.Duration
}

type Option func(*Gateway)

func WithRandom(rnd RandomSource) Option {
	return func(g *Gateway) { g.rnd = rnd }
}

// WithDelay simulates processing latency. The delay honours ctx.
func WithDelay(d time.Duration) Option {
	return func(g *Gateway) { g.delay = d }
}

// New builds a simulator. successRate is read on every charge so that
// configuration reloads apply.
func New(successRate func() float64, opts ...Option) *Gateway {
	g := &Gateway{
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
		successRate: successRate,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gateway) Name() string { return Provider }

func (g *Gateway) Charge(ctx context.Context, req paymentdomain.ChargeRequest) (paymentdomain.ChargeResult, error) {
	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return paymentdomain.ChargeResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	roll := g.rnd.Float64()
	g.mu.Unlock()

	result := paymentdomain.ChargeResult{ProviderReference: "sim_" + ulid.Make().String()}
	if roll < g.successRate() {
		result.Outcome = invoicedomain.OutcomeSuccess
		result.Message = "approved"
	} else {
		result.Outcome = invoicedomain.OutcomeFailure
		result.Message = "declined"
	}
	return result, nil
}

var _ paymentdomain.Gateway = (*Gateway)(nil)
