package simulator

import (
	"context"
	"testing"
	"time"

	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedRandom float64

func (f fixedRandom) Float64() float64 { return float64(f) }

func rate(v float64) func() float64 { return func() float64 { return v } }

func TestChargeUsesSuccessRate(t *testing.T) {
	res, err := New(rate(0.9), WithRandom(fixedRandom(0.5))).Charge(context.Background(), paymentdomain.ChargeRequest{})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeSuccess, res.Outcome)
	assert.NotEmpty(t, res.ProviderReference)

	res, err = New(rate(0.9), WithRandom(fixedRandom(0.95))).Charge(context.Background(), paymentdomain.ChargeRequest{})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeFailure, res.Outcome)

	res, err = New(rate(0), WithRandom(fixedRandom(0))).Charge(context.Background(), paymentdomain.ChargeRequest{})
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeFailure, res.Outcome)
}

func TestChargeHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := New(rate(1), WithDelay(time.Second)).Charge(ctx, paymentdomain.ChargeRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
