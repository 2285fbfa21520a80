package gateway

import (
	"testing"

	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/smallbiznis/invoicer/internal/payment/gateway/simulator"
	"github.com/smallbiznis/invoicer/internal/payment/gateway/stripe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func params(env string, payment config.PaymentConfig) Params {
	return Params{
		Cfg:       config.Config{Environment: env, Payment: payment},
		Invoicing: config.NewStaticInvoicingConfigHolder(config.DefaultInvoicingConfig()),
		Log:       zap.NewNop(),
	}
}

func TestProvideAutoDevelopment(t *testing.T) {
	res, err := Provide(params("development", config.PaymentConfig{Gateway: config.GatewayAuto}))
	require.NoError(t, err)

	gw, err := res.Selector.For(invoicedomain.PaymentMethodStripe)
	require.NoError(t, err)
	assert.Equal(t, simulator.Provider, gw.Name())
	assert.Nil(t, res.Links)
	assert.Nil(t, res.Webhooks)
}

func TestProvideAutoWithStripe(t *testing.T) {
	res, err := Provide(params("production", config.PaymentConfig{
		Gateway:             config.GatewayAuto,
		StripeSecretKey:     "sk_live",
		StripeWebhookSecret: "whsec",
	}))
	require.NoError(t, err)

	gw, err := res.Selector.For(invoicedomain.PaymentMethodStripe)
	require.NoError(t, err)
	assert.Equal(t, stripe.Provider, gw.Name())
	assert.NotNil(t, res.Links)
	assert.NotNil(t, res.Webhooks)

	_, err = res.Selector.For(invoicedomain.PaymentMethodZelle)
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayNotConfigured)
}

func TestProvideRejectsInvalidModes(t *testing.T) {
	_, err := Provide(params("production", config.PaymentConfig{Gateway: config.GatewaySimulator}))
	assert.Error(t, err)

	_, err = Provide(params("development", config.PaymentConfig{Gateway: config.GatewayStripe}))
	assert.Error(t, err)
}
