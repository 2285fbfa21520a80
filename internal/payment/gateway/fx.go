package gateway

import (
	"errors"

	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/smallbiznis/invoicer/internal/payment/gateway/simulator"
	"github.com/smallbiznis/invoicer/internal/payment/gateway/stripe"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg       config.Config
	Invoicing *config.InvoicingConfigHolder
	Log       *zap.Logger
}

// Result exposes the Stripe client in each role it can serve. Links and
// Webhooks are nil when Stripe is not configured for them.
type Result struct {
	fx.Out

	Selector paymentdomain.GatewaySelector
	Links    paymentdomain.LinkProvider
	Webhooks paymentdomain.WebhookParser
}

// Provide wires gateways according to PAYMENT_GATEWAY. The simulator is
// refused in production.
func Provide(p Params) (Result, error) {
	log := p.Log.Named("payment.gateway")
	payment := p.Cfg.Payment
	production := p.Cfg.IsProduction()

	var stripeClient *stripe.Client
	if payment.StripeSecretKey != "" || payment.StripeWebhookSecret != "" {
		stripeClient = stripe.New(payment)
	}
	sim := func() paymentdomain.Gateway {
		return simulator.New(func() float64 { return p.Invoicing.Get().SimulatorSuccessRate })
	}

	var selector *Selector
	switch payment.Gateway {
	case config.GatewayStripe:
		if payment.StripeSecretKey == "" {
			return Result{}, errors.New("PAYMENT_GATEWAY=stripe requires STRIPE_SECRET_KEY")
		}
		selector = NewSelector(nil).Route(invoicedomain.PaymentMethodStripe, stripeClient)
	case config.GatewaySimulator:
		if production {
			return Result{}, errors.New("the payment simulator is not allowed in production")
		}
		selector = NewSelector(sim())
	default:
		var fallback paymentdomain.Gateway
		if !production {
			fallback = sim()
		}
		selector = NewSelector(fallback)
		if payment.StripeSecretKey != "" {
			selector.Route(invoicedomain.PaymentMethodStripe, stripeClient)
		}
	}

	res := Result{Selector: selector}
	if payment.StripeSecretKey != "" {
		res.Links = stripeClient
	}
	if payment.StripeWebhookSecret != "" {
		res.Webhooks = stripeClient
	}

	log.Info("payment gateways configured",
		zap.String("mode", payment.Gateway),
		zap.Bool("stripe_charges", payment.StripeSecretKey != ""),
		zap.Bool("stripe_webhooks", payment.StripeWebhookSecret != ""),
		zap.Bool("simulator", selector.fallback != nil),
	)
	return res, nil
}
