// Package gateway routes payment methods to the gateway that charges them.
package gateway

import (
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

// Selector maps payment methods to gateways, with an optional fallback for
// methods that have no dedicated gateway.
type Selector struct {
	byMethod map[invoicedomain.PaymentMethod]paymentdomain.Gateway
	fallback paymentdomain.Gateway
}

func NewSelector(fallback paymentdomain.Gateway) *Selector {
	return &Selector{
		byMethod: map[invoicedomain.PaymentMethod]paymentdomain.Gateway{},
		fallback: fallback,
	}
}

// Route assigns gw to method.
func (s *Selector) Route(method invoicedomain.PaymentMethod, gw paymentdomain.Gateway) *Selector {
	if gw != nil {
		s.byMethod[method] = gw
	}
	return s
}

func (s *Selector) For(method invoicedomain.PaymentMethod) (paymentdomain.Gateway, error) {
	if !method.Valid() {
		return nil, paymentdomain.ErrUnsupportedMethod
	}
	if gw, ok := s.byMethod[method]; ok {
		return gw, nil
	}
	if s.fallback != nil {
		return s.fallback, nil
	}
	return nil, paymentdomain.ErrGatewayNotConfigured
}

var _ paymentdomain.GatewaySelector = (*Selector)(nil)
