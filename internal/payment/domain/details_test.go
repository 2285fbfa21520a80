package domain

import (
	"errors"
	"testing"

	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/stretchr/testify/assert"
)

func validCard() PaymentDetails {
	return PaymentDetails{
		CardholderName: "Jane Doe",
		CardNumber:     "4242 4242 4242 4242",
		ExpiryDate:     "12/29",
		CVV:            "123",
		Email:          "jane@example.com",
		BillingAddress: "1 Main St",
	}
}

func TestValidateStripe(t *testing.T) {
	assert.NoError(t, validCard().Validate(invoicedomain.PaymentMethodStripe))

	d := validCard()
	d.CardNumber = "4242 4242 42"
	d.ExpiryDate = "1229"
	d.CVV = "12"
	err := d.Validate(invoicedomain.PaymentMethodStripe)
	assert.ErrorIs(t, err, ErrInvalidCardNumber)
	assert.ErrorIs(t, err, ErrInvalidExpiryDate)
	assert.ErrorIs(t, err, ErrInvalidCVV)
	assert.False(t, errors.Is(err, ErrInvalidEmail))

	err = PaymentDetails{}.Validate(invoicedomain.PaymentMethodStripe)
	for _, want := range []error{ErrInvalidCardholderName, ErrInvalidCardNumber, ErrInvalidExpiryDate, ErrInvalidCVV, ErrInvalidEmail, ErrInvalidBillingAddress} {
		assert.ErrorIs(t, err, want)
	}
}

func TestValidateOtherMethods(t *testing.T) {
	cases := []struct {
		name    string
		method  invoicedomain.PaymentMethod
		details PaymentDetails
		wantErr []error
	}{
		{name: "paypal ok", method: invoicedomain.PaymentMethodPaypal, details: PaymentDetails{PaypalEmail: "p@pal.com"}},
		{name: "paypal bad email", method: invoicedomain.PaymentMethodPaypal, details: PaymentDetails{PaypalEmail: "nope"}, wantErr: []error{ErrInvalidPaypalEmail}},
		{
			name:    "bank transfer ok",
			method:  invoicedomain.PaymentMethodBankTransfer,
			details: PaymentDetails{CardholderName: "Acme", BankAccount: "000123", RoutingNumber: "021000021", Email: "a@b.co"},
		},
		{
			name:    "bank transfer short routing",
			method:  invoicedomain.PaymentMethodBankTransfer,
			details: PaymentDetails{CardholderName: "Acme", BankAccount: "000123", RoutingNumber: "02100002", Email: "a@b.co"},
			wantErr: []error{ErrInvalidRoutingNumber},
		},
		{
			name:    "bank transfer missing fields",
			method:  invoicedomain.PaymentMethodBankTransfer,
			details: PaymentDetails{RoutingNumber: "02100002a"},
			wantErr: []error{ErrInvalidAccountName, ErrInvalidBankAccount, ErrInvalidRoutingNumber, ErrInvalidEmail},
		},
		{name: "zelle ok", method: invoicedomain.PaymentMethodZelle, details: PaymentDetails{Email: "z@elle.com"}},
		{name: "zelle missing email", method: invoicedomain.PaymentMethodZelle, wantErr: []error{ErrInvalidEmail}},
		{
			name:    "wire ok",
			method:  invoicedomain.PaymentMethodWire,
			details: PaymentDetails{CardholderName: "Acme", BankAccount: "DE89", RoutingNumber: "021000021"},
		},
		{name: "wire missing", method: invoicedomain.PaymentMethodWire, wantErr: []error{ErrInvalidAccountName, ErrInvalidBankAccount, ErrInvalidRoutingNumber}},
		{name: "unknown method", method: "cash", wantErr: []error{ErrUnsupportedMethod}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.details.Validate(tc.method)
			if len(tc.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			for _, want := range tc.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}
}

func TestMaskedNeverKeepsSecrets(t *testing.T) {
	masked := validCard().Masked()

	assert.Equal(t, "****4242", masked["card_number"])
	assert.NotContains(t, masked, "cvv")
	assert.Equal(t, "Jane Doe", masked["cardholder_name"])
	assert.NotEqual(t, "jane@example.com", masked["email"])
	assert.NotContains(t, masked, "paypal_email")
}
