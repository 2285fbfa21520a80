package domain

import (
	"errors"
	"regexp"
	"strings"

	"github.com/smallbiznis/invoicer/internal/audit/masking"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

var (
	expiryPattern = regexp.MustCompile(`^\d{2}/\d{2}$`)
	emailPattern  = regexp.MustCompile(`\S+@\S+\.\S+`)
	digitsPattern = regexp.MustCompile(`^\d+$`)
)

// PaymentDetails is what a payer submits on the public invoice page. Which
// fields are required depends on the invoice's payment method. For bank
// transfers and wires CardholderName carries the account holder name.
type PaymentDetails struct {
	CardholderName string `json:"cardholder_name"`
	CardNumber     string `json:"card_number"`
	ExpiryDate     string `json:"expiry_date"`
	CVV            string `json:"cvv"`
	Email          string `json:"email"`
	BillingAddress string `json:"billing_address"`
	PaypalEmail    string `json:"paypal_email"`
	BankAccount    string `json:"bank_account"`
	RoutingNumber  string `json:"routing_number"`
}

// Validate checks the shape of d for method. Every failing field is
// reported; the result unwraps to the individual field errors.
func (d PaymentDetails) Validate(method invoicedomain.PaymentMethod) error {
	var errs []error
	check := func(ok bool, err error) {
		if !ok {
			errs = append(errs, err)
		}
	}

	switch method {
	case invoicedomain.PaymentMethodStripe:
		check(present(d.CardholderName), ErrInvalidCardholderName)
		check(len(d.cardDigits()) >= 13 && digitsPattern.MatchString(d.cardDigits()), ErrInvalidCardNumber)
		check(expiryPattern.MatchString(strings.TrimSpace(d.ExpiryDate)), ErrInvalidExpiryDate)
		cvv := strings.TrimSpace(d.CVV)
		check(len(cvv) >= 3 && len(cvv) <= 4 && digitsPattern.MatchString(cvv), ErrInvalidCVV)
		check(validEmail(d.Email), ErrInvalidEmail)
		check(present(d.BillingAddress), ErrInvalidBillingAddress)
	case invoicedomain.PaymentMethodPaypal:
		check(validEmail(d.PaypalEmail), ErrInvalidPaypalEmail)
	case invoicedomain.PaymentMethodBankTransfer:
		check(present(d.CardholderName), ErrInvalidAccountName)
		check(present(d.BankAccount), ErrInvalidBankAccount)
		check(validRouting(d.RoutingNumber), ErrInvalidRoutingNumber)
		check(validEmail(d.Email), ErrInvalidEmail)
	case invoicedomain.PaymentMethodZelle:
		check(validEmail(d.Email), ErrInvalidEmail)
	case invoicedomain.PaymentMethodWire:
		check(present(d.CardholderName), ErrInvalidAccountName)
		check(present(d.BankAccount), ErrInvalidBankAccount)
		check(validRouting(d.RoutingNumber), ErrInvalidRoutingNumber)
	default:
		return ErrUnsupportedMethod
	}

	return errors.Join(errs...)
}

// Masked returns the submitted fields with secrets masked, suitable for
// storing on the payment attempt. The CVV is never kept.
func (d PaymentDetails) Masked() map[string]any {
	out := map[string]any{}
	set := func(key, value string, mask bool) {
		value = strings.TrimSpace(value)
		if value == "" {
			return
		}
		if mask {
			value = masking.MaskSecret(value)
		}
		out[key] = value
	}

	set("cardholder_name", d.CardholderName, false)
	set("card_number", d.cardDigits(), true)
	set("expiry_date", d.ExpiryDate, false)
	set("email", d.Email, true)
	set("billing_address", d.BillingAddress, false)
	set("paypal_email", d.PaypalEmail, true)
	set("bank_account", d.BankAccount, true)
	set("routing_number", d.RoutingNumber, true)
	return out
}

func (d PaymentDetails) cardDigits() string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(d.CardNumber))
}

func present(value string) bool {
	return strings.TrimSpace(value) != ""
}

func validEmail(value string) bool {
	return emailPattern.MatchString(strings.TrimSpace(value))
}

func validRouting(value string) bool {
	value = strings.TrimSpace(value)
	return len(value) == 9 && digitsPattern.MatchString(value)
}
