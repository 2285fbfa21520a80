package domain

import (
	"context"
	"errors"
	"net/http"

	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

// SubmitResult is the user-facing answer to a payment submission.
type SubmitResult struct {
	Success bool    `json:"success"`
	Payment Payment `json:"payment"`
}

type Service interface {
	// Submit charges inv with details. inv must have been freshly resolved.
	Submit(ctx context.Context, inv invoicedomain.Invoice, details PaymentDetails) (SubmitResult, error)
	// ListAttempts returns the attempts for an invoice of the current account.
	ListAttempts(ctx context.Context, invoiceID string) ([]Payment, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, headers http.Header) error
}

var (
	ErrInvalidCardholderName = errors.New("invalid_cardholder_name")
	ErrInvalidCardNumber     = errors.New("invalid_card_number")
	ErrInvalidExpiryDate     = errors.New("invalid_expiry_date")
	ErrInvalidCVV            = errors.New("invalid_cvv")
	ErrInvalidEmail          = errors.New("invalid_email")
	ErrInvalidBillingAddress = errors.New("invalid_billing_address")
	ErrInvalidPaypalEmail    = errors.New("invalid_paypal_email")
	ErrInvalidAccountName    = errors.New("invalid_account_name")
	ErrInvalidBankAccount    = errors.New("invalid_bank_account")
	ErrInvalidRoutingNumber  = errors.New("invalid_routing_number")
	ErrUnsupportedMethod     = errors.New("invalid_payment_method")

	ErrGatewayUnavailable   = errors.New("gateway_unavailable")
	ErrGatewayNotConfigured = errors.New("gateway_not_configured")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrInvalidPayload       = errors.New("invalid_payload")
	ErrInvalidEvent         = errors.New("invalid_event")
	ErrEventIgnored         = errors.New("event_ignored")
)
