package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
)

type ChargeRequest struct {
	InvoiceID     snowflake.ID
	InvoiceNumber string
	// Reference identifies the attempt and doubles as the idempotency key.
	Reference   string
	AmountMinor int64
	Currency    string
	Description string
	Method      invoicedomain.PaymentMethod
	Details     PaymentDetails
}

// ChargeResult carries the gateway's decision. A decline is a result with
// OutcomeFailure, not an error.
type ChargeResult struct {
	Outcome           invoicedomain.Outcome
	ProviderReference string
	Message           string
}

// Gateway decides the outcome of a charge. Errors mean the gateway could
// not be reached or answered unintelligibly; no decision was made.
type Gateway interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type LinkRequest struct {
	InvoiceID     snowflake.ID
	InvoiceNumber string
	AmountMinor   int64
	Currency      string
	Description   string
}

// LinkProvider creates hosted checkout URLs.
type LinkProvider interface {
	CreatePaymentLink(ctx context.Context, req LinkRequest) (string, error)
}

// WebhookEvent is a verified provider notification that settles an invoice.
type WebhookEvent struct {
	Provider          string
	ProviderEventID   string
	EventType         string
	ProviderPaymentID string
	Outcome           invoicedomain.Outcome
	InvoiceID         snowflake.ID
	AmountMinor       int64
	Currency          string
	OccurredAt        time.Time
	RawPayload        []byte
}

// WebhookParser verifies and decodes provider webhooks. Parse returns
// ErrEventIgnored for event types that do not settle invoices.
type WebhookParser interface {
	Verify(payload []byte, headers http.Header) error
	Parse(payload []byte) (*WebhookEvent, error)
}

// GatewaySelector picks the gateway that charges a payment method.
type GatewaySelector interface {
	For(method invoicedomain.PaymentMethod) (Gateway, error)
}
