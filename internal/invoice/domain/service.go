package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

type CreateInvoiceItem struct {
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

type CreateInvoiceRequest struct {
	ClientID      string
	Items         []CreateInvoiceItem
	DiscountType  string
	DiscountValue decimal.Decimal
	TaxRate       decimal.Decimal
	Currency      string
	PaymentMethod string
	Notes         string
	DueDate       *time.Time
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int
	// Status is unpaid, paid, failed or overdue.
	Status   string
	ClientID string
}

type ListInvoiceFilter struct {
	Status   Status
	Overdue  bool
	ClientID snowflake.ID
	// Today is the start of the current UTC day, used by the overdue filter.
	Today time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Source names the caller of a status transition.
type Source string

const (
	SourceManual  Source = "manual"
	SourcePayment Source = "payment"
	SourceWebhook Source = "webhook"
)

// TransitionResult reports the invoice state after an outcome was applied.
// Applied is false when the conditional update did not match, either
// because the transition is not allowed from the current status or because
// a concurrent writer got there first.
type TransitionResult struct {
	Invoice  Invoice
	Previous Status
	Applied  bool
}

// Document is a rendered invoice file.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	// MarkPaid is idempotent: an already paid invoice is returned unchanged.
	MarkPaid(ctx context.Context, id string) (Invoice, error)
	// ApplyPaymentOutcome is the system path used by payment submission and
	// webhooks. It is not scoped to an account.
	ApplyPaymentOutcome(ctx context.Context, id snowflake.ID, outcome Outcome, source Source) (TransitionResult, error)
	Delete(ctx context.Context, id string) error
	GeneratePaymentLink(ctx context.Context, id string) (Invoice, error)
	RenderPDF(ctx context.Context, id string) (Document, error)
	SendToClient(ctx context.Context, id string) error
}

var (
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrInvalidItems         = errors.New("invalid_items")
	ErrInvalidDescription   = errors.New("invalid_description")
	ErrInvalidDiscountType  = errors.New("invalid_discount_type")
	ErrInvalidPaymentMethod = errors.New("invalid_payment_method")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidStatus        = errors.New("invalid_status")
	ErrNotFound             = errors.New("invoice_not_found")
	ErrClientNotFound       = errors.New("client_not_found")
	ErrAlreadyPaid          = errors.New("invoice_already_paid")
	ErrPaymentLinkDisabled  = errors.New("payment_link_unavailable")
	ErrNumberExhausted      = errors.New("invoice_number_unavailable")
)
