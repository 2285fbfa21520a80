package domain

import (
	"context"

	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

type Service interface {
	// Resolve returns the invoice behind token with its items. Malformed
	// and unknown tokens are both reported as ErrInvoiceUnavailable.
	Resolve(ctx context.Context, token string) (invoicedomain.Invoice, error)
	GetInvoiceForPublicView(ctx context.Context, token string) (PublicInvoiceResponse, error)
	GetInvoicePublicStatus(ctx context.Context, token string) (PublicInvoiceStatus, error)
	SubmitPayment(ctx context.Context, token string, details paymentdomain.PaymentDetails) (paymentdomain.SubmitResult, error)
}

type PublicInvoiceStatus string

const (
	PublicInvoiceStatusUnpaid  PublicInvoiceStatus = "unpaid"
	PublicInvoiceStatusOverdue PublicInvoiceStatus = "overdue"
	PublicInvoiceStatusPaid    PublicInvoiceStatus = "paid"
	PublicInvoiceStatusFailed  PublicInvoiceStatus = "failed"
)

type PublicInvoiceResponse struct {
	Status  PublicInvoiceStatus `json:"status"`
	From    string              `json:"from,omitempty"`
	Payable bool                `json:"payable"`
	Invoice invoicedomain.View  `json:"invoice"`
}

// ErrInvoiceUnavailable is the single not-found answer for public lookups,
// so a malformed token is indistinguishable from an unknown one.
var ErrInvoiceUnavailable = invoicedomain.ErrNotFound
