package domain

import (
	"time"

	"github.com/smallbiznis/invoicer/internal/invoice/totals"
)

type ItemView struct {
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Total       string `json:"total"`
}

// View is the presentation of an invoice: amounts rounded to cents and the
// derived overdue flag.
type View struct {
	InvoiceNumber  string        `json:"invoice_number"`
	ClientName     string        `json:"client_name"`
	ClientCompany  string        `json:"client_company,omitempty"`
	ClientEmail    string        `json:"client_email"`
	ClientAddress  string        `json:"client_address,omitempty"`
	Items          []ItemView    `json:"items"`
	Subtotal       string        `json:"subtotal"`
	DiscountType   string        `json:"discount_type"`
	DiscountValue  string        `json:"discount_value"`
	DiscountAmount string        `json:"discount_amount"`
	TaxRate        string        `json:"tax_rate"`
	TaxAmount      string        `json:"tax_amount"`
	Total          string        `json:"total"`
	Currency       string        `json:"currency"`
	Status         Status        `json:"status"`
	Overdue        bool          `json:"overdue"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	Notes          string        `json:"notes,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	PaymentLinkURL string        `json:"payment_link_url,omitempty"`
}

func NewView(inv Invoice, now time.Time) View {
	items := make([]ItemView, 0, len(inv.Items))
	for _, item := range inv.Items {
		items = append(items, ItemView{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   totals.Format(item.UnitPrice),
			Total:       totals.Format(item.Total),
		})
	}
	return View{
		InvoiceNumber:  inv.InvoiceNumber,
		ClientName:     inv.ClientName,
		ClientCompany:  inv.ClientCompany,
		ClientEmail:    inv.ClientEmail,
		ClientAddress:  inv.ClientAddress,
		Items:          items,
		Subtotal:       totals.Format(inv.Subtotal),
		DiscountType:   string(inv.DiscountType),
		DiscountValue:  inv.DiscountValue.String(),
		DiscountAmount: totals.Format(inv.DiscountAmount),
		TaxRate:        inv.TaxRate.String(),
		TaxAmount:      totals.Format(inv.TaxAmount),
		Total:          totals.Format(inv.Total),
		Currency:       inv.Currency,
		Status:         inv.Status,
		Overdue:        inv.IsOverdue(now),
		PaymentMethod:  inv.PaymentMethod,
		Notes:          inv.Notes,
		DueDate:        inv.DueDate,
		PaidAt:         inv.PaidAt,
		CreatedAt:      inv.CreatedAt,
		PaymentLinkURL: inv.PaymentLinkURL,
	}
}
