// Package domain contains invoice models, the status lifecycle and the
// contracts implemented by the invoice repository and service.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
)

type PaymentMethod string

const (
	PaymentMethodStripe       PaymentMethod = "stripe"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
	PaymentMethodZelle        PaymentMethod = "zelle"
	PaymentMethodWire         PaymentMethod = "wire"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodPaypal, PaymentMethodBankTransfer, PaymentMethodZelle, PaymentMethodWire:
		return true
	default:
		return false
	}
}

// Invoice is a persisted invoice. Client fields are a snapshot taken at
// creation so later client edits do not rewrite issued invoices.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_invoices_account_number" json:"-"`
	InvoiceNumber string       `gorm:"type:text;not null;uniqueIndex:ux_invoices_account_number" json:"invoice_number"`
	ClientID      snowflake.ID `gorm:"not null;index" json:"client_id"`

	ClientName    string `gorm:"type:text;not null" json:"client_name"`
	ClientCompany string `gorm:"type:text" json:"client_company,omitempty"`
	ClientEmail   string `gorm:"type:text;not null" json:"client_email"`
	ClientAddress string `gorm:"type:text" json:"client_address,omitempty"`

	Subtotal       decimal.Decimal     `gorm:"type:numeric;not null" json:"subtotal"`
	DiscountType   totals.DiscountType `gorm:"type:text;not null" json:"discount_type"`
	DiscountValue  decimal.Decimal     `gorm:"type:numeric;not null" json:"discount_value"`
	DiscountAmount decimal.Decimal     `gorm:"type:numeric;not null" json:"discount_amount"`
	TaxRate        decimal.Decimal     `gorm:"type:numeric;not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal     `gorm:"type:numeric;not null" json:"tax_amount"`
	Total          decimal.Decimal     `gorm:"type:numeric;not null" json:"total"`
	Currency       string              `gorm:"type:text;not null" json:"currency"`

	Status         Status        `gorm:"type:text;not null;index" json:"status"`
	PaymentMethod  PaymentMethod `gorm:"type:text;not null" json:"payment_method"`
	Notes          string        `gorm:"type:text" json:"notes,omitempty"`
	DueDate        *time.Time    `json:"due_date,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	PublicToken    string        `gorm:"type:text;not null;uniqueIndex" json:"public_token"`
	PaymentLinkURL string        `gorm:"type:text" json:"payment_link_url,omitempty"`
	CreatedAt      time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null" json:"updated_at"`

	Items []InvoiceItem `gorm:"-" json:"items"`
}

func (Invoice) TableName() string { return "invoices" }

// IsOverdue reports the derived overdue flag at now.
func (i Invoice) IsOverdue(now time.Time) bool {
	return IsOverdue(i.Status, i.DueDate, now)
}

type InvoiceItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID    `gorm:"not null;index" json:"-"`
	Position    int             `gorm:"not null" json:"position"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:numeric;not null" json:"total"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// PublicURL is the share link for a public token.
func PublicURL(baseURL, token string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/public/invoices/" + token
}
