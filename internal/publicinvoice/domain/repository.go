package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"gorm.io/gorm"
)

type Repository interface {
	FindInvoiceByToken(ctx context.Context, db *gorm.DB, token string) (*InvoiceRecord, error)
	ListInvoiceItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]invoicedomain.InvoiceItem, error)
}

// InvoiceRecord is an invoice joined with the name of the issuing account.
type InvoiceRecord struct {
	invoicedomain.Invoice `gorm:"embedded"`
	AccountName           string `gorm:"column:account_name"`
}
