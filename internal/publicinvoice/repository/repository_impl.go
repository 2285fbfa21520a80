package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	publicinvoicedomain "github.com/smallbiznis/invoicer/internal/publicinvoice/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() publicinvoicedomain.Repository {
	return &repo{}
}

func (r *repo) FindInvoiceByToken(
	ctx context.Context,
	db *gorm.DB,
	token string,
) (*publicinvoicedomain.InvoiceRecord, error) {
	if db == nil || token == "" {
		return nil, nil
	}

	query := `
		SELECT i.id, i.account_id, i.invoice_number, i.client_id, i.client_name, i.client_company,
			i.client_email, i.client_address, i.subtotal, i.discount_type, i.discount_value,
			i.discount_amount, i.tax_rate, i.tax_amount, i.total, i.currency, i.status,
			i.payment_method, i.notes, i.due_date, i.paid_at, i.public_token, i.payment_link_url,
			i.created_at, i.updated_at, a.name AS account_name
		FROM invoices i
		LEFT JOIN accounts a ON a.id = i.account_id
		WHERE i.public_token = ?
		LIMIT 1`

	var row publicinvoicedomain.InvoiceRecord
	if err := db.WithContext(ctx).Raw(query, token).Scan(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) ListInvoiceItems(
	ctx context.Context,
	db *gorm.DB,
	invoiceID snowflake.ID,
) ([]invoicedomain.InvoiceItem, error) {
	if db == nil || invoiceID == 0 {
		return nil, nil
	}

	var items []invoicedomain.InvoiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, position, description, quantity, unit_price, total
		 FROM invoice_items
		 WHERE invoice_id = ?
		 ORDER BY position ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
