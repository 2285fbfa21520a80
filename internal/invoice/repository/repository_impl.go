package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"gorm.io/gorm"
)

const invoiceColumns = `id, account_id, invoice_number, client_id, client_name, client_company,
	client_email, client_address, subtotal, discount_type, discount_value, discount_amount,
	tax_rate, tax_amount, total, currency, status, payment_method, notes, due_date, paid_at,
	public_token, payment_link_url, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, inv *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (`+invoiceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID,
		inv.AccountID,
		inv.InvoiceNumber,
		inv.ClientID,
		inv.ClientName,
		inv.ClientCompany,
		inv.ClientEmail,
		inv.ClientAddress,
		inv.Subtotal,
		inv.DiscountType,
		inv.DiscountValue,
		inv.DiscountAmount,
		inv.TaxRate,
		inv.TaxAmount,
		inv.Total,
		inv.Currency,
		inv.Status,
		inv.PaymentMethod,
		inv.Notes,
		inv.DueDate,
		inv.PaidAt,
		inv.PublicToken,
		inv.PaymentLinkURL,
		inv.CreatedAt,
		inv.UpdatedAt,
	).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.InvoiceItem) error {
	for _, item := range items {
		err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_items (id, invoice_id, position, description, quantity, unit_price, total)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			item.ID,
			item.InvoiceID,
			item.Position,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Total,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `account_id = ? AND id = ?`, accountID, id)
}

func (r *repo) FindByIDUnscoped(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `id = ?`, id)
}

func (r *repo) FindByPublicToken(ctx context.Context, db *gorm.DB, token string) (*domain.Invoice, error) {
	return r.findOne(ctx, db, `public_token = ?`, token)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, args ...interface{}) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := db.WithContext(ctx).Raw(
		`SELECT `+invoiceColumns+` FROM invoices WHERE `+where+` LIMIT 1`,
		args...,
	).Scan(&inv).Error
	if err != nil {
		return nil, err
	}
	if inv.ID == 0 {
		return nil, nil
	}
	return &inv, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, accountID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("account_id = ?", accountID)
	switch {
	case filter.Overdue:
		stmt = stmt.Where("status = ? AND due_date IS NOT NULL AND due_date < ?", domain.StatusUnpaid, filter.Today)
	case filter.Status != "":
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}

	stmt, err := pagination.ApplyCursor(stmt, page, "")
	if err != nil {
		return nil, err
	}

	var invoices []*domain.Invoice
	if err := stmt.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, invoiceID snowflake.ID) ([]domain.InvoiceItem, error) {
	var items []domain.InvoiceItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, invoice_id, position, description, quantity, unit_price, total
		 FROM invoice_items WHERE invoice_id = ? ORDER BY position ASC`,
		invoiceID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountNumbersWithPrefix(ctx context.Context, db *gorm.DB, accountID snowflake.ID, prefix string) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE account_id = ? AND invoice_number LIKE ?`,
		accountID,
		prefix+"%",
	).Scan(&count).Error
	return count, err
}

func (r *repo) TransitionStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, t domain.Transition, now time.Time) (bool, error) {
	from := make([]string, 0, len(t.From))
	for _, status := range t.From {
		from = append(from, string(status))
	}
	if len(from) == 0 {
		return false, nil
	}

	result := db.WithContext(ctx).Exec(
		`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ?
		 WHERE id = ? AND status IN ?`,
		t.To,
		t.PaidAt(now),
		now.UTC(),
		id,
		from,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) UpdatePaymentLink(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID, url string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices SET payment_link_url = ?, updated_at = ? WHERE account_id = ? AND id = ?`,
		url,
		now.UTC(),
		accountID,
		id,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, accountID, id snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`DELETE FROM invoices WHERE account_id = ? AND id = ?`,
		accountID,
		id,
	)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM invoice_items WHERE invoice_id = ?`, id).Error; err != nil {
		return false, err
	}
	return true, nil
}
