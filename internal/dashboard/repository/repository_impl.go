package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListInvoiceRows(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]domain.InvoiceRow, error) {
	var rows []domain.InvoiceRow
	err := db.WithContext(ctx).Raw(
		`SELECT status, total, currency, due_date, paid_at, created_at
		 FROM invoices
		 WHERE account_id = ?`,
		accountID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountClients(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM clients WHERE account_id = ?`,
		accountID,
	).Scan(&count).Error
	return count, err
}
