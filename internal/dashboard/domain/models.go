// Package domain holds the read-only dashboard statistics.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"gorm.io/gorm"
)

// InvoiceRow is the slice of an invoice the dashboard aggregates.
type InvoiceRow struct {
	Status    invoicedomain.Status
	Total     decimal.Decimal
	Currency  string
	DueDate   *time.Time
	PaidAt    *time.Time
	CreatedAt time.Time
}

type Repository interface {
	ListInvoiceRows(ctx context.Context, db *gorm.DB, accountID snowflake.ID) ([]InvoiceRow, error)
	CountClients(ctx context.Context, db *gorm.DB, accountID snowflake.ID) (int64, error)
}

type Service interface {
	Stats(ctx context.Context) (Stats, error)
}

type StatusCounts struct {
	Total   int64 `json:"total"`
	Unpaid  int64 `json:"unpaid"`
	Paid    int64 `json:"paid"`
	Failed  int64 `json:"failed"`
	Overdue int64 `json:"overdue"`
}

// CurrencyTotals are the money figures of one currency, rounded to cents.
type CurrencyTotals struct {
	Currency          string `json:"currency"`
	Revenue           string `json:"revenue"`
	Outstanding       string `json:"outstanding"`
	RevenueLast30Days string `json:"revenue_last_30_days"`
	RevenueThisMonth  string `json:"revenue_this_month"`
	RevenueLastMonth  string `json:"revenue_last_month"`
	// RevenueGrowth is the month over month change in percent.
	RevenueGrowth string `json:"revenue_growth"`
}

type Stats struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Invoices    StatusCounts     `json:"invoices"`
	Clients     int64            `json:"clients"`
	SuccessRate string           `json:"success_rate"`
	Totals      []CurrencyTotals `json:"totals"`
}

var ErrInvalidAccount = errors.New("invalid_account")
