package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	"github.com/smallbiznis/invoicer/internal/dashboard/repository"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ptr(t time.Time) *time.Time { return &t }

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	rows := []domain.InvoiceRow{
		{Status: invoicedomain.StatusPaid, Total: decimal.RequireFromString("100.005"), Currency: "usd", PaidAt: ptr(now.AddDate(0, 0, -2))},
		{Status: invoicedomain.StatusPaid, Total: decimal.RequireFromString("50"), Currency: "USD", PaidAt: ptr(time.Date(2026, 5, 3, 0, 0, 0, 0, time.UTC))},
		{Status: invoicedomain.StatusPaid, Total: decimal.RequireFromString("10"), Currency: "eur", PaidAt: ptr(now.AddDate(0, -3, 0))},
		{Status: invoicedomain.StatusUnpaid, Total: decimal.RequireFromString("20"), Currency: "usd", DueDate: ptr(time.Date(2026, 6, 14, 0, 0, 0, 0, time.UTC))},
		{Status: invoicedomain.StatusUnpaid, Total: decimal.RequireFromString("5"), Currency: "usd", DueDate: ptr(time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC))},
		{Status: invoicedomain.StatusFailed, Total: decimal.RequireFromString("7.5"), Currency: "usd", DueDate: ptr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))},
	}

	stats := aggregate(rows, 3, now)

	assert.Equal(t, domain.StatusCounts{Total: 6, Unpaid: 2, Paid: 3, Failed: 1, Overdue: 1}, stats.Invoices)
	assert.Equal(t, int64(3), stats.Clients)
	assert.Equal(t, "50.0", stats.SuccessRate)
	require.Len(t, stats.Totals, 2)

	eur := stats.Totals[0]
	assert.Equal(t, "eur", eur.Currency)
	assert.Equal(t, "10.00", eur.Revenue)
	assert.Equal(t, "0.00", eur.RevenueLast30Days)
	assert.Equal(t, "0.0", eur.RevenueGrowth)

	usd := stats.Totals[1]
	assert.Equal(t, "usd", usd.Currency)
	assert.Equal(t, "150.01", usd.Revenue)
	assert.Equal(t, "32.50", usd.Outstanding)
	assert.Equal(t, "100.01", usd.RevenueLast30Days)
	assert.Equal(t, "100.01", usd.RevenueThisMonth)
	assert.Equal(t, "50.00", usd.RevenueLastMonth)
	assert.Equal(t, "100.0", usd.RevenueGrowth)
}

func TestAggregateEmpty(t *testing.T) {
	stats := aggregate(nil, 0, time.Now())
	assert.Equal(t, "0.0", stats.SuccessRate)
	assert.Empty(t, stats.Totals)
	assert.Zero(t, stats.Invoices.Total)
}

func TestStatsReadsAccountScopedRows(t *testing.T) {
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&invoicedomain.Invoice{}, &clientdomain.Client{}))

	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	seed := func(id, account int64, status invoicedomain.Status, total string, paidAt *time.Time) {
		require.NoError(t, conn.Create(&invoicedomain.Invoice{
			ID:             snowflake.ID(id),
			AccountID:      snowflake.ID(account),
			InvoiceNumber:  "INV-" + snowflake.ID(id).String(),
			ClientID:       1,
			ClientName:     "Jane",
			ClientEmail:    "jane@x.test",
			Subtotal:       decimal.RequireFromString(total),
			DiscountType:   totals.DiscountPercentage,
			DiscountValue:  decimal.Zero,
			DiscountAmount: decimal.Zero,
			TaxRate:        decimal.Zero,
			TaxAmount:      decimal.Zero,
			Total:          decimal.RequireFromString(total),
			Currency:       "usd",
			Status:         status,
			PaymentMethod:  invoicedomain.PaymentMethodStripe,
			DueDate:        ptr(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)),
			PaidAt:         paidAt,
			PublicToken:    "token-" + snowflake.ID(id).String(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}).Error)
	}
	seed(1, 1, invoicedomain.StatusPaid, "40", ptr(now.Add(-time.Hour)))
	seed(2, 1, invoicedomain.StatusUnpaid, "60", nil)
	seed(3, 2, invoicedomain.StatusPaid, "999", ptr(now))
	require.NoError(t, conn.Create(&clientdomain.Client{ID: 1, AccountID: 1, Name: "Jane", Email: "jane@x.test", CreatedAt: now, UpdatedAt: now}).Error)

	svc := New(Params{DB: conn, Log: zap.NewNop(), Repo: repository.Provide(), Clock: clock.NewFakeClock(now)})

	_, err = svc.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidAccount)

	stats, err := svc.Stats(accountcontext.WithAccountID(context.Background(), 1))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCounts{Total: 2, Unpaid: 1, Paid: 1, Overdue: 1}, stats.Invoices)
	assert.Equal(t, int64(1), stats.Clients)
	require.Len(t, stats.Totals, 1)
	assert.Equal(t, "40.00", stats.Totals[0].Revenue)
	assert.Equal(t, "60.00", stats.Totals[0].Outstanding)
	assert.Equal(t, "40.00", stats.Totals[0].RevenueLast30Days)
}
