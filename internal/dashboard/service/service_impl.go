package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/dashboard/domain"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recentWindow = 30 * 24 * time.Hour

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	clock clock.Clock
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("dashboard.service"),
		repo:  p.Repo,
		clock: p.Clock,
	}
}

type money struct {
	revenue, outstanding, recent, thisMonth, lastMonth decimal.Decimal
}

func (s *Service) Stats(ctx context.Context) (stats domain.Stats, err error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Stats{}, domain.ErrInvalidAccount
	}

	ctx, span := tracing.StartSpan(ctx, "dashboard.stats")
	defer func() { tracing.EndSpan(span, err) }()

	rows, err := s.repo.ListInvoiceRows(ctx, s.db, accountID)
	if err != nil {
		return domain.Stats{}, err
	}
	clients, err := s.repo.CountClients(ctx, s.db, accountID)
	if err != nil {
		return domain.Stats{}, err
	}

	return aggregate(rows, clients, s.clock.Now().UTC()), nil
}

func aggregate(rows []domain.InvoiceRow, clients int64, now time.Time) domain.Stats {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	recentSince := now.Add(-recentWindow)

	stats := domain.Stats{GeneratedAt: now, Clients: clients}
	byCurrency := map[string]*money{}

	for _, row := range rows {
		currency := strings.ToLower(row.Currency)
		m, ok := byCurrency[currency]
		if !ok {
			m = &money{}
			byCurrency[currency] = m
		}

		stats.Invoices.Total++
		switch row.Status {
		case invoicedomain.StatusPaid:
			stats.Invoices.Paid++
			m.revenue = m.revenue.Add(row.Total)
			if row.PaidAt != nil {
				paidAt := row.PaidAt.UTC()
				if !paidAt.Before(recentSince) && !paidAt.After(now) {
					m.recent = m.recent.Add(row.Total)
				}
				switch {
				case !paidAt.Before(monthStart):
					m.thisMonth = m.thisMonth.Add(row.Total)
				case !paidAt.Before(lastMonthStart):
					m.lastMonth = m.lastMonth.Add(row.Total)
				}
			}
		case invoicedomain.StatusUnpaid:
			stats.Invoices.Unpaid++
			m.outstanding = m.outstanding.Add(row.Total)
			if invoicedomain.IsOverdue(row.Status, row.DueDate, now) {
				stats.Invoices.Overdue++
			}
		case invoicedomain.StatusFailed:
			stats.Invoices.Failed++
			m.outstanding = m.outstanding.Add(row.Total)
		}
	}

	stats.SuccessRate = percent(decimal.NewFromInt(stats.Invoices.Paid), decimal.NewFromInt(stats.Invoices.Total))

	currencies := make([]string, 0, len(byCurrency))
	for currency := range byCurrency {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	stats.Totals = make([]domain.CurrencyTotals, 0, len(currencies))
	for _, currency := range currencies {
		m := byCurrency[currency]
		stats.Totals = append(stats.Totals, domain.CurrencyTotals{
			Currency:          currency,
			Revenue:           totals.Format(m.revenue),
			Outstanding:       totals.Format(m.outstanding),
			RevenueLast30Days: totals.Format(m.recent),
			RevenueThisMonth:  totals.Format(m.thisMonth),
			RevenueLastMonth:  totals.Format(m.lastMonth),
			RevenueGrowth:     growth(m.thisMonth, m.lastMonth),
		})
	}
	return stats
}

func percent(part, whole decimal.Decimal) string {
	if whole.IsZero() {
		return "0.0"
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).StringFixed(1)
}

// growth is 100% when there was no revenue last month but some this month.
func growth(current, previous decimal.Decimal) string {
	if previous.IsZero() {
		if current.IsPositive() {
			return "100.0"
		}
		return "0.0"
	}
	return percent(current.Sub(previous), previous)
}
