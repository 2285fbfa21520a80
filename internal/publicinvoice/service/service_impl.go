package service

import (
	"context"
	"strings"
	"time"

	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	obscontext "github.com/smallbiznis/invoicer/internal/observability/context"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	publicinvoicedomain "github.com/smallbiznis/invoicer/internal/publicinvoice/domain"
	"github.com/smallbiznis/invoicer/internal/publicinvoice/token"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       publicinvoicedomain.Repository
	Clock      clock.Clock
	PaymentSvc paymentdomain.Service
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       publicinvoicedomain.Repository
	clock      clock.Clock
	paymentSvc paymentdomain.Service
}

func New(p Params) publicinvoicedomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("publicinvoice.service"),
		repo:       p.Repo,
		clock:      p.Clock,
		paymentSvc: p.PaymentSvc,
	}
}

func (s *Service) Resolve(ctx context.Context, publicToken string) (invoicedomain.Invoice, error) {
	row, err := s.loadPublicInvoice(ctx, publicToken)
	if err != nil {
		return invoicedomain.Invoice{}, err
	}
	return row.Invoice, nil
}

func (s *Service) GetInvoiceForPublicView(
	ctx context.Context,
	publicToken string,
) (publicinvoicedomain.PublicInvoiceResponse, error) {
	row, err := s.loadPublicInvoice(ctx, publicToken)
	if err != nil {
		return publicinvoicedomain.PublicInvoiceResponse{}, err
	}

	now := s.clock.Now()
	return publicinvoicedomain.PublicInvoiceResponse{
		Status:  publicInvoiceStatus(row.Invoice, now),
		From:    row.AccountName,
		Payable: row.Status != invoicedomain.StatusPaid,
		Invoice: invoicedomain.NewView(row.Invoice, now),
	}, nil
}

func (s *Service) GetInvoicePublicStatus(
	ctx context.Context,
	publicToken string,
) (publicinvoicedomain.PublicInvoiceStatus, error) {
	row, err := s.loadPublicInvoice(ctx, publicToken)
	if err != nil {
		return publicinvoicedomain.PublicInvoiceStatusUnpaid, err
	}
	return publicInvoiceStatus(row.Invoice, s.clock.Now()), nil
}

// SubmitPayment resolves the token afresh so the paid check in the payment
// service sees the current status.
func (s *Service) SubmitPayment(
	ctx context.Context,
	publicToken string,
	details paymentdomain.PaymentDetails,
) (res paymentdomain.SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "publicinvoice.submit_payment")
	defer func() { tracing.EndSpan(span, err) }()

	row, err := s.loadPublicInvoice(ctx, publicToken)
	if err != nil {
		return paymentdomain.SubmitResult{}, err
	}

	if actorType, _ := obscontext.ActorFromContext(ctx); actorType == "" {
		ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypePublic), "")
	}
	res, err = s.paymentSvc.Submit(ctx, row.Invoice, details)
	if err != nil {
		logger.WithInvoice(logger.WithContext(ctx, s.log), row.ID.String(), row.InvoiceNumber).
			Info("public payment rejected", zap.Error(err))
		return paymentdomain.SubmitResult{}, err
	}
	return res, nil
}

func (s *Service) loadPublicInvoice(ctx context.Context, publicToken string) (*publicinvoicedomain.InvoiceRecord, error) {
	publicToken = strings.TrimSpace(publicToken)
	if !token.Valid(publicToken) {
		return nil, publicinvoicedomain.ErrInvoiceUnavailable
	}

	row, err := s.repo.FindInvoiceByToken(ctx, s.db, publicToken)
	if err != nil {
		return nil, err
	}
	if row == nil || row.PublicToken != publicToken {
		return nil, publicinvoicedomain.ErrInvoiceUnavailable
	}

	items, err := s.repo.ListInvoiceItems(ctx, s.db, row.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []invoicedomain.InvoiceItem{}
	}
	row.Items = items
	return row, nil
}

func publicInvoiceStatus(inv invoicedomain.Invoice, now time.Time) publicinvoicedomain.PublicInvoiceStatus {
	switch {
	case inv.Status == invoicedomain.StatusPaid:
		return publicinvoicedomain.PublicInvoiceStatusPaid
	case inv.Status == invoicedomain.StatusFailed:
		return publicinvoicedomain.PublicInvoiceStatusFailed
	case inv.IsOverdue(now):
		return publicinvoicedomain.PublicInvoiceStatusOverdue
	default:
		return publicinvoicedomain.PublicInvoiceStatusUnpaid
	}
}
