package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicer/internal/accountcontext"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/format"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/smallbiznis/invoicer/internal/providers/email"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"github.com/smallbiznis/invoicer/internal/publicinvoice/token"
	"github.com/smallbiznis/invoicer/pkg/db"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// maxCreateAttempts bounds retries when a generated number or token collides.
const maxCreateAttempts = 5

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ClientRepo clientdomain.Repository
	Clock      clock.Clock
	Cfg        config.Config
	Invoicing  *config.InvoicingConfigHolder
	PDF        pdf.Provider
	Email      email.Provider
	Links      paymentdomain.LinkProvider `optional:"true"`
	AuditSvc   auditdomain.Service        `optional:"true"`
	Metrics    *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clientRepo clientdomain.Repository
	clock      clock.Clock
	baseURL    string
	invoicing  *config.InvoicingConfigHolder
	pdf        pdf.Provider
	email      email.Provider
	links      paymentdomain.LinkProvider
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("invoice.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clientRepo: p.ClientRepo,
		clock:      p.Clock,
		baseURL:    p.Cfg.PublicBaseURL,
		invoicing:  p.Invoicing,
		pdf:        p.PDF,
		email:      p.Email,
		links:      p.Links,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateInvoiceRequest) (inv domain.Invoice, err error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.create")
	defer func() { tracing.EndSpan(span, err) }()

	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.Invoice{}, domain.ErrInvalidAccount
	}

	clientID, err := snowflake.ParseString(strings.TrimSpace(req.ClientID))
	if err != nil || clientID == 0 {
		return domain.Invoice{}, domain.ErrInvalidClient
	}

	settings := s.invoicing.Get()
	draft, err := s.buildDraft(req, settings)
	if err != nil {
		return domain.Invoice{}, err
	}

	client, err := s.clientRepo.FindByID(ctx, s.db, accountID, clientID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if client == nil {
		return domain.Invoice{}, domain.ErrClientNotFound
	}

	now := s.clock.Now().UTC()
	draft.AccountID = accountID
	draft.ClientID = client.ID
	draft.ClientName = client.Name
	draft.ClientCompany = client.Company
	draft.ClientEmail = client.Email
	draft.ClientAddress = client.Address
	draft.Status = domain.StatusUnpaid
	draft.CreatedAt = now
	draft.UpdatedAt = now
	if draft.DueDate == nil && settings.DefaultDueDays > 0 {
		due := domain.StartOfDay(now).AddDate(0, 0, settings.DefaultDueDays)
		draft.DueDate = &due
	}

	dayPrefix := format.DayPrefix(settings.InvoicePrefix, now)
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		count, err := s.repo.CountNumbersWithPrefix(ctx, s.db, accountID, dayPrefix)
		if err != nil {
			return domain.Invoice{}, err
		}
		number, err := format.InvoiceNumber(settings.InvoicePrefix, now, count+1+int64(attempt))
		if err != nil {
			return domain.Invoice{}, err
		}
		publicToken, err := token.Generate()
		if err != nil {
			return domain.Invoice{}, err
		}

		inv = draft
		inv.ID = s.genID.Generate()
		inv.InvoiceNumber = number
		inv.PublicToken = publicToken
		inv.Items = make([]domain.InvoiceItem, len(draft.Items))
		for i, item := range draft.Items {
			item.ID = s.genID.Generate()
			item.InvoiceID = inv.ID
			inv.Items[i] = item
		}

		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := s.repo.Insert(ctx, tx, &inv); err != nil {
				return err
			}
			return s.repo.InsertItems(ctx, tx, inv.Items)
		})
		if err == nil {
			break
		}
		if !db.IsDuplicateKeyErr(err) {
			return domain.Invoice{}, err
		}
		s.log.Warn("invoice number or token collided, retrying",
			zap.String("invoice_number", number),
			zap.Int("attempt", attempt+1),
		)
		if attempt == maxCreateAttempts-1 {
			return domain.Invoice{}, domain.ErrNumberExhausted
		}
	}

	s.metrics.RecordInvoiceCreated(ctx, inv.Currency)
	s.audit(ctx, auditdomain.Entry{
		Action:     "invoice.create",
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata: map[string]any{
			"invoice_number": inv.InvoiceNumber,
			"client_id":      inv.ClientID.String(),
			"total":          totals.Format(inv.Total),
			"currency":       inv.Currency,
		},
	})
	logger.WithInvoice(logger.WithContext(ctx, s.log), inv.ID.String(), inv.InvoiceNumber).
		Info("invoice created", zap.String("total", totals.Format(inv.Total)))

	return inv, nil
}

// buildDraft validates the request and computes totals. Client snapshot,
// identifiers and timestamps are filled in by Create.
func (s *Service) buildDraft(req domain.CreateInvoiceRequest, settings config.InvoicingConfig) (domain.Invoice, error) {
	if len(req.Items) == 0 {
		return domain.Invoice{}, domain.ErrInvalidItems
	}

	discountType := totals.DiscountPercentage
	if raw := strings.ToLower(strings.TrimSpace(req.DiscountType)); raw != "" {
		discountType = totals.DiscountType(raw)
		if !discountType.Valid() {
			return domain.Invoice{}, domain.ErrInvalidDiscountType
		}
	}

	method := domain.PaymentMethodStripe
	if raw := strings.ToLower(strings.TrimSpace(req.PaymentMethod)); raw != "" {
		method = domain.PaymentMethod(raw)
		if !method.Valid() {
			return domain.Invoice{}, domain.ErrInvalidPaymentMethod
		}
	}

	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = strings.ToLower(settings.DefaultCurrency)
	}
	if len(currency) != 3 {
		return domain.Invoice{}, domain.ErrInvalidCurrency
	}

	lines := make([]totals.Line, 0, len(req.Items))
	items := make([]domain.InvoiceItem, 0, len(req.Items))
	for i, item := range req.Items {
		description := strings.TrimSpace(item.Description)
		if description == "" {
			return domain.Invoice{}, domain.ErrInvalidDescription
		}
		line := totals.Line{Quantity: clampZero(item.Quantity), UnitPrice: clampZero(item.UnitPrice)}
		lines = append(lines, line)
		items = append(items, domain.InvoiceItem{
			Position:    i + 1,
			Description: description,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
		})
	}

	discountValue := clampZero(req.DiscountValue)
	taxRate := clampZero(req.TaxRate)
	result := totals.Compute(lines, totals.Discount{Type: discountType, Value: discountValue}, taxRate)
	for i := range items {
		items[i].Total = result.LineTotals[i]
	}

	var dueDate *time.Time
	if req.DueDate != nil {
		due := domain.StartOfDay(*req.DueDate)
		dueDate = &due
	}

	return domain.Invoice{
		Subtotal:       result.Subtotal,
		DiscountType:   discountType,
		DiscountValue:  discountValue,
		DiscountAmount: result.DiscountAmount,
		TaxRate:        taxRate,
		TaxAmount:      result.TaxAmount,
		Total:          result.Total,
		Currency:       currency,
		PaymentMethod:  method,
		Notes:          strings.TrimSpace(req.Notes),
		DueDate:        dueDate,
		Items:          items,
	}, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidAccount
	}

	filter := domain.ListInvoiceFilter{Today: domain.StartOfDay(s.clock.Now())}
	switch status := strings.ToLower(strings.TrimSpace(req.Status)); {
	case status == "" || status == "all":
	case status == domain.StatusOverdue:
		filter.Overdue = true
	case domain.Status(status).Valid():
		filter.Status = domain.Status(status)
	default:
		return domain.ListInvoiceResponse{}, domain.ErrInvalidStatus
	}
	if raw := strings.TrimSpace(req.ClientID); raw != "" {
		clientID, err := snowflake.ParseString(raw)
		if err != nil || clientID == 0 {
			return domain.ListInvoiceResponse{}, domain.ErrInvalidClient
		}
		filter.ClientID = clientID
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: req.PageSize}
	items, err := s.repo.List(ctx, s.db, accountID, filter, page)
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, page.Size(), func(inv *domain.Invoice) pagination.Cursor {
		return pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339Nano),
		}
	})

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	return domain.ListInvoiceResponse{PageInfo: pageInfo, Invoices: invoices}, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.find(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if err := s.loadItems(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) MarkPaid(ctx context.Context, id string) (domain.Invoice, error) {
	inv, err := s.find(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}

	if inv.Status != domain.StatusPaid {
		result, err := s.apply(ctx, inv, domain.OutcomeSuccess, domain.SourceManual)
		if err != nil {
			return domain.Invoice{}, err
		}
		inv = &result.Invoice
	}

	if err := s.loadItems(ctx, inv); err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) ApplyPaymentOutcome(ctx context.Context, id snowflake.ID, outcome domain.Outcome, source domain.Source) (result domain.TransitionResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.apply_payment_outcome",
		attribute.String("invoice.id", id.String()),
		attribute.String("payment.outcome", string(outcome)),
		attribute.String("transition.source", string(source)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	if id == 0 {
		return domain.TransitionResult{}, domain.ErrInvalidID
	}
	inv, err := s.repo.FindByIDUnscoped(ctx, s.db, id)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if inv == nil {
		return domain.TransitionResult{}, domain.ErrNotFound
	}
	return s.apply(ctx, inv, outcome, source)
}

// apply runs the conditional update for outcome. When the update loses to a
// concurrent writer, or the current status does not allow it, the stored
// invoice is returned with Applied false.
func (s *Service) apply(ctx context.Context, inv *domain.Invoice, outcome domain.Outcome, source domain.Source) (domain.TransitionResult, error) {
	log := logger.WithInvoice(logger.WithContext(ctx, s.log), inv.ID.String(), inv.InvoiceNumber)
	transition := domain.TransitionFor(outcome)
	previous := inv.Status

	if !transition.Allows(previous) {
		log.Info("status transition not applicable",
			zap.String("status", string(previous)),
			zap.String("outcome", string(outcome)),
			zap.String("source", string(source)),
		)
		return domain.TransitionResult{Invoice: *inv, Previous: previous}, nil
	}

	applied, err := s.repo.TransitionStatus(ctx, s.db, inv.ID, transition, s.clock.Now())
	if err != nil {
		return domain.TransitionResult{}, err
	}

	current, err := s.repo.FindByIDUnscoped(ctx, s.db, inv.ID)
	if err != nil {
		return domain.TransitionResult{}, err
	}
	if current == nil {
		return domain.TransitionResult{}, domain.ErrNotFound
	}

	if !applied {
		log.Info("status transition lost to concurrent update",
			zap.String("status", string(current.Status)),
			zap.String("outcome", string(outcome)),
			zap.String("source", string(source)),
		)
		return domain.TransitionResult{Invoice: *current, Previous: previous}, nil
	}

	s.metrics.RecordStatusTransition(ctx, string(previous), string(current.Status), string(source))
	entry := auditdomain.Entry{
		AccountID:  current.AccountID,
		Action:     "invoice.status_changed",
		TargetType: "invoice",
		TargetID:   current.ID.String(),
		Metadata: map[string]any{
			"from":   string(previous),
			"to":     string(current.Status),
			"source": string(source),
		},
	}
	if source != domain.SourceManual {
		entry.ActorType = auditdomain.ActorTypeSystem
	}
	s.audit(ctx, entry)
	log.Info("invoice status changed",
		zap.String("from", string(previous)),
		zap.String("to", string(current.Status)),
		zap.String("source", string(source)),
	)

	return domain.TransitionResult{Invoice: *current, Previous: previous, Applied: true}, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	var deleted bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		deleted, err = s.repo.Delete(ctx, tx, accountID, invoiceID)
		return err
	})
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}

	s.audit(ctx, auditdomain.Entry{
		Action:     "invoice.delete",
		TargetType: "invoice",
		TargetID:   invoiceID.String(),
	})
	return nil
}

// GeneratePaymentLink creates a hosted checkout link for an unpaid invoice
// and stores its URL.
func (s *Service) GeneratePaymentLink(ctx context.Context, id string) (inv domain.Invoice, err error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.generate_payment_link")
	defer func() { tracing.EndSpan(span, err) }()

	if s.links == nil {
		return domain.Invoice{}, domain.ErrPaymentLinkDisabled
	}

	found, err := s.find(ctx, id)
	if err != nil {
		return domain.Invoice{}, err
	}
	if found.Status == domain.StatusPaid {
		return domain.Invoice{}, domain.ErrAlreadyPaid
	}

	url, err := s.links.CreatePaymentLink(ctx, paymentdomain.LinkRequest{
		InvoiceID:     found.ID,
		InvoiceNumber: found.InvoiceNumber,
		AmountMinor:   totals.MinorUnits(found.Total, found.Currency),
		Currency:      found.Currency,
		Description:   "Invoice " + found.InvoiceNumber,
	})
	if err != nil {
		logger.WithInvoice(logger.WithContext(ctx, s.log), found.ID.String(), found.InvoiceNumber).
			Warn("payment link creation failed", zap.Error(err))
		return domain.Invoice{}, err
	}

	now := s.clock.Now().UTC()
	if err := s.repo.UpdatePaymentLink(ctx, s.db, found.AccountID, found.ID, url, now); err != nil {
		return domain.Invoice{}, err
	}
	found.PaymentLinkURL = url
	found.UpdatedAt = now

	s.audit(ctx, auditdomain.Entry{
		Action:     "invoice.payment_link",
		TargetType: "invoice",
		TargetID:   found.ID.String(),
	})

	if err := s.loadItems(ctx, found); err != nil {
		return domain.Invoice{}, err
	}
	return *found, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.Invoice, error) {
	accountID, ok := accountcontext.AccountIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	inv, err := s.repo.FindByID(ctx, s.db, accountID, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func (s *Service) loadItems(ctx context.Context, inv *domain.Invoice) error {
	items, err := s.repo.ListItems(ctx, s.db, inv.ID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []domain.InvoiceItem{}
	}
	inv.Items = items
	return nil
}

func (s *Service) audit(ctx context.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
