package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       paymentdomain.Repository
	Clock      clock.Clock
	Config     *config.InvoicingConfigHolder
	Gateways   paymentdomain.GatewaySelector
	InvoiceSvc invoicedomain.Service
	Webhooks   paymentdomain.WebhookParser `optional:"true"`
	AuditSvc   auditdomain.Service         `optional:"true"`
	Metrics    *metrics.Metrics            `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	repo       paymentdomain.Repository
	clock      clock.Clock
	cfg        *config.InvoicingConfigHolder
	gateways   paymentdomain.GatewaySelector
	invoiceSvc invoicedomain.Service
	webhooks   paymentdomain.WebhookParser
	auditSvc   auditdomain.Service
	metrics    *metrics.Metrics
}

func NewService(p Params) paymentdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      p.Clock,
		cfg:        p.Config,
		gateways:   p.Gateways,
		invoiceSvc: p.InvoiceSvc,
		webhooks:   p.Webhooks,
		auditSvc:   p.AuditSvc,
		metrics:    p.Metrics,
	}
}

const (
	outcomeTimeout   = "timeout"
	outcomeError     = "error"
	outcomeDuplicate = "duplicate"
)

// Submit validates details, charges the invoice and feeds the gateway
// outcome into the invoice lifecycle. A paid invoice is rejected before any
// gateway call. A gateway timeout counts as a failure; any other gateway
// error leaves the invoice untouched.
func (s *Service) Submit(ctx context.Context, inv invoicedomain.Invoice, details paymentdomain.PaymentDetails) (res paymentdomain.SubmitResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "payment.submit",
		attribute.String("invoice.id", inv.ID.String()),
		attribute.String("payment.method", string(inv.PaymentMethod)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	log := logger.WithInvoice(logger.WithContext(ctx, s.log), inv.ID.String(), inv.InvoiceNumber)

	if inv.Status == invoicedomain.StatusPaid {
		return paymentdomain.SubmitResult{}, invoicedomain.ErrAlreadyPaid
	}
	if err := details.Validate(inv.PaymentMethod); err != nil {
		return paymentdomain.SubmitResult{}, err
	}

	gw, err := s.gateways.For(inv.PaymentMethod)
	if err != nil {
		return paymentdomain.SubmitResult{}, err
	}

	now := s.clock.Now().UTC()
	attempt := paymentdomain.Payment{
		ID:        s.genID.Generate(),
		Reference: ulid.Make().String(),
		InvoiceID: inv.ID,
		Gateway:   gw.Name(),
		Method:    inv.PaymentMethod,
		Amount:    totals.Round(inv.Total),
		Currency:  inv.Currency,
		Status:    paymentdomain.AttemptPending,
		Details:   datatypes.JSONMap(details.Masked()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.InsertAttempt(ctx, s.db, &attempt); err != nil {
		return paymentdomain.SubmitResult{}, err
	}

	timeout := s.cfg.Get().PaymentTimeoutOrDefault()
	chargeCtx, cancel := context.WithTimeout(ctx, timeout)
	result, chargeErr := gw.Charge(chargeCtx, paymentdomain.ChargeRequest{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		Reference:     attempt.Reference,
		AmountMinor:   totals.MinorUnits(inv.Total, inv.Currency),
		Currency:      inv.Currency,
		Description:   "Invoice " + inv.InvoiceNumber,
		Method:        inv.PaymentMethod,
		Details:       details,
	})
	deadline := errors.Is(chargeCtx.Err(), context.DeadlineExceeded) || errors.Is(chargeErr, context.DeadlineExceeded)
	timedOut := deadline && ctx.Err() == nil
	cancel()

	metricOutcome := string(result.Outcome)
	if chargeErr != nil {
		if !timedOut {
			log.Warn("payment gateway error", zap.String("gateway", gw.Name()), zap.Error(chargeErr))
			attempt.Status = paymentdomain.AttemptError
			attempt.Message = "gateway_unavailable"
			s.finishAttempt(ctx, log, &attempt)
			s.metrics.RecordPaymentAttempt(ctx, gw.Name(), string(inv.PaymentMethod), outcomeError)
			return paymentdomain.SubmitResult{}, fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, chargeErr)
		}
		log.Warn("payment gateway timed out", zap.String("gateway", gw.Name()), zap.Duration("timeout", timeout))
		result = paymentdomain.ChargeResult{Outcome: invoicedomain.OutcomeFailure, Message: outcomeTimeout}
		metricOutcome = outcomeTimeout
	}

	attempt.ProviderReference = result.ProviderReference
	attempt.Message = result.Message

	transition, err := s.invoiceSvc.ApplyPaymentOutcome(ctx, inv.ID, result.Outcome, invoicedomain.SourcePayment)
	if err != nil {
		log.Error("failed to apply payment outcome", zap.String("outcome", string(result.Outcome)), zap.Error(err))
		attempt.Status = attemptStatus(result.Outcome)
		s.finishAttempt(ctx, log, &attempt)
		return paymentdomain.SubmitResult{}, err
	}

	if !transition.Applied && transition.Invoice.Status == invoicedomain.StatusPaid {
		// A concurrent submission or webhook settled the invoice first.
		attempt.Status = paymentdomain.AttemptDuplicate
		if result.Outcome == invoicedomain.OutcomeFailure {
			attempt.Status = paymentdomain.AttemptFailed
		}
		s.finishAttempt(ctx, log, &attempt)
		s.metrics.RecordPaymentAttempt(ctx, gw.Name(), string(inv.PaymentMethod), outcomeDuplicate)
		log.Warn("payment lost race to a concurrent settlement", zap.String("reference", attempt.Reference))
		return paymentdomain.SubmitResult{}, invoicedomain.ErrAlreadyPaid
	}

	attempt.Status = attemptStatus(result.Outcome)
	s.finishAttempt(ctx, log, &attempt)
	s.metrics.RecordPaymentAttempt(ctx, gw.Name(), string(inv.PaymentMethod), metricOutcome)
	s.audit(ctx, auditdomain.Entry{
		AccountID:  inv.AccountID,
		ActorType:  auditdomain.ActorTypePublic,
		Action:     "payment.submit",
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata: map[string]any{
			"reference": attempt.Reference,
			"gateway":   attempt.Gateway,
			"outcome":   string(result.Outcome),
			"status":    string(transition.Invoice.Status),
		},
	})

	log.Info("payment processed",
		zap.String("reference", attempt.Reference),
		zap.String("gateway", attempt.Gateway),
		zap.String("outcome", string(result.Outcome)),
	)

	return paymentdomain.SubmitResult{
		Success: result.Outcome == invoicedomain.OutcomeSuccess,
		Payment: attempt,
	}, nil
}

func (s *Service) ListAttempts(ctx context.Context, invoiceID string) ([]paymentdomain.Payment, error) {
	inv, err := s.invoiceSvc.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListAttempts(ctx, s.db, inv.ID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []paymentdomain.Payment{}
	}
	return items, nil
}

// HandleStripeWebhook settles invoices from verified Stripe events. Each
// provider event is applied at most once.
func (s *Service) HandleStripeWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	if s.webhooks == nil {
		return paymentdomain.ErrGatewayNotConfigured
	}
	if !json.Valid(payload) {
		return paymentdomain.ErrInvalidPayload
	}
	if err := s.webhooks.Verify(payload, headers); err != nil {
		return err
	}

	event, err := s.webhooks.Parse(payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent(ctx, "stripe", "", "ignored")
			return nil
		}
		return err
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("provider", event.Provider),
		zap.String("event_id", event.ProviderEventID),
		zap.String("event_type", event.EventType),
	)

	invoiceID := event.InvoiceID
	record := paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.EventType,
		InvoiceID:       &invoiceID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      s.clock.Now().UTC(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, &record)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if existing == nil || existing.ProcessedAt != nil {
			log.Info("duplicate webhook event ignored")
			s.metrics.RecordWebhookEvent(ctx, event.Provider, event.EventType, "duplicate")
			return nil
		}
		// An earlier delivery stored the event but failed before applying it.
		log.Info("retrying unprocessed webhook event")
		record.ID = existing.ID
	}

	transition, err := s.invoiceSvc.ApplyPaymentOutcome(ctx, event.InvoiceID, event.Outcome, invoicedomain.SourceWebhook)
	if err != nil {
		if errors.Is(err, invoicedomain.ErrNotFound) {
			log.Warn("webhook references unknown invoice", zap.String("invoice_id", event.InvoiceID.String()))
			s.markProcessed(ctx, log, record.ID)
			s.metrics.RecordWebhookEvent(ctx, event.Provider, event.EventType, "unknown_invoice")
			return nil
		}
		return err
	}

	s.markProcessed(ctx, log, record.ID)

	result := "applied"
	if !transition.Applied {
		result = "noop"
	}
	s.metrics.RecordWebhookEvent(ctx, event.Provider, event.EventType, result)
	s.audit(ctx, auditdomain.Entry{
		AccountID:  transition.Invoice.AccountID,
		ActorType:  auditdomain.ActorTypeWebhook,
		ActorID:    event.Provider,
		Action:     "payment.webhook",
		TargetType: "invoice",
		TargetID:   event.InvoiceID.String(),
		Metadata: map[string]any{
			"event_id":   event.ProviderEventID,
			"event_type": event.EventType,
			"result":     result,
			"status":     string(transition.Invoice.Status),
		},
	})
	log.Info("webhook processed", zap.String("result", result))
	return nil
}

func (s *Service) finishAttempt(ctx context.Context, log *zap.Logger, attempt *paymentdomain.Payment) {
	attempt.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdateAttempt(ctx, s.db, attempt); err != nil {
		log.Error("failed to update payment attempt", zap.String("reference", attempt.Reference), zap.Error(err))
	}
}

func (s *Service) markProcessed(ctx context.Context, log *zap.Logger, id snowflake.ID) {
	if err := s.repo.MarkEventProcessed(ctx, s.db, id, s.clock.Now().UTC()); err != nil {
		log.Warn("failed to mark webhook event processed", zap.Error(err))
	}
}

func (s *Service) audit(ctx context.Context, entry auditdomain.Entry) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", entry.Action), zap.Error(err))
	}
}

func attemptStatus(outcome invoicedomain.Outcome) paymentdomain.AttemptStatus {
	if outcome == invoicedomain.OutcomeSuccess {
		return paymentdomain.AttemptCompleted
	}
	return paymentdomain.AttemptFailed
}

