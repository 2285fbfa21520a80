package service

import (
	"context"
	"fmt"
	"strings"

	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/invoice/totals"
	"github.com/smallbiznis/invoicer/internal/observability/logger"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	"github.com/smallbiznis/invoicer/internal/providers/email"
	"github.com/smallbiznis/invoicer/internal/providers/pdf"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

func (s *Service) RenderPDF(ctx context.Context, id string) (doc domain.Document, err error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.render_pdf")
	defer func() { tracing.EndSpan(span, err) }()

	inv, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Document{}, err
	}

	content, err := s.pdf.RenderInvoice(ctx, s.printData(inv))
	if err != nil {
		return domain.Document{}, fmt.Errorf("render invoice pdf: %w", err)
	}

	return domain.Document{
		Filename:    pdf.Filename(inv.InvoiceNumber, inv.ClientName),
		ContentType: "application/pdf",
		Content:     content,
	}, nil
}

// SendToClient emails the public share link to the client snapshot address.
func (s *Service) SendToClient(ctx context.Context, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "invoice.send")
	defer func() { tracing.EndSpan(span, err) }()

	inv, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(inv.ClientEmail) == "" {
		return domain.ErrInvalidClient
	}

	link := domain.PublicURL(s.baseURL, inv.PublicToken)
	data := email.InvoiceLinkData{
		ClientName:    inv.ClientName,
		InvoiceNumber: inv.InvoiceNumber,
		Total:         totals.Format(inv.Total),
		Currency:      strings.ToUpper(inv.Currency),
		Link:          link,
	}
	if inv.DueDate != nil {
		data.DueDate = inv.DueDate.Format(dateLayout)
	}

	subject := fmt.Sprintf("Invoice %s", inv.InvoiceNumber)
	if err := s.email.SendTemplate(ctx, []string{inv.ClientEmail}, email.TemplateInvoiceLink, subject, data); err != nil {
		logger.WithInvoice(logger.WithContext(ctx, s.log), inv.ID.String(), inv.InvoiceNumber).
			Error("failed to send invoice email", zap.Error(err))
		return err
	}

	s.audit(ctx, auditdomain.Entry{
		Action:     "invoice.send",
		TargetType: "invoice",
		TargetID:   inv.ID.String(),
		Metadata:   map[string]any{"email": inv.ClientEmail},
	})
	return nil
}

func (s *Service) printData(inv domain.Invoice) pdf.InvoiceData {
	view := domain.NewView(inv, s.clock.Now())

	items := make([]pdf.InvoiceItem, 0, len(view.Items))
	for _, item := range view.Items {
		items = append(items, pdf.InvoiceItem{
			Description: item.Description,
			Qty:         item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Total,
		})
	}

	var discountLabel string
	switch inv.DiscountType {
	case totals.DiscountFixed:
		discountLabel = "Discount (fixed)"
	default:
		discountLabel = fmt.Sprintf("Discount (%s%%)", view.DiscountValue)
	}

	data := pdf.InvoiceData{
		InvoiceNumber:  view.InvoiceNumber,
		IssueDate:      view.CreatedAt.Format(dateLayout),
		Status:         string(view.Status),
		Overdue:        view.Overdue,
		BillToName:     view.ClientName,
		BillToCompany:  view.ClientCompany,
		BillToAddress:  view.ClientAddress,
		BillToEmail:    view.ClientEmail,
		Items:          items,
		Currency:       view.Currency,
		Subtotal:       view.Subtotal,
		DiscountLabel:  discountLabel,
		DiscountAmount: view.DiscountAmount,
		TaxLabel:       fmt.Sprintf("Tax (%s%%)", view.TaxRate),
		TaxAmount:      view.TaxAmount,
		Total:          view.Total,
		PaymentMethod:  string(view.PaymentMethod),
		PaymentURL:     domain.PublicURL(s.baseURL, inv.PublicToken),
		Notes:          view.Notes,
	}
	if view.DueDate != nil {
		data.DueDate = view.DueDate.Format(dateLayout)
	}
	if inv.Status == domain.StatusPaid {
		data.PaymentURL = ""
	}
	return data
}
