package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/pkg/db/pagination"
)

type createInvoiceItemRequest struct {
	Description string       `json:"description"`
	Quantity    looseDecimal `json:"quantity"`
	UnitPrice   looseDecimal `json:"unit_price"`
}

type createInvoiceRequest struct {
	ClientID      string                     `json:"client_id"`
	Items         []createInvoiceItemRequest `json:"items"`
	DiscountType  string                     `json:"discount_type"`
	DiscountValue looseDecimal               `json:"discount_value"`
	TaxRate       looseDecimal               `json:"tax_rate"`
	Currency      string                     `json:"currency"`
	PaymentMethod string                     `json:"payment_method"`
	Notes         string                     `json:"notes"`
	DueDate       string                     `json:"due_date"`
}

// invoiceResponse is the owner's view of an invoice: rounded amounts plus
// the identifiers and share link.
type invoiceResponse struct {
	ID          string `json:"id"`
	ClientID    string `json:"client_id"`
	PublicToken string `json:"public_token"`
	PublicURL   string `json:"public_url"`
	invoicedomain.View
}

func (s *Server) toInvoiceResponse(inv invoicedomain.Invoice, now time.Time) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID.String(),
		ClientID:    inv.ClientID.String(),
		PublicToken: inv.PublicToken,
		PublicURL:   invoicedomain.PublicURL(s.cfg.PublicBaseURL, inv.PublicToken),
		View:        invoicedomain.NewView(inv, now),
	}
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req createInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	dueDate, err := parseOptionalTime(req.DueDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("due_date", "invalid_due_date", "invalid due_date"))
		return
	}

	items := make([]invoicedomain.CreateInvoiceItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, invoicedomain.CreateInvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity.Decimal,
			UnitPrice:   item.UnitPrice.Decimal,
		})
	}

	inv, err := s.invoiceSvc.Create(c.Request.Context(), invoicedomain.CreateInvoiceRequest{
		ClientID:      strings.TrimSpace(req.ClientID),
		Items:         items,
		DiscountType:  req.DiscountType,
		DiscountValue: req.DiscountValue.Decimal,
		TaxRate:       req.TaxRate.Decimal,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		DueDate:       dueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": s.toInvoiceResponse(inv, s.clock.Now())})
}

func (s *Server) ListInvoices(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status   string `form:"status"`
		ClientID string `form:"client_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), invoicedomain.ListInvoiceRequest{
		PageToken: query.PageToken,
		PageSize:  query.PageSize,
		Status:    strings.TrimSpace(query.Status),
		ClientID:  strings.TrimSpace(query.ClientID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	now := s.clock.Now()
	data := make([]invoiceResponse, 0, len(resp.Invoices))
	for _, inv := range resp.Invoices {
		data = append(data, s.toInvoiceResponse(inv, now))
	}

	c.JSON(http.StatusOK, gin.H{"data": data, "page_info": resp.PageInfo})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.toInvoiceResponse(inv, s.clock.Now())})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	if err := s.invoiceSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	inv, err := s.invoiceSvc.MarkPaid(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.toInvoiceResponse(inv, s.clock.Now())})
}

func (s *Server) GenerateInvoicePaymentLink(c *gin.Context) {
	inv, err := s.invoiceSvc.GeneratePaymentLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"payment_link_url": inv.PaymentLinkURL}})
}

func (s *Server) DownloadInvoicePDF(c *gin.Context) {
	doc, err := s.invoiceSvc.RenderPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+doc.Filename+`"`)
	c.Header("Content-Length", strconv.Itoa(len(doc.Content)))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}

func (s *Server) SendInvoice(c *gin.Context) {
	if err := s.invoiceSvc.SendToClient(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (s *Server) ListInvoicePayments(c *gin.Context) {
	attempts, err := s.paymentSvc.ListAttempts(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": attempts})
}
