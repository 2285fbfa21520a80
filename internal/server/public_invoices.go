package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

type publicPaymentResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (s *Server) GetPublicInvoice(c *gin.Context) {
	resp, err := s.publicInvoiceSvc.GetInvoiceForPublicView(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPublicInvoiceStatus(c *gin.Context) {
	status, err := s.publicInvoiceSvc.GetInvoicePublicStatus(c.Request.Context(), c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": status})
}

func (s *Server) PayPublicInvoice(c *gin.Context) {
	var details paymentdomain.PaymentDetails
	if err := c.ShouldBindJSON(&details); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	res, err := s.publicInvoiceSvc.SubmitPayment(c.Request.Context(), c.Param("token"), details)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicPaymentResponse{
		Success:   res.Success,
		Reference: res.Payment.Reference,
		Status:    string(res.Payment.Status),
		Message:   res.Payment.Message,
	})
}
