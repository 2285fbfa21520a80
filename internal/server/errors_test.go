package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	authdomain "github.com/smallbiznis/invoicer/internal/auth/domain"
	clientdomain "github.com/smallbiznis/invoicer/internal/client/domain"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"session", authdomain.ErrInvalidSession, http.StatusUnauthorized, "unauthorized"},
		{"account context", invoicedomain.ErrInvalidAccount, http.StatusUnauthorized, "unauthorized"},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{"gateway down", fmt.Errorf("%w: dial tcp", paymentdomain.ErrGatewayUnavailable), http.StatusBadGateway, "gateway_unavailable"},
		{"link disabled", invoicedomain.ErrPaymentLinkDisabled, http.StatusServiceUnavailable, "payment_link_unavailable"},
		{"already paid", invoicedomain.ErrAlreadyPaid, http.StatusConflict, "invoice_already_paid"},
		{"invoice missing", invoicedomain.ErrNotFound, http.StatusNotFound, "invoice_not_found"},
		{"client missing", clientdomain.ErrNotFound, http.StatusNotFound, clientdomain.ErrNotFound.Error()},
		{"field", invoicedomain.ErrInvalidStatus, http.StatusBadRequest, "validation_error"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, payload.Type)
		})
	}
}

func TestMapErrorReportsEveryField(t *testing.T) {
	details := paymentdomain.PaymentDetails{}
	err := details.Validate(invoicedomain.PaymentMethodStripe)
	require.Error(t, err)

	status, payload := mapError(err)
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 6)
	assert.Equal(t, "cardholder_name", payload.Errors[0].Field)
	assert.Equal(t, "invalid_cvv", payload.Errors[3].Code)
}

func TestMapErrorKeepsExplicitValidationErrors(t *testing.T) {
	status, payload := mapError(newValidationError("due_date", "invalid_due_date", "invalid due_date"))
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "due_date", payload.Errors[0].Field)
}

func TestClassifyErrorForLogUsesFieldCode(t *testing.T) {
	_, code := classifyErrorForLog(invoicedomain.ErrInvalidStatus)
	assert.Equal(t, "invalid_status", code)
}
