package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chargeRequest() paymentdomain.ChargeRequest {
	return paymentdomain.ChargeRequest{
		InvoiceID:     12345,
		InvoiceNumber: "INV-20260101-0001",
		Reference:     "01HZZZREF",
		AmountMinor:   9765,
		Currency:      "USD",
		Description:   "Invoice INV-20260101-0001",
		Method:        invoicedomain.PaymentMethodStripe,
		Details: paymentdomain.PaymentDetails{
			CardholderName: "Jane",
			CardNumber:     "4242 4242 4242 4242",
			ExpiryDate:     "12/29",
			CVV:            "123",
			Email:          "jane@example.com",
			BillingAddress: "1 Road",
		},
	}
}

func newServer(t *testing.T, status int, body any, capture chan<- *http.Request) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if capture != nil {
			capture <- r
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestChargeSucceeded(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := newServer(t, http.StatusOK, map[string]any{"id": "pi_1", "status": "succeeded"}, requests)
	client := New(config.PaymentConfig{StripeSecretKey: "sk_test"}, WithBaseURL(srv.URL))

	res, err := client.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeSuccess, res.Outcome)
	assert.Equal(t, "pi_1", res.ProviderReference)

	got := <-requests
	assert.Equal(t, "/v1/payment_intents", got.URL.Path)
	assert.Equal(t, "Bearer sk_test", got.Header.Get("Authorization"))
	assert.Equal(t, "01HZZZREF", got.Header.Get("Idempotency-Key"))
	assert.Equal(t, "9765", got.PostForm.Get("amount"))
	assert.Equal(t, "usd", got.PostForm.Get("currency"))
	assert.Equal(t, "true", got.PostForm.Get("confirm"))
	assert.Equal(t, "4242424242424242", got.PostForm.Get("payment_method_data[card][number]"))
	assert.Equal(t, "2029", got.PostForm.Get("payment_method_data[card][exp_year]"))
	assert.Equal(t, "12345", got.PostForm.Get("metadata[invoice_id]"))
}

func TestChargeCardErrorIsDecline(t *testing.T) {
	srv := newServer(t, http.StatusPaymentRequired, map[string]any{
		"error": map[string]any{
			"type":           "card_error",
			"code":           "card_declined",
			"decline_code":   "insufficient_funds",
			"payment_intent": map[string]any{"id": "pi_2"},
		},
	}, nil)
	client := New(config.PaymentConfig{StripeSecretKey: "sk_test"}, WithBaseURL(srv.URL))

	res, err := client.Charge(context.Background(), chargeRequest())
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeFailure, res.Outcome)
	assert.Equal(t, "insufficient_funds", res.Message)
	assert.Equal(t, "pi_2", res.ProviderReference)
}

func TestChargeServerErrorIsUnavailable(t *testing.T) {
	srv := newServer(t, http.StatusInternalServerError, map[string]any{}, nil)
	client := New(config.PaymentConfig{StripeSecretKey: "sk_test"}, WithBaseURL(srv.URL))

	_, err := client.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)

	srv = newServer(t, http.StatusUnauthorized, map[string]any{"error": map[string]any{"type": "invalid_request_error"}}, nil)
	client = New(config.PaymentConfig{StripeSecretKey: "sk_test"}, WithBaseURL(srv.URL))
	_, err = client.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayUnavailable)
}

func TestChargeWithoutKey(t *testing.T) {
	client := New(config.PaymentConfig{})
	_, err := client.Charge(context.Background(), chargeRequest())
	assert.ErrorIs(t, err, paymentdomain.ErrGatewayNotConfigured)
}

func TestCreatePaymentLink(t *testing.T) {
	requests := make(chan *http.Request, 1)
	srv := newServer(t, http.StatusOK, map[string]any{"id": "plink_1", "url": "https://buy.stripe.com/test"}, requests)
	client := New(config.PaymentConfig{StripeSecretKey: "sk_test", StripeAccountID: "acct_1"}, WithBaseURL(srv.URL))

	link, err := client.CreatePaymentLink(context.Background(), paymentdomain.LinkRequest{
		InvoiceID:     77,
		InvoiceNumber: "INV-1",
		AmountMinor:   3000,
		Currency:      "usd",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://buy.stripe.com/test", link)
	got := <-requests
	assert.Equal(t, "/v1/payment_links", got.URL.Path)
	assert.Equal(t, "acct_1", got.Header.Get("Stripe-Account"))
	assert.Equal(t, "3000", got.PostForm.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "77", got.PostForm.Get("payment_intent_data[metadata][invoice_id]"))
}

func signatureHeader(secret string, payload []byte, ts int64) string {
	stamp := strconv.FormatInt(ts, 10)
	return "t=" + stamp + ",v1=" + sign(secret, stamp, payload)
}

func TestVerifySignature(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	client := New(config.PaymentConfig{StripeWebhookSecret: "whsec_test"}, WithNow(func() time.Time { return now }))
	payload := []byte(`{"id":"evt_1"}`)

	headers := http.Header{}
	headers.Set("Stripe-Signature", signatureHeader("whsec_test", payload, now.Unix()))
	assert.NoError(t, client.Verify(payload, headers))

	headers.Set("Stripe-Signature", signatureHeader("wrong", payload, now.Unix()))
	assert.ErrorIs(t, client.Verify(payload, headers), paymentdomain.ErrInvalidSignature)

	headers.Set("Stripe-Signature", signatureHeader("whsec_test", payload, now.Add(-time.Hour).Unix()))
	assert.ErrorIs(t, client.Verify(payload, headers), paymentdomain.ErrInvalidSignature)

	assert.ErrorIs(t, client.Verify(payload, http.Header{}), paymentdomain.ErrInvalidSignature)
}

func TestParse(t *testing.T) {
	client := New(config.PaymentConfig{})
	build := func(eventType string, object map[string]any) []byte {
		payload, _ := json.Marshal(map[string]any{
			"id":      "evt_" + eventType,
			"type":    eventType,
			"created": 1767225600,
			"data":    map[string]any{"object": object},
		})
		return payload
	}

	evt, err := client.Parse(build("payment_intent.succeeded", map[string]any{
		"id": "pi_1", "amount": 9765, "amount_received": 9765, "currency": "usd",
		"metadata": map[string]any{"invoice_id": "12345"},
	}))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeSuccess, evt.Outcome)
	assert.EqualValues(t, 12345, evt.InvoiceID)
	assert.EqualValues(t, 9765, evt.AmountMinor)
	assert.Equal(t, "pi_1", evt.ProviderPaymentID)

	evt, err = client.Parse(build("payment_intent.payment_failed", map[string]any{
		"id": "pi_2", "amount": 100, "metadata": map[string]any{"invoice_id": "12345"},
	}))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeFailure, evt.Outcome)

	evt, err = client.Parse(build("checkout.session.completed", map[string]any{
		"id": "cs_1", "amount_total": 3000, "payment_intent": "pi_3", "payment_status": "paid",
		"metadata": map[string]any{"invoice_id": "77"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "pi_3", evt.ProviderPaymentID)
	assert.EqualValues(t, 3000, evt.AmountMinor)

	_, err = client.Parse(build("checkout.session.completed", map[string]any{
		"id": "cs_2", "amount_total": 3000, "payment_status": "unpaid",
		"metadata": map[string]any{"invoice_id": "77"},
	}))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = client.Parse(build("checkout.session.completed", map[string]any{
		"id": "cs_3", "amount_total": 3000,
		"metadata": map[string]any{"invoice_id": "77"},
	}))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	evt, err = client.Parse(build("checkout.session.async_payment_succeeded", map[string]any{
		"id": "cs_2", "amount_total": 3000, "payment_intent": "pi_5", "payment_status": "paid",
		"metadata": map[string]any{"invoice_id": "77"},
	}))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeSuccess, evt.Outcome)
	assert.EqualValues(t, 77, evt.InvoiceID)

	evt, err = client.Parse(build("checkout.session.async_payment_failed", map[string]any{
		"id": "cs_2", "amount_total": 3000, "payment_status": "unpaid",
		"metadata": map[string]any{"invoice_id": "77"},
	}))
	require.NoError(t, err)
	assert.Equal(t, invoicedomain.OutcomeFailure, evt.Outcome)

	_, err = client.Parse(build("charge.refunded", map[string]any{"id": "ch_1"}))
	assert.ErrorIs(t, err, paymentdomain.ErrEventIgnored)

	_, err = client.Parse(build("payment_intent.succeeded", map[string]any{"id": "pi_4"}))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidEvent)

	_, err = client.Parse([]byte(`not json`))
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPayload)
}
