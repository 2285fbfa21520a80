// Package stripe talks to the Stripe REST API for charges, payment links
// and webhooks.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/invoicer/internal/config"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

const (
	Provider       = "stripe"
	defaultBaseURL = "https://api.stripe.com"
	// signatureTolerance bounds the age of a webhook timestamp.
	signatureTolerance = 5 * time.Minute
)

type Client struct {
	apiKey        string
	accountID     string
	webhookSecret string
	baseURL       string
	http          *http.Client
	now           func() time.Time
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) { c.http = client }
}

func WithNow(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(cfg config.PaymentConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:        strings.TrimSpace(cfg.StripeSecretKey),
		accountID:     strings.TrimSpace(cfg.StripeAccountID),
		webhookSecret: strings.TrimSpace(cfg.StripeWebhookSecret),
		baseURL:       defaultBaseURL,
		http:          tracing.WrapHTTPClient(&http.Client{Timeout: 30 * time.Second}),
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return Provider }

// Charge creates and confirms a PaymentIntent. Card declines come back as a
// failure outcome; everything else Stripe rejects is an error.
func (c *Client) Charge(ctx context.Context, req paymentdomain.ChargeRequest) (paymentdomain.ChargeResult, error) {
	if req.Method != invoicedomain.PaymentMethodStripe {
		return paymentdomain.ChargeResult{}, paymentdomain.ErrUnsupportedMethod
	}
	month, year, err := splitExpiry(req.Details.ExpiryDate)
	if err != nil {
		return paymentdomain.ChargeResult{
			Outcome: invoicedomain.OutcomeFailure,
			Message: "invalid expiry date",
		}, nil
	}

	values := url.Values{}
	values.Set("amount", strconv.FormatInt(req.AmountMinor, 10))
	values.Set("currency", strings.ToLower(req.Currency))
	values.Set("confirm", "true")
	values.Set("description", req.Description)
	values.Set("payment_method_types[]", "card")
	values.Set("payment_method_data[type]", "card")
	values.Set("payment_method_data[card][number]", strings.NewReplacer(" ", "", "-", "").Replace(req.Details.CardNumber))
	values.Set("payment_method_data[card][exp_month]", month)
	values.Set("payment_method_data[card][exp_year]", year)
	values.Set("payment_method_data[card][cvc]", strings.TrimSpace(req.Details.CVV))
	values.Set("payment_method_data[billing_details][name]", strings.TrimSpace(req.Details.CardholderName))
	values.Set("payment_method_data[billing_details][email]", strings.TrimSpace(req.Details.Email))
	values.Set("payment_method_data[billing_details][address][line1]", strings.TrimSpace(req.Details.BillingAddress))
	values.Set("receipt_email", strings.TrimSpace(req.Details.Email))
	values.Set("metadata[invoice_id]", req.InvoiceID.String())
	values.Set("metadata[invoice_number]", req.InvoiceNumber)
	values.Set("metadata[reference]", req.Reference)

	var intent paymentIntent
	apiErr, err := c.post(ctx, "/v1/payment_intents", values, req.Reference, &intent)
	if err != nil {
		return paymentdomain.ChargeResult{}, err
	}
	if apiErr != nil {
		if apiErr.Type == "card_error" {
			return paymentdomain.ChargeResult{
				Outcome:           invoicedomain.OutcomeFailure,
				ProviderReference: apiErr.PaymentIntent.ID,
				Message:           firstNonEmpty(apiErr.DeclineCode, apiErr.Code, apiErr.Message),
			}, nil
		}
		return paymentdomain.ChargeResult{}, fmt.Errorf("%w: %s", paymentdomain.ErrGatewayUnavailable, firstNonEmpty(apiErr.Type, "stripe_request_failed"))
	}

	result := paymentdomain.ChargeResult{ProviderReference: intent.ID, Message: intent.Status}
	if intent.Status == "succeeded" {
		result.Outcome = invoicedomain.OutcomeSuccess
	} else {
		result.Outcome = invoicedomain.OutcomeFailure
	}
	return result, nil
}

// CreatePaymentLink creates an inline price and a Payment Link for it.
func (c *Client) CreatePaymentLink(ctx context.Context, req paymentdomain.LinkRequest) (string, error) {
	values := url.Values{}
	values.Set("line_items[0][quantity]", "1")
	values.Set("line_items[0][price_data][currency]", strings.ToLower(req.Currency))
	values.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(req.AmountMinor, 10))
	values.Set("line_items[0][price_data][product_data][name]", firstNonEmpty(req.Description, "Invoice "+req.InvoiceNumber))
	values.Set("metadata[invoice_id]", req.InvoiceID.String())
	values.Set("metadata[invoice_number]", req.InvoiceNumber)
	values.Set("payment_intent_data[metadata][invoice_id]", req.InvoiceID.String())

	var link paymentLink
	apiErr, err := c.post(ctx, "/v1/payment_links", values, "link:"+req.InvoiceID.String()+":"+strconv.FormatInt(req.AmountMinor, 10), &link)
	if err != nil {
		return "", err
	}
	if apiErr != nil {
		return "", fmt.Errorf("%w: %s", paymentdomain.ErrGatewayUnavailable, firstNonEmpty(apiErr.Message, apiErr.Type))
	}
	if strings.TrimSpace(link.URL) == "" {
		return "", fmt.Errorf("%w: empty payment link", paymentdomain.ErrGatewayUnavailable)
	}
	return link.URL, nil
}

type paymentIntent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type paymentLink struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type apiError struct {
	Type          string `json:"type"`
	Code          string `json:"code"`
	DeclineCode   string `json:"decline_code"`
	Message       string `json:"message"`
	PaymentIntent struct {
		ID string `json:"id"`
	} `json:"payment_intent"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

// post returns a decoded Stripe error for 4xx answers and an error for
// transport failures and 5xx answers.
func (c *Client) post(ctx context.Context, path string, values url.Values, idempotencyKey string, out any) (*apiError, error) {
	if c.apiKey == "" {
		return nil, paymentdomain.ErrGatewayNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	if c.accountID != "" {
		req.Header.Set("Stripe-Account", c.accountID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: stripe status %d", paymentdomain.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var decoded errorResponse
		if err := json.Unmarshal(body, &decoded); err != nil {
			return nil, fmt.Errorf("%w: stripe status %d", paymentdomain.ErrGatewayUnavailable, resp.StatusCode)
		}
		return &decoded.Error, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("%w: %v", paymentdomain.ErrGatewayUnavailable, err)
	}
	return nil, nil
}

func splitExpiry(expiry string) (string, string, error) {
	parts := strings.Split(strings.TrimSpace(expiry), "/")
	if len(parts) != 2 {
		return "", "", errors.New("invalid_expiry")
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return "", "", errors.New("invalid_expiry")
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return "", "", errors.New("invalid_expiry")
	}
	return strconv.Itoa(month), strconv.Itoa(2000 + year), nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
