package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/invoicer/internal/payment/domain"
)

// Verify checks the Stripe-Signature header against the webhook secret.
func (c *Client) Verify(payload []byte, headers http.Header) error {
	if c.webhookSecret == "" {
		return paymentdomain.ErrGatewayNotConfigured
	}
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return paymentdomain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}
	age := c.now().Sub(time.Unix(unix, 0))
	if age > signatureTolerance || age < -signatureTolerance {
		return paymentdomain.ErrInvalidSignature
	}

	expected := sign(c.webhookSecret, timestamp, payload)
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}
	return paymentdomain.ErrInvalidSignature
}

// Parse decodes the events that settle invoices. Other types return
// ErrEventIgnored.
func (c *Client) Parse(payload []byte) (*paymentdomain.WebhookEvent, error) {
	var evt event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(evt.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	var outcome invoicedomain.Outcome
	switch evt.Type {
	case "payment_intent.succeeded", "checkout.session.completed", "checkout.session.async_payment_succeeded":
		outcome = invoicedomain.OutcomeSuccess
	case "payment_intent.payment_failed", "checkout.session.async_payment_failed":
		outcome = invoicedomain.OutcomeFailure
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	var obj eventObject
	if err := json.Unmarshal(evt.Data.Object, &obj); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	invoiceID, err := snowflake.ParseString(strings.TrimSpace(obj.Metadata["invoice_id"]))
	if err != nil || invoiceID == 0 {
		return nil, paymentdomain.ErrInvalidEvent
	}
	// A completed session with a delayed payment method settles later through
	// checkout.session.async_payment_succeeded.
	if evt.Type == "checkout.session.completed" && obj.PaymentStatus != "paid" {
		return nil, paymentdomain.ErrEventIgnored
	}

	amount := obj.AmountReceived
	if amount <= 0 {
		amount = obj.Amount
	}
	if amount <= 0 {
		amount = obj.AmountTotal
	}
	paymentID := obj.ID
	if obj.PaymentIntent != "" {
		paymentID = obj.PaymentIntent
	}

	occurred := evt.Created
	if occurred == 0 {
		occurred = obj.Created
	}

	return &paymentdomain.WebhookEvent{
		Provider:          Provider,
		ProviderEventID:   evt.ID,
		EventType:         evt.Type,
		ProviderPaymentID: paymentID,
		Outcome:           outcome,
		InvoiceID:         invoiceID,
		AmountMinor:       amount,
		Currency:          strings.ToLower(strings.TrimSpace(obj.Currency)),
		OccurredAt:        time.Unix(occurred, 0).UTC(),
		RawPayload:        payload,
	}, nil
}

type event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type eventObject struct {
	ID             string            `json:"id"`
	Amount         int64             `json:"amount"`
	AmountReceived int64             `json:"amount_received"`
	AmountTotal    int64             `json:"amount_total"`
	Currency       string            `json:"currency"`
	Created        int64             `json:"created"`
	PaymentIntent  string            `json:"payment_intent"`
	PaymentStatus  string            `json:"payment_status"`
	Metadata       map[string]string `json:"metadata"`
}

func parseSignature(header string) (string, []string, error) {
	var timestamp string
	signatures := []string{}
	for _, part := range strings.Split(header, ",") {
		keyValue := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func sign(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(fmt.Sprintf("%s.%s", timestamp, payload)))
	return hex.EncodeToString(mac.Sum(nil))
}

var _ paymentdomain.WebhookParser = (*Client)(nil)
var _ paymentdomain.Gateway = (*Client)(nil)
var _ paymentdomain.LinkProvider = (*Client)(nil)
