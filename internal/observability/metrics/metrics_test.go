package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("gateway", "stripe"),
		attribute.String("invoice_id", "456"),
		attribute.String("outcome", "success"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	keys := []attribute.Key{attrs[0].Key, attrs[1].Key}
	assert.Contains(t, keys, attribute.Key("gateway"))
	assert.Contains(t, keys, attribute.Key("outcome"))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordInvoiceCreated(context.Background(), "usd")
		m.RecordStatusTransition(context.Background(), "unpaid", "paid", "manual")
		m.RecordPaymentAttempt(context.Background(), "simulator", "stripe", "success")
	})
}

func TestNoopMetricsRecord(t *testing.T) {
	m := NewNoop()
	assert.NotNil(t, m)
	assert.NotPanics(t, func() {
		m.RecordWebhookEvent(context.Background(), "stripe", "payment_intent.succeeded", "applied")
		m.RecordRateLimitDenied(context.Background(), "/public/invoices/:token", "limit")
		m.RecordJobRun(context.Background(), "expired_sessions", "ok", time.Second)
	})
}
