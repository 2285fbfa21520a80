package email

import (
	"context"
	"net/smtp"
	"testing"

	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSMTPSendTemplate(t *testing.T) {
	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte

	p := NewSMTP(Config{Host: "mail.local", Port: 2525, From: "billing@acme.test"})
	p.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := p.SendTemplate(context.Background(), []string{"jane@client.test"}, TemplateInvoiceLink, "Invoice INV-1", InvoiceLinkData{
		ClientName:    "Jane",
		InvoiceNumber: "INV-1",
		Total:         "189.00",
		Currency:      "USD",
		Link:          "https://pay.example/i/abc",
	})
	require.NoError(t, err)
	assert.Equal(t, "mail.local:2525", gotAddr)
	assert.Equal(t, "billing@acme.test", gotFrom)
	assert.Equal(t, []string{"jane@client.test"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Invoice INV-1")
	assert.Contains(t, string(gotMsg), "https://pay.example/i/abc")
	assert.Contains(t, string(gotMsg), "189.00 USD")
}

func TestSMTPSendRequiresRecipient(t *testing.T) {
	p := NewSMTP(Config{Host: "mail.local", Port: 25})
	assert.ErrorIs(t, p.Send(context.Background(), nil, "x", "y"), ErrNoRecipients)
}

func TestUnknownTemplate(t *testing.T) {
	p := NewNoOp(nil)
	assert.Error(t, p.SendTemplate(context.Background(), []string{"a@b.co"}, "missing", "x", nil))
}

func TestNewFromConfigFallsBackToNoOp(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewFromConfig(config.Config{}, zap.New(core))
	_, ok := p.(*NoOpProvider)
	require.True(t, ok)

	require.NoError(t, p.Send(context.Background(), []string{"a@b.co"}, "hello", "<p>x</p>"))
	assert.Equal(t, 1, logs.FilterMessage("email delivery skipped, smtp not configured").Len())

	p = NewFromConfig(config.Config{Email: config.EmailConfig{SMTPHost: "mail.local", SMTPPort: 25}}, zap.NewNop())
	_, ok = p.(*SMTPProvider)
	assert.True(t, ok)
}
