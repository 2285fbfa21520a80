package email

import (
	"context"

	"go.uber.org/zap"
)

type Provider interface {
	Send(ctx context.Context, to []string, subject string, htmlBody string) error
	SendTemplate(ctx context.Context, to []string, templateName string, subject string, data any) error
}

// NoOpProvider logs outgoing mail instead of delivering it.
type NoOpProvider struct {
	log *zap.Logger
}

func NewNoOp(log *zap.Logger) *NoOpProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &NoOpProvider{log: log.Named("email.noop")}
}

func (p *NoOpProvider) Send(ctx context.Context, to []string, subject string, htmlBody string) error {
	p.log.Info("email delivery skipped, smtp not configured",
		zap.Int("recipients", len(to)),
		zap.String("subject", subject),
	)
	return nil
}

func (p *NoOpProvider) SendTemplate(ctx context.Context, to []string, templateName string, subject string, data any) error {
	if _, err := render(templateName, data); err != nil {
		return err
	}
	p.log.Info("email delivery skipped, smtp not configured",
		zap.Int("recipients", len(to)),
		zap.String("template", templateName),
		zap.String("subject", subject),
	)
	return nil
}
