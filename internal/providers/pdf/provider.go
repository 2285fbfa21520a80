package pdf

import (
	"context"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/fx"
)

type Provider interface {
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(New),
)

// Filename builds a download name such as "inv-20260101-0001-acme-inc.pdf".
func Filename(invoiceNumber, clientName string) string {
	name := slug.Make(strings.TrimSpace(invoiceNumber + " " + clientName))
	if name == "" {
		name = "invoice"
	}
	return name + ".pdf"
}
