package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// InvoiceData is an invoice already formatted for print. Amounts are
// rounded strings.
type InvoiceData struct {
	SenderName    string
	SenderEmail   string
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Status        string
	Overdue       bool

	BillToName    string
	BillToCompany string
	BillToAddress string
	BillToEmail   string

	Items []InvoiceItem

	Currency       string
	Subtotal       string
	DiscountLabel  string
	DiscountAmount string
	TaxLabel       string
	TaxAmount      string
	Total          string

	PaymentMethod string
	PaymentURL    string
	Notes         string
}

type InvoiceItem struct {
	Description string
	Qty         string
	UnitPrice   string
	Amount      string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) RenderInvoice(ctx context.Context, invoice InvoiceData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)
	currency := strings.ToUpper(invoice.Currency)

	m.AddRow(12,
		text.NewCol(8, "Invoice", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, statusLabel(invoice), props.Text{
			Size:  12,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	m.AddRow(18,
		col.New(6).Add(
			text.New("Invoice number: "+invoice.InvoiceNumber, props.Text{Top: 0}),
			text.New("Date of issue: "+invoice.IssueDate, props.Text{Top: 4}),
			text.New("Date due: "+orDash(invoice.DueDate), props.Text{Top: 8}),
		),
		col.New(6),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New(invoice.SenderName, props.Text{Style: fontstyle.Bold}),
			text.New(invoice.SenderEmail, props.Text{Top: 5}),
		),
		col.New(6).Add(
			text.New("Bill to", props.Text{Style: fontstyle.Bold}),
			text.New(invoice.BillToName, props.Text{Top: 5}),
			text.New(invoice.BillToCompany, props.Text{Top: 9}),
			text.New(invoice.BillToAddress, props.Text{Top: 13}),
			text.New(invoice.BillToEmail, props.Text{Top: 17}),
		),
	)

	m.AddRow(12,
		text.NewCol(12, invoice.Total+" "+currency+" due "+orDash(invoice.DueDate), props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   3,
		}),
	)

	m.AddRow(10,
		text.NewCol(6, "Description", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Unit price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Amount", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range invoice.Items {
		m.AddRow(8,
			text.NewCol(6, item.Description, props.Text{Size: 9}),
			text.NewCol(2, item.Qty, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.UnitPrice, props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, item.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	totalRow(m, "Subtotal", invoice.Subtotal, false)
	totalRow(m, invoice.DiscountLabel, "-"+invoice.DiscountAmount, false)
	totalRow(m, invoice.TaxLabel, invoice.TaxAmount, false)
	totalRow(m, "Total", invoice.Total+" "+currency, true)

	m.AddRow(12,
		text.NewCol(12, "Payment method: "+invoice.PaymentMethod, props.Text{Size: 9, Top: 4}),
	)
	if invoice.PaymentURL != "" {
		m.AddRow(8,
			text.NewCol(12, "Pay online: "+invoice.PaymentURL, props.Text{Size: 9}),
		)
	}
	if strings.TrimSpace(invoice.Notes) != "" {
		m.AddRow(16,
			text.NewCol(12, "Notes: "+invoice.Notes, props.Text{Size: 9, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func totalRow(m core.Maroto, label, value string, bold bool) {
	style := props.Text{Size: 9, Align: align.Right}
	if bold {
		style.Style = fontstyle.Bold
		style.Size = 10
	}
	m.AddRow(6,
		col.New(6),
		text.NewCol(4, label, style),
		text.NewCol(2, value, style),
	)
}

func statusLabel(invoice InvoiceData) string {
	if invoice.Overdue {
		return "OVERDUE"
	}
	return strings.ToUpper(invoice.Status)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}
