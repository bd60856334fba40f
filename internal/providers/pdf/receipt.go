package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/smallbiznis/cicilan/internal/providers/document"
)

func (p *PDFProvider) GenerateReceipt(ctx context.Context, receipt document.ReceiptData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(6, "Payment receipt", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(6, "No. "+receipt.ReceiptNumber, props.Text{
			Size:  10,
			Align: align.Right,
		}),
	)

	m.AddRow(25,
		col.New(6).Add(
			text.New("Credit: "+receipt.CreditID, props.Text{Top: 0}),
			text.New("Order: "+receipt.OrderNumber, props.Text{Top: 4}),
			text.New(fmt.Sprintf("Installment %d of %d", receipt.InstallmentNumber, receipt.InstallmentsCount), props.Text{Top: 8}),
			text.New("Due date: "+receipt.DueDate, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New("Received from", props.Text{Style: fontstyle.Bold}),
			text.New(receipt.CustomerName, props.Text{Top: 5}),
			text.New(receipt.CustomerEmail, props.Text{Top: 9}),
		),
	)

	m.AddRow(15,
		text.NewCol(12, receipt.Total+" paid on "+receipt.PaidDate, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Top:   5,
		}),
	)

	m.AddRow(10,
		text.NewCol(12, "Method: "+receipt.PaymentMethod+"   Reference: "+receipt.PaymentReference, props.Text{Size: 9}),
	)

	lines := []struct {
		label string
		value string
	}{
		{"Principal", receipt.Principal},
		{"Interest", receipt.Interest},
		{"Late fee", receipt.LateFee},
		{"Total", receipt.Total},
		{"Remaining balance", receipt.RemainingBalance},
	}
	for _, line := range lines {
		m.AddRow(8,
			col.New(7),
			text.NewCol(3, line.label, props.Text{Size: 9}),
			text.NewCol(2, line.value, props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
