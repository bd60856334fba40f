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

func (p *PDFProvider) GenerateSchedule(ctx context.Context, data document.ScheduleData) (io.Reader, error) {
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

	title := data.Title
	if title == "" {
		title = "Payment schedule"
	}
	m.AddRow(20,
		text.NewCol(8, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, "Generated "+data.GeneratedAt, props.Text{
			Size:  8,
			Align: align.Right,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Credit: "+data.CreditID, props.Text{Top: 0}),
			text.New("Order: "+data.OrderNumber, props.Text{Top: 5}),
			text.New("Plan: "+data.PlanName+" ("+data.InterestRate+")", props.Text{Top: 10}),
			text.New("Status: "+data.Status, props.Text{Top: 15}),
		),
		col.New(6).Add(
			text.New(data.CustomerName, props.Text{Style: fontstyle.Bold}),
			text.New(data.CustomerEmail, props.Text{Top: 5}),
		),
	)

	m.AddRow(20,
		col.New(3).Add(
			text.New("Total", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.TotalAmount, props.Text{Top: 5, Size: 9}),
		),
		col.New(3).Add(
			text.New("Paid", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.PaidAmount, props.Text{Top: 5, Size: 9}),
		),
		col.New(3).Add(
			text.New("Pending", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.PendingAmount, props.Text{Top: 5, Size: 9}),
		),
		col.New(3).Add(
			text.New("Late fees", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.New(data.LateFees, props.Text{Top: 5, Size: 9}),
		),
	)

	header := props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}
	m.AddRow(10,
		text.NewCol(1, "#", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Due date", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Amount", header),
		text.NewCol(2, "Principal", header),
		text.NewCol(2, "Interest", header),
		text.NewCol(1, "Status", header),
		text.NewCol(2, "Paid on", header),
	)

	cell := props.Text{Size: 9, Align: align.Right}
	for _, row := range data.Rows {
		m.AddRow(8,
			text.NewCol(1, fmt.Sprintf("%d", row.Number), props.Text{Size: 9}),
			text.NewCol(2, row.DueDate, props.Text{Size: 9}),
			text.NewCol(2, row.Amount, cell),
			text.NewCol(2, row.Principal, cell),
			text.NewCol(2, row.Interest, cell),
			text.NewCol(1, row.Status, cell),
			text.NewCol(2, row.PaidDate, cell),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
