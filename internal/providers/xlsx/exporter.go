package xlsx

import (
	"bytes"
	"context"

	"github.com/smallbiznis/cicilan/internal/providers/document"
	"github.com/xuri/excelize/v2"
	"go.uber.org/fx"
)

const scheduleSheet = "Schedule"

var Module = fx.Module("providers.xlsx",
	fx.Provide(New),
)

type Exporter interface {
	Schedule(ctx context.Context, data document.ScheduleData) (*bytes.Buffer, error)
}

type excelExporter struct{}

func New() Exporter {
	return &excelExporter{}
}

var scheduleHeader = []any{"#", "Due date", "Amount", "Principal", "Interest", "Status", "Paid on"}

func (e *excelExporter) Schedule(ctx context.Context, data document.ScheduleData) (*bytes.Buffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", scheduleSheet); err != nil {
		return nil, err
	}

	summary := [][]any{
		{"Credit", data.CreditID},
		{"Order", data.OrderNumber},
		{"Customer", data.CustomerName},
		{"Plan", data.PlanName},
		{"Interest rate", data.InterestRate},
		{"Total", data.TotalAmount},
		{"Paid", data.PaidAmount},
		{"Pending", data.PendingAmount},
		{"Late fees", data.LateFees},
		{"Status", data.Status},
	}
	row := 1
	for _, line := range summary {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(scheduleSheet, cell, &line); err != nil {
			return nil, err
		}
		row++
	}

	row++
	headerCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(scheduleSheet, headerCell, &scheduleHeader); err != nil {
		return nil, err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(scheduleHeader), row)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(scheduleSheet, headerCell, lastHeader, bold); err != nil {
		return nil, err
	}

	for _, line := range data.Rows {
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := []any{line.Number, line.DueDate, line.Amount, line.Principal, line.Interest, line.Status, line.PaidDate}
		if err := f.SetSheetRow(scheduleSheet, cell, &values); err != nil {
			return nil, err
		}
	}

	if err := f.SetColWidth(scheduleSheet, "A", "G", 16); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf, nil
}
