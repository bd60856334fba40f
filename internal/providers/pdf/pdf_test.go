package pdf

import (
	"context"
	"io"
	"testing"

	"github.com/smallbiznis/cicilan/internal/providers/document"
	"github.com/stretchr/testify/require"
)

func TestGenerateScheduleAndReceipt(t *testing.T) {
	p := New()

	r, err := p.GenerateSchedule(context.Background(), document.ScheduleData{
		CreditID: "1",
		Rows: []document.ScheduleRow{
			{Number: 1, DueDate: "2024-02-10", Amount: "100000.00", Principal: "100000.00", Interest: "0.00", Status: "pending"},
		},
	})
	require.NoError(t, err)
	body, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(body[:4]))

	r, err = p.GenerateReceipt(context.Background(), document.ReceiptData{ReceiptNumber: "R-1", InstallmentNumber: 1, InstallmentsCount: 3})
	require.NoError(t, err)
	body, err = io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(body[:4]))
}
