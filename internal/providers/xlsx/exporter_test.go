package xlsx

import (
	"context"
	"testing"

	"github.com/smallbiznis/cicilan/internal/providers/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestScheduleWritesRows(t *testing.T) {
	buf, err := New().Schedule(context.Background(), document.ScheduleData{
		CreditID:    "42",
		TotalAmount: "300000.00",
		Rows: []document.ScheduleRow{
			{Number: 1, DueDate: "2024-02-10", Amount: "100000.00", Status: "paid"},
			{Number: 2, DueDate: "2024-03-10", Amount: "100000.00", Status: "pending"},
		},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(scheduleSheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Credit", "42"}, rows[0])
	assert.Equal(t, "#", rows[11][0])
	assert.Equal(t, []string{"2", "2024-03-10", "100000.00"}, rows[13][:3])
}
