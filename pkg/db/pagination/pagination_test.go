package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTripThroughPageToken(t *testing.T) {
	token, err := EncodeCursor(Cursor{ID: "1799"})
	require.NoError(t, err)

	after, err := Pagination{PageToken: token}.AfterID()
	require.NoError(t, err)
	assert.Equal(t, "1799", after)
}

func TestLimitClamps(t *testing.T) {
	assert.Equal(t, DefaultPageSize, Pagination{}.Limit())
	assert.Equal(t, MaxPageSize, Pagination{PageSize: 1000}.Limit())
	assert.Equal(t, 25, Pagination{PageSize: 25}.Limit())
}

func TestBuildCursorPageInfoTrimsExtraRow(t *testing.T) {
	type row struct{ id string }
	rows := []*row{{"1"}, {"2"}, {"3"}}

	info := BuildCursorPageInfo(rows, 2, func(r *row) string { return r.id })
	assert.True(t, info.HasMore)
	assert.Equal(t, "2", info.NextPageToken)

	info = BuildCursorPageInfo(rows, 5, func(r *row) string { return r.id })
	assert.False(t, info.HasMore)
}
