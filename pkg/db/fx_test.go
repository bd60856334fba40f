package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

func TestNewDBOpensSQLiteAndClosesOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	conn, err := NewDB(Params{
		Lifecycle: lc,
		Config:    Config{Type: TypeSQLite, Name: filepath.Join(t.TempDir(), "cicilan.db"), MaxOpenConn: 4},
		Log:       zap.NewNop(),
	})
	require.NoError(t, err)
	lc.RequireStart()

	var one int
	require.NoError(t, conn.Raw("SELECT 1").Scan(&one).Error)
	assert.Equal(t, 1, one)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	lc.RequireStop()
	assert.Error(t, sqlDB.Ping())
}
