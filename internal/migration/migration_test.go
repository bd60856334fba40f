package migration

import (
	"io/fs"
	"testing"

	"github.com/smallbiznis/cicilan/pkg/db"
	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(embeddedMigrations, migrationsDir+"/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

func TestMigrateSQLiteCreatesSchema(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, Migrate(conn, db.TypeSQLite))

	for _, table := range []string{"payment_plans", "customers", "orders", "order_items", "credits", "installments", "credit_history", "notifications"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}

func TestMigrateSQLiteRerunKeepsData(t *testing.T) {
	conn := dbtest.Open(t)
	require.NoError(t, Migrate(conn, db.TypeSQLite))
	require.NoError(t, conn.Exec(
		`INSERT INTO payment_plans (id, code, name, installments_count, interest_rate, min_amount, max_amount, active, priority, created_at, updated_at)
		 VALUES (1, 'three', 'Three', 3, 0, 50000, 5000000, false, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
	).Error)

	// a restarted process migrates the same file again
	require.NoError(t, Migrate(conn, db.TypeSQLite))

	var count int64
	require.NoError(t, conn.Table("payment_plans").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
