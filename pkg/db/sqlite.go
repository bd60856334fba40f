package db

import (
	"strings"

	"gorm.io/gorm"
)

// RegisterSQLiteLockStripper removes row locking clauses SQLite does not
// understand. SQLite serializes writers itself, so dropping them keeps the
// same queries usable in tests and single-node deployments.
func RegisterSQLiteLockStripper(conn *gorm.DB) error {
	strip := func(d *gorm.DB) {
		sql := d.Statement.SQL.String()
		if !strings.Contains(sql, "FOR UPDATE") {
			return
		}
		rewritten := strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
		rewritten = strings.ReplaceAll(rewritten, "FOR UPDATE", "")
		d.Statement.SQL.Reset()
		d.Statement.SQL.WriteString(rewritten)
	}
	if err := conn.Callback().Query().Before("gorm:query").Register("sqlite_strip_locks", strip); err != nil {
		return err
	}
	return conn.Callback().Row().Before("gorm:row").Register("sqlite_strip_locks_row", strip)
}
