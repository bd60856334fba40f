package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/smallbiznis/cicilan/pkg/db"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table in migration order. Non Postgres stores and tests
// build their schema from it.
func Models() []any {
	return []any{
		&plandomain.PaymentPlan{},
		&customerdomain.Customer{},
		&orderdomain.Order{},
		&orderdomain.OrderItem{},
		&creditdomain.Credit{},
		&creditdomain.Installment{},
		&auditdomain.HistoryRecord{},
		&notificationdomain.Notification{},
	}
}

// Migrate brings the schema up to date: versioned SQL on Postgres,
// AutoMigrate on MySQL and create-if-missing on SQLite.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	switch dbType {
	case db.TypePostgres:
	case db.TypeSQLite:
		return createMissingTables(conn)
	default:
		return conn.AutoMigrate(Models()...)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

// createMissingTables avoids AutoMigrate on SQLite: the sqlite migrator cannot
// re-parse the numeric(15,2) columns of an existing table.
func createMissingTables(conn *gorm.DB) error {
	migrator := conn.Migrator()
	for _, model := range Models() {
		if migrator.HasTable(model) {
			continue
		}
		if err := migrator.CreateTable(model); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	return nil
}

func RunMigrations(sqlDB *sql.DB) error {
	if sqlDB == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
