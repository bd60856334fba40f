package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads and writes credits and their installments. Every method
// takes the handle to run on so callers can thread a transaction through.
type Repository interface {
	InsertCredit(ctx context.Context, db *gorm.DB, credit *Credit) error
	InsertInstallments(ctx context.Context, db *gorm.DB, items []Installment) error
	UpdateCredit(ctx context.Context, db *gorm.DB, credit *Credit) error

	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Credit, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Credit, error)
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID snowflake.ID) (*Credit, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Credit, error)

	FindInstallment(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Installment, error)
	FindInstallmentForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Installment, error)
	ListInstallments(ctx context.Context, db *gorm.DB, creditID snowflake.ID, statuses ...InstallmentStatus) ([]Installment, error)
	EarliestUnpaid(ctx context.Context, db *gorm.DB, creditID snowflake.ID) (*Installment, error)
	// MarkInstallmentPaid applies a payment unless the row is already paid. It
	// reports false when no row changed.
	MarkInstallmentPaid(ctx context.Context, db *gorm.DB, item *Installment) (bool, error)
	UpdateInstallmentStatus(ctx context.Context, db *gorm.DB, creditID snowflake.ID, from, to InstallmentStatus, at time.Time) (int64, error)
	MarkInstallmentsOverdue(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error

	// OverdueCandidates are pending installments due before today on active credits.
	OverdueCandidates(ctx context.Context, db *gorm.DB, today time.Time) ([]Installment, error)
	// DueOn lists pending installments due within [day, day+1) on active credits.
	DueOn(ctx context.Context, db *gorm.DB, day time.Time) ([]Installment, error)
	// OverdueInstallments lists every installment currently marked overdue.
	OverdueInstallments(ctx context.Context, db *gorm.DB) ([]Installment, error)
}
