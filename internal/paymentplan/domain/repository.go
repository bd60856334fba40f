package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, plan *PaymentPlan) error
	Update(ctx context.Context, db *gorm.DB, plan *PaymentPlan) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PaymentPlan, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*PaymentPlan, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*PaymentPlan, error)
	// ListActive returns active plans ordered by priority, then installments count.
	ListActive(ctx context.Context, db *gorm.DB) ([]PaymentPlan, error)
	CountCredits(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, error)
	CreditStats(ctx context.Context, db *gorm.DB, planID snowflake.ID) (total int64, active int64, amounts []decimal.Decimal, err error)
}
