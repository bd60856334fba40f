package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/smallbiznis/cicilan/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, plan *domain.PaymentPlan) error {
	return db.WithContext(ctx).Create(plan).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, plan *domain.PaymentPlan) error {
	if plan == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Save(plan).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM payment_plans WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.PaymentPlan, error) {
	var plan domain.PaymentPlan
	err := conn.WithContext(ctx).Where("id = ?", id).First(&plan).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindByCode(ctx context.Context, conn *gorm.DB, code string) (*domain.PaymentPlan, error) {
	var plan domain.PaymentPlan
	err := conn.WithContext(ctx).Where("code = ?", code).First(&plan).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.PaymentPlan, error) {
	var items []*domain.PaymentPlan
	stmt := db.WithContext(ctx).Model(&domain.PaymentPlan{})
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.AfterID != 0 {
		stmt = stmt.Where("id > ?", filter.AfterID)
	}
	stmt = stmt.Order("id asc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]domain.PaymentPlan, error) {
	var items []domain.PaymentPlan
	err := db.WithContext(ctx).
		Where("active = ?", true).
		Order("priority asc").
		Order("installments_count asc").
		Order("id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountCredits(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM credits WHERE payment_plan_id = ?`,
		planID,
	).Scan(&count).Error
	return count, err
}

// CreditStats returns the amounts unsummed; money is added up in Go.
func (r *repo) CreditStats(ctx context.Context, db *gorm.DB, planID snowflake.ID) (int64, int64, []decimal.Decimal, error) {
	type row struct {
		Status      string
		TotalAmount decimal.Decimal
	}
	var rows []row
	err := db.WithContext(ctx).Raw(
		`SELECT status, total_amount FROM credits WHERE payment_plan_id = ?`,
		planID,
	).Scan(&rows).Error
	if err != nil {
		return 0, 0, nil, err
	}

	var active int64
	amounts := make([]decimal.Decimal, 0, len(rows))
	for _, r := range rows {
		if r.Status == "active" || r.Status == "overdue" {
			active++
		}
		amounts = append(amounts, r.TotalAmount)
	}
	return int64(len(rows)), active, amounts, nil
}
