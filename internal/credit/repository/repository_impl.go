package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/credit/domain"
	"github.com/smallbiznis/cicilan/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCredit(ctx context.Context, db *gorm.DB, credit *domain.Credit) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(credit).Error
}

func (r *repo) InsertInstallments(ctx context.Context, db *gorm.DB, items []domain.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) UpdateCredit(ctx context.Context, db *gorm.DB, credit *domain.Credit) error {
	if credit == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Omit(clause.Associations).Save(credit).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Credit, error) {
	return r.findCredit(ctx, conn.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Credit, error) {
	return r.findCredit(ctx, conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) FindByOrderID(ctx context.Context, conn *gorm.DB, orderID snowflake.ID) (*domain.Credit, error) {
	return r.findCredit(ctx, conn.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *repo) findCredit(ctx context.Context, stmt *gorm.DB) (*domain.Credit, error) {
	var credit domain.Credit
	err := stmt.First(&credit).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Credit, error) {
	var items []*domain.Credit
	stmt := db.WithContext(ctx).Model(&domain.Credit{})
	if filter.CustomerID != 0 {
		stmt = stmt.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
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

func (r *repo) FindInstallment(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Installment, error) {
	return r.findInstallment(conn.WithContext(ctx).Where("id = ?", id))
}

func (r *repo) FindInstallmentForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Installment, error) {
	return r.findInstallment(conn.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id))
}

func (r *repo) findInstallment(stmt *gorm.DB) (*domain.Installment, error) {
	var item domain.Installment
	err := stmt.First(&item).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repo) ListInstallments(ctx context.Context, db *gorm.DB, creditID snowflake.ID, statuses ...domain.InstallmentStatus) ([]domain.Installment, error) {
	var items []domain.Installment
	stmt := db.WithContext(ctx).Where("credit_id = ?", creditID)
	if len(statuses) > 0 {
		stmt = stmt.Where("status IN ?", statuses)
	}
	if err := stmt.Order("installment_number asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) EarliestUnpaid(ctx context.Context, conn *gorm.DB, creditID snowflake.ID) (*domain.Installment, error) {
	return r.findInstallment(conn.WithContext(ctx).
		Where("credit_id = ? AND status IN ?", creditID, []domain.InstallmentStatus{domain.InstallmentPending, domain.InstallmentOverdue}).
		Order("due_date asc").
		Order("installment_number asc"))
}

func (r *repo) MarkInstallmentPaid(ctx context.Context, db *gorm.DB, item *domain.Installment) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Installment{}).
		Where("id = ? AND status <> ?", item.ID, domain.InstallmentPaid).
		Updates(map[string]any{
			"status":            domain.InstallmentPaid,
			"paid_date":         item.PaidDate,
			"payment_amount":    item.PaymentAmount,
			"payment_method":    item.PaymentMethod,
			"payment_reference": item.PaymentReference,
			"late_fee":          item.LateFee,
			"updated_at":        item.UpdatedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) UpdateInstallmentStatus(ctx context.Context, db *gorm.DB, creditID snowflake.ID, from, to domain.InstallmentStatus, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE installments SET status = ?, updated_at = ? WHERE credit_id = ? AND status = ?`,
		to, at, creditID, from,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) MarkInstallmentsOverdue(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE installments SET status = ?, updated_at = ? WHERE id IN ? AND status = ?`,
		domain.InstallmentOverdue, at, ids, domain.InstallmentPending,
	).Error
}

func (r *repo) OverdueCandidates(ctx context.Context, db *gorm.DB, today time.Time) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).
		Model(&domain.Installment{}).
		Select("installments.*").
		Joins("JOIN credits ON credits.id = installments.credit_id").
		Where("installments.status = ? AND installments.due_date < ? AND credits.status = ?",
			domain.InstallmentPending, today, domain.StatusActive).
		Order("installments.credit_id asc").
		Order("installments.installment_number asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DueOn(ctx context.Context, db *gorm.DB, day time.Time) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).
		Model(&domain.Installment{}).
		Select("installments.*").
		Joins("JOIN credits ON credits.id = installments.credit_id").
		Where("installments.status = ? AND installments.due_date >= ? AND installments.due_date < ? AND credits.status = ?",
			domain.InstallmentPending, day, day.AddDate(0, 0, 1), domain.StatusActive).
		Order("installments.credit_id asc").
		Order("installments.installment_number asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) OverdueInstallments(ctx context.Context, db *gorm.DB) ([]domain.Installment, error) {
	var items []domain.Installment
	err := db.WithContext(ctx).
		Where("status = ?", domain.InstallmentOverdue).
		Order("credit_id asc").
		Order("installment_number asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
