package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Create(n).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Notification, error) {
	var n domain.Notification
	err := conn.WithContext(ctx).Where("id = ?", id).First(&n).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repo) FindByExternalID(ctx context.Context, conn *gorm.DB, externalID string) (*domain.Notification, error) {
	var n domain.Notification
	err := conn.WithContext(ctx).Where("external_id = ?", externalID).First(&n).Error
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repo) ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND scheduled_at <= ? AND retry_count < ?", domain.StatusPending, now, domain.MaxRetries).
		Order("scheduled_at asc").
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Reschedule(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE notifications SET scheduled_at = ?, updated_at = ? WHERE id IN ?`,
		at, at, ids,
	).Error
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Save(n).Error
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, installmentID snowflake.ID, typ domain.Type, since time.Time) (bool, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("installment_id = ? AND type = ? AND created_at >= ?", installmentID, typ, since).
		Limit(1).
		Pluck("id", &ids).Error
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Notification, error) {
	var items []*domain.Notification
	stmt := db.WithContext(ctx).Model(&domain.Notification{})
	if filter.CreditID != 0 {
		stmt = stmt.Where("credit_id = ?", filter.CreditID)
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
