package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, n *Notification) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Notification, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Notification, error)
	// ClaimDue locks pending records that are due, skipping rows held by other dispatchers.
	ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]Notification, error)
	Reschedule(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error
	Save(ctx context.Context, db *gorm.DB, n *Notification) error
	Exists(ctx context.Context, db *gorm.DB, installmentID snowflake.ID, typ Type, since time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Notification, error)
}
