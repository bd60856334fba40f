package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer mirrors a storefront customer.
type Customer struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	ExternalID string       `gorm:"type:varchar(64);not null;uniqueIndex" json:"external_id"`
	FirstName  string       `gorm:"type:varchar(128)" json:"first_name"`
	LastName   string       `gorm:"type:varchar(128)" json:"last_name"`
	Email      string       `gorm:"type:varchar(255);index" json:"email"`
	Phone      string       `gorm:"type:varchar(32)" json:"phone,omitempty"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
