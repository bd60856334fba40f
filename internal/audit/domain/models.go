package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Action string

const (
	ActionCreated     Action = "created"
	ActionApproved    Action = "approved"
	ActionPaymentMade Action = "payment_made"
	ActionOverdue     Action = "overdue"
	ActionCompleted   Action = "completed"
	ActionCancelled   Action = "cancelled"
)

func (a Action) Valid() bool {
	switch a {
	case ActionCreated, ActionApproved, ActionPaymentMade, ActionOverdue, ActionCompleted, ActionCancelled:
		return true
	default:
		return false
	}
}

type ActorType string

const (
	ActorTypeSystem   ActorType = "system"
	ActorTypeAdmin    ActorType = "admin"
	ActorTypeCustomer ActorType = "customer"
)

// HistoryRecord is one append-only entry of a credit's history.
type HistoryRecord struct {
	ID             snowflake.ID        `gorm:"primaryKey" json:"id"`
	CreditID       snowflake.ID        `gorm:"not null;index" json:"credit_id"`
	Action         Action              `gorm:"type:varchar(32);not null;index" json:"action"`
	ActorType      ActorType           `gorm:"type:varchar(16);not null" json:"actor_type"`
	ActorID        *string             `gorm:"type:varchar(64)" json:"actor_id,omitempty"`
	Amount         decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"amount"`
	PreviousStatus string              `gorm:"type:varchar(16)" json:"previous_status,omitempty"`
	NewStatus      string              `gorm:"type:varchar(16)" json:"new_status,omitempty"`
	Note           string              `gorm:"type:text" json:"note,omitempty"`
	Metadata       datatypes.JSONMap   `json:"metadata,omitempty"`
	IPAddress      *string             `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent      *string             `gorm:"type:text" json:"user_agent,omitempty"`
	CreatedAt      time.Time           `gorm:"not null" json:"created_at"`
}

func (HistoryRecord) TableName() string { return "credit_history" }

type ListFilter struct {
	CreditID snowflake.ID
	Action   Action
	AfterID  snowflake.ID
	Limit    int
}
