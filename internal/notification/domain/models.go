package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Type string

const (
	TypeCreditApproved   Type = "credit_approved"
	TypeCreditRejected   Type = "credit_rejected"
	TypePaymentReminder  Type = "payment_reminder"
	TypePaymentOverdue   Type = "payment_overdue"
	TypePaymentConfirmed Type = "payment_confirmed"
	TypeCreditCompleted  Type = "credit_completed"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
)

// MaxRetries caps delivery attempts per record.
const MaxRetries = 3

type Notification struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	CreditID      snowflake.ID      `gorm:"not null;index" json:"credit_id"`
	InstallmentID *snowflake.ID     `gorm:"index" json:"installment_id,omitempty"`
	Type          Type              `gorm:"type:varchar(32);not null;index" json:"type"`
	Channel       Channel           `gorm:"type:varchar(16);not null" json:"channel"`
	Recipient     string            `gorm:"type:varchar(255);not null" json:"recipient"`
	Subject       string            `gorm:"type:varchar(255)" json:"subject,omitempty"`
	Body          string            `gorm:"type:text;not null" json:"body"`
	Status        Status            `gorm:"type:varchar(16);not null;index" json:"status"`
	RetryCount    int               `gorm:"not null;default:0" json:"retry_count"`
	ScheduledAt   time.Time         `gorm:"not null;index" json:"scheduled_at"`
	SentAt        *time.Time        `json:"sent_at,omitempty"`
	ExternalID    *string           `gorm:"type:varchar(128);index" json:"external_id,omitempty"`
	Response      datatypes.JSONMap `json:"response,omitempty"`
	ErrorMessage  string            `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt     time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null" json:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

type ListFilter struct {
	CreditID snowflake.ID
	Status   Status
	AfterID  snowflake.ID
	Limit    int
}
