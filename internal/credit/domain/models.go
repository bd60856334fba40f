package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusOverdue   Status = "overdue"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusCancelled, StatusOverdue:
		return true
	default:
		return false
	}
}

// Terminal statuses never transition further.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// AcceptsPayments reports whether installments of a credit in s can be paid.
func (s Status) AcceptsPayments() bool {
	return s == StatusActive || s == StatusOverdue
}

type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "pending"
	InstallmentPaid      InstallmentStatus = "paid"
	InstallmentOverdue   InstallmentStatus = "overdue"
	InstallmentCancelled InstallmentStatus = "cancelled"
)

func (s InstallmentStatus) Unpaid() bool {
	return s == InstallmentPending || s == InstallmentOverdue
}

type Credit struct {
	ID                snowflake.ID                 `gorm:"primaryKey" json:"id"`
	CustomerID        snowflake.ID                 `gorm:"not null;index:idx_credit_customer_status,priority:1" json:"customer_id"`
	OrderID           snowflake.ID                 `gorm:"not null;uniqueIndex" json:"order_id"`
	PaymentPlanID     snowflake.ID                 `gorm:"not null;index" json:"payment_plan_id"`
	TotalAmount       decimal.Decimal              `gorm:"type:numeric(15,2);not null" json:"total_amount"`
	PaidAmount        decimal.Decimal              `gorm:"type:numeric(15,2);not null;default:0" json:"paid_amount"`
	PendingAmount     decimal.Decimal              `gorm:"type:numeric(15,2);not null" json:"pending_amount"`
	InterestPaid      decimal.Decimal              `gorm:"type:numeric(15,2);not null;default:0" json:"interest_paid"`
	LateFees          decimal.Decimal              `gorm:"type:numeric(15,2);not null;default:0" json:"late_fees"`
	// AmountReceived is every payment as received, overpayments included.
	AmountReceived    decimal.Decimal              `gorm:"type:numeric(15,2);not null;default:0" json:"amount_received"`
	InstallmentsCount int                          `gorm:"not null" json:"installments_count"`
	InterestRate      decimal.Decimal              `gorm:"type:numeric(5,2);not null" json:"interest_rate"`
	Status            Status                       `gorm:"type:varchar(16);not null;index:idx_credit_customer_status,priority:2;index" json:"status"`
	ApprovalDate      *time.Time                   `json:"approval_date,omitempty"`
	ApprovedBy        *string                      `gorm:"type:varchar(64)" json:"approved_by,omitempty"`
	CompletionDate    *time.Time                   `json:"completion_date,omitempty"`
	NextPaymentDate   *time.Time                   `json:"next_payment_date,omitempty"`
	Metadata          datatypes.JSONType[Snapshot] `json:"metadata"`
	CreatedAt         time.Time                    `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time                    `gorm:"not null" json:"updated_at"`

	Installments []Installment `gorm:"foreignKey:CreditID" json:"installments,omitempty"`
}

func (Credit) TableName() string { return "credits" }

type Installment struct {
	ID                snowflake.ID        `gorm:"primaryKey" json:"id"`
	CreditID          snowflake.ID        `gorm:"not null;uniqueIndex:ux_installment_number,priority:1" json:"credit_id"`
	InstallmentNumber int                 `gorm:"not null;uniqueIndex:ux_installment_number,priority:2" json:"installment_number"`
	Amount            decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"amount"`
	PrincipalAmount   decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"principal_amount"`
	InterestAmount    decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"interest_amount"`
	DueDate           time.Time           `gorm:"not null;index" json:"due_date"`
	Status            InstallmentStatus   `gorm:"type:varchar(16);not null;index" json:"status"`
	PaidDate          *time.Time          `json:"paid_date,omitempty"`
	PaymentAmount     decimal.NullDecimal `gorm:"type:numeric(15,2)" json:"payment_amount"`
	PaymentMethod     *string             `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	PaymentReference  *string             `gorm:"type:varchar(128)" json:"payment_reference,omitempty"`
	LateFee           decimal.Decimal     `gorm:"type:numeric(15,2);not null;default:0" json:"late_fee"`
	CreatedAt         time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt         time.Time           `gorm:"not null" json:"updated_at"`
}

func (Installment) TableName() string { return "installments" }

// Snapshot freezes what the credit was granted against.
type Snapshot struct {
	OrderNumber string              `json:"order_number"`
	Currency    string              `json:"currency,omitempty"`
	Customer    CustomerSnapshot    `json:"customer"`
	Billing     orderdomain.Address `json:"billing"`
	Items       []ItemSnapshot      `json:"items"`
	Plan        PlanSnapshot        `json:"plan"`
	CapturedAt  time.Time           `json:"captured_at"`
}

type CustomerSnapshot struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ItemSnapshot struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Total     decimal.Decimal `json:"total"`
}

type PlanSnapshot struct {
	ID                string          `json:"id"`
	Code              string          `json:"code"`
	Name              string          `json:"name"`
	InstallmentsCount int             `json:"installments_count"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
}

func (s Snapshot) Validate() error {
	switch {
	case s.Customer.ID == "":
		return ErrInvalidSnapshot.WithField("customer.id", "required")
	case s.Plan.ID == "":
		return ErrInvalidSnapshot.WithField("plan.id", "required")
	case s.Plan.InstallmentsCount < 1:
		return ErrInvalidSnapshot.WithField("plan.installments_count", "must be at least 1")
	case s.CapturedAt.IsZero():
		return ErrInvalidSnapshot.WithField("captured_at", "required")
	}
	return nil
}

type PaymentMethod struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// PaymentMethods is the advertised catalog. Payments accept any method code
// that fits installments.payment_method.
var PaymentMethods = []PaymentMethod{
	{Code: "bank_transfer", Name: "Bank transfer"},
	{Code: "pse", Name: "PSE"},
	{Code: "credit_card", Name: "Credit card"},
	{Code: "debit_card", Name: "Debit card"},
	{Code: "efecty", Name: "Efecty"},
}

const MaxPaymentMethodLength = 32

// KnownPaymentMethod reports whether code is in the advertised catalog.
func KnownPaymentMethod(code string) bool {
	for _, m := range PaymentMethods {
		if m.Code == code {
			return true
		}
	}
	return false
}

type ListFilter struct {
	CustomerID snowflake.ID
	Status     Status
	AfterID    snowflake.ID
	Limit      int
}
