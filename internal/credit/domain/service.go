package domain

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/domainerr"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
)

type CreateRequest struct {
	OrderID    snowflake.ID `json:"order_id"`
	PlanID     snowflake.ID `json:"payment_plan_id"`
	CustomerID snowflake.ID `json:"customer_id"`
}

type PaymentRequest struct {
	InstallmentID snowflake.ID    `json:"-"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"payment_method"`
	Reference     string          `json:"payment_reference"`
}

type PaymentResult struct {
	CreditID              snowflake.ID    `json:"credit_id"`
	InstallmentID         snowflake.ID    `json:"installment_id"`
	PaymentAmount         decimal.Decimal `json:"payment_amount"`
	LateFee               decimal.Decimal `json:"late_fee"`
	Overpayment           decimal.Decimal `json:"overpayment"`
	CreditStatus          Status          `json:"credit_status"`
	RemainingInstallments int             `json:"remaining_installments"`
	NextPaymentDate       *time.Time      `json:"next_payment_date,omitempty"`
}

type OverdueResult struct {
	Installments int `json:"installments"`
	Credits      int `json:"credits"`
}

type ReminderResult struct {
	Installments  int `json:"installments"`
	Notifications int `json:"notifications"`
}

type InstallmentView struct {
	Installment
	IsOverdue   bool            `json:"is_overdue"`
	DaysOverdue int             `json:"days_overdue"`
	CurrentFee  decimal.Decimal `json:"current_late_fee"`
}

type InstallmentSummary struct {
	Total   int `json:"total"`
	Paid    int `json:"paid"`
	Pending int `json:"pending"`
	Overdue int `json:"overdue"`
}

type CreditDetail struct {
	Credit
	Installments []InstallmentView  `json:"installments"`
	Summary      InstallmentSummary `json:"installment_summary"`
}

type EarlyPaymentQuote struct {
	CreditID               snowflake.ID      `json:"credit_id"`
	TotalPending           decimal.Decimal   `json:"total_pending"`
	TotalInterestRemaining decimal.Decimal   `json:"total_interest_remaining"`
	Discount               decimal.Decimal   `json:"discount"`
	AmountToPay            decimal.Decimal   `json:"amount_to_pay"`
	Savings                decimal.Decimal   `json:"savings"`
	LateFees               decimal.Decimal   `json:"late_fees"`
	Installments           []InstallmentView `json:"installments"`
}

type ListRequest struct {
	pagination.Pagination
	CustomerID string `form:"customer_id"`
	Status     string `form:"status"`
}

type ListResponse struct {
	pagination.PageInfo
	Credits []Credit `json:"credits"`
}

type HistoryRequest struct {
	pagination.Pagination
	Action string `form:"action"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Credit, error)
	Approve(ctx context.Context, id snowflake.ID, adminID string) (*Credit, error)
	Reject(ctx context.Context, id snowflake.ID, reason string, adminID string) (*Credit, error)
	ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error)
	CheckOverduePayments(ctx context.Context) (OverdueResult, error)
	CalculateEarlyPayment(ctx context.Context, id snowflake.ID) (*EarlyPaymentQuote, error)
	SendPaymentReminders(ctx context.Context) (ReminderResult, error)
	SendOverdueReminders(ctx context.Context) (ReminderResult, error)

	Get(ctx context.Context, id snowflake.ID) (*CreditDetail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	GetInstallment(ctx context.Context, id snowflake.ID) (*InstallmentView, error)
	History(ctx context.Context, id snowflake.ID, req HistoryRequest) (auditdomain.ListHistoryResponse, error)
	PaymentMethods() []PaymentMethod

	ExportScheduleXLSX(ctx context.Context, id snowflake.ID) (*bytes.Buffer, error)
	ExportSchedulePDF(ctx context.Context, id snowflake.ID) (io.Reader, error)
	Receipt(ctx context.Context, installmentID snowflake.ID) (io.Reader, error)
}

var (
	ErrInvalidOrder          = domainerr.New(domainerr.KindValidation, "invalid_order")
	ErrInvalidCustomer       = domainerr.New(domainerr.KindValidation, "invalid_customer")
	ErrInvalidPlan           = domainerr.New(domainerr.KindValidation, "invalid_plan")
	ErrAmountOutOfRange      = domainerr.New(domainerr.KindValidation, "amount_out_of_range")
	ErrDuplicateCredit       = domainerr.New(domainerr.KindConflict, "duplicate_credit")
	ErrInvalidSnapshot       = domainerr.New(domainerr.KindValidation, "invalid_metadata")
	ErrCreditNotFound        = domainerr.New(domainerr.KindNotFound, "credit_not_found")
	ErrInstallmentNotFound   = domainerr.New(domainerr.KindNotFound, "installment_not_found")
	ErrInvalidState          = domainerr.New(domainerr.KindInvalidState, "invalid_state")
	ErrAlreadyPaid           = domainerr.New(domainerr.KindConflict, "already_paid")
	ErrInstallmentCancelled  = domainerr.New(domainerr.KindInvalidState, "installment_cancelled")
	ErrInsufficientAmount    = domainerr.New(domainerr.KindInsufficientAmount, "insufficient_amount")
	ErrInvalidAmount         = domainerr.New(domainerr.KindValidation, "invalid_amount")
	ErrInvalidPaymentMethod  = domainerr.New(domainerr.KindValidation, "invalid_payment_method")
	ErrNoPendingInstallments = domainerr.New(domainerr.KindInvalidState, "no_pending_installments")
	ErrInstallmentNotPaid    = domainerr.New(domainerr.KindInvalidState, "installment_not_paid")
	ErrInvalidID             = domainerr.New(domainerr.KindValidation, "invalid_id")
	ErrInvalidStatus         = domainerr.New(domainerr.KindValidation, "invalid_status")
	ErrInvalidPageToken      = domainerr.New(domainerr.KindValidation, "invalid_page_token")
)
