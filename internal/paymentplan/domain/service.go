package domain

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	"github.com/smallbiznis/cicilan/internal/domainerr"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*PaymentPlan, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*PaymentPlan, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*PaymentPlan, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	ListAvailable(ctx context.Context, req AvailableRequest) ([]PaymentPlan, error)
	Stats(ctx context.Context, id string) (*Stats, error)
	Preview(ctx context.Context, id string, amount decimal.Decimal) (amortization.Schedule, error)
}

type CreateRequest struct {
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	InstallmentsCount int             `json:"installments_count"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MaxAmount         decimal.Decimal `json:"max_amount"`
	Active            *bool           `json:"active"`
	Priority          int             `json:"priority"`
	ProductIDs        []string        `json:"product_ids"`
	CategoryIDs       []string        `json:"category_ids"`
	Conditions        string          `json:"conditions"`
}

type UpdateRequest struct {
	Name              *string          `json:"name"`
	Description       *string          `json:"description"`
	InstallmentsCount *int             `json:"installments_count"`
	InterestRate      *decimal.Decimal `json:"interest_rate"`
	MinAmount         *decimal.Decimal `json:"min_amount"`
	MaxAmount         *decimal.Decimal `json:"max_amount"`
	Active            *bool            `json:"active"`
	Priority          *int             `json:"priority"`
	ProductIDs        []string         `json:"product_ids"`
	CategoryIDs       []string         `json:"category_ids"`
	Conditions        *string          `json:"conditions"`
}

type ListRequest struct {
	pagination.Pagination
	Active *bool `form:"active"`
}

type ListResponse struct {
	pagination.PageInfo
	Plans []PaymentPlan `json:"plans"`
}

type AvailableRequest struct {
	ProductID   string
	CategoryIDs []string
	Amount      decimal.Decimal
}

var (
	ErrPlanNotFound     = domainerr.New(domainerr.KindNotFound, "payment_plan_not_found")
	ErrPlanInUse        = domainerr.New(domainerr.KindConflict, "plan_in_use")
	ErrCodeTaken        = domainerr.New(domainerr.KindConflict, "plan_code_taken")
	ErrInvalidName      = domainerr.New(domainerr.KindValidation, "invalid_name")
	ErrInvalidID        = domainerr.New(domainerr.KindValidation, "invalid_id")
	ErrInvalidAmount    = domainerr.New(domainerr.KindValidation, "invalid_amount")
	ErrInvalidPageToken = domainerr.New(domainerr.KindValidation, "invalid_page_token")
)
