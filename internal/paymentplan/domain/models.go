package domain

import (
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	"gorm.io/datatypes"
)

type PaymentPlan struct {
	ID                snowflake.ID                `json:"id" gorm:"primaryKey"`
	Code              string                      `json:"code" gorm:"type:varchar(128);not null;uniqueIndex"`
	Name              string                      `json:"name" gorm:"type:varchar(255);not null"`
	Description       string                      `json:"description,omitempty" gorm:"type:text"`
	InstallmentsCount int                         `json:"installments_count" gorm:"not null"`
	InterestRate      decimal.Decimal             `json:"interest_rate" gorm:"type:numeric(5,2);not null;default:0"`
	MinAmount         decimal.Decimal             `json:"min_amount" gorm:"type:numeric(15,2);not null"`
	MaxAmount         decimal.Decimal             `json:"max_amount" gorm:"type:numeric(15,2);not null"`
	Active            bool                        `json:"active" gorm:"not null;index"`
	Priority          int                         `json:"priority" gorm:"not null;default:0"`
	ProductIDs        datatypes.JSONSlice[string] `json:"product_ids,omitempty"`
	CategoryIDs       datatypes.JSONSlice[string] `json:"category_ids,omitempty"`
	Conditions        string                      `json:"conditions,omitempty" gorm:"type:text"`
	CreatedAt         time.Time                   `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time                   `json:"updated_at" gorm:"not null"`
}

func (PaymentPlan) TableName() string { return "payment_plans" }

func (p PaymentPlan) Terms() amortization.Terms {
	return amortization.Terms{
		InstallmentsCount: p.InstallmentsCount,
		InterestRate:      p.InterestRate,
		MinAmount:         p.MinAmount,
		MaxAmount:         p.MaxAmount,
	}
}

// AppliesTo reports whether the plan can finance amount for a product.
// Product and category filters only apply when configured.
func (p PaymentPlan) AppliesTo(productID string, categoryIDs []string, amount decimal.Decimal) bool {
	if !p.Active || !p.Terms().Accepts(amount) {
		return false
	}
	if len(p.ProductIDs) > 0 && !slices.Contains(p.ProductIDs, productID) {
		return false
	}
	if len(p.CategoryIDs) > 0 {
		for _, category := range categoryIDs {
			if slices.Contains(p.CategoryIDs, category) {
				return true
			}
		}
		return false
	}
	return true
}

// Stats aggregates the credits opened under one plan.
type Stats struct {
	PlanID        snowflake.ID    `json:"plan_id"`
	TotalCredits  int64           `json:"total_credits"`
	ActiveCredits int64           `json:"active_credits"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

type ListFilter struct {
	Active  *bool
	AfterID snowflake.ID
	Limit   int
}
