package amortization

import (
	"time"

	"github.com/shopspring/decimal"
)

type LateFeeRules struct {
	GraceDays  int
	Percentage decimal.Decimal
	MaxFee     decimal.Decimal
}

// DaysOverdue counts whole calendar days from due to today, never negative.
func DaysOverdue(due, today time.Time) int {
	d := dateOf(due)
	t := dateOf(today)
	if !t.After(d) {
		return 0
	}
	return int(t.Sub(d).Hours() / 24)
}

// LateFee charges Percentage of amount per day past the grace period, capped at MaxFee.
func LateFee(amount decimal.Decimal, daysOverdue int, rules LateFeeRules) decimal.Decimal {
	if daysOverdue <= rules.GraceDays {
		return decimal.Zero
	}
	days := decimal.NewFromInt(int64(daysOverdue - rules.GraceDays))
	fee := amount.Mul(rules.Percentage).Div(hundred).Mul(days)
	if rules.MaxFee.IsPositive() && fee.GreaterThan(rules.MaxFee) {
		fee = rules.MaxFee
	}
	return fee.Round(cents)
}

type PendingInstallment struct {
	Amount   decimal.Decimal
	Interest decimal.Decimal
}

type PayoffQuote struct {
	TotalPending           decimal.Decimal `json:"total_pending"`
	TotalInterestRemaining decimal.Decimal `json:"total_interest_remaining"`
	Discount               decimal.Decimal `json:"discount"`
	AmountToPay            decimal.Decimal `json:"amount_to_pay"`
	Savings                decimal.Decimal `json:"savings"`
	InstallmentsCount      int             `json:"installments_count"`
}

// EarlyPayoff discounts discountPct percent of the remaining interest.
func EarlyPayoff(pending []PendingInstallment, discountPct decimal.Decimal) PayoffQuote {
	total := decimal.Zero
	interest := decimal.Zero
	for _, p := range pending {
		total = total.Add(p.Amount)
		interest = interest.Add(p.Interest)
	}
	discount := interest.Mul(discountPct).Div(hundred).Round(cents)
	return PayoffQuote{
		TotalPending:           total,
		TotalInterestRemaining: interest,
		Discount:               discount,
		AmountToPay:            total.Sub(discount),
		Savings:                discount,
		InstallmentsCount:      len(pending),
	}
}

var (
	affordableRatio = decimal.RequireFromString("0.3")
	one             = decimal.NewFromInt(1)
)

type Affordability struct {
	AvailableIncome decimal.Decimal `json:"available_income"`
	Ratio           decimal.Decimal `json:"ratio"`
	Affordable      bool            `json:"affordable"`
	MaxRecommended  decimal.Decimal `json:"max_recommended_installment"`
}

// CheckAffordability applies the 30% rule to the disposable monthly income.
func CheckAffordability(income, expenses, installment decimal.Decimal) Affordability {
	available := income.Sub(expenses)
	ratio := one
	if available.IsPositive() {
		ratio = installment.Div(available).Round(4)
	}
	maxRecommended := decimal.Zero
	if available.IsPositive() {
		maxRecommended = available.Mul(affordableRatio).Round(cents)
	}
	return Affordability{
		AvailableIncome: available,
		Ratio:           ratio,
		Affordable:      available.IsPositive() && ratio.LessThanOrEqual(affordableRatio),
		MaxRecommended:  maxRecommended,
	}
}

func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
