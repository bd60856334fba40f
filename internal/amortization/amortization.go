// Package amortization computes installment schedules and the money formulas
// that hang off them: late fees, early payoff quotes and affordability.
//
// Everything here is pure. Amounts are rounded to cents with decimal.Round,
// which rounds half away from zero.
package amortization

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/domainerr"
)

const cents = 2

var (
	ErrPlanMismatch = domainerr.New(domainerr.KindValidation, "plan_mismatch")
	ErrInvalidTerms = domainerr.New(domainerr.KindValidation, "invalid_terms")
	ErrInvalidInput = domainerr.New(domainerr.KindValidation, "invalid_amount")
)

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// Terms are the plan fields the calculator needs.
type Terms struct {
	InstallmentsCount int
	InterestRate      decimal.Decimal // annual, percent
	MinAmount         decimal.Decimal
	MaxAmount         decimal.Decimal
}

type Line struct {
	Number    int             `json:"installment_number"`
	Amount    decimal.Decimal `json:"amount"`
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Balance   decimal.Decimal `json:"balance"`
	DueDate   time.Time       `json:"due_date"`
}

type Summary struct {
	OriginalAmount     decimal.Decimal `json:"original_amount"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
	AverageInstallment decimal.Decimal `json:"average_installment"`
	SavingsVsCash      decimal.Decimal `json:"savings_vs_cash"`
	InstallmentCount   int             `json:"installment_count"`
}

type Schedule struct {
	Lines   []Line  `json:"installments"`
	Summary Summary `json:"summary"`
}

// Validate checks the structural rules of a plan definition.
func (t Terms) Validate() error {
	if t.InstallmentsCount < 1 {
		return ErrInvalidTerms.WithField("installments_count", "must be at least 1")
	}
	if t.InterestRate.IsNegative() {
		return ErrInvalidTerms.WithField("interest_rate", "cannot be negative")
	}
	if !t.MinAmount.LessThan(t.MaxAmount) {
		return ErrInvalidTerms.WithField("max_amount", "must be greater than min_amount")
	}
	return nil
}

// Accepts reports whether amount falls inside [MinAmount, MaxAmount].
func (t Terms) Accepts(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(t.MinAmount) && amount.LessThanOrEqual(t.MaxAmount)
}

// Calculate builds the schedule for amount financed under terms, with the first
// installment due one calendar month after start.
func Calculate(amount decimal.Decimal, terms Terms, start time.Time) (Schedule, error) {
	if terms.InstallmentsCount < 1 || terms.InterestRate.IsNegative() {
		return Schedule{}, ErrInvalidTerms
	}
	if !amount.IsPositive() {
		return Schedule{}, ErrInvalidInput
	}
	if !terms.Accepts(amount) {
		return Schedule{}, ErrPlanMismatch.WithDetail("amount %s outside plan range %s - %s",
			amount.StringFixed(cents), terms.MinAmount.StringFixed(cents), terms.MaxAmount.StringFixed(cents))
	}

	var lines []Line
	if terms.InterestRate.IsZero() {
		lines = equalSplit(amount, terms.InstallmentsCount, start)
	} else {
		lines = amortize(amount, MonthlyRate(terms.InterestRate), terms.InstallmentsCount, start)
	}

	return Schedule{Lines: lines, Summary: summarize(amount, lines)}, nil
}

// MonthlyRate converts an annual percentage into a periodic fraction.
func MonthlyRate(annualPct decimal.Decimal) decimal.Decimal {
	return annualPct.Div(hundred).Div(monthsInYear)
}

// Payment returns the level periodic payment (PMT), unrounded.
func Payment(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n)))
	}
	growth := decimal.NewFromInt(1)
	base := decimal.NewFromInt(1).Add(rate)
	for i := 0; i < n; i++ {
		growth = growth.Mul(base)
	}
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
}

// DueDate is the due date of installment number (1-based) for a schedule starting at start.
func DueDate(start time.Time, number int) time.Time {
	return start.AddDate(0, number, 0)
}

func equalSplit(amount decimal.Decimal, n int, start time.Time) []Line {
	base := amount.Div(decimal.NewFromInt(int64(n))).Round(cents)
	lines := make([]Line, 0, n)
	allocated := decimal.Zero
	for i := 1; i <= n; i++ {
		part := base
		if i == n {
			part = amount.Sub(allocated)
		}
		allocated = allocated.Add(part)
		lines = append(lines, Line{
			Number:    i,
			Amount:    part,
			Principal: part,
			Interest:  decimal.Zero,
			Balance:   amount.Sub(allocated),
			DueDate:   DueDate(start, i),
		})
	}
	return lines
}

func amortize(amount, rate decimal.Decimal, n int, start time.Time) []Line {
	pmt := Payment(amount, rate, n)
	balance := amount
	lines := make([]Line, 0, n)
	for i := 1; i <= n; i++ {
		interest := balance.Mul(rate).Round(cents)
		principal := pmt.Sub(interest).Round(cents)
		if i == n || principal.GreaterThan(balance) {
			principal = balance
		}
		balance = balance.Sub(principal)
		lines = append(lines, Line{
			Number:    i,
			Amount:    principal.Add(interest),
			Principal: principal,
			Interest:  interest,
			Balance:   balance,
			DueDate:   DueDate(start, i),
		})
	}
	return lines
}

func summarize(amount decimal.Decimal, lines []Line) Summary {
	total := decimal.Zero
	interest := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
		interest = interest.Add(l.Interest)
	}
	savings := decimal.Zero
	if interest.IsPositive() {
		savings = interest.Neg()
	}
	return Summary{
		OriginalAmount:     amount,
		TotalAmount:        total,
		TotalInterest:      interest,
		AverageInstallment: total.Div(decimal.NewFromInt(int64(len(lines)))).Round(cents),
		SavingsVsCash:      savings,
		InstallmentCount:   len(lines),
	}
}
