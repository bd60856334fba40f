package amortization

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var defaultRules = LateFeeRules{GraceDays: 5, Percentage: dec("2.5"), MaxFee: dec("50000")}

func TestLateFee(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	paid := time.Date(2024, 1, 20, 15, 0, 0, 0, time.UTC)

	days := DaysOverdue(due, paid)
	assert.Equal(t, 10, days)

	fee := LateFee(dec("50000"), days, defaultRules)
	assert.Equal(t, "6250.00", fee.StringFixed(2))
}

func TestLateFeeWithinGrace(t *testing.T) {
	assert.True(t, LateFee(dec("50000"), 5, defaultRules).IsZero())
	assert.True(t, LateFee(dec("50000"), 0, defaultRules).IsZero())
}

func TestLateFeeCapped(t *testing.T) {
	fee := LateFee(dec("500000"), 60, defaultRules)
	assert.True(t, fee.Equal(dec("50000")))
}

func TestDaysOverdueNeverNegative(t *testing.T) {
	due := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, DaysOverdue(due, due.AddDate(0, 0, -3)))
	assert.Equal(t, 0, DaysOverdue(due, due.Add(23*time.Hour)))
}

func TestEarlyPayoff(t *testing.T) {
	quote := EarlyPayoff([]PendingInstallment{
		{Amount: dec("17254.84"), Interest: dec("505.50")},
		{Amount: dec("17254.84"), Interest: dec("170.84")},
	}, dec("50"))

	assert.Equal(t, "34509.68", quote.TotalPending.StringFixed(2))
	assert.Equal(t, "676.34", quote.TotalInterestRemaining.StringFixed(2))
	assert.Equal(t, "338.17", quote.Discount.StringFixed(2))
	assert.Equal(t, "34171.51", quote.AmountToPay.StringFixed(2))
	assert.True(t, quote.Savings.Equal(quote.Discount))
	assert.Equal(t, 2, quote.InstallmentsCount)
}

func TestCheckAffordability(t *testing.T) {
	ok := CheckAffordability(dec("3000000"), dec("1000000"), dec("500000"))
	assert.True(t, ok.Affordable)
	assert.Equal(t, "600000.00", ok.MaxRecommended.StringFixed(2))
	assert.Equal(t, "0.25", ok.Ratio.StringFixed(2))

	tooHigh := CheckAffordability(dec("3000000"), dec("1000000"), dec("700000"))
	assert.False(t, tooHigh.Affordable)

	broke := CheckAffordability(dec("1000"), dec("2000"), dec("10"))
	assert.False(t, broke.Affordable)
	assert.True(t, broke.Ratio.Equal(dec("1")))
	assert.True(t, broke.MaxRecommended.IsZero())
}
