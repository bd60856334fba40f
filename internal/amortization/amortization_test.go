package amortization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func terms(n int, rate string) Terms {
	return Terms{
		InstallmentsCount: n,
		InterestRate:      dec(rate),
		MinAmount:         dec("1"),
		MaxAmount:         dec("100000000"),
	}
}

var start = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

func TestCalculateZeroInterestEvenSplit(t *testing.T) {
	schedule, err := Calculate(dec("300000"), terms(3, "0"), start)
	require.NoError(t, err)

	require.Len(t, schedule.Lines, 3)
	for _, line := range schedule.Lines {
		assert.True(t, line.Amount.Equal(dec("100000")), "got %s", line.Amount)
		assert.True(t, line.Interest.IsZero())
	}
	assert.True(t, schedule.Summary.TotalAmount.Equal(dec("300000")))
	assert.True(t, schedule.Summary.TotalInterest.IsZero())
	assert.True(t, schedule.Summary.SavingsVsCash.IsZero())
}

func TestCalculateZeroInterestRemainderOnLast(t *testing.T) {
	for _, n := range []int{1, 3, 7, 11, 24} {
		amount := dec("100000.01")
		schedule, err := Calculate(amount, terms(n, "0"), start)
		require.NoError(t, err)

		sum := decimal.Zero
		for _, line := range schedule.Lines {
			sum = sum.Add(line.Amount)
		}
		assert.True(t, sum.Equal(amount), "n=%d sum=%s", n, sum)
		assert.True(t, schedule.Lines[n-1].Balance.IsZero())
	}
}

func TestCalculateInterestBearing(t *testing.T) {
	amount := dec("100000")
	schedule, err := Calculate(amount, terms(6, "12"), start)
	require.NoError(t, err)

	pmt := Payment(amount, MonthlyRate(dec("12")), 6).Round(2)
	assert.Equal(t, "17254.84", pmt.StringFixed(2))

	first := schedule.Lines[0]
	assert.Equal(t, "1000.00", first.Interest.StringFixed(2))
	assert.Equal(t, "16254.84", first.Principal.StringFixed(2))
	assert.Equal(t, "17254.84", first.Amount.StringFixed(2))

	principal := decimal.Zero
	interest := decimal.Zero
	total := decimal.Zero
	for _, line := range schedule.Lines {
		principal = principal.Add(line.Principal)
		interest = interest.Add(line.Interest)
		total = total.Add(line.Amount)
		assert.True(t, line.Amount.Equal(line.Principal.Add(line.Interest)))
	}
	assert.True(t, principal.Equal(amount), "principal sum %s", principal)
	assert.True(t, total.Equal(amount.Add(interest)))
	assert.True(t, schedule.Lines[5].Balance.IsZero())
	assert.True(t, schedule.Summary.TotalInterest.Equal(interest))
	assert.True(t, schedule.Summary.SavingsVsCash.Equal(interest.Neg()))
	assert.Equal(t, 6, schedule.Summary.InstallmentCount)
}

func TestCalculatePrincipalSumAcrossTerms(t *testing.T) {
	amounts := []string{"50000", "123456.78", "5000000"}
	for _, a := range amounts {
		for _, n := range []int{1, 2, 6, 12, 36} {
			for _, rate := range []string{"1.5", "18", "29.99"} {
				amount := dec(a)
				schedule, err := Calculate(amount, terms(n, rate), start)
				require.NoError(t, err)
				sum := decimal.Zero
				for _, line := range schedule.Lines {
					sum = sum.Add(line.Principal)
					assert.False(t, line.Principal.IsNegative())
				}
				assert.True(t, sum.Equal(amount), "amount=%s n=%d rate=%s sum=%s", a, n, rate, sum)
			}
		}
	}
}

func TestDueDatesFollowCalendarMonths(t *testing.T) {
	schedule, err := Calculate(dec("120000"), terms(12, "10"), start)
	require.NoError(t, err)

	prev := start
	for i, line := range schedule.Lines {
		assert.Equal(t, start.AddDate(0, i+1, 0), line.DueDate)
		assert.True(t, line.DueDate.After(prev))
		prev = line.DueDate
	}
	assert.Equal(t, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), schedule.Lines[0].DueDate)
}

func TestCalculateRejectsAmountOutsidePlan(t *testing.T) {
	tt := Terms{InstallmentsCount: 3, InterestRate: decimal.Zero, MinAmount: dec("50000"), MaxAmount: dec("1000000")}

	_, err := Calculate(dec("49999.99"), tt, start)
	assert.ErrorIs(t, err, ErrPlanMismatch)

	_, err = Calculate(dec("1000000.01"), tt, start)
	assert.ErrorIs(t, err, ErrPlanMismatch)

	_, err = Calculate(dec("1000000"), tt, start)
	assert.NoError(t, err)
}

func TestTermsValidate(t *testing.T) {
	assert.NoError(t, terms(1, "0").Validate())
	assert.ErrorIs(t, terms(0, "0").Validate(), ErrInvalidTerms)
	assert.ErrorIs(t, terms(3, "-1").Validate(), ErrInvalidTerms)

	inverted := terms(3, "0")
	inverted.MinAmount, inverted.MaxAmount = inverted.MaxAmount, inverted.MinAmount
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidTerms)
}
