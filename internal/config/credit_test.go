package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDayList(t *testing.T) {
	cases := []struct {
		name string
		raw  any
		want []int
	}{
		{name: "csv", raw: "7, 3,1", want: []int{7, 3, 1}},
		{name: "yaml sequence", raw: []any{7, "3", 1}, want: []int{7, 3, 1}},
		{name: "single", raw: 5, want: []int{5}},
		{name: "empty", raw: "", want: []int{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseDayList(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseDayList("7,x")
	assert.Error(t, err)
}

func TestCreditRulesDefaults(t *testing.T) {
	v := viper.New()
	setCreditDefaults(v, DefaultCreditRules())

	cfg, err := creditRulesFrom(v)
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.GracePeriodDays)
	assert.True(t, cfg.LateFeePercentage.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, []int{7, 3, 1}, cfg.PaymentReminderDays)
	assert.Equal(t, []int{1, 7, 15, 30}, cfg.OverdueReminderDays)
	assert.True(t, cfg.Channels.Email)
	assert.False(t, cfg.Channels.SMS)
}

func TestCreditRulesFromFile(t *testing.T) {
	dir := t.TempDir()
	content := []byte("credit:\n  grace_period_days: 3\n  payment_reminder_days: \"5,2\"\n  late_fee_percentage: 1.5\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "credit.yml"), content, 0o600))

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, "credit.yml"))
	setCreditDefaults(v, DefaultCreditRules())
	require.NoError(t, v.ReadInConfig())

	cfg, err := creditRulesFrom(v)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.GracePeriodDays)
	assert.Equal(t, []int{5, 2}, cfg.PaymentReminderDays)
	assert.True(t, cfg.LateFeePercentage.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, cfg.MaxLateFeeAmount.Equal(decimal.NewFromInt(50000)))
}

func TestValidateCreditRulesRejectsInvertedBounds(t *testing.T) {
	cfg := DefaultCreditRules()
	cfg.MinCreditAmount = decimal.NewFromInt(10)
	cfg.MaxCreditAmount = decimal.NewFromInt(10)
	assert.Error(t, ValidateCreditRules(cfg))
}

func TestStaticCreditRules(t *testing.T) {
	rules := DefaultCreditRules()
	rules.GracePeriodDays = 0
	assert.Equal(t, 0, NewStaticCreditRules(rules).Get().GracePeriodDays)
}
