package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// CreditRules are the tunable business settings of the credit lifecycle.
type CreditRules struct {
	GracePeriodDays         int
	LateFeePercentage       decimal.Decimal
	MaxLateFeeAmount        decimal.Decimal
	EarlyPaymentDiscountPct decimal.Decimal
	PaymentReminderDays     []int
	OverdueReminderDays     []int
	MinCreditAmount         decimal.Decimal
	MaxCreditAmount         decimal.Decimal
	Channels                ChannelSwitches
}

type ChannelSwitches struct {
	Email    bool
	WhatsApp bool
	SMS      bool
}

func DefaultCreditRules() CreditRules {
	return CreditRules{
		GracePeriodDays:         5,
		LateFeePercentage:       decimal.RequireFromString("2.5"),
		MaxLateFeeAmount:        decimal.NewFromInt(50000),
		EarlyPaymentDiscountPct: decimal.NewFromInt(50),
		PaymentReminderDays:     []int{7, 3, 1},
		OverdueReminderDays:     []int{1, 7, 15, 30},
		MinCreditAmount:         decimal.NewFromInt(50000),
		MaxCreditAmount:         decimal.NewFromInt(5000000),
		Channels:                ChannelSwitches{Email: true, WhatsApp: true, SMS: false},
	}
}

// CreditRulesProvider is what services depend on; the holder and the static
// variant used in tests both satisfy it.
type CreditRulesProvider interface {
	Get() CreditRules
}

type CreditRulesHolder struct {
	current atomic.Value // holds CreditRules
}

type staticCreditRules struct {
	rules CreditRules
}

func NewStaticCreditRules(rules CreditRules) CreditRulesProvider {
	return staticCreditRules{rules: rules}
}

func (s staticCreditRules) Get() CreditRules { return s.rules }

func NewCreditRulesHolder() (*CreditRulesHolder, error) {
	v := viper.New()

	v.SetConfigName("credit")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/cicilan/config")
	v.AddConfigPath("/etc/cicilan")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CICILAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setCreditDefaults(v, DefaultCreditRules())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	cfg, err := creditRulesFrom(v)
	if err != nil {
		return nil, err
	}

	holder := &CreditRulesHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := creditRulesFrom(v)
		if err != nil {
			zap.L().Warn("credit rules reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		zap.L().Info("credit rules reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *CreditRulesHolder) Get() CreditRules {
	return h.current.Load().(CreditRules)
}

func setCreditDefaults(v *viper.Viper, d CreditRules) {
	v.SetDefault("credit.grace_period_days", d.GracePeriodDays)
	v.SetDefault("credit.late_fee_percentage", d.LateFeePercentage.String())
	v.SetDefault("credit.max_late_fee_amount", d.MaxLateFeeAmount.String())
	v.SetDefault("credit.early_payment_discount_pct", d.EarlyPaymentDiscountPct.String())
	v.SetDefault("credit.payment_reminder_days", d.PaymentReminderDays)
	v.SetDefault("credit.overdue_reminder_days", d.OverdueReminderDays)
	v.SetDefault("credit.min_credit_amount", d.MinCreditAmount.String())
	v.SetDefault("credit.max_credit_amount", d.MaxCreditAmount.String())
	v.SetDefault("credit.channels.email", d.Channels.Email)
	v.SetDefault("credit.channels.whatsapp", d.Channels.WhatsApp)
	v.SetDefault("credit.channels.sms", d.Channels.SMS)
}

func creditRulesFrom(v *viper.Viper) (CreditRules, error) {
	var (
		cfg CreditRules
		err error
	)
	cfg.GracePeriodDays, err = cast.ToIntE(v.Get("credit.grace_period_days"))
	if err != nil {
		return cfg, fmt.Errorf("credit.grace_period_days: %w", err)
	}
	if cfg.LateFeePercentage, err = decimalSetting(v, "credit.late_fee_percentage"); err != nil {
		return cfg, err
	}
	if cfg.MaxLateFeeAmount, err = decimalSetting(v, "credit.max_late_fee_amount"); err != nil {
		return cfg, err
	}
	if cfg.EarlyPaymentDiscountPct, err = decimalSetting(v, "credit.early_payment_discount_pct"); err != nil {
		return cfg, err
	}
	if cfg.MinCreditAmount, err = decimalSetting(v, "credit.min_credit_amount"); err != nil {
		return cfg, err
	}
	if cfg.MaxCreditAmount, err = decimalSetting(v, "credit.max_credit_amount"); err != nil {
		return cfg, err
	}
	if cfg.PaymentReminderDays, err = ParseDayList(v.Get("credit.payment_reminder_days")); err != nil {
		return cfg, fmt.Errorf("credit.payment_reminder_days: %w", err)
	}
	if cfg.OverdueReminderDays, err = ParseDayList(v.Get("credit.overdue_reminder_days")); err != nil {
		return cfg, fmt.Errorf("credit.overdue_reminder_days: %w", err)
	}
	cfg.Channels = ChannelSwitches{
		Email:    cast.ToBool(v.Get("credit.channels.email")),
		WhatsApp: cast.ToBool(v.Get("credit.channels.whatsapp")),
		SMS:      cast.ToBool(v.Get("credit.channels.sms")),
	}

	if err := ValidateCreditRules(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func decimalSetting(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw, err := cast.ToStringE(v.Get(key))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// ParseDayList accepts "7,3,1", a YAML sequence or a single number.
func ParseDayList(raw any) ([]int, error) {
	var parts []any
	switch value := raw.(type) {
	case nil:
		return nil, nil
	case string:
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
	case []int:
		return append([]int(nil), value...), nil
	case []any:
		parts = value
	case []string:
		for _, p := range value {
			parts = append(parts, p)
		}
	default:
		parts = []any{value}
	}

	out := make([]int, 0, len(parts))
	for _, p := range parts {
		day, err := cast.ToIntE(p)
		if err != nil {
			return nil, err
		}
		if day < 0 {
			return nil, fmt.Errorf("negative day %d", day)
		}
		out = append(out, day)
	}
	return out, nil
}

func ValidateCreditRules(cfg CreditRules) error {
	if cfg.GracePeriodDays < 0 {
		return errors.New("credit.grace_period_days cannot be negative")
	}
	if cfg.LateFeePercentage.IsNegative() || cfg.MaxLateFeeAmount.IsNegative() {
		return errors.New("credit late fee settings cannot be negative")
	}
	if cfg.EarlyPaymentDiscountPct.IsNegative() || cfg.EarlyPaymentDiscountPct.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("credit.early_payment_discount_pct must be within 0..100")
	}
	if !cfg.MinCreditAmount.LessThan(cfg.MaxCreditAmount) {
		return errors.New("credit.min_credit_amount must be below credit.max_credit_amount")
	}
	return nil
}
