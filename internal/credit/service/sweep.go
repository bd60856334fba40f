package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	"github.com/smallbiznis/cicilan/internal/notification/template"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CheckOverduePayments flags pending installments whose due date has passed
// and moves their active credits to overdue. Credits that are already overdue
// are left alone, so repeated runs change nothing.
func (s *Service) CheckOverduePayments(ctx context.Context) (domain.OverdueResult, error) {
	today := clock.Today(s.clock)
	candidates, err := s.repo.OverdueCandidates(ctx, s.db, today)
	if err != nil {
		return domain.OverdueResult{}, err
	}

	var creditIDs []snowflake.ID
	for _, item := range candidates {
		if !slices.Contains(creditIDs, item.CreditID) {
			creditIDs = append(creditIDs, item.CreditID)
		}
	}

	var (
		result domain.OverdueResult
		errs   []error
	)
	for _, creditID := range creditIDs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		flagged, err := s.markCreditOverdue(ctx, creditID)
		if err != nil {
			s.creditLog(creditID).Error("overdue check failed", zap.Error(err))
			errs = append(errs, fmt.Errorf("credit %s: %w", creditID, err))
			continue
		}
		if flagged > 0 {
			result.Credits++
			result.Installments += flagged
		}
	}

	if result.Credits > 0 {
		s.log.Info("overdue check completed",
			zap.Int("credits", result.Credits),
			zap.Int("installments", result.Installments),
		)
	}
	return result, errors.Join(errs...)
}

func (s *Service) markCreditOverdue(ctx context.Context, creditID snowflake.ID) (int, error) {
	today := clock.Today(s.clock)
	feeRules := s.lateFeeRules()

	flagged := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		credit, err := s.repo.FindByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		if credit == nil || credit.Status != domain.StatusActive {
			return nil
		}

		pending, err := s.repo.ListInstallments(ctx, tx, credit.ID, domain.InstallmentPending)
		if err != nil {
			return err
		}
		var late []domain.Installment
		for _, item := range pending {
			if item.DueDate.Before(today) {
				late = append(late, item)
			}
		}
		if len(late) == 0 {
			return nil
		}

		now := s.clock.Now()
		ids := make([]snowflake.ID, 0, len(late))
		for _, item := range late {
			ids = append(ids, item.ID)
		}
		if err := s.repo.MarkInstallmentsOverdue(ctx, tx, ids, now); err != nil {
			return err
		}

		credit.Status = domain.StatusOverdue
		credit.UpdatedAt = now
		if err := s.repo.UpdateCredit(ctx, tx, credit); err != nil {
			return err
		}

		maxDays := 0
		for _, item := range late {
			if d := amortization.DaysOverdue(item.DueDate, today); d > maxDays {
				maxDays = d
			}
		}
		if err := s.history.Record(ctx, tx, auditdomain.Entry{
			CreditID:       credit.ID,
			Action:         auditdomain.ActionOverdue,
			PreviousStatus: string(domain.StatusActive),
			NewStatus:      string(domain.StatusOverdue),
			Note:           fmt.Sprintf("%d installment(s) past due", len(late)),
			Metadata: map[string]any{
				"installments": len(late),
				"days_overdue": maxDays,
			},
		}); err != nil {
			return err
		}

		for i := range late {
			if err := s.notifyOverdue(ctx, tx, credit, &late[i], today, feeRules); err != nil {
				return err
			}
		}
		flagged = len(late)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if flagged > 0 {
		s.metrics.RecordCreditTransition(ctx, string(domain.StatusActive), string(domain.StatusOverdue))
	}
	return flagged, nil
}

func (s *Service) notifyOverdue(ctx context.Context, tx *gorm.DB, credit *domain.Credit, item *domain.Installment, today time.Time, feeRules amortization.LateFeeRules) error {
	days := amortization.DaysOverdue(item.DueDate, today)
	fee := amortization.LateFee(item.Amount, days, feeRules)

	data := creditData(credit)
	data["installment_number"] = formatInt(item.InstallmentNumber)
	data["installment_amount"] = money(item.Amount)
	data["due_date"] = date(&item.DueDate)
	data["days_overdue"] = formatInt(days)
	data["late_fee"] = money(fee)
	data["total_due"] = money(item.Amount.Add(fee))

	installmentID := item.ID
	_, err := s.notifier.Notify(ctx, tx, notificationdomain.Event{
		Type:          notificationdomain.TypePaymentOverdue,
		CreditID:      credit.ID,
		InstallmentID: &installmentID,
		Recipient:     recipient(credit),
		Data:          data,
	})
	return err
}

// SendPaymentReminders enqueues a reminder for every pending installment due
// exactly one of the configured number of days from today.
func (s *Service) SendPaymentReminders(ctx context.Context) (domain.ReminderResult, error) {
	today := clock.Today(s.clock)
	days := uniqueDays(s.rules.Get().PaymentReminderDays)

	var (
		result domain.ReminderResult
		errs   []error
	)
	for _, d := range days {
		items, err := s.repo.DueOn(ctx, s.db, today.AddDate(0, 0, d))
		if err != nil {
			return result, err
		}
		for i := range items {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			item := &items[i]
			message := template.ReminderMessage(d)
			sent, err := s.remind(ctx, item, notificationdomain.TypePaymentReminder, today, func(data map[string]string) {
				data["reminder_message"] = message
				data["days_until_due"] = formatInt(d)
			})
			if err != nil {
				errs = append(errs, fmt.Errorf("installment %s: %w", item.ID, err))
				continue
			}
			if sent > 0 {
				result.Installments++
				result.Notifications += sent
			}
		}
	}
	return result, errors.Join(errs...)
}

// SendOverdueReminders re-notifies overdue installments on the configured days
// past due.
func (s *Service) SendOverdueReminders(ctx context.Context) (domain.ReminderResult, error) {
	today := clock.Today(s.clock)
	days := uniqueDays(s.rules.Get().OverdueReminderDays)
	feeRules := s.lateFeeRules()

	items, err := s.repo.OverdueInstallments(ctx, s.db)
	if err != nil {
		return domain.ReminderResult{}, err
	}

	var (
		result domain.ReminderResult
		errs   []error
	)
	for i := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		item := &items[i]
		overdueDays := amortization.DaysOverdue(item.DueDate, today)
		if !slices.Contains(days, overdueDays) {
			continue
		}
		fee := amortization.LateFee(item.Amount, overdueDays, feeRules)
		sent, err := s.remind(ctx, item, notificationdomain.TypePaymentOverdue, today, func(data map[string]string) {
			data["days_overdue"] = formatInt(overdueDays)
			data["late_fee"] = money(fee)
			data["total_due"] = money(item.Amount.Add(fee))
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("installment %s: %w", item.ID, err))
			continue
		}
		if sent > 0 {
			result.Installments++
			result.Notifications += sent
		}
	}
	return result, errors.Join(errs...)
}

// remind enqueues typ for item unless one was already enqueued today.
func (s *Service) remind(ctx context.Context, item *domain.Installment, typ notificationdomain.Type, today time.Time, fill func(map[string]string)) (int, error) {
	sent := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := s.notifier.HasNotification(ctx, tx, item.ID, typ, today)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		credit, err := s.repo.FindByID(ctx, tx, item.CreditID)
		if err != nil {
			return err
		}
		if credit == nil || credit.Status.Terminal() {
			return nil
		}

		data := creditData(credit)
		data["installment_number"] = formatInt(item.InstallmentNumber)
		data["installment_amount"] = money(item.Amount)
		data["due_date"] = date(&item.DueDate)
		fill(data)

		installmentID := item.ID
		records, err := s.notifier.Notify(ctx, tx, notificationdomain.Event{
			Type:          typ,
			CreditID:      credit.ID,
			InstallmentID: &installmentID,
			Recipient:     recipient(credit),
			Data:          data,
		})
		sent = len(records)
		return err
	})
	return sent, err
}

func uniqueDays(days []int) []int {
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d >= 0 && !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// lateFeeAsOf is the fee an unpaid installment has accrued by today.
func lateFeeAsOf(item domain.Installment, today time.Time, rules amortization.LateFeeRules) decimal.Decimal {
	if item.Status.Unpaid() && item.DueDate.Before(today) {
		return amortization.LateFee(item.Amount, amortization.DaysOverdue(item.DueDate, today), rules)
	}
	return item.LateFee
}
