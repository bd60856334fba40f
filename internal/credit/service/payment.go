package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) lateFeeRules() amortization.LateFeeRules {
	rules := s.rules.Get()
	return amortization.LateFeeRules{
		GraceDays:  rules.GracePeriodDays,
		Percentage: rules.LateFeePercentage,
		MaxFee:     rules.MaxLateFeeAmount,
	}
}

func (s *Service) ProcessPayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentResult, error) {
	if req.InstallmentID == 0 {
		return nil, domain.ErrInvalidID
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if len(method) > domain.MaxPaymentMethodLength {
		return nil, domain.ErrInvalidPaymentMethod.WithField("payment_method", "longer than 32 characters")
	}
	reference := strings.TrimSpace(req.Reference)
	feeRules := s.lateFeeRules()

	var (
		result    *domain.PaymentResult
		previous  domain.Status
		completed bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		located, err := s.repo.FindInstallment(ctx, tx, req.InstallmentID)
		if err != nil {
			return err
		}
		if located == nil {
			return domain.ErrInstallmentNotFound
		}

		// Credit row first, then the installment.
		credit, err := s.repo.FindByIDForUpdate(ctx, tx, located.CreditID)
		if err != nil {
			return err
		}
		if credit == nil {
			return domain.ErrCreditNotFound
		}
		item, err := s.repo.FindInstallmentForUpdate(ctx, tx, req.InstallmentID)
		if err != nil {
			return err
		}
		if item == nil {
			return domain.ErrInstallmentNotFound
		}

		switch item.Status {
		case domain.InstallmentPaid:
			return domain.ErrAlreadyPaid
		case domain.InstallmentCancelled:
			return domain.ErrInstallmentCancelled
		}
		if !credit.Status.AcceptsPayments() {
			return domain.ErrInvalidState.WithDetail("credit is %s and does not accept payments", credit.Status)
		}

		now := s.clock.Now()
		today := clock.Today(s.clock)
		lateFee := decimal.Zero
		if item.DueDate.Before(today) {
			lateFee = amortization.LateFee(item.Amount, amortization.DaysOverdue(item.DueDate, today), feeRules)
		}
		required := item.Amount.Add(lateFee)
		if req.Amount.LessThan(required) {
			return domain.ErrInsufficientAmount.WithDetail("amount below required total %s including late fee of %s",
				required.StringFixed(2), lateFee.StringFixed(2))
		}

		item.Status = domain.InstallmentPaid
		item.PaidDate = &now
		item.PaymentAmount = decimal.NewNullDecimal(req.Amount)
		if method != "" {
			item.PaymentMethod = &method
		}
		if reference != "" {
			item.PaymentReference = &reference
		}
		item.LateFee = lateFee
		item.UpdatedAt = now
		applied, err := s.repo.MarkInstallmentPaid(ctx, tx, item)
		if err != nil {
			return err
		}
		if !applied {
			return domain.ErrAlreadyPaid
		}

		credit.PaidAmount = credit.PaidAmount.Add(item.PrincipalAmount)
		credit.PendingAmount = credit.PendingAmount.Sub(item.PrincipalAmount)
		credit.InterestPaid = credit.InterestPaid.Add(item.InterestAmount)
		credit.LateFees = credit.LateFees.Add(lateFee)
		credit.AmountReceived = credit.AmountReceived.Add(req.Amount)
		overpayment := req.Amount.Sub(required)

		remaining, err := s.repo.ListInstallments(ctx, tx, credit.ID, domain.InstallmentPending, domain.InstallmentOverdue)
		if err != nil {
			return err
		}

		previous = credit.Status
		if len(remaining) == 0 {
			completed = true
			credit.Status = domain.StatusCompleted
			credit.CompletionDate = &now
			credit.NextPaymentDate = nil
		} else {
			next := remaining[0].DueDate
			stillOverdue := false
			for _, r := range remaining {
				if r.DueDate.Before(next) {
					next = r.DueDate
				}
				if r.Status == domain.InstallmentOverdue {
					stillOverdue = true
				}
			}
			credit.NextPaymentDate = &next
			if credit.Status == domain.StatusOverdue && !stillOverdue {
				credit.Status = domain.StatusActive
			}
		}
		credit.UpdatedAt = now
		if err := s.repo.UpdateCredit(ctx, tx, credit); err != nil {
			return err
		}

		amount := req.Amount
		metadata := map[string]any{
			"installment_id":     item.ID.String(),
			"installment_number": item.InstallmentNumber,
			"payment_method":     method,
			"late_fee":           lateFee.StringFixed(2),
		}
		if overpayment.IsPositive() {
			metadata["overpayment"] = overpayment.StringFixed(2)
		}
		if reference != "" {
			metadata["payment_reference"] = reference
		}
		if err := s.history.Record(ctx, tx, auditdomain.Entry{
			CreditID:       credit.ID,
			Action:         auditdomain.ActionPaymentMade,
			Amount:         &amount,
			PreviousStatus: string(previous),
			NewStatus:      string(credit.Status),
			Note:           "Payment for installment " + formatInt(item.InstallmentNumber),
			Metadata:       metadata,
		}); err != nil {
			return err
		}

		data := creditData(credit)
		data["payment_amount"] = money(req.Amount)
		data["payment_date"] = date(&now)
		data["installment_number"] = formatInt(item.InstallmentNumber)
		data["late_fee"] = money(lateFee)
		installmentID := item.ID
		if _, err := s.notifier.Notify(ctx, tx, notificationdomain.Event{
			Type:          notificationdomain.TypePaymentConfirmed,
			CreditID:      credit.ID,
			InstallmentID: &installmentID,
			Recipient:     recipient(credit),
			Data:          data,
		}); err != nil {
			return err
		}

		if completed {
			if err := s.history.Record(ctx, tx, auditdomain.Entry{
				CreditID:       credit.ID,
				Action:         auditdomain.ActionCompleted,
				PreviousStatus: string(previous),
				NewStatus:      string(domain.StatusCompleted),
				Note:           "All installments paid",
			}); err != nil {
				return err
			}
			data := creditData(credit)
			data["completion_date"] = date(&now)
			if _, err := s.notifier.Notify(ctx, tx, notificationdomain.Event{
				Type:      notificationdomain.TypeCreditCompleted,
				CreditID:  credit.ID,
				Recipient: recipient(credit),
				Data:      data,
			}); err != nil {
				return err
			}
		}

		result = &domain.PaymentResult{
			CreditID:              credit.ID,
			InstallmentID:         item.ID,
			PaymentAmount:         req.Amount,
			LateFee:               lateFee,
			Overpayment:           overpayment,
			CreditStatus:          credit.Status,
			RemainingInstallments: len(remaining),
			NextPaymentDate:       credit.NextPaymentDate,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fee, _ := result.LateFee.Float64()
	label := method
	if !domain.KnownPaymentMethod(label) {
		label = "other"
	}
	s.metrics.RecordPayment(ctx, label, fee)
	if previous != result.CreditStatus {
		s.metrics.RecordCreditTransition(ctx, string(previous), string(result.CreditStatus))
	}
	s.creditLog(result.CreditID).Info("installment paid",
		zap.String("installment_id", result.InstallmentID.String()),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("late_fee", result.LateFee.StringFixed(2)),
		zap.String("credit_status", string(result.CreditStatus)),
	)
	return result, nil
}
