package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/config"
	"github.com/smallbiznis/cicilan/internal/credit/domain"
	notificationdomain "github.com/smallbiznis/cicilan/internal/notification/domain"
	obslogger "github.com/smallbiznis/cicilan/internal/observability/logger"
	"github.com/smallbiznis/cicilan/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	plandomain "github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/smallbiznis/cicilan/internal/providers/pdf"
	"github.com/smallbiznis/cicilan/internal/providers/xlsx"
	"github.com/smallbiznis/cicilan/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Plans    plandomain.Repository
	Orders   orderdomain.Provider
	History  auditdomain.Service
	Notifier notificationdomain.Service
	Rules    config.CreditRulesProvider
	PDF      pdf.Provider
	XLSX     xlsx.Exporter
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	plans    plandomain.Repository
	orders   orderdomain.Provider
	history  auditdomain.Service
	notifier notificationdomain.Service
	rules    config.CreditRulesProvider
	pdf      pdf.Provider
	xlsx     xlsx.Exporter
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("credit.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		plans:    p.Plans,
		orders:   p.Orders,
		history:  p.History,
		notifier: p.Notifier,
		rules:    p.Rules,
		pdf:      p.PDF,
		xlsx:     p.XLSX,
		metrics:  p.Metrics,
	}
}

func (s *Service) creditLog(id snowflake.ID) *zap.Logger {
	return obslogger.WithCredit(s.log, id.String())
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Credit, error) {
	switch {
	case req.OrderID == 0:
		return nil, domain.ErrInvalidOrder
	case req.PlanID == 0:
		return nil, domain.ErrInvalidPlan
	case req.CustomerID == 0:
		return nil, domain.ErrInvalidCustomer
	}

	order, err := s.orders.GetOrder(ctx, req.OrderID)
	if errors.Is(err, orderdomain.ErrOrderNotFound) || (err == nil && order == nil) {
		return nil, domain.ErrInvalidOrder
	}
	if err != nil {
		return nil, err
	}
	customer, err := s.orders.GetCustomer(ctx, req.CustomerID)
	if errors.Is(err, orderdomain.ErrCustomerNotFound) || (err == nil && customer == nil) {
		return nil, domain.ErrInvalidCustomer
	}
	if err != nil {
		return nil, err
	}
	if order.CustomerID != customer.ID {
		return nil, domain.ErrInvalidCustomer.WithDetail("customer %s does not own order %s", customer.ID, order.ID)
	}

	plan, err := s.plans.FindByID(ctx, s.db, req.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.Active {
		return nil, domain.ErrInvalidPlan
	}

	rules := s.rules.Get()
	amount := order.TotalAmount
	if !plan.Terms().Accepts(amount) {
		return nil, domain.ErrAmountOutOfRange.WithDetail("amount %s is outside the plan range %s - %s",
			amount.StringFixed(2), plan.MinAmount.StringFixed(2), plan.MaxAmount.StringFixed(2))
	}
	if amount.LessThan(rules.MinCreditAmount) || amount.GreaterThan(rules.MaxCreditAmount) {
		return nil, domain.ErrAmountOutOfRange.WithDetail("amount %s is outside the credit limits %s - %s",
			amount.StringFixed(2), rules.MinCreditAmount.StringFixed(2), rules.MaxCreditAmount.StringFixed(2))
	}

	now := s.clock.Now()
	today := clock.Today(s.clock)
	schedule, err := amortization.Calculate(amount, plan.Terms(), today)
	if errors.Is(err, amortization.ErrPlanMismatch) {
		return nil, domain.ErrAmountOutOfRange
	}
	if err != nil {
		return nil, err
	}

	snapshot := buildSnapshot(order, customer.ID.String(), customer.FullName(), customer.Email, customer.Phone, plan, now)
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	credit := &domain.Credit{
		ID:                s.genID.Generate(),
		CustomerID:        customer.ID,
		OrderID:           order.ID,
		PaymentPlanID:     plan.ID,
		TotalAmount:       amount,
		PaidAmount:        decimal.Zero,
		PendingAmount:     amount,
		InterestPaid:      decimal.Zero,
		LateFees:          decimal.Zero,
		InstallmentsCount: plan.InstallmentsCount,
		InterestRate:      plan.InterestRate,
		Status:            domain.StatusPending,
		Metadata:          datatypes.NewJSONType(snapshot),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	installments := make([]domain.Installment, 0, len(schedule.Lines))
	for _, line := range schedule.Lines {
		installments = append(installments, domain.Installment{
			ID:                s.genID.Generate(),
			CreditID:          credit.ID,
			InstallmentNumber: line.Number,
			Amount:            line.Amount,
			PrincipalAmount:   line.Principal,
			InterestAmount:    line.Interest,
			DueDate:           line.DueDate,
			Status:            domain.InstallmentPending,
			LateFee:           decimal.Zero,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByOrderID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateCredit
		}
		if err := s.repo.InsertCredit(ctx, tx, credit); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateCredit
			}
			return err
		}
		if err := s.repo.InsertInstallments(ctx, tx, installments); err != nil {
			return err
		}
		return s.history.Record(ctx, tx, auditdomain.Entry{
			CreditID:  credit.ID,
			Action:    auditdomain.ActionCreated,
			Amount:    &amount,
			NewStatus: string(domain.StatusPending),
			Note:      "Credit requested for order " + snapshot.OrderNumber,
			Metadata: map[string]any{
				"payment_plan_id":    plan.ID.String(),
				"installments_count": plan.InstallmentsCount,
				"total_interest":     schedule.Summary.TotalInterest.StringFixed(2),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCreditCreated(ctx, plan.Code)
	s.creditLog(credit.ID).Info("credit created",
		zap.String("order_id", order.ID.String()),
		zap.String("plan", plan.Code),
		zap.String("amount", amount.StringFixed(2)),
	)
	credit.Installments = installments
	return credit, nil
}

func buildSnapshot(order *orderdomain.Order, customerID, name, email, phone string, plan *plandomain.PaymentPlan, at time.Time) domain.Snapshot {
	items := make([]domain.ItemSnapshot, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, domain.ItemSnapshot{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Total:     item.Total,
		})
	}
	if strings.TrimSpace(email) == "" {
		email = order.Email
	}
	if strings.TrimSpace(phone) == "" {
		phone = order.Phone
	}
	return domain.Snapshot{
		OrderNumber: order.OrderNumber,
		Currency:    order.Currency,
		Customer: domain.CustomerSnapshot{
			ID:    customerID,
			Name:  name,
			Email: email,
			Phone: phone,
		},
		Billing: order.BillingAddress.Data(),
		Items:   items,
		Plan: domain.PlanSnapshot{
			ID:                plan.ID.String(),
			Code:              plan.Code,
			Name:              plan.Name,
			InstallmentsCount: plan.InstallmentsCount,
			InterestRate:      plan.InterestRate,
		},
		CapturedAt: at,
	}
}

func (s *Service) Approve(ctx context.Context, id snowflake.ID, adminID string) (*domain.Credit, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	adminID = strings.TrimSpace(adminID)

	var credit *domain.Credit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		credit, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if credit == nil {
			return domain.ErrCreditNotFound
		}
		if credit.Status != domain.StatusPending {
			return domain.ErrInvalidState.WithDetail("credit is %s, only pending credits can be approved", credit.Status)
		}

		next, err := s.repo.EarliestUnpaid(ctx, tx, credit.ID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		credit.Status = domain.StatusActive
		credit.ApprovalDate = &now
		if adminID != "" {
			credit.ApprovedBy = &adminID
		}
		credit.UpdatedAt = now
		if next != nil {
			due := next.DueDate
			credit.NextPaymentDate = &due
		}
		if err := s.repo.UpdateCredit(ctx, tx, credit); err != nil {
			return err
		}

		if err := s.history.Record(ctx, tx, auditdomain.Entry{
			CreditID:       credit.ID,
			Action:         auditdomain.ActionApproved,
			PreviousStatus: string(domain.StatusPending),
			NewStatus:      string(domain.StatusActive),
			Note:           "Credit approved",
		}); err != nil {
			return err
		}

		data := creditData(credit)
		data["installments_count"] = formatInt(credit.InstallmentsCount)
		if next != nil {
			data["next_installment_amount"] = money(next.Amount)
			data["next_due_date"] = date(&next.DueDate)
		}
		_, err = s.notifier.Notify(ctx, tx, notificationdomain.Event{
			Type:      notificationdomain.TypeCreditApproved,
			CreditID:  credit.ID,
			Recipient: recipient(credit),
			Data:      data,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCreditTransition(ctx, string(domain.StatusPending), string(domain.StatusActive))
	s.creditLog(credit.ID).Info("credit approved", zap.String("approved_by", adminID))
	return credit, nil
}

func (s *Service) Reject(ctx context.Context, id snowflake.ID, reason string, adminID string) (*domain.Credit, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "Not specified"
	}

	var credit *domain.Credit
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		credit, err = s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if credit == nil {
			return domain.ErrCreditNotFound
		}
		if credit.Status != domain.StatusPending {
			return domain.ErrInvalidState.WithDetail("credit is %s, only pending credits can be rejected", credit.Status)
		}

		now := s.clock.Now()
		cancelled, err := s.repo.UpdateInstallmentStatus(ctx, tx, credit.ID, domain.InstallmentPending, domain.InstallmentCancelled, now)
		if err != nil {
			return err
		}
		credit.Status = domain.StatusCancelled
		credit.NextPaymentDate = nil
		credit.UpdatedAt = now
		if err := s.repo.UpdateCredit(ctx, tx, credit); err != nil {
			return err
		}

		if err := s.history.Record(ctx, tx, auditdomain.Entry{
			CreditID:       credit.ID,
			Action:         auditdomain.ActionCancelled,
			PreviousStatus: string(domain.StatusPending),
			NewStatus:      string(domain.StatusCancelled),
			Note:           reason,
			Metadata: map[string]any{
				"cancelled_installments": cancelled,
				"rejected_by":            adminID,
			},
		}); err != nil {
			return err
		}

		data := creditData(credit)
		data["reason"] = reason
		_, err = s.notifier.Notify(ctx, tx, notificationdomain.Event{
			Type:      notificationdomain.TypeCreditRejected,
			CreditID:  credit.ID,
			Recipient: recipient(credit),
			Data:      data,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordCreditTransition(ctx, string(domain.StatusPending), string(domain.StatusCancelled))
	s.creditLog(credit.ID).Info("credit rejected", zap.String("reason", reason))
	return credit, nil
}

func recipient(credit *domain.Credit) notificationdomain.Recipient {
	customer := credit.Metadata.Data().Customer
	return notificationdomain.Recipient{
		Name:  customer.Name,
		Email: customer.Email,
		Phone: customer.Phone,
	}
}

// creditData holds the placeholders every credit template can use.
func creditData(credit *domain.Credit) map[string]string {
	snapshot := credit.Metadata.Data()
	return map[string]string{
		"customer_name": snapshot.Customer.Name,
		"order_number":  snapshot.OrderNumber,
		"credit_id":     credit.ID.String(),
		"plan_name":     snapshot.Plan.Name,
		"total_amount":  money(credit.TotalAmount),
	}
}
