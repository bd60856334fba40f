package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	auditdomain "github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/credit/domain"
	"github.com/smallbiznis/cicilan/internal/providers/document"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
)

func (s *Service) CalculateEarlyPayment(ctx context.Context, id snowflake.ID) (*domain.EarlyPaymentQuote, error) {
	credit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	unpaid, err := s.repo.ListInstallments(ctx, s.db, credit.ID, domain.InstallmentPending, domain.InstallmentOverdue)
	if err != nil {
		return nil, err
	}
	if len(unpaid) == 0 {
		return nil, domain.ErrNoPendingInstallments
	}

	today := clock.Today(s.clock)
	feeRules := s.lateFeeRules()
	pending := make([]amortization.PendingInstallment, 0, len(unpaid))
	views := make([]domain.InstallmentView, 0, len(unpaid))
	lateFees := decimal.Zero
	for _, item := range unpaid {
		pending = append(pending, amortization.PendingInstallment{Amount: item.Amount, Interest: item.InterestAmount})
		view := s.view(item, today, feeRules)
		lateFees = lateFees.Add(view.CurrentFee)
		views = append(views, view)
	}

	quote := amortization.EarlyPayoff(pending, s.rules.Get().EarlyPaymentDiscountPct)
	return &domain.EarlyPaymentQuote{
		CreditID:               credit.ID,
		TotalPending:           quote.TotalPending,
		TotalInterestRemaining: quote.TotalInterestRemaining,
		Discount:               quote.Discount,
		AmountToPay:            quote.AmountToPay,
		Savings:                quote.Savings,
		LateFees:               lateFees,
		Installments:           views,
	}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.CreditDetail, error) {
	credit, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListInstallments(ctx, s.db, credit.ID)
	if err != nil {
		return nil, err
	}

	today := clock.Today(s.clock)
	feeRules := s.lateFeeRules()
	detail := &domain.CreditDetail{
		Credit:       *credit,
		Installments: make([]domain.InstallmentView, 0, len(items)),
	}
	for _, item := range items {
		detail.Installments = append(detail.Installments, s.view(item, today, feeRules))
		detail.Summary.Total++
		switch item.Status {
		case domain.InstallmentPaid:
			detail.Summary.Paid++
		case domain.InstallmentPending:
			detail.Summary.Pending++
		case domain.InstallmentOverdue:
			detail.Summary.Overdue++
		}
	}
	return detail, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var filter domain.ListFilter
	if raw := strings.TrimSpace(req.CustomerID); raw != "" {
		customerID, err := snowflake.ParseString(raw)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidID
		}
		filter.CustomerID = customerID
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status := domain.Status(strings.ToLower(raw))
		if !status.Valid() {
			return domain.ListResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	rawAfter, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	if rawAfter != "" {
		filter.AfterID, err = snowflake.ParseString(rawAfter)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := req.Limit()
	filter.Limit = pageSize
	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.Credit) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	resp := domain.ListResponse{Credits: make([]domain.Credit, 0, len(items))}
	for _, item := range items {
		resp.Credits = append(resp.Credits, *item)
	}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetInstallment(ctx context.Context, id snowflake.ID) (*domain.InstallmentView, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindInstallment(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrInstallmentNotFound
	}
	view := s.view(*item, clock.Today(s.clock), s.lateFeeRules())
	return &view, nil
}

func (s *Service) History(ctx context.Context, id snowflake.ID, req domain.HistoryRequest) (auditdomain.ListHistoryResponse, error) {
	credit, err := s.load(ctx, id)
	if err != nil {
		return auditdomain.ListHistoryResponse{}, err
	}
	return s.history.List(ctx, auditdomain.ListHistoryRequest{
		Pagination: req.Pagination,
		CreditID:   credit.ID,
		Action:     req.Action,
	})
}

func (s *Service) PaymentMethods() []domain.PaymentMethod {
	return append([]domain.PaymentMethod(nil), domain.PaymentMethods...)
}

func (s *Service) ExportScheduleXLSX(ctx context.Context, id snowflake.ID) (*bytes.Buffer, error) {
	data, err := s.scheduleData(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.xlsx.Schedule(ctx, data)
}

func (s *Service) ExportSchedulePDF(ctx context.Context, id snowflake.ID) (io.Reader, error) {
	data, err := s.scheduleData(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pdf.GenerateSchedule(ctx, data)
}

func (s *Service) Receipt(ctx context.Context, installmentID snowflake.ID) (io.Reader, error) {
	if installmentID == 0 {
		return nil, domain.ErrInvalidID
	}
	item, err := s.repo.FindInstallment(ctx, s.db, installmentID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrInstallmentNotFound
	}
	if item.Status != domain.InstallmentPaid {
		return nil, domain.ErrInstallmentNotPaid
	}
	credit, err := s.load(ctx, item.CreditID)
	if err != nil {
		return nil, err
	}

	snapshot := credit.Metadata.Data()
	receipt := document.ReceiptData{
		ReceiptNumber:     fmt.Sprintf("RC-%s-%02d", credit.ID, item.InstallmentNumber),
		CreditID:          credit.ID.String(),
		OrderNumber:       snapshot.OrderNumber,
		CustomerName:      snapshot.Customer.Name,
		CustomerEmail:     snapshot.Customer.Email,
		InstallmentNumber: item.InstallmentNumber,
		InstallmentsCount: credit.InstallmentsCount,
		DueDate:           date(&item.DueDate),
		PaidDate:          date(item.PaidDate),
		Principal:         money(item.PrincipalAmount),
		Interest:          money(item.InterestAmount),
		LateFee:           money(item.LateFee),
		Total:             money(item.PaymentAmount.Decimal),
		RemainingBalance:  money(credit.PendingAmount),
	}
	if item.PaymentMethod != nil {
		receipt.PaymentMethod = *item.PaymentMethod
	}
	if item.PaymentReference != nil {
		receipt.PaymentReference = *item.PaymentReference
	}
	return s.pdf.GenerateReceipt(ctx, receipt)
}

func (s *Service) scheduleData(ctx context.Context, id snowflake.ID) (document.ScheduleData, error) {
	credit, err := s.load(ctx, id)
	if err != nil {
		return document.ScheduleData{}, err
	}
	items, err := s.repo.ListInstallments(ctx, s.db, credit.ID)
	if err != nil {
		return document.ScheduleData{}, err
	}

	snapshot := credit.Metadata.Data()
	now := s.clock.Now()
	data := document.ScheduleData{
		Title:         "Payment schedule",
		CreditID:      credit.ID.String(),
		OrderNumber:   snapshot.OrderNumber,
		CustomerName:  snapshot.Customer.Name,
		CustomerEmail: snapshot.Customer.Email,
		PlanName:      snapshot.Plan.Name,
		InterestRate:  credit.InterestRate.StringFixed(2) + "%",
		TotalAmount:   money(credit.TotalAmount),
		PaidAmount:    money(credit.PaidAmount),
		PendingAmount: money(credit.PendingAmount),
		LateFees:      money(credit.LateFees),
		Status:        string(credit.Status),
		GeneratedAt:   now.UTC().Format(time.RFC3339),
		Rows:          make([]document.ScheduleRow, 0, len(items)),
	}
	for _, item := range items {
		data.Rows = append(data.Rows, document.ScheduleRow{
			Number:    item.InstallmentNumber,
			DueDate:   date(&item.DueDate),
			Amount:    money(item.Amount),
			Principal: money(item.PrincipalAmount),
			Interest:  money(item.InterestAmount),
			Status:    string(item.Status),
			PaidDate:  date(item.PaidDate),
		})
	}
	return data, nil
}

func (s *Service) load(ctx context.Context, id snowflake.ID) (*domain.Credit, error) {
	if id == 0 {
		return nil, domain.ErrInvalidID
	}
	credit, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if credit == nil {
		return nil, domain.ErrCreditNotFound
	}
	return credit, nil
}

func (s *Service) view(item domain.Installment, today time.Time, rules amortization.LateFeeRules) domain.InstallmentView {
	view := domain.InstallmentView{Installment: item}
	if item.Status.Unpaid() && item.DueDate.Before(today) {
		view.IsOverdue = true
		view.DaysOverdue = amortization.DaysOverdue(item.DueDate, today)
	}
	view.CurrentFee = lateFeeAsOf(item, today, rules)
	return view
}
