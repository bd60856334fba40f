package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/amortization"
	"github.com/smallbiznis/cicilan/internal/cache"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/paymentplan/domain"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Cache cache.PlanCache
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	cache cache.PlanCache
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("paymentplan.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		cache: p.Cache,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.PaymentPlan, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	now := s.clock.Now().UTC()
	plan := &domain.PaymentPlan{
		ID:                s.genID.Generate(),
		Code:              slug.Make(name),
		Name:              name,
		Description:       strings.TrimSpace(req.Description),
		InstallmentsCount: req.InstallmentsCount,
		InterestRate:      req.InterestRate,
		MinAmount:         req.MinAmount,
		MaxAmount:         req.MaxAmount,
		Active:            active,
		Priority:          req.Priority,
		ProductIDs:        cleanIDs(req.ProductIDs),
		CategoryIDs:       cleanIDs(req.CategoryIDs),
		Conditions:        strings.TrimSpace(req.Conditions),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := plan.Terms().Validate(); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByCode(ctx, s.db, plan.Code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrCodeTaken.WithDetail("a plan with code %q already exists", plan.Code)
	}

	if err := s.repo.Create(ctx, s.db, plan); err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.log.Info("payment plan created",
		zap.String("plan_id", plan.ID.String()),
		zap.String("code", plan.Code),
	)
	return plan, nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.PaymentPlan, error) {
	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		plan.Name = name
	}
	if req.Description != nil {
		plan.Description = strings.TrimSpace(*req.Description)
	}
	if req.InstallmentsCount != nil {
		plan.InstallmentsCount = *req.InstallmentsCount
	}
	if req.InterestRate != nil {
		plan.InterestRate = *req.InterestRate
	}
	if req.MinAmount != nil {
		plan.MinAmount = *req.MinAmount
	}
	if req.MaxAmount != nil {
		plan.MaxAmount = *req.MaxAmount
	}
	if req.Active != nil {
		plan.Active = *req.Active
	}
	if req.Priority != nil {
		plan.Priority = *req.Priority
	}
	if req.ProductIDs != nil {
		plan.ProductIDs = cleanIDs(req.ProductIDs)
	}
	if req.CategoryIDs != nil {
		plan.CategoryIDs = cleanIDs(req.CategoryIDs)
	}
	if req.Conditions != nil {
		plan.Conditions = strings.TrimSpace(*req.Conditions)
	}
	if err := plan.Terms().Validate(); err != nil {
		return nil, err
	}

	plan.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return nil, err
	}
	s.cache.Invalidate()
	return plan, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	plan, err := s.find(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		count, err := s.repo.CountCredits(ctx, tx, plan.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			return domain.ErrPlanInUse.WithDetail("plan is referenced by %d credits", count)
		}
		return s.repo.Delete(ctx, tx, plan.ID)
	})
	// A credit inserted after the count still trips the foreign key.
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return domain.ErrPlanInUse.WithDetail("plan is referenced by a credit")
	}
	if err != nil {
		return err
	}
	s.cache.Invalidate()

	s.log.Info("payment plan deleted", zap.String("plan_id", plan.ID.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.PaymentPlan, error) {
	return s.find(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var afterID snowflake.ID
	rawAfter, err := req.AfterID()
	if err != nil {
		return domain.ListResponse{}, domain.ErrInvalidPageToken
	}
	if rawAfter != "" {
		afterID, err = snowflake.ParseString(rawAfter)
		if err != nil {
			return domain.ListResponse{}, domain.ErrInvalidPageToken
		}
	}

	pageSize := req.Limit()
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Active:  req.Active,
		AfterID: afterID,
		Limit:   pageSize,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, int32(pageSize), func(item *domain.PaymentPlan) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{ID: item.ID.String()})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	plans := make([]domain.PaymentPlan, 0, len(items))
	for _, item := range items {
		plans = append(plans, *item)
	}

	resp := domain.ListResponse{Plans: plans}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) ListAvailable(ctx context.Context, req domain.AvailableRequest) ([]domain.PaymentPlan, error) {
	if !req.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	plans, err := s.activePlans(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]domain.PaymentPlan, 0, len(plans))
	for _, plan := range plans {
		if plan.AppliesTo(strings.TrimSpace(req.ProductID), req.CategoryIDs, req.Amount) {
			available = append(available, plan)
		}
	}
	return available, nil
}

func (s *Service) Stats(ctx context.Context, id string) (*domain.Stats, error) {
	plan, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	total, active, amounts, err := s.repo.CreditStats(ctx, s.db, plan.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Stats{
		PlanID:        plan.ID,
		TotalCredits:  total,
		ActiveCredits: active,
		TotalAmount:   decimal.Sum(decimal.Zero, amounts...),
	}, nil
}

func (s *Service) Preview(ctx context.Context, id string, amount decimal.Decimal) (amortization.Schedule, error) {
	plan, err := s.find(ctx, id)
	if err != nil {
		return amortization.Schedule{}, err
	}
	if !plan.Active {
		return amortization.Schedule{}, domain.ErrPlanNotFound
	}
	return amortization.Calculate(amount, plan.Terms(), clock.Today(s.clock))
}

func (s *Service) activePlans(ctx context.Context) ([]domain.PaymentPlan, error) {
	if plans, ok := s.cache.GetActive(); ok {
		return plans, nil
	}
	plans, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}
	s.cache.SetActive(plans)
	return plans, nil
}

func (s *Service) find(ctx context.Context, id string) (*domain.PaymentPlan, error) {
	planID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || planID == 0 {
		return nil, domain.ErrInvalidID
	}
	plan, err := s.repo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, domain.ErrPlanNotFound
	}
	return plan, nil
}

func cleanIDs(ids []string) datatypes.JSONSlice[string] {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return datatypes.JSONSlice[string](out)
}
