package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/customer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("customer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Upsert(ctx context.Context, db *gorm.DB, req domain.UpsertCustomerRequest) (domain.Customer, error) {
	if db == nil {
		db = s.db
	}

	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return domain.Customer{}, domain.ErrInvalidExternalID
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now().UTC()
	existing, err := s.repo.FindByExternalID(ctx, db, externalID)
	if err != nil {
		return domain.Customer{}, err
	}
	if existing != nil {
		existing.FirstName = strings.TrimSpace(req.FirstName)
		existing.LastName = strings.TrimSpace(req.LastName)
		if email != "" {
			existing.Email = email
		}
		if phone := strings.TrimSpace(req.Phone); phone != "" {
			existing.Phone = phone
		}
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, db, existing); err != nil {
			return domain.Customer{}, err
		}
		return *existing, nil
	}

	customer := domain.Customer{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Email:      email,
		Phone:      strings.TrimSpace(req.Phone),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Debug("customer mirrored", zap.String("customer_id", customer.ID.String()))
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Customer, error) {
	customerID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || customerID == 0 {
		return domain.Customer{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, customerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}
