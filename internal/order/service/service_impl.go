package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/clock"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	"github.com/smallbiznis/cicilan/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Customers customerdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	customers customerdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("order.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		customers: p.Customers,
	}
}

func (s *Service) Ingest(ctx context.Context, req domain.IngestOrderRequest) (*domain.Order, bool, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, false, domain.ErrInvalidExternalID
	}
	if !req.TotalAmount.IsPositive() {
		return nil, false, domain.ErrInvalidTotal
	}

	var (
		order   *domain.Order
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByExternalID(ctx, tx, externalID)
		if err != nil {
			return err
		}
		if existing != nil {
			order = existing
			return nil
		}

		customer, err := s.customers.Upsert(ctx, tx, req.Customer)
		if err != nil {
			return err
		}

		now := s.clock.Now().UTC()
		placedAt := req.PlacedAt
		if placedAt.IsZero() {
			placedAt = now
		}

		order = &domain.Order{
			ID:             s.genID.Generate(),
			ExternalID:     externalID,
			OrderNumber:    strings.TrimSpace(req.OrderNumber),
			CustomerID:     customer.ID,
			Email:          strings.TrimSpace(req.Email),
			Phone:          strings.TrimSpace(req.Phone),
			Currency:       strings.ToUpper(strings.TrimSpace(req.Currency)),
			TotalAmount:    req.TotalAmount.Round(2),
			BillingAddress: datatypes.NewJSONType(req.Billing),
			PlacedAt:       placedAt.UTC(),
			CreatedAt:      now,
		}
		if order.OrderNumber == "" {
			order.OrderNumber = externalID
		}
		for _, item := range req.Items {
			quantity := item.Quantity
			if quantity <= 0 {
				quantity = 1
			}
			order.Items = append(order.Items, domain.OrderItem{
				ID:          s.genID.Generate(),
				OrderID:     order.ID,
				ProductID:   strings.TrimSpace(item.ProductID),
				VariantID:   strings.TrimSpace(item.VariantID),
				Name:        strings.TrimSpace(item.Name),
				SKU:         strings.TrimSpace(item.SKU),
				Quantity:    quantity,
				UnitPrice:   item.UnitPrice,
				Total:       item.UnitPrice.Mul(decimal.NewFromInt(int64(quantity))),
				CategoryIDs: datatypes.JSONSlice[string](item.CategoryIDs),
			})
		}

		if err := s.repo.Insert(ctx, tx, order); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if created {
		s.log.Info("order mirrored",
			zap.String("order_id", order.ID.String()),
			zap.String("external_id", order.ExternalID),
			zap.Int("items", len(order.Items)),
		)
	}
	return order, created, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || orderID == 0 {
		return nil, domain.ErrInvalidID
	}
	order, err := s.repo.FindByID(ctx, s.db, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}
