package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	"github.com/smallbiznis/cicilan/internal/order/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type ProviderParams struct {
	fx.In

	DB        *gorm.DB
	Repo      domain.Repository
	Customers customerdomain.Repository
}

// dbProvider reads orders and customers from the local mirror tables.
type dbProvider struct {
	db        *gorm.DB
	repo      domain.Repository
	customers customerdomain.Repository
}

func NewProvider(p ProviderParams) domain.Provider {
	return &dbProvider{db: p.DB, repo: p.Repo, customers: p.Customers}
}

func (p *dbProvider) GetOrder(ctx context.Context, id snowflake.ID) (*domain.Order, error) {
	order, err := p.repo.FindByID(ctx, p.db, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (p *dbProvider) GetCustomer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	customer, err := p.customers.FindByID(ctx, p.db, id)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return nil, domain.ErrCustomerNotFound
	}
	return customer, nil
}
