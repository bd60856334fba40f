package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	"github.com/smallbiznis/cicilan/internal/domainerr"
)

//go:generate mockgen -destination=mock/mock_provider.go -package=mock . Provider

// Provider is the read side of the storefront the credit ledger depends on.
type Provider interface {
	GetOrder(ctx context.Context, id snowflake.ID) (*Order, error)
	GetCustomer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error)
}

var (
	ErrOrderNotFound    = domainerr.New(domainerr.KindNotFound, "order_not_found")
	ErrCustomerNotFound = domainerr.New(domainerr.KindNotFound, "customer_not_found")
)
