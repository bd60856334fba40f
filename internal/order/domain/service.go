package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	"github.com/smallbiznis/cicilan/internal/domainerr"
)

type ItemInput struct {
	ProductID   string
	VariantID   string
	Name        string
	SKU         string
	Quantity    int
	UnitPrice   decimal.Decimal
	CategoryIDs []string
}

type IngestOrderRequest struct {
	ExternalID  string
	OrderNumber string
	Email       string
	Phone       string
	Currency    string
	TotalAmount decimal.Decimal
	PlacedAt    time.Time
	Billing     Address
	Customer    customerdomain.UpsertCustomerRequest
	Items       []ItemInput
}

type Service interface {
	// Ingest mirrors an order. created is false when the order was already known.
	Ingest(ctx context.Context, req IngestOrderRequest) (order *Order, created bool, err error)
	Get(ctx context.Context, id string) (*Order, error)
}

var (
	ErrInvalidExternalID = domainerr.New(domainerr.KindValidation, "invalid_order_reference")
	ErrInvalidTotal      = domainerr.New(domainerr.KindValidation, "invalid_order_total")
	ErrInvalidID         = domainerr.New(domainerr.KindValidation, "invalid_id")
)
