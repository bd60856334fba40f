package domain

import (
	"context"

	"github.com/smallbiznis/cicilan/internal/domainerr"
	"gorm.io/gorm"
)

type UpsertCustomerRequest struct {
	ExternalID string
	FirstName  string
	LastName   string
	Email      string
	Phone      string
}

type Service interface {
	// Upsert creates or refreshes the mirror keyed by ExternalID using db.
	Upsert(ctx context.Context, db *gorm.DB, req UpsertCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, id string) (Customer, error)
}

var (
	ErrInvalidExternalID = domainerr.New(domainerr.KindValidation, "invalid_customer_reference")
	ErrInvalidEmail      = domainerr.New(domainerr.KindValidation, "invalid_email")
	ErrInvalidID         = domainerr.New(domainerr.KindValidation, "invalid_id")
	ErrNotFound          = domainerr.New(domainerr.KindNotFound, "customer_not_found")
)
