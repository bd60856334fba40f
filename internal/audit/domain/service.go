package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"gorm.io/gorm"
)

// Entry is what a ledger operation records; actor and request details come from the context.
type Entry struct {
	CreditID       snowflake.ID
	Action         Action
	Amount         *decimal.Decimal
	PreviousStatus string
	NewStatus      string
	Note           string
	Metadata       map[string]any
}

type ListHistoryRequest struct {
	pagination.Pagination
	CreditID snowflake.ID
	Action   string
}

type ListHistoryResponse struct {
	pagination.PageInfo
	History []HistoryRecord `json:"history"`
}

type Service interface {
	// Record appends an entry using db, which is normally the caller's open transaction.
	Record(ctx context.Context, db *gorm.DB, entry Entry) error
	List(ctx context.Context, req ListHistoryRequest) (ListHistoryResponse, error)
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, record *HistoryRecord) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*HistoryRecord, error)
}

var (
	ErrInvalidCredit    = errors.New("invalid_credit")
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidAction    = errors.New("invalid_action")
)
