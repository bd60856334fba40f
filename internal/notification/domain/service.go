package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/domainerr"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"gorm.io/gorm"
)

type Recipient struct {
	Name  string
	Email string
	Phone string
}

// Event asks for one notification type to be sent on every enabled channel.
type Event struct {
	Type          Type
	CreditID      snowflake.ID
	InstallmentID *snowflake.ID
	Recipient     Recipient
	Data          map[string]string
}

type SendResult struct {
	ExternalID string
	Response   map[string]any
}

// Sender delivers a rendered record over one channel.
type Sender interface {
	Channel() Channel
	Send(ctx context.Context, n *Notification) (SendResult, error)
}

type DispatchResult struct {
	Claimed int `json:"claimed"`
	Sent    int `json:"sent"`
	Retried int `json:"retried"`
	Failed  int `json:"failed"`
}

type ListRequest struct {
	pagination.Pagination
	CreditID string `form:"credit_id"`
	Status   string `form:"status"`
}

type ListResponse struct {
	pagination.PageInfo
	Notifications []Notification `json:"notifications"`
}

type Service interface {
	// Enqueue stores a pending record using db, normally the caller's transaction.
	Enqueue(ctx context.Context, db *gorm.DB, n *Notification) error
	// Notify renders event for each enabled channel and enqueues the results.
	Notify(ctx context.Context, db *gorm.DB, event Event) ([]Notification, error)
	MarkSent(ctx context.Context, id snowflake.ID, result SendResult) error
	// MarkFailed records a failed attempt; exhausted reports that the retry cap was reached.
	MarkFailed(ctx context.Context, id snowflake.ID, cause error) (exhausted bool, err error)
	Dispatch(ctx context.Context, batchSize int) (DispatchResult, error)
	Resend(ctx context.Context, id string) (*Notification, error)
	UpdateDeliveryStatus(ctx context.Context, externalID string, status string) error
	HasNotification(ctx context.Context, db *gorm.DB, installmentID snowflake.ID, typ Type, since time.Time) (bool, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}

var (
	ErrNotFound         = domainerr.New(domainerr.KindNotFound, "notification_not_found")
	ErrRetriesExhausted = domainerr.New(domainerr.KindInvalidState, "retries_exhausted")
	ErrNotResendable    = domainerr.New(domainerr.KindInvalidState, "notification_not_resendable")
	ErrInvalidStatus    = domainerr.New(domainerr.KindValidation, "invalid_status")
	ErrInvalidID        = domainerr.New(domainerr.KindValidation, "invalid_id")
	ErrInvalidPageToken = domainerr.New(domainerr.KindValidation, "invalid_page_token")
	ErrNoSender         = domainerr.New(domainerr.KindInvalidState, "channel_not_configured")
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a send failure that retrying cannot fix, such as an invalid
// recipient. The record fails on the attempt that returned it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
