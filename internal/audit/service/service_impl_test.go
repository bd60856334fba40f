package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/audit/domain"
	"github.com/smallbiznis/cicilan/internal/audit/repository"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/smallbiznis/cicilan/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (domain.Service, *clock.FakeClock) {
	t.Helper()
	conn := dbtest.Open(t, &domain.HistoryRecord{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))
	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func TestRecordCapturesRequestContext(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := auditcontext.WithActor(context.Background(), auditcontext.ActorAdmin, "77")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.1")
	ctx = auditcontext.WithUserAgent(ctx, "curl/8")
	ctx = auditcontext.WithRequestID(ctx, "req-1")

	amount := decimal.RequireFromString("56250")
	err := svc.Record(ctx, nil, domain.Entry{
		CreditID:       1,
		Action:         domain.ActionPaymentMade,
		Amount:         &amount,
		PreviousStatus: "overdue",
		NewStatus:      "active",
		Metadata:       map[string]any{"payment_reference": "TXN-998877", "installment_number": 1},
	})
	require.NoError(t, err)

	resp, err := svc.List(context.Background(), domain.ListHistoryRequest{CreditID: 1})
	require.NoError(t, err)
	require.Len(t, resp.History, 1)

	rec := resp.History[0]
	assert.Equal(t, domain.ActorTypeAdmin, rec.ActorType)
	require.NotNil(t, rec.ActorID)
	assert.Equal(t, "77", *rec.ActorID)
	require.NotNil(t, rec.IPAddress)
	assert.Equal(t, "10.0.0.1", *rec.IPAddress)
	assert.True(t, rec.Amount.Valid)
	assert.True(t, rec.Amount.Decimal.Equal(amount))
	assert.Equal(t, "req-1", rec.Metadata["request_id"])
	assert.Equal(t, "****8877", rec.Metadata["payment_reference"])
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc, _ := newTestService(t)
	require.NoError(t, svc.Record(context.Background(), nil, domain.Entry{CreditID: 5, Action: domain.ActionOverdue}))

	resp, err := svc.List(context.Background(), domain.ListHistoryRequest{CreditID: 5})
	require.NoError(t, err)
	require.Len(t, resp.History, 1)
	assert.Equal(t, domain.ActorTypeSystem, resp.History[0].ActorType)
	assert.Nil(t, resp.History[0].ActorID)
}

func TestRecordValidates(t *testing.T) {
	svc, _ := newTestService(t)
	assert.ErrorIs(t, svc.Record(context.Background(), nil, domain.Entry{Action: domain.ActionCreated}), domain.ErrInvalidCredit)
	assert.ErrorIs(t, svc.Record(context.Background(), nil, domain.Entry{CreditID: 1, Action: "renamed"}), domain.ErrInvalidAction)
}

func TestListPaginatesInCommitOrder(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	actions := []domain.Action{domain.ActionCreated, domain.ActionApproved, domain.ActionPaymentMade}
	for _, action := range actions {
		require.NoError(t, svc.Record(ctx, nil, domain.Entry{CreditID: 9, Action: action}))
		clk.Advance(time.Minute)
	}

	first, err := svc.List(ctx, domain.ListHistoryRequest{CreditID: 9, Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.History, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, domain.ActionCreated, first.History[0].Action)

	token, err := pagination.EncodeCursor(pagination.Cursor{ID: first.History[1].ID.String()})
	require.NoError(t, err)
	second, err := svc.List(ctx, domain.ListHistoryRequest{CreditID: 9, Pagination: pagination.Pagination{PageSize: 2, PageToken: token}})
	require.NoError(t, err)
	require.Len(t, second.History, 1)
	assert.Equal(t, domain.ActionPaymentMade, second.History[0].Action)
	assert.False(t, second.HasMore)

	_, err = svc.List(ctx, domain.ListHistoryRequest{CreditID: 9, Pagination: pagination.Pagination{PageToken: "%%%"}})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
