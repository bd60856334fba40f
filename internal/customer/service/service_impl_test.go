package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/clock"
	"github.com/smallbiznis/cicilan/internal/customer/domain"
	"github.com/smallbiznis/cicilan/internal/customer/repository"
	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	conn := dbtest.Open(t, &domain.Customer{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	ctx := context.Background()

	created, err := svc.Upsert(ctx, nil, domain.UpsertCustomerRequest{
		ExternalID: "7001",
		FirstName:  "Ana",
		LastName:   "Gómez",
		Email:      "ANA@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, "Ana Gómez", created.FullName())

	clk.Advance(time.Hour)
	updated, err := svc.Upsert(ctx, nil, domain.UpsertCustomerRequest{
		ExternalID: "7001",
		FirstName:  "Ana María",
		LastName:   "Gómez",
		Phone:      "3001234567",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "ana@example.com", updated.Email)

	got, err := svc.GetByID(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ana María", got.FirstName)
	assert.Equal(t, "3001234567", got.Phone)

	_, err = svc.GetByID(ctx, "123")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = svc.Upsert(ctx, nil, domain.UpsertCustomerRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidExternalID)
}
