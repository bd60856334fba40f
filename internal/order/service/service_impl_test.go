package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cicilan/internal/clock"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	customerrepo "github.com/smallbiznis/cicilan/internal/customer/repository"
	customersvc "github.com/smallbiznis/cicilan/internal/customer/service"
	"github.com/smallbiznis/cicilan/internal/order/domain"
	"github.com/smallbiznis/cicilan/internal/order/repository"
	"github.com/smallbiznis/cicilan/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServices(t *testing.T) (domain.Service, domain.Provider) {
	t.Helper()
	conn := dbtest.Open(t, &customerdomain.Customer{}, &domain.Order{}, &domain.OrderItem{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC))

	customers := customersvc.New(customersvc.Params{
		DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: customerrepo.Provide(),
	})
	repo := repository.Provide()
	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repo, Customers: customers})
	provider := NewProvider(ProviderParams{DB: conn, Repo: repo, Customers: customerrepo.Provide()})
	return svc, provider
}

func sampleOrder() domain.IngestOrderRequest {
	return domain.IngestOrderRequest{
		ExternalID:  "450789469",
		OrderNumber: "#1001",
		Email:       "ana@example.com",
		Currency:    "cop",
		TotalAmount: decimal.RequireFromString("300000"),
		Billing:     domain.Address{FirstName: "Ana", City: "Bogotá", Phone: "3001234567"},
		Customer: customerdomain.UpsertCustomerRequest{
			ExternalID: "207119551",
			FirstName:  "Ana",
			LastName:   "Gómez",
			Email:      "ana@example.com",
		},
		Items: []domain.ItemInput{
			{ProductID: "632910392", Name: "Laptop", Quantity: 2, UnitPrice: decimal.RequireFromString("150000"), CategoryIDs: []string{"laptops"}},
		},
	}
}

func TestIngestIsIdempotent(t *testing.T) {
	svc, provider := newServices(t)
	ctx := context.Background()

	order, created, err := svc.Ingest(ctx, sampleOrder())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "COP", order.Currency)
	require.Len(t, order.Items, 1)
	assert.True(t, order.Items[0].Total.Equal(decimal.RequireFromString("300000")))

	again, created, err := svc.Ingest(ctx, sampleOrder())
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, order.ID, again.ID)

	got, err := provider.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bogotá", got.BillingAddress.Data().City)
	require.Len(t, got.Items, 1)
	assert.Equal(t, []string{"laptops"}, []string(got.Items[0].CategoryIDs))

	customer, err := provider.GetCustomer(ctx, order.CustomerID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Gómez", customer.FullName())
}

func TestIngestValidatesAndProviderMisses(t *testing.T) {
	svc, provider := newServices(t)
	ctx := context.Background()

	req := sampleOrder()
	req.ExternalID = ""
	_, _, err := svc.Ingest(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidExternalID)

	req = sampleOrder()
	req.TotalAmount = decimal.Zero
	_, _, err = svc.Ingest(ctx, req)
	assert.ErrorIs(t, err, domain.ErrInvalidTotal)

	_, err = provider.GetOrder(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
	_, err = provider.GetCustomer(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}
