package events

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cicilan/internal/auditcontext"
	creditdomain "github.com/smallbiznis/cicilan/internal/credit/domain"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const orderCreateEvent = `{
  "version": "0",
  "id": "4f1b2c3d",
  "detail-type": "shopifyWebhook",
  "source": "aws.partner/shopify.com/1234/cicilan",
  "time": "2024-01-10T12:00:00Z",
  "region": "us-east-1",
  "detail": {
    "payload": {
      "id": 450789469,
      "name": "#1001",
      "email": "ana@example.com",
      "currency": "COP",
      "total_price": "300000.00",
      "created_at": "2024-01-10T07:00:00-05:00",
      "customer": {"id": 207119551, "first_name": "Ana", "last_name": "Gómez", "email": "ana@example.com"},
      "billing_address": {"first_name": "Ana", "city": "Bogotá", "phone": "3001234567", "country": "Colombia"},
      "line_items": [
        {"id": 1, "product_id": 632910392, "variant_id": 808950810, "title": "Laptop", "sku": "LAP-1", "quantity": 2, "price": "150000.00"}
      ],
      "note_attributes": [{"name": "installment_plan_id", "value": "1746000000000000001"}]
    },
    "metadata": {"X-Shopify-Topic": "orders/create"}
  }
}`

type fakeOrders struct {
	requests []orderdomain.IngestOrderRequest
	err      error
}

func (f *fakeOrders) Ingest(ctx context.Context, req orderdomain.IngestOrderRequest) (*orderdomain.Order, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	f.requests = append(f.requests, req)
	return &orderdomain.Order{ID: 11, CustomerID: 22, OrderNumber: req.OrderNumber}, true, nil
}

func (f *fakeOrders) Get(ctx context.Context, id string) (*orderdomain.Order, error) {
	return nil, errors.New("not implemented")
}

type fakeCredits struct {
	creditdomain.Service
	creates []creditdomain.CreateRequest
	actors  []string
	err     error
}

func (f *fakeCredits) Create(ctx context.Context, req creditdomain.CreateRequest) (*creditdomain.Credit, error) {
	actor, _ := auditcontext.ActorFromContext(ctx)
	f.actors = append(f.actors, actor)
	f.creates = append(f.creates, req)
	if f.err != nil {
		return nil, f.err
	}
	return &creditdomain.Credit{ID: 33, OrderID: req.OrderID}, nil
}

type fakeSQS struct {
	messages []types.Message
	deleted  []string
	err      error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := &sqs.ReceiveMessageOutput{Messages: f.messages}
	f.messages = nil
	return out, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func message(handle, body string) types.Message {
	return types.Message{
		MessageId:     aws.String("msg-" + handle),
		ReceiptHandle: aws.String(handle),
		Body:          aws.String(body),
	}
}

func TestHandleOrderCreateOpensCredit(t *testing.T) {
	orders := &fakeOrders{}
	credits := &fakeCredits{}
	consumer := NewConsumer(&fakeSQS{}, "queue", orders, credits, zap.NewNop())

	require.NoError(t, consumer.Handle(context.Background(), orderCreateEvent))

	require.Len(t, orders.requests, 1)
	req := orders.requests[0]
	assert.Equal(t, "450789469", req.ExternalID)
	assert.Equal(t, "#1001", req.OrderNumber)
	assert.Equal(t, "300000", req.TotalAmount.String())
	assert.Equal(t, "207119551", req.Customer.ExternalID)
	assert.Equal(t, "3001234567", req.Customer.Phone)
	assert.Equal(t, "Bogotá", req.Billing.City)
	assert.Equal(t, 12, req.PlacedAt.Hour())
	require.Len(t, req.Items, 1)
	assert.Equal(t, "632910392", req.Items[0].ProductID)
	assert.Equal(t, "808950810", req.Items[0].VariantID)
	assert.Equal(t, 2, req.Items[0].Quantity)

	require.Len(t, credits.creates, 1)
	assert.Equal(t, snowflake.ID(11), credits.creates[0].OrderID)
	assert.Equal(t, snowflake.ID(22), credits.creates[0].CustomerID)
	assert.Equal(t, snowflake.ID(1746000000000000001), credits.creates[0].PlanID)
	assert.Equal(t, auditcontext.ActorSystem, credits.actors[0])
}

func TestHandleTreatsDuplicateCreditAsDone(t *testing.T) {
	credits := &fakeCredits{err: creditdomain.ErrDuplicateCredit}
	consumer := NewConsumer(&fakeSQS{}, "queue", &fakeOrders{}, credits, zap.NewNop())

	assert.NoError(t, consumer.Handle(context.Background(), orderCreateEvent))
}

func TestPollDeletesHandledAndPermanentFailures(t *testing.T) {
	client := &fakeSQS{messages: []types.Message{
		message("ok", orderCreateEvent),
		message("topic", `{"detail":{"payload":{},"metadata":{"X-Shopify-Topic":"products/update"}}}`),
		message("garbage", `{not json`),
	}}
	credits := &fakeCredits{}
	consumer := NewConsumer(client, "queue", &fakeOrders{}, credits, zap.NewNop())

	handled, err := consumer.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, handled)
	assert.Equal(t, []string{"ok", "topic", "garbage"}, client.deleted)
	assert.Len(t, credits.creates, 1)
}

func TestPollKeepsMessagesOnTransientFailure(t *testing.T) {
	client := &fakeSQS{messages: []types.Message{message("retry", orderCreateEvent)}}
	orders := &fakeOrders{err: errors.New("connection reset")}
	consumer := NewConsumer(client, "queue", orders, &fakeCredits{}, zap.NewNop())

	handled, err := consumer.Poll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, handled)
	assert.Empty(t, client.deleted)
}

func TestPollDropsValidationFailures(t *testing.T) {
	client := &fakeSQS{messages: []types.Message{message("bad-plan", orderCreateEvent)}}
	credits := &fakeCredits{err: creditdomain.ErrAmountOutOfRange}
	consumer := NewConsumer(client, "queue", &fakeOrders{}, credits, zap.NewNop())

	handled, err := consumer.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, handled)
	assert.Equal(t, []string{"bad-plan"}, client.deleted)
}

func TestPollReturnsReceiveErrors(t *testing.T) {
	consumer := NewConsumer(&fakeSQS{err: errors.New("throttled")}, "queue", &fakeOrders{}, &fakeCredits{}, zap.NewNop())
	_, err := consumer.Poll(context.Background())
	assert.EqualError(t, err, "throttled")
}

func TestIngestRequestFallsBackToGuestCustomer(t *testing.T) {
	env, err := ParseEnvelope(`{"detail":{"payload":{"id":9,"name":"#9","email":"Guest@Example.com","total_price":"10.00"}}}`)
	require.NoError(t, err)
	order, err := DecodeOrder(env.Detail.Payload)
	require.NoError(t, err)

	req := IngestRequest(order)
	assert.Equal(t, "guest:guest@example.com", req.Customer.ExternalID)
	assert.Equal(t, "Guest@Example.com", req.Customer.Email)
	assert.Empty(t, PlanID(order))
}
