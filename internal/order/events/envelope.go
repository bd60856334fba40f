package events

import (
	"encoding/json"
	"fmt"
	"strings"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/shopspring/decimal"
	customerdomain "github.com/smallbiznis/cicilan/internal/customer/domain"
	orderdomain "github.com/smallbiznis/cicilan/internal/order/domain"
	"github.com/spf13/cast"
)

const (
	TopicOrderCreate = "orders/create"

	// PlanAttribute is the checkout note attribute carrying the chosen payment plan.
	PlanAttribute = "installment_plan_id"
)

// Envelope is the EventBridge wrapper Shopify webhooks arrive in.
type Envelope struct {
	Version    string `json:"version"`
	ID         string `json:"id"`
	DetailType string `json:"detail-type"`
	Source     string `json:"source"`
	Account    string `json:"account"`
	Time       string `json:"time"`
	Region     string `json:"region"`
	Detail     struct {
		Payload  json.RawMessage `json:"payload"`
		Metadata struct {
			ShopifyTopic string `json:"X-Shopify-Topic"`
		} `json:"metadata"`
	} `json:"detail"`
}

func (e Envelope) Topic() string {
	return e.Detail.Metadata.ShopifyTopic
}

func ParseEnvelope(body string) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}

func DecodeOrder(payload json.RawMessage) (goshopify.Order, error) {
	var order goshopify.Order
	if err := json.Unmarshal(payload, &order); err != nil {
		return goshopify.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

// IngestRequest maps a Shopify order onto the local order mirror.
func IngestRequest(order goshopify.Order) orderdomain.IngestOrderRequest {
	req := orderdomain.IngestOrderRequest{
		ExternalID:  cast.ToString(order.Id),
		OrderNumber: order.Name,
		Email:       strings.TrimSpace(order.Email),
		Phone:       strings.TrimSpace(order.Phone),
		Currency:    order.Currency,
		TotalAmount: orZero(order.TotalPrice),
	}
	if order.CreatedAt != nil {
		req.PlacedAt = order.CreatedAt.UTC()
	}

	if order.Customer != nil {
		req.Customer = customerdomain.UpsertCustomerRequest{
			ExternalID: cast.ToString(order.Customer.Id),
			FirstName:  order.Customer.FirstName,
			LastName:   order.Customer.LastName,
			Email:      order.Customer.Email,
			Phone:      order.Customer.Phone,
		}
	}
	if req.Customer.ExternalID == "" || req.Customer.ExternalID == "0" {
		req.Customer.ExternalID = "guest:" + strings.ToLower(req.Email)
	}
	if req.Customer.Email == "" {
		req.Customer.Email = req.Email
	}
	if req.Customer.Phone == "" {
		req.Customer.Phone = req.Phone
	}

	if addr := order.BillingAddress; addr != nil {
		req.Billing = orderdomain.Address{
			FirstName: addr.FirstName,
			LastName:  addr.LastName,
			Address1:  addr.Address1,
			Address2:  addr.Address2,
			City:      addr.City,
			Province:  addr.Province,
			Country:   addr.Country,
			Zip:       addr.Zip,
			Phone:     addr.Phone,
		}
		if req.Customer.Phone == "" {
			req.Customer.Phone = addr.Phone
		}
	}

	for _, item := range order.LineItems {
		req.Items = append(req.Items, orderdomain.ItemInput{
			ProductID: cast.ToString(item.ProductId),
			VariantID: cast.ToString(item.VariantId),
			Name:      item.Title,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: orZero(item.Price),
		})
	}
	return req
}

// PlanID returns the payment plan requested at checkout, if any.
func PlanID(order goshopify.Order) string {
	for _, attr := range order.NoteAttributes {
		if strings.EqualFold(strings.TrimSpace(attr.Name), PlanAttribute) {
			return strings.TrimSpace(cast.ToString(attr.Value))
		}
	}
	return ""
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
