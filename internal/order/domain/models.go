package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address1,omitempty"`
	Address2  string `json:"address2,omitempty"`
	City      string `json:"city,omitempty"`
	Province  string `json:"province,omitempty"`
	Country   string `json:"country,omitempty"`
	Zip       string `json:"zip,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Order mirrors a storefront order.
type Order struct {
	ID             snowflake.ID                `gorm:"primaryKey" json:"id"`
	ExternalID     string                      `gorm:"type:varchar(64);not null;uniqueIndex" json:"external_id"`
	OrderNumber    string                      `gorm:"type:varchar(64);not null" json:"order_number"`
	CustomerID     snowflake.ID                `gorm:"not null;index" json:"customer_id"`
	Email          string                      `gorm:"type:varchar(255)" json:"email,omitempty"`
	Phone          string                      `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Currency       string                      `gorm:"type:varchar(3)" json:"currency"`
	TotalAmount    decimal.Decimal             `gorm:"type:numeric(15,2);not null" json:"total_amount"`
	BillingAddress datatypes.JSONType[Address] `json:"billing_address"`
	PlacedAt       time.Time                   `gorm:"not null" json:"placed_at"`
	CreatedAt      time.Time                   `gorm:"not null" json:"created_at"`
	Items          []OrderItem                 `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID          snowflake.ID                `gorm:"primaryKey" json:"id"`
	OrderID     snowflake.ID                `gorm:"not null;index" json:"order_id"`
	ProductID   string                      `gorm:"type:varchar(64)" json:"product_id"`
	VariantID   string                      `gorm:"type:varchar(64)" json:"variant_id,omitempty"`
	Name        string                      `gorm:"type:varchar(255)" json:"name"`
	SKU         string                      `gorm:"type:varchar(64)" json:"sku,omitempty"`
	Quantity    int                         `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal             `gorm:"type:numeric(15,2);not null" json:"unit_price"`
	Total       decimal.Decimal             `gorm:"type:numeric(15,2);not null" json:"total"`
	CategoryIDs datatypes.JSONSlice[string] `json:"category_ids,omitempty"`
}

func (OrderItem) TableName() string { return "order_items" }
