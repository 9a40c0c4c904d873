package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the delivery lifecycle of an order. The chat core only
// ever creates orders as Pending; every later transition belongs to the
// admin API.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

// ValidOrderStatus reports whether s is a known status value.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is created exactly once per successful fulfillment transaction.
type Order struct {
	ID          int64           `json:"id"`
	Reference   string          `json:"reference"` // opaque public id, safe to show in chat
	AccountID   int64           `json:"account_id"`
	Status      OrderStatus     `json:"status"`
	PlacedAt    time.Time       `json:"placed_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLine     `json:"lines,omitempty"`
}

// OrderLine is immutable after creation. UnitPriceAtOrder is a copy
// taken at commit time, so later price edits never change historical
// totals.
type OrderLine struct {
	OrderID          int64           `json:"order_id"`
	CatalogItemID    int64           `json:"catalog_item_id"`
	Quantity         int64           `json:"quantity"`
	UnitPriceAtOrder decimal.Decimal `json:"unit_price_at_order"`
}
