package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order. Only paid is modeled.
type OrderStatus string

const OrderStatusPaid OrderStatus = "paid"

// OrderItem is one purchased line stored in `order_items`. It is created
// together with its order and never shared between orders.
//
// Fields:
//  ID            – primary key identifier.
//  ProductID     – product bought on this line.
//  Quantity      – positive number of units.
//  PurchasePrice – unit price captured at purchase time.
//  IsDeleted     – set when the product is later removed from the catalog.
type OrderItem struct {
	ID            uint64          `json:"id"`
	ProductID     uint64          `json:"product_id"`
	Quantity      int             `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	IsDeleted     bool            `json:"is_deleted"`
}

// Order is a purchase record stored in `orders`; ItemIDs keeps the order's
// lines in the sequence they were submitted.
type Order struct {
	ID        uint64      `json:"id"`
	UserID    uint64      `json:"user_id"`
	Status    OrderStatus `json:"status"`
	ItemIDs   []uint64    `json:"orderItems_id"`
	CreatedAt time.Time   `json:"created_at"`
}

// OrderItemView is an order line with its product resolved. Product is nil
// when the product row no longer exists.
type OrderItemView struct {
	OrderItem
	Product *ProductSummary `json:"product,omitempty"`
}

// OrderView is an order with its lines resolved.
type OrderView struct {
	Order
	Items []OrderItemView `json:"orderItems"`
}
