package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid:
		return true
	}
	return false
}

// Order is an immutable purchase record; only Status changes after creation
type Order struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Total     decimal.Decimal `json:"total" db:"total"`
	Status    OrderStatus     `json:"status" db:"status"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is a snapshot of one purchased line. Price is the unit price at checkout time.
type OrderItem struct {
	ID        uuid.UUID       `json:"id" db:"id"`
	OrderID   uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity  int             `json:"quantity" db:"quantity"`
	Price     decimal.Decimal `json:"price" db:"price"`
}

// Subtotal is the snapshot price times the quantity
func (i *OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderDetail is an order together with its items
type OrderDetail struct {
	Order *Order       `json:"order"`
	Items []*OrderItem `json:"items"`
}

// BelongsTo reports whether the order is owned by userID
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}
