package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem is one pending (user, product, quantity) line. At most one exists per (user, product).
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with the live product it refers to
type CartLine struct {
	Product  *Product `json:"product"`
	Quantity int      `json:"quantity"`
}

// Subtotal is the live price of the product times the quantity
func (l CartLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the full view of a user's cart
type Cart struct {
	UserID uuid.UUID       `json:"user_id"`
	Lines  []CartLine      `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// NewCart builds a cart view and computes its total
func NewCart(userID uuid.UUID, lines []CartLine) *Cart {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return &Cart{UserID: userID, Lines: lines, Total: total}
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}
