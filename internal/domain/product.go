package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a product in the catalog
type Product struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	Description  string          `json:"description" db:"description"`
	Price        decimal.Decimal `json:"price" db:"price"`
	CategoryID   uuid.UUID       `json:"category_id" db:"category_id"`
	CategoryName string          `json:"category" db:"category_name"`
	ImageURL     string          `json:"image_url" db:"image_url"`
	Stock        int             `json:"stock" db:"stock"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
}

// InStock reports whether quantity units can currently be taken from stock
func (p *Product) InStock(quantity int) bool {
	return quantity > 0 && p.Stock >= quantity
}

// Category represents a product category
type Category struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
