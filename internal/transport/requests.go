package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/service"

	"github.com/shopspring/decimal"
)

// LoginRequest represents the login form
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (req *LoginRequest) BindForm(values url.Values) error {
	req.Username = strings.TrimSpace(values.Get("username"))
	req.Password = values.Get("password")
	return nil
}

// RegisterRequest represents the registration form
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50,alphanum"`
	Email    string `json:"email" validate:"required,email,max=120"`
	Password string `json:"password" validate:"required"`
}

func (req *RegisterRequest) BindForm(values url.Values) error {
	req.Username = strings.TrimSpace(values.Get("username"))
	req.Email = strings.TrimSpace(values.Get("email"))
	req.Password = values.Get("password")
	return nil
}

// AddToCartRequest represents the quantity picker on a product page
type AddToCartRequest struct {
	Quantity int `json:"quantity" validate:"gt=0"`
}

func (req *AddToCartRequest) BindForm(values url.Values) error {
	raw := strings.TrimSpace(values.Get("quantity"))
	if raw == "" {
		req.Quantity = 1
		return nil
	}

	quantity, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	req.Quantity = quantity
	return nil
}

// SearchRequest carries the search keyword
type SearchRequest struct {
	Keyword string `json:"keyword" validate:"max=100"`
}

func (req *SearchRequest) BindForm(values url.Values) error {
	req.Keyword = values.Get("keyword")
	return nil
}

// ProductRequest represents the admin product form
type ProductRequest struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"required"`
	Price       decimal.Decimal `json:"price" validate:"-"`
	Category    string          `json:"category" validate:"required,max=50"`
	ImageURL    string          `json:"image_url" validate:"omitempty,max=255"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

func (req *ProductRequest) BindForm(values url.Values) error {
	req.Name = strings.TrimSpace(values.Get("name"))
	req.Description = strings.TrimSpace(values.Get("description"))
	req.Category = strings.TrimSpace(values.Get("category"))
	req.ImageURL = strings.TrimSpace(values.Get("image_url"))

	price, err := decimal.NewFromString(strings.TrimSpace(values.Get("price")))
	if err != nil {
		return fmt.Errorf("price: %w", err)
	}
	req.Price = price

	stock, err := strconv.Atoi(strings.TrimSpace(values.Get("stock")))
	if err != nil {
		return fmt.Errorf("stock: %w", err)
	}
	req.Stock = stock
	return nil
}

func (req *ProductRequest) toInput() service.ProductInput {
	return service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		Stock:       req.Stock,
	}
}
