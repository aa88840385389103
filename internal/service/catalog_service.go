package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const MaxPageSize = 100

// ListFilter narrows the catalog listing. A zero PageSize returns every product.
type ListFilter struct {
	Category string
	Page     int
	PageSize int
}

// ProductPage is one page of the catalog
type ProductPage struct {
	Products []*domain.Product `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
}

// ProductInput is the validated shape of an admin product form
type ProductInput struct {
	Name        string          `validate:"required,max=100"`
	Description string          `validate:"required"`
	Price       decimal.Decimal `validate:"-"`
	Category    string          `validate:"required,max=50"`
	ImageURL    string          `validate:"max=255"`
	Stock       int             `validate:"gte=0"`
}

// CatalogService defines the interface for browsing and managing products
type CatalogService interface {
	ListAll(ctx context.Context, filter ListFilter) (*ProductPage, error)
	Search(ctx context.Context, keyword string) ([]*domain.Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	txManager    repository.TxManager
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	txManager repository.TxManager,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		txManager:    txManager,
	}
}

// ListAll returns products newest first
func (s *catalogService) ListAll(ctx context.Context, filter ListFilter) (*ProductPage, error) {
	if filter.PageSize > MaxPageSize {
		filter.PageSize = MaxPageSize
	}
	if filter.PageSize < 0 {
		filter.PageSize = 0
	}
	if filter.Page < 1 {
		filter.Page = 1
	}

	products, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		Category:  strings.TrimSpace(filter.Category),
		Page:      filter.Page,
		PageSize:  filter.PageSize,
		SortBy:    "created_at",
		SortOrder: repository.SortOrderDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductPage{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Search matches keyword as a case-insensitive substring of name or description.
// A blank keyword returns every product.
func (s *catalogService) Search(ctx context.Context, keyword string) ([]*domain.Product, error) {
	products, _, err := s.productRepo.Search(ctx, strings.TrimSpace(keyword), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	return products, nil
}

func (s *catalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// CreateProduct adds a product, creating its category on first use. Admin only.
func (s *catalogService) CreateProduct(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if _, err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	input = normalizeProductInput(input)
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	var product *domain.Product
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		category, err := s.categoryRepo.FindOrCreate(ctx, input.Category)
		if err != nil {
			return err
		}

		now := time.Now()
		product = &domain.Product{
			ID:           uuid.New(),
			Name:         input.Name,
			Description:  input.Description,
			Price:        input.Price,
			CategoryID:   category.ID,
			CategoryName: category.Name,
			ImageURL:     input.ImageURL,
			Stock:        input.Stock,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		return s.productRepo.Create(ctx, product)
	})
	if err != nil {
		if errors.Is(err, repository.ErrInvalidProduct) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

// UpdateProduct replaces a product's editable fields. Admin only.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input ProductInput) (*domain.Product, error) {
	if _, err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	input = normalizeProductInput(input)
	if err := validateProductInput(input); err != nil {
		return nil, err
	}

	var product *domain.Product
	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		product, err = s.productRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}

		category, err := s.categoryRepo.FindOrCreate(ctx, input.Category)
		if err != nil {
			return err
		}

		product.Name = input.Name
		product.Description = input.Description
		product.Price = input.Price
		product.CategoryID = category.ID
		product.CategoryName = category.Name
		product.ImageURL = input.ImageURL
		product.Stock = input.Stock
		product.UpdatedAt = time.Now()
		return s.productRepo.Update(ctx, product)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, notFound(err)
		case errors.Is(err, repository.ErrInvalidProduct):
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product that no order refers to. Admin only.
func (s *catalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repository.ErrProductNotFound):
			return notFound(err)
		case errors.Is(err, repository.ErrProductInUse):
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func normalizeProductInput(input ProductInput) ProductInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	input.Category = strings.TrimSpace(input.Category)
	input.ImageURL = strings.TrimSpace(input.ImageURL)
	input.Price = input.Price.Round(2)
	return input
}

func validateProductInput(input ProductInput) error {
	if err := validateInput(input); err != nil {
		return err
	}
	if input.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	// NUMERIC(10,2)
	if input.Price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return fmt.Errorf("%w: price is too large", ErrValidation)
	}
	return nil
}
