package service

import (
	"context"
	"errors"
	"fmt"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
)

// CartService defines the interface for a user's pending purchases
type CartService interface {
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	List(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	metrics     *metrics.Metrics
}

// NewCartService creates a new instance of CartService
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	m *metrics.Metrics,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		metrics:     m,
	}
}

// Add puts quantity units of a product in the cart, merging with an existing line.
// Stock is checked but not reserved; checkout checks it again.
func (s *cartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	if !product.InStock(quantity) {
		return nil, fmt.Errorf("%w: %d of %s available", ErrInsufficientStock, product.Stock, product.Name)
	}

	item, err := s.cartRepo.Add(ctx, userID, productID, quantity)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, notFound(err)
		}
		// The account went away while the session was still live
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, auth.ErrUnauthenticated
		}
		return nil, fmt.Errorf("failed to add to cart: %w", err)
	}

	s.metrics.IncCartAdd()
	return item, nil
}

// List returns the cart priced at current product prices
func (s *cartService) List(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	lines, err := s.cartRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	return domain.NewCart(userID, lines), nil
}

func (s *cartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	if err := s.cartRepo.Remove(ctx, userID, productID); err != nil {
		return fmt.Errorf("failed to remove from cart: %w", err)
	}
	return nil
}

func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.cartRepo.ClearByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}
