package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/metrics"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MaxOrderTotal is the first total that no longer fits orders.total, a DECIMAL(12,2)
var MaxOrderTotal = decimal.New(1, 10)

// OrderService defines the interface for checkout, order history and payment
type OrderService interface {
	Checkout(ctx context.Context, userID uuid.UUID) (*domain.OrderDetail, error)
	ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetail, error)
	Pay(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error)
}

type orderService struct {
	txManager   repository.TxManager
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(
	txManager repository.TxManager,
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	m *metrics.Metrics,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		txManager:   txManager,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		metrics:     m,
		logger:      logger,
	}
}

// Checkout turns the user's cart into a pending order in a single transaction:
// lock the cart, take stock for every line, record the order with the prices
// taken at that instant, then delete the lines it locked. Any failure leaves everything as it was.
func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.OrderDetail, error) {
	var detail *domain.OrderDetail

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.cartRepo.LockByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		// Concurrent checkouts touch products in the same order
		sort.Slice(items, func(i, j int) bool {
			return bytes.Compare(items[i].ProductID[:], items[j].ProductID[:]) < 0
		})

		now := time.Now()
		order := &domain.Order{
			ID:        uuid.New(),
			UserID:    userID,
			Status:    domain.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}

		orderItems := make([]*domain.OrderItem, 0, len(items))
		total := decimal.Zero
		for _, item := range items {
			price, err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return fmt.Errorf("%w: product %s", ErrInsufficientStock, item.ProductID)
				}
				if errors.Is(err, repository.ErrProductNotFound) {
					return notFound(err)
				}
				return err
			}

			orderItem := &domain.OrderItem{
				ID:        uuid.New(),
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     price,
			}
			total = total.Add(orderItem.Subtotal())
			orderItems = append(orderItems, orderItem)
		}
		if total.GreaterThanOrEqual(MaxOrderTotal) {
			return fmt.Errorf("%w: order total must be below %s", ErrValidation, MaxOrderTotal.StringFixed(0))
		}
		order.Total = total

		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		for _, orderItem := range orderItems {
			if err := s.orderRepo.AddItem(ctx, orderItem); err != nil {
				return err
			}
		}

		// Lines added after the lock belong to the next checkout
		lineIDs := make([]uuid.UUID, len(items))
		for i, item := range items {
			lineIDs[i] = item.ID
		}
		if _, err := s.cartRepo.RemoveItems(ctx, lineIDs); err != nil {
			return err
		}

		detail = &domain.OrderDetail{Order: order, Items: orderItems}
		return nil
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyCart):
			s.metrics.ObserveCheckout(metrics.CheckoutEmptyCart, 0)
			return nil, err
		case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrNotFound):
			s.metrics.ObserveCheckout(metrics.CheckoutInsufficientStock, 0)
			return nil, err
		case errors.Is(err, ErrValidation):
			s.metrics.ObserveCheckout(metrics.CheckoutError, 0)
			return nil, err
		}
		s.metrics.ObserveCheckout(metrics.CheckoutError, 0)
		return nil, fmt.Errorf("failed to checkout: %w", err)
	}

	total, _ := detail.Order.Total.Float64()
	s.metrics.ObserveCheckout(metrics.CheckoutSuccess, total)
	s.logger.Info("Order placed",
		zap.String("order_id", detail.Order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", detail.Order.Total.StringFixed(2)),
		zap.Int("items", len(detail.Items)),
	)

	return detail, nil
}

// ListOrders returns the user's orders, newest first
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	orders, err := s.orderRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns an order and its items if userID owns it
func (s *orderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetail, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	items, err := s.orderRepo.ListItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	return &domain.OrderDetail{Order: order, Items: items}, nil
}

// Pay simulates a successful payment. Paying an already paid order is a no-op.
func (s *orderService) Pay(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	if err := s.orderRepo.UpdateStatus(ctx, order.ID, domain.OrderStatusPaid); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	order.Status = domain.OrderStatusPaid

	s.logger.Info("Order paid",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
	)
	return order, nil
}

func (s *orderService) ownedOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !order.BelongsTo(userID) {
		return nil, auth.ErrForbidden
	}
	return order, nil
}
