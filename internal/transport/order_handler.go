package transport

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	MsgEmptyCart         = "Your cart is empty!"
	MsgOrderPlaced       = "Order placed successfully!"
	MsgCannotViewOrder   = "You do not have permission to view this order!"
	MsgCannotPayOrder    = "You do not have permission to pay for this order!"
	MsgPaymentSuccessful = "Payment successful!"
	MsgOrderNotFound     = "Order not found!"
	MsgOrderTooLarge     = "Order total is too large!"

	ordersPath = "/orders"
)

// OrdersView is the order history page
type OrdersView struct {
	Page
	Orders []*domain.Order `json:"orders"`
}

// OrderView is a single order with its items
type OrderView struct {
	Page
	Order *domain.Order       `json:"order"`
	Items []*domain.OrderItem `json:"items"`
}

// OrderHandler handles checkout, order history and payment
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers the order routes behind requireUser
func (h *OrderHandler) RegisterRoutes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Get("/checkout", h.Checkout)
		r.Post("/checkout", h.Checkout)
		r.Get(ordersPath, h.Orders)
		r.Get("/order/{id}", h.Order)
		r.Get("/pay/{id}", h.Pay)
	})
}

// Checkout turns the cart into a pending order
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	detail, err := h.orderService.Checkout(r.Context(), principal.UserID)
	switch {
	case errors.Is(err, service.ErrEmptyCart):
		middleware.RedirectWithFlash(w, r, middleware.HomePath, MsgEmptyCart)
		return
	case errors.Is(err, service.ErrInsufficientStock):
		middleware.RedirectWithFlash(w, r, cartPath, MsgInsufficientStock)
		return
	case errors.Is(err, service.ErrNotFound):
		// A product vanished between add and checkout
		middleware.RedirectWithFlash(w, r, cartPath, MsgInsufficientStock)
		return
	case errors.Is(err, service.ErrValidation):
		middleware.RedirectWithFlash(w, r, cartPath, MsgOrderTooLarge)
		return
	case err != nil:
		respondInternalError(w, r, h.logger, "Checkout failed", err)
		return
	}

	logger.ForRequest(h.logger, r).Info("Checkout completed",
		zap.String("order_id", detail.Order.ID.String()),
		zap.String("total", detail.Order.Total.StringFixed(2)),
	)
	middleware.RedirectWithFlash(w, r, ordersPath, MsgOrderPlaced)
}

// Orders lists the user's orders, newest first
func (h *OrderHandler) Orders(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	orders, err := h.orderService.ListOrders(r.Context(), principal.UserID)
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to list orders", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrdersView{Page: newPage(w, r), Orders: orders})
}

// Order shows one of the user's orders
func (h *OrderHandler) Order(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := pathID(r)
	if !ok {
		middleware.RedirectWithFlash(w, r, ordersPath, MsgOrderNotFound)
		return
	}

	detail, err := h.orderService.GetOrder(r.Context(), principal.UserID, orderID)
	switch {
	case errors.Is(err, auth.ErrForbidden):
		logger.ForRequest(h.logger, r).Warn("Order access denied", zap.String("order_id", orderID.String()))
		middleware.RedirectWithFlash(w, r, ordersPath, MsgCannotViewOrder)
		return
	case errors.Is(err, service.ErrNotFound):
		middleware.RedirectWithFlash(w, r, ordersPath, MsgOrderNotFound)
		return
	case err != nil:
		respondInternalError(w, r, h.logger, "Failed to get order", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, OrderView{
		Page:  newPage(w, r),
		Order: detail.Order,
		Items: detail.Items,
	})
}

// Pay marks the order paid
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	orderID, ok := pathID(r)
	if !ok {
		middleware.RedirectWithFlash(w, r, ordersPath, MsgOrderNotFound)
		return
	}

	_, err := h.orderService.Pay(r.Context(), principal.UserID, orderID)
	switch {
	case errors.Is(err, auth.ErrForbidden):
		logger.ForRequest(h.logger, r).Warn("Order payment denied", zap.String("order_id", orderID.String()))
		middleware.RedirectWithFlash(w, r, ordersPath, MsgCannotPayOrder)
		return
	case errors.Is(err, service.ErrNotFound):
		middleware.RedirectWithFlash(w, r, ordersPath, MsgOrderNotFound)
		return
	case err != nil:
		respondInternalError(w, r, h.logger, "Payment failed", err)
		return
	}

	middleware.RedirectWithFlash(w, r, "/order/"+orderID.String(), MsgPaymentSuccessful)
}
