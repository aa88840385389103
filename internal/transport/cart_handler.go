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
	MsgAddedToCart       = "Product added to cart!"
	MsgInsufficientStock = "Insufficient stock!"
	MsgInvalidQuantity   = "Quantity must be at least 1!"
	MsgRemovedFromCart   = "Product removed from cart."

	cartPath = "/cart"
)

// CartView is the cart page
type CartView struct {
	Page
	Cart *domain.Cart `json:"cart"`
}

// CartHandler handles the cart pages
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers the cart routes behind requireUser
func (h *CartHandler) RegisterRoutes(r chi.Router, requireUser func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		r.Post("/add_to_cart/{id}", h.AddToCart)
		r.Post("/remove_from_cart/{id}", h.RemoveFromCart)
		r.Get(cartPath, h.ViewCart)
	})
}

// AddToCart puts the requested quantity of a product in the cart and sends the
// visitor back to the product page
func (h *CartHandler) AddToCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	productID, ok := pathID(r)
	if !ok {
		middleware.NotFoundHandler(w, r)
		return
	}
	productPath := "/product/" + productID.String()

	var req AddToCartRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		logger.ForRequest(h.logger, r).Debug("Add to cart validation failed", zap.Error(err))
		middleware.RedirectWithFlash(w, r, productPath, MsgInvalidQuantity)
		return
	}

	_, err := h.cartService.Add(r.Context(), principal.UserID, productID, req.Quantity)
	switch {
	case errors.Is(err, service.ErrNotFound):
		middleware.NotFoundHandler(w, r)
		return
	case errors.Is(err, service.ErrInsufficientStock):
		middleware.RedirectWithFlash(w, r, productPath, MsgInsufficientStock)
		return
	case errors.Is(err, service.ErrValidation):
		middleware.RedirectWithFlash(w, r, productPath, MsgInvalidQuantity)
		return
	case errors.Is(err, auth.ErrUnauthenticated):
		middleware.RedirectWithFlash(w, r, middleware.LoginPath, middleware.MsgLoginRequired)
		return
	case err != nil:
		respondInternalError(w, r, h.logger, "Failed to add to cart", err)
		return
	}

	logger.ForRequest(h.logger, r).Info("Product added to cart",
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity),
	)
	middleware.RedirectWithFlash(w, r, productPath, MsgAddedToCart)
}

// RemoveFromCart drops a product from the cart
func (h *CartHandler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	productID, ok := pathID(r)
	if !ok {
		middleware.NotFoundHandler(w, r)
		return
	}

	if err := h.cartService.Remove(r.Context(), principal.UserID, productID); err != nil {
		respondInternalError(w, r, h.logger, "Failed to remove from cart", err)
		return
	}

	middleware.RedirectWithFlash(w, r, cartPath, MsgRemovedFromCart)
}

// ViewCart shows the cart lines at live prices and their total
func (h *CartHandler) ViewCart(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	cart, err := h.cartService.List(r.Context(), principal.UserID)
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to load cart", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, CartView{Page: newPage(w, r), Cart: cart})
}
