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
	MsgProductAdded   = "Product added successfully!"
	MsgProductUpdated = "Product updated successfully!"
	MsgProductDeleted = "Product deleted successfully!"
	MsgProductInUse   = "This product appears in existing orders and cannot be deleted!"

	sellPath       = "/sell"
	addProductPath = "/add_product"
)

// SellView is the admin product listing
type SellView struct {
	Page
	Products []*domain.Product `json:"products"`
}

// ProductFormView backs the add product form
type ProductFormView struct {
	Page
	Categories []*domain.Category `json:"categories"`
}

// AdminHandler handles product management
type AdminHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(catalogService service.CatalogService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the admin routes behind requireAdmin
func (h *AdminHandler) RegisterRoutes(r chi.Router, requireAdmin func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireAdmin)
		r.Get(sellPath, h.Sell)
		r.Get(addProductPath, h.AddProductForm)
		r.Post(addProductPath, h.AddProduct)
		r.Post("/product/{id}/edit", h.EditProduct)
		r.Post("/product/{id}/delete", h.DeleteProduct)
	})
}

// Sell lists every product for management
func (h *AdminHandler) Sell(w http.ResponseWriter, r *http.Request) {
	page, err := h.catalogService.ListAll(r.Context(), service.ListFilter{})
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to list products", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, SellView{Page: newPage(w, r), Products: page.Products})
}

// AddProductForm renders the product form with the known categories
func (h *AdminHandler) AddProductForm(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to list categories", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductFormView{Page: newPage(w, r), Categories: categories})
}

// AddProduct creates a product
func (h *AdminHandler) AddProduct(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.logger, r)

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		log.Debug("Product validation failed", zap.Error(err))
		middleware.RedirectWithFlash(w, r, addProductPath, validationMessage(err))
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), req.toInput())
	if err != nil {
		if h.handleAdminError(w, r, addProductPath, err) {
			return
		}
		respondInternalError(w, r, h.logger, "Failed to create product", err)
		return
	}

	log.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RedirectWithFlash(w, r, sellPath, MsgProductAdded)
}

// EditProduct replaces a product's fields
func (h *AdminHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		middleware.NotFoundHandler(w, r)
		return
	}

	var req ProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		logger.ForRequest(h.logger, r).Debug("Product validation failed", zap.Error(err))
		middleware.RedirectWithFlash(w, r, sellPath, validationMessage(err))
		return
	}

	if _, err := h.catalogService.UpdateProduct(r.Context(), id, req.toInput()); err != nil {
		if h.handleAdminError(w, r, sellPath, err) {
			return
		}
		respondInternalError(w, r, h.logger, "Failed to update product", err)
		return
	}

	logger.ForRequest(h.logger, r).Info("Product updated", zap.String("product_id", id.String()))
	middleware.RedirectWithFlash(w, r, sellPath, MsgProductUpdated)
}

// DeleteProduct removes a product that no order refers to
func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		middleware.NotFoundHandler(w, r)
		return
	}

	err := h.catalogService.DeleteProduct(r.Context(), id)
	if errors.Is(err, service.ErrProductInUse) {
		middleware.RedirectWithFlash(w, r, sellPath, MsgProductInUse)
		return
	}
	if err != nil {
		if h.handleAdminError(w, r, sellPath, err) {
			return
		}
		respondInternalError(w, r, h.logger, "Failed to delete product", err)
		return
	}

	logger.ForRequest(h.logger, r).Info("Product deleted", zap.String("product_id", id.String()))
	middleware.RedirectWithFlash(w, r, sellPath, MsgProductDeleted)
}

// handleAdminError answers the errors shared by every admin mutation and
// reports whether it did
func (h *AdminHandler) handleAdminError(w http.ResponseWriter, r *http.Request, back string, err error) bool {
	switch {
	case errors.Is(err, service.ErrValidation):
		middleware.RedirectWithFlash(w, r, back, validationMessage(err))
	case errors.Is(err, service.ErrNotFound):
		middleware.NotFoundHandler(w, r)
	case errors.Is(err, auth.ErrUnauthenticated):
		middleware.RedirectWithFlash(w, r, middleware.LoginPath, middleware.MsgLoginRequired)
	case errors.Is(err, auth.ErrForbidden):
		middleware.RedirectWithFlash(w, r, middleware.HomePath, middleware.MsgNoPermission)
	default:
		return false
	}
	return true
}
