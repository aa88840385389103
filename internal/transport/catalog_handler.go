package transport

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// IndexView is the storefront home page
type IndexView struct {
	Page
	Products   []*domain.Product  `json:"products"`
	Categories []*domain.Category `json:"categories"`
	Category   string             `json:"category,omitempty"`
	Total      int                `json:"total"`
	PageNumber int                `json:"page"`
	PageSize   int                `json:"page_size"`
}

// SearchView holds search results. Searched is false when the form has not
// been submitted yet.
type SearchView struct {
	Page
	Keyword  string            `json:"keyword"`
	Searched bool              `json:"searched"`
	Products []*domain.Product `json:"products"`
}

// ProductView is a single product page
type ProductView struct {
	Page
	Product *domain.Product `json:"product"`
}

// CatalogHandler handles the public catalog pages
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers the catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/search", h.Search)
	r.Post("/search", h.Search)
	r.Get("/product/{id}", h.Product)
}

// Index lists products newest first, optionally filtered by ?category= and paged
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := service.ListFilter{
		Category: query.Get("category"),
		Page:     queryInt(query.Get("page")),
		PageSize: queryInt(query.Get("page_size")),
	}

	page, err := h.catalogService.ListAll(r.Context(), filter)
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to list products", err)
		return
	}

	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		respondInternalError(w, r, h.logger, "Failed to list categories", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, IndexView{
		Page:       newPage(w, r),
		Products:   page.Products,
		Categories: categories,
		Category:   filter.Category,
		Total:      page.Total,
		PageNumber: page.Page,
		PageSize:   page.PageSize,
	})
}

// Search matches the keyword against product names and descriptions. A blank
// keyword renders the empty search form.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		logger.ForRequest(h.logger, r).Debug("Search validation failed", zap.Error(err))
		middleware.RespondWithValidationErrors(w, middleware.FormatValidationErrors(err))
		return
	}

	view := SearchView{
		Keyword:  req.Keyword,
		Products: []*domain.Product{},
	}

	if strings.TrimSpace(req.Keyword) != "" {
		products, err := h.catalogService.Search(r.Context(), req.Keyword)
		if err != nil {
			respondInternalError(w, r, h.logger, "Failed to search products", err)
			return
		}
		view.Searched = true
		view.Products = products
	}

	view.Page = newPage(w, r)
	middleware.RespondWithJSON(w, http.StatusOK, view)
}

// Product shows one product
func (h *CatalogHandler) Product(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		middleware.NotFoundHandler(w, r)
		return
	}

	product, err := h.catalogService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			middleware.NotFoundHandler(w, r)
			return
		}
		respondInternalError(w, r, h.logger, "Failed to get product", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductView{Page: newPage(w, r), Product: product})
}

// queryInt parses a paging parameter; anything unparsable means "default"
func queryInt(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
