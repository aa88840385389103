package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userToken  = "user-token"
	adminToken = "admin-token"
)

var (
	testUser  = &auth.Principal{UserID: uuid.New(), SessionID: uuid.New(), Username: "alice", Role: domain.RoleUser}
	testAdmin = &auth.Principal{UserID: uuid.New(), SessionID: uuid.New(), Username: "root", Role: domain.RoleAdmin}

	testCookie = middleware.SessionCookie{Name: "storefront_session", TTL: time.Hour}
)

type stubAuthenticator struct{}

func (stubAuthenticator) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	switch token {
	case userToken:
		return testUser, nil
	case adminToken:
		return testAdmin, nil
	}
	return nil, service.ErrInvalidToken
}

// Service stubs record their calls and answer with the configured result

type stubUserService struct {
	mu         sync.Mutex
	loginErr   error
	registered []string
	registerFn func(username, email string) error
	loggedOut  []uuid.UUID
}

func (s *stubUserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registerFn != nil {
		if err := s.registerFn(username, email); err != nil {
			return nil, err
		}
	}
	s.registered = append(s.registered, username)
	return &domain.User{ID: uuid.New(), Username: username, Email: email, Role: domain.RoleUser}, nil
}

func (s *stubUserService) CreateAdmin(ctx context.Context, username, email, password string) (*domain.User, error) {
	return &domain.User{ID: uuid.New(), Username: username, Email: email, Role: domain.RoleAdmin}, nil
}

func (s *stubUserService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	if s.loginErr != nil {
		return "", nil, s.loginErr
	}
	return userToken, &domain.User{ID: testUser.UserID, Username: username}, nil
}

func (s *stubUserService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	return stubAuthenticator{}.Authenticate(ctx, token)
}

func (s *stubUserService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loggedOut = append(s.loggedOut, sessionID)
	return nil
}

func (s *stubUserService) ValidateToken(tokenString string) (*service.Claims, error) {
	return nil, service.ErrInvalidToken
}

func (s *stubUserService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return nil, service.ErrNotFound
}

type stubCatalogService struct {
	mu        sync.Mutex
	products  map[uuid.UUID]*domain.Product
	searched  []string
	created   []service.ProductInput
	createErr error
	deleteErr error
}

func newStubCatalog(products ...*domain.Product) *stubCatalogService {
	s := &stubCatalogService{products: make(map[uuid.UUID]*domain.Product)}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *stubCatalogService) ListAll(ctx context.Context, filter service.ListFilter) (*service.ProductPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	products := make([]*domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}
	return &service.ProductPage{Products: products, Total: len(products), Page: 1, PageSize: filter.PageSize}, nil
}

func (s *stubCatalogService) Search(ctx context.Context, keyword string) ([]*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searched = append(s.searched, keyword)
	var out []*domain.Product
	for _, p := range s.products {
		if strings.Contains(strings.ToLower(p.Name), strings.ToLower(keyword)) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubCatalogService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return p, nil
}

func (s *stubCatalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return []*domain.Category{{ID: uuid.New(), Name: "Books"}}, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input service.ProductInput) (*domain.Product, error) {
	if _, err := auth.RequireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, input)
	p := &domain.Product{ID: uuid.New(), Name: input.Name, Price: input.Price, Stock: input.Stock}
	s.products[p.ID] = p
	return p, nil
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, id uuid.UUID, input service.ProductInput) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	p.Name, p.Price, p.Stock = input.Name, input.Price, input.Stock
	return p, nil
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

type cartCall struct {
	userID    uuid.UUID
	productID uuid.UUID
	quantity  int
}

type stubCartService struct {
	mu     sync.Mutex
	adds   []cartCall
	addErr error
	lines  []domain.CartLine
}

func (s *stubCartService) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds = append(s.adds, cartCall{userID: userID, productID: productID, quantity: quantity})
	if s.addErr != nil {
		return nil, s.addErr
	}
	return &domain.CartItem{ID: uuid.New(), UserID: userID, ProductID: productID, Quantity: quantity}, nil
}

func (s *stubCartService) List(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	return domain.NewCart(userID, s.lines), nil
}

func (s *stubCartService) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	return nil
}

func (s *stubCartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return nil
}

type stubOrderService struct {
	checkoutErr error
	orders      map[uuid.UUID]*domain.Order
	paid        []uuid.UUID
}

func newStubOrders(orders ...*domain.Order) *stubOrderService {
	s := &stubOrderService{orders: make(map[uuid.UUID]*domain.Order)}
	for _, o := range orders {
		s.orders[o.ID] = o
	}
	return s
}

func (s *stubOrderService) Checkout(ctx context.Context, userID uuid.UUID) (*domain.OrderDetail, error) {
	if s.checkoutErr != nil {
		return nil, s.checkoutErr
	}
	order := &domain.Order{ID: uuid.New(), UserID: userID, Status: domain.OrderStatusPending}
	s.orders[order.ID] = order
	return &domain.OrderDetail{Order: order}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	var out []*domain.Order
	for _, o := range s.orders {
		if o.BelongsTo(userID) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *stubOrderService) owned(userID, orderID uuid.UUID) (*domain.Order, error) {
	o, ok := s.orders[orderID]
	if !ok {
		return nil, service.ErrNotFound
	}
	if !o.BelongsTo(userID) {
		return nil, auth.ErrForbidden
	}
	return o, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.OrderDetail, error) {
	o, err := s.owned(userID, orderID)
	if err != nil {
		return nil, err
	}
	return &domain.OrderDetail{Order: o, Items: []*domain.OrderItem{}}, nil
}

func (s *stubOrderService) Pay(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	o, err := s.owned(userID, orderID)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OrderStatusPaid
	s.paid = append(s.paid, orderID)
	return o, nil
}

type testApp struct {
	users   *stubUserService
	catalog *stubCatalogService
	cart    *stubCartService
	orders  *stubOrderService
	router  chi.Router
}

func newTestApp() *testApp {
	app := &testApp{
		users:   &stubUserService{},
		catalog: newStubCatalog(),
		cart:    &stubCartService{},
		orders:  newStubOrders(),
	}
	app.build()
	return app
}

func (a *testApp) build() {
	logger := zap.NewNop()
	passthrough := func(next http.Handler) http.Handler { return next }

	r := chi.NewRouter()
	r.Use(middleware.LoadPrincipal(stubAuthenticator{}, testCookie, logger))

	requireUser := middleware.RequireAuthenticated(logger)
	NewAuthHandler(a.users, testCookie, logger).RegisterRoutes(r, middleware.RedirectIfAuthenticated(), requireUser, passthrough)
	NewCatalogHandler(a.catalog, logger).RegisterRoutes(r)
	NewCartHandler(a.cart, logger).RegisterRoutes(r, requireUser)
	NewOrderHandler(a.orders, logger).RegisterRoutes(r, requireUser)
	NewAdminHandler(a.catalog, logger).RegisterRoutes(r, middleware.RequireRole(domain.RoleAdmin, logger))

	a.router = r
}

func (a *testApp) do(method, target, token string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: token})
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

// flashes reads back the messages a redirect queued
func flashes(w *httptest.ResponseRecorder) []string {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.FlashCookieName {
			req.AddCookie(c)
		}
	}
	return middleware.PopFlashes(httptest.NewRecorder(), req)
}

func requireRedirect(t *testing.T, w *httptest.ResponseRecorder, location string, flash ...string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, w.Code, w.Body.String())
	require.Equal(t, location, w.Header().Get("Location"))
	if len(flash) > 0 {
		require.Equal(t, flash, flashes(w))
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

var errBoom = errors.New("boom")

func httptestRequest(method, target, token string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: token})
	}
	return req
}

func serve(a *testApp, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}
