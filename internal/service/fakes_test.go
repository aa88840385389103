package service

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// memStore backs every mock repository of one test so that the mock
// TxManager can snapshot and restore all of them at once.
type memStore struct {
	mu         sync.Mutex
	users      map[uuid.UUID]*domain.User
	sessions   map[uuid.UUID]*domain.Session
	categories map[uuid.UUID]*domain.Category
	products   map[uuid.UUID]*domain.Product
	cart       map[[2]uuid.UUID]*domain.CartItem
	orders     map[uuid.UUID]*domain.Order
	orderItems []*domain.OrderItem

	// failAddItemAfter makes AddItem fail once this many items were written; 0 disables it
	failAddItemAfter int
	addedItems       int

	// afterLock runs once LockByUser has returned its rows, outside the store lock
	afterLock func()
	// requireUsers makes cart writes fail for users that are not in the store
	requireUsers bool
}

func newMemStore() *memStore {
	return &memStore{
		users:      map[uuid.UUID]*domain.User{},
		sessions:   map[uuid.UUID]*domain.Session{},
		categories: map[uuid.UUID]*domain.Category{},
		products:   map[uuid.UUID]*domain.Product{},
		cart:       map[[2]uuid.UUID]*domain.CartItem{},
		orders:     map[uuid.UUID]*domain.Order{},
	}
}

type memSnapshot struct {
	products   map[uuid.UUID]domain.Product
	cart       map[[2]uuid.UUID]domain.CartItem
	orders     map[uuid.UUID]domain.Order
	orderItems []*domain.OrderItem
	categories map[uuid.UUID]domain.Category
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		products:   map[uuid.UUID]domain.Product{},
		cart:       map[[2]uuid.UUID]domain.CartItem{},
		orders:     map[uuid.UUID]domain.Order{},
		orderItems: append([]*domain.OrderItem(nil), s.orderItems...),
		categories: map[uuid.UUID]domain.Category{},
	}
	for k, v := range s.products {
		snap.products[k] = *v
	}
	for k, v := range s.cart {
		snap.cart[k] = *v
	}
	for k, v := range s.orders {
		snap.orders[k] = *v
	}
	for k, v := range s.categories {
		snap.categories[k] = *v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.products = map[uuid.UUID]*domain.Product{}
	for k, v := range snap.products {
		v := v
		s.products[k] = &v
	}
	s.cart = map[[2]uuid.UUID]*domain.CartItem{}
	for k, v := range snap.cart {
		v := v
		s.cart[k] = &v
	}
	s.orders = map[uuid.UUID]*domain.Order{}
	for k, v := range snap.orders {
		v := v
		s.orders[k] = &v
	}
	s.categories = map[uuid.UUID]*domain.Category{}
	for k, v := range snap.categories {
		v := v
		s.categories[k] = &v
	}
	s.orderItems = snap.orderItems
}

func (s *memStore) addProduct(name, price string, stock int) *domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	category := &domain.Category{ID: uuid.New(), Name: "General", CreatedAt: time.Now()}
	s.categories[category.ID] = category

	product := &domain.Product{
		ID:           uuid.New(),
		Name:         name,
		Description:  name + " description",
		Price:        decimal.RequireFromString(price),
		CategoryID:   category.ID,
		CategoryName: category.Name,
		Stock:        stock,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	s.products[product.ID] = product
	return product
}

// mockTxManager serialises transactions and restores the store when fn fails
type mockTxManager struct {
	store *memStore
	txMu  sync.Mutex
}

type mockTxKey struct{}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(mockTxKey{}) != nil {
		return fn(ctx)
	}

	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.store.mu.Lock()
	snap := m.store.snapshot()
	m.store.mu.Unlock()

	if err := fn(context.WithValue(ctx, mockTxKey{}, true)); err != nil {
		m.store.mu.Lock()
		m.store.restore(snap)
		m.store.mu.Unlock()
		return err
	}
	return nil
}

type mockUserRepository struct{ store *memStore }

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if u.Username == user.Username {
			return repository.ErrUsernameTaken
		}
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	copied := *user
	m.store.users[user.ID] = &copied
	return nil
}

func (m *mockUserRepository) find(match func(*domain.User) bool) (*domain.User, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, u := range m.store.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Username == username })
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email })
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

type mockSessionRepository struct{ store *memStore }

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	copied := *session
	m.store.sessions[session.ID] = &copied
	return nil
}

func (m *mockSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	session, ok := m.store.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	if session.Revoked {
		return nil, repository.ErrSessionRevoked
	}
	copied := *session
	return &copied, nil
}

func (m *mockSessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	session, ok := m.store.sessions[id]
	if !ok {
		return repository.ErrSessionNotFound
	}
	session.Revoked = true
	return nil
}

func (m *mockSessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for _, s := range m.store.sessions {
		if s.UserID == userID && !s.Revoked {
			s.Revoked = true
			n++
		}
	}
	return n, nil
}

type mockCategoryRepository struct{ store *memStore }

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, c := range m.store.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	copied := *category
	m.store.categories[category.ID] = &copied
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.Category{}
	for _, c := range m.store.categories {
		copied := *c
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	c, ok := m.store.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	for _, c := range m.store.categories {
		if c.Name == name {
			copied := *c
			return &copied, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) FindOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	if c, err := m.FindByName(ctx, name); err == nil {
		return c, nil
	}
	category := &domain.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	if err := m.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

type mockProductRepository struct{ store *memStore }

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if product.Price.IsNegative() || product.Stock < 0 {
		return repository.ErrInvalidProduct
	}
	copied := *product
	m.store.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	if product.Price.IsNegative() || product.Stock < 0 {
		return repository.ErrInvalidProduct
	}
	copied := *product
	m.store.products[product.ID] = &copied
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	for _, item := range m.store.orderItems {
		if item.ProductID == id {
			return repository.ErrProductInUse
		}
	}
	delete(m.store.products, id)
	for key := range m.store.cart {
		if key[1] == id {
			delete(m.store.cart, key)
		}
	}
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *mockProductRepository) all(match func(*domain.Product) bool) []*domain.Product {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.Product{}
	for _, p := range m.store.products {
		if match(p) {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func pageOf(products []*domain.Product, page, pageSize int) []*domain.Product {
	if pageSize <= 0 {
		return products
	}
	start := (page - 1) * pageSize
	if start >= len(products) {
		return []*domain.Product{}
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

func (m *mockProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	products := m.all(func(p *domain.Product) bool {
		return filter.Category == "" || p.CategoryName == filter.Category
	})
	return pageOf(products, filter.Page, filter.PageSize), len(products), nil
}

func (m *mockProductRepository) Search(ctx context.Context, keyword string, page, pageSize int) ([]*domain.Product, int, error) {
	needle := strings.ToLower(keyword)
	products := m.all(func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.Description), needle)
	})
	return pageOf(products, page, pageSize), len(products), nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (decimal.Decimal, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	p, ok := m.store.products[id]
	if !ok {
		return decimal.Zero, repository.ErrProductNotFound
	}
	if p.Stock < quantity {
		return decimal.Zero, repository.ErrInsufficientStock
	}
	p.Stock -= quantity
	return p.Price, nil
}

type mockCartRepository struct{ store *memStore }

func (m *mockCartRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if _, ok := m.store.products[productID]; !ok {
		return nil, repository.ErrProductNotFound
	}
	if _, ok := m.store.users[userID]; m.store.requireUsers && !ok {
		return nil, repository.ErrUserNotFound
	}
	key := [2]uuid.UUID{userID, productID}
	item, ok := m.store.cart[key]
	if !ok {
		item = &domain.CartItem{ID: uuid.New(), UserID: userID, ProductID: productID, CreatedAt: time.Now()}
		m.store.cart[key] = item
	}
	item.Quantity += quantity
	item.UpdatedAt = time.Now()
	copied := *item
	return &copied, nil
}

func (m *mockCartRepository) items(userID uuid.UUID) []*domain.CartItem {
	out := []*domain.CartItem{}
	for key, item := range m.store.cart {
		if key[0] == userID {
			copied := *item
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].ProductID[:], out[j].ProductID[:]) < 0
	})
	return out
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	lines := []domain.CartLine{}
	for _, item := range m.items(userID) {
		product := *m.store.products[item.ProductID]
		lines = append(lines, domain.CartLine{Product: &product, Quantity: item.Quantity})
	}
	return lines, nil
}

func (m *mockCartRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	m.store.mu.Lock()
	items := m.items(userID)
	hook := m.store.afterLock
	m.store.mu.Unlock()

	if hook != nil {
		hook()
	}
	return items, nil
}

func (m *mockCartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	delete(m.store.cart, [2]uuid.UUID{userID, productID})
	return nil
}

func (m *mockCartRepository) RemoveItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	remove := map[uuid.UUID]bool{}
	for _, id := range ids {
		remove[id] = true
	}
	var n int64
	for key, item := range m.store.cart {
		if remove[item.ID] {
			delete(m.store.cart, key)
			n++
		}
	}
	return n, nil
}

func (m *mockCartRepository) ClearByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	var n int64
	for key := range m.store.cart {
		if key[0] == userID {
			delete(m.store.cart, key)
			n++
		}
	}
	return n, nil
}

type mockOrderRepository struct{ store *memStore }

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	copied := *order
	m.store.orders[order.ID] = &copied
	return nil
}

func (m *mockOrderRepository) AddItem(ctx context.Context, item *domain.OrderItem) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if m.store.failAddItemAfter > 0 && m.store.addedItems >= m.store.failAddItemAfter {
		return errInjected
	}
	m.store.addedItems++
	copied := *item
	m.store.orderItems = append(m.store.orderItems, &copied)
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	order, ok := m.store.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.Order{}
	for _, order := range m.store.orders {
		if order.UserID == userID {
			copied := *order
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	out := []*domain.OrderItem{}
	for _, item := range m.store.orderItems {
		if item.OrderID == orderID {
			copied := *item
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	order, ok := m.store.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	order.Status = status
	return nil
}

// services wires every service to one shared memStore
type services struct {
	store   *memStore
	users   UserService
	catalog CatalogService
	cart    CartService
	orders  OrderService
}

func newTestServices() *services {
	store := newMemStore()
	tx := &mockTxManager{store: store}
	products := &mockProductRepository{store: store}
	carts := &mockCartRepository{store: store}
	return &services{
		store:   store,
		users:   NewUserService(&mockUserRepository{store: store}, &mockSessionRepository{store: store}, "test-secret", time.Hour),
		catalog: NewCatalogService(products, &mockCategoryRepository{store: store}, tx),
		cart:    NewCartService(carts, products, nil),
		orders:  NewOrderService(tx, carts, products, &mockOrderRepository{store: store}, nil, zap.NewNop()),
	}
}
