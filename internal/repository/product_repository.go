package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductInUse      = errors.New("product is referenced by existing orders")
	ErrInvalidProduct    = errors.New("product price and stock must not be negative")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// ProductFilter narrows and pages a product listing. A PageSize of zero returns every match.
type ProductFilter struct {
	Category  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder SortOrder
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
	Search(ctx context.Context, keyword string, page, pageSize int) ([]*domain.Product, int, error)
	// DecrementStock takes quantity units from stock only if that many are available
	// and returns the unit price at that instant.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (decimal.Decimal, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productSelect = `
	SELECT p.id, p.name, p.description, p.price, p.category_id, c.name,
	       p.image_url, p.stock, p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

var validSortFields = map[string]bool{
	"name":       true,
	"price":      true,
	"created_at": true,
	"stock":      true,
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category_id, image_url, stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		if isCheckViolation(err, "products_price_check") || isCheckViolation(err, "products_stock_check") {
			return ErrInvalidProduct
		}
		if isForeignKeyViolation(err, "fk_products_category") {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update updates an existing product in the database using parameterized queries
func (r *productRepository) Update(ctx context.Context, product *domain.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category_id = $5,
		    image_url = $6, stock = $7, updated_at = $8
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.ImageURL,
		product.Stock,
		product.UpdatedAt,
	)

	if err != nil {
		if isCheckViolation(err, "products_price_check") || isCheckViolation(err, "products_stock_check") {
			return ErrInvalidProduct
		}
		if isForeignKeyViolation(err, "fk_products_category") {
			return ErrCategoryNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// Delete removes a product. Products referenced by order history cannot be deleted.
func (r *productRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM products WHERE id = $1`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err, "fk_order_items_product") {
			return ErrProductInUse
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := productSelect + `WHERE p.id = $1`

	product, err := scanProduct(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves products with optional category filtering, pagination, and sorting
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	sortBy := filter.SortBy
	if !validSortFields[sortBy] {
		sortBy = "created_at"
	}

	sortOrder := filter.SortOrder
	if sortOrder != SortOrderAsc && sortOrder != SortOrderDesc {
		sortOrder = SortOrderDesc
	}

	whereClause := ""
	args := []interface{}{}

	if filter.Category != "" {
		whereClause = "WHERE c.name = $1"
		args = append(args, filter.Category)
	}

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM products p
		JOIN categories c ON c.id = p.category_id
		%s
	`, whereClause)

	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	// id breaks ties so pages are stable
	query := fmt.Sprintf("%s %s ORDER BY p.%s %s, p.id %s", productSelect, whereClause, sortBy, sortOrder, sortOrder)
	query, args = paginate(query, args, filter.Page, filter.PageSize)

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	return products, total, nil
}

// Search matches keyword case-insensitively against name or description.
// An empty keyword lists every product.
func (r *productRepository) Search(ctx context.Context, keyword string, page, pageSize int) ([]*domain.Product, int, error) {
	if strings.TrimSpace(keyword) == "" {
		return r.List(ctx, ProductFilter{Page: page, PageSize: pageSize})
	}

	searchPattern := "%" + escapeLike(keyword) + "%"

	countQuery := `
		SELECT COUNT(*)
		FROM products
		WHERE name ILIKE $1 OR description ILIKE $1
	`
	var total int
	if err := conn(ctx, r.db).QueryRowContext(ctx, countQuery, searchPattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	query := productSelect + `
		WHERE p.name ILIKE $1 OR p.description ILIKE $1
		ORDER BY p.created_at DESC, p.id DESC
	`
	query, args := paginate(query, []interface{}{searchPattern}, page, pageSize)

	products, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}

	return products, total, nil
}

// DecrementStock is a compare-and-decrement: the row is only touched when stock >= quantity
func (r *productRepository) DecrementStock(ctx context.Context, id uuid.UUID, quantity int) (decimal.Decimal, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING price
	`

	var price decimal.Decimal
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id, quantity).Scan(&price)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("failed to decrement stock: %w", err)
	}

	var exists bool
	err = conn(ctx, r.db).QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to check product: %w", err)
	}
	if !exists {
		return decimal.Zero, ErrProductNotFound
	}

	return decimal.Zero, ErrInsufficientStock
}

func (r *productRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Product, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.CategoryName,
		&product.ImageURL,
		&product.Stock,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return product, nil
}

// paginate appends LIMIT/OFFSET placeholders when pageSize is positive
func paginate(query string, args []interface{}, page, pageSize int) (string, []interface{}) {
	if pageSize <= 0 {
		return query, args
	}
	if page < 1 {
		page = 1
	}
	n := len(args)
	query = fmt.Sprintf("%s LIMIT $%d OFFSET $%d", query, n+1, n+2)
	return query, append(args, pageSize, (page-1)*pageSize)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes keyword match literally inside an ILIKE pattern
func escapeLike(keyword string) string {
	return likeEscaper.Replace(keyword)
}
