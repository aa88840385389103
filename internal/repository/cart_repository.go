package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

// CartRepository defines the interface for cart data access
type CartRepository interface {
	// Add creates the (user, product) line or increases its quantity in one statement
	Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error)
	// LockByUser returns the user's cart rows ordered by product ID and locks them
	// until the surrounding transaction ends
	LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error)
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	// RemoveItems deletes exactly the given lines, leaving anything added since untouched
	RemoveItems(ctx context.Context, ids []uuid.UUID) (int64, error)
	ClearByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) Add(ctx context.Context, userID, productID uuid.UUID, quantity int) (*domain.CartItem, error) {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id, user_id, product_id, quantity, created_at, updated_at
	`

	item := &domain.CartItem{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, uuid.New(), userID, productID, quantity, time.Now()).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, "fk_cart_items_product") {
			return nil, ErrProductNotFound
		}
		if isForeignKeyViolation(err, "fk_cart_items_user") {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return item, nil
}

// ListByUser joins the user's cart with the live product rows, oldest line first
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CartLine, error) {
	query := `
		SELECT p.id, p.name, p.description, p.price, p.category_id, c.name,
		       p.image_url, p.stock, p.created_at, p.updated_at, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		JOIN categories c ON c.id = p.category_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC, ci.id ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart: %w", err)
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		product := &domain.Product{}
		var quantity int
		err := rows.Scan(
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
			&quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, domain.CartLine{Product: product, Quantity: quantity})
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart: %w", err)
	}

	return lines, nil
}

func (r *cartRepository) LockByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY product_id ASC
		FOR UPDATE
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock cart: %w", err)
	}
	defer rows.Close()

	items := []*domain.CartItem{}
	for rows.Next() {
		item := &domain.CartItem{}
		err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.ProductID,
			&item.Quantity,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart: %w", err)
	}

	return items, nil
}

// Remove deletes one line; removing a line that is not there is not an error
func (r *cartRepository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2`

	if _, err := conn(ctx, r.db).ExecContext(ctx, query, userID, productID); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	return nil
}

func (r *cartRepository) RemoveItems(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE id = ANY($1::uuid[])`, keys)
	if err != nil {
		return 0, fmt.Errorf("failed to remove cart items: %w", err)
	}

	return result.RowsAffected()
}

func (r *cartRepository) ClearByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear cart: %w", err)
	}

	return result.RowsAffected()
}
