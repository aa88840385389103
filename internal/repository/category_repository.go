package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCategoryNotFound      = errors.New("category not found")
	ErrCategoryAlreadyExists = errors.New("category with this name already exists")
)

// CategoryRepository defines the interface for category data access
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	FindByName(ctx context.Context, name string) (*domain.Category, error)
	FindOrCreate(ctx context.Context, name string) (*domain.Category, error)
}

type categoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a new instance of CategoryRepository
func NewCategoryRepository(db *sql.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

// Create inserts a new category into the database using parameterized queries
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	query := `
		INSERT INTO categories (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		category.ID,
		category.Name,
		category.Description,
		category.CreatedAt,
	)

	if err != nil {
		if isUniqueViolation(err, "categories_name_key") {
			return ErrCategoryAlreadyExists
		}
		return fmt.Errorf("failed to create category: %w", err)
	}

	return nil
}

// List retrieves all categories
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	query := `
		SELECT id, name, description, created_at
		FROM categories
		ORDER BY name ASC
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID using parameterized queries
func (r *categoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return r.findOne(ctx, `SELECT id, name, description, created_at FROM categories WHERE id = $1`, id)
}

// FindByName retrieves a category by its exact name
func (r *categoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	return r.findOne(ctx, `SELECT id, name, description, created_at FROM categories WHERE name = $1`, name)
}

// FindOrCreate returns the category called name, creating it when it does not exist yet.
// Concurrent creators converge on the same row.
func (r *categoryRepository) FindOrCreate(ctx context.Context, name string) (*domain.Category, error) {
	query := `
		INSERT INTO categories (id, name, description, created_at)
		VALUES ($1, $2, '', $3)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, description, created_at
	`

	category := &domain.Category{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, uuid.New(), name, time.Now()).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find or create category: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) findOne(ctx context.Context, query string, arg interface{}) (*domain.Category, error) {
	category := &domain.Category{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, arg).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to find category: %w", err)
	}

	return category, nil
}
