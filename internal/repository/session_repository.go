package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionRevoked  = errors.New("session has been revoked")
)

// SessionRepository defines the interface for login session data access
type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error)
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type sessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new instance of SessionRepository
func NewSessionRepository(db *sql.DB) SessionRepository {
	return &sessionRepository{db: db}
}

// Create inserts a new session
func (r *sessionRepository) Create(ctx context.Context, session *domain.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := conn(ctx, r.db).ExecContext(
		ctx,
		query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.CreatedAt,
		session.Revoked,
	)

	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// FindByID retrieves a live session; revoked sessions yield ErrSessionRevoked
func (r *sessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at, revoked
		FROM sessions
		WHERE id = $1
	`

	session := &domain.Session{}
	err := conn(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.Revoked,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.Revoked {
		return nil, ErrSessionRevoked
	}

	return session, nil
}

// Revoke marks a session as revoked
func (r *sessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE sessions
		SET revoked = TRUE
		WHERE id = $1
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// RevokeAllForUser revokes every live session of a user and returns how many were revoked
func (r *sessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE sessions SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	return result.RowsAffected()
}
