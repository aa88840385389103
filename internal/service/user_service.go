package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront/internal/auth"
	"storefront/internal/domain"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	// MaxPasswordBytes is the longest password bcrypt accepts, counted in bytes
	MaxPasswordBytes = 72

	// DefaultSessionTTL is used when no lifetime is configured
	DefaultSessionTTL = 24 * time.Hour
)

// UserService defines the interface for account and session logic
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	CreateAdmin(ctx context.Context, username, email, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (token string, user *domain.User, err error)
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	ValidateToken(tokenString string) (*Claims, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Claims represents the session cookie claims
type Claims struct {
	SessionID uuid.UUID   `json:"session_id"`
	UserID    uuid.UUID   `json:"user_id"`
	Role      domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// RegisterInput is the validated shape of a registration request
type RegisterInput struct {
	Username string `validate:"required,min=3,max=50,alphanum"`
	Email    string `validate:"required,email,max=120"`
	Password string `validate:"required"`
}

type userService struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	jwtSecret   string
	sessionTTL  time.Duration
	now         func() time.Time
}

// NewUserService creates a new instance of UserService
func NewUserService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	jwtSecret string,
	sessionTTL time.Duration,
) UserService {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &userService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jwtSecret:   jwtSecret,
		sessionTTL:  sessionTTL,
		now:         time.Now,
	}
}

// Register creates a new user account with hashed password
func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.createUser(ctx, username, email, password, domain.RoleUser)
}

// CreateAdmin creates an account holding the admin role
func (s *userService) CreateAdmin(ctx context.Context, username, email, password string) (*domain.User, error) {
	return s.createUser(ctx, username, email, password, domain.RoleAdmin)
}

func (s *userService) createUser(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	input := RegisterInput{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		Password: password,
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}
	if len(input.Password) > MaxPasswordBytes {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, MaxPasswordBytes)
	}

	// Username is checked before email
	if _, err := s.userRepo.FindByUsername(ctx, input.Username); err == nil {
		return nil, ErrDuplicateUsername
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if _, err := s.userRepo.FindByEmail(ctx, input.Email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	hashedPassword, err := s.hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique constraints catch registrations racing past the checks above
	if err := s.userRepo.Create(ctx, user); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return nil, ErrDuplicateUsername
		case errors.Is(err, repository.ErrEmailTaken):
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login verifies the credentials, opens a session and returns its signed token
func (s *userService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := s.verifyPassword(user.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateSessionToken(user, session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	return token, user, nil
}

// Authenticate resolves a session token to the principal behind it
func (s *userService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) || errors.Is(err, repository.ErrSessionRevoked) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if session.Expired(s.now()) {
		return nil, ErrTokenExpired
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	// Role comes from the stored user so a role change takes effect without a new login
	return &auth.Principal{
		UserID:    user.ID,
		SessionID: session.ID,
		Username:  user.Username,
		Role:      user.Role,
	}, nil
}

// Logout revokes the session
func (s *userService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessionRepo.Revoke(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Session doesn't exist, consider it already logged out
			return nil
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}

// ValidateToken validates a session token's signature and expiry and returns the claims
func (s *userService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	}, jwt.WithTimeFunc(s.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, notFound(err)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *userService) hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *userService) verifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// generateSessionToken signs the session reference with HS256
func (s *userService) generateSessionToken(user *domain.User, session *domain.Session) (string, error) {
	claims := &Claims{
		SessionID: session.ID,
		UserID:    user.ID,
		Role:      user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(session.CreatedAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
