package transport

import (
	"errors"
	"net/http"
	"strings"

	"storefront/internal/logger"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	MsgInvalidCredentials   = "Invalid username or password!"
	MsgUsernameExists       = "Username already exists!"
	MsgEmailExists          = "Email already exists!"
	MsgRegistrationComplete = "Registration successful! Please log in."

	registerPath = "/register"
)

// AuthView is rendered for the login and register forms
type AuthView struct {
	Page
}

// AuthHandler handles login, registration and logout
type AuthHandler struct {
	userService service.UserService
	cookie      middleware.SessionCookie
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userService service.UserService, cookie middleware.SessionCookie, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		cookie:      cookie,
		logger:      logger,
	}
}

// RegisterRoutes registers the account routes. guestOnly wraps the forms,
// requireUser wraps logout and rateLimit wraps the form submissions.
func (h *AuthHandler) RegisterRoutes(r chi.Router, guestOnly, requireUser, rateLimit func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(guestOnly)
		r.Get(middleware.LoginPath, h.LoginForm)
		r.Get(registerPath, h.RegisterForm)

		r.With(rateLimit).Post(middleware.LoginPath, h.Login)
		r.With(rateLimit).Post(registerPath, h.Register)
	})

	r.With(requireUser).Get("/logout", h.Logout)
}

// LoginForm renders the login page
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, AuthView{Page: newPage(w, r)})
}

// RegisterForm renders the registration page
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, AuthView{Page: newPage(w, r)})
}

// Login starts a session for valid credentials
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.logger, r)

	var req LoginRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		log.Debug("Login validation failed", zap.Error(err))
		middleware.RedirectWithFlash(w, r, middleware.LoginPath, MsgInvalidCredentials)
		return
	}

	token, user, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			log.Debug("Login failed", zap.String("username", req.Username))
			middleware.RedirectWithFlash(w, r, middleware.LoginPath, MsgInvalidCredentials)
			return
		}
		respondInternalError(w, r, h.logger, "Login failed", err)
		return
	}

	h.cookie.Set(w, token)

	log.Info("User logged in successfully", zap.String("user_id", user.ID.String()))
	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

// Register creates a user account
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	log := logger.ForRequest(h.logger, r)

	var req RegisterRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		log.Debug("Registration validation failed", zap.Error(err))
		middleware.RedirectWithFlash(w, r, registerPath, validationMessage(err))
		return
	}

	user, err := h.userService.Register(r.Context(), req.Username, req.Email, req.Password)
	switch {
	case errors.Is(err, service.ErrDuplicateUsername):
		middleware.RedirectWithFlash(w, r, registerPath, MsgUsernameExists)
		return
	case errors.Is(err, service.ErrDuplicateEmail):
		middleware.RedirectWithFlash(w, r, registerPath, MsgEmailExists)
		return
	case errors.Is(err, service.ErrValidation):
		middleware.RedirectWithFlash(w, r, registerPath, validationMessage(err))
		return
	case err != nil:
		respondInternalError(w, r, h.logger, "Registration failed", err)
		return
	}

	log.Info("User registered successfully", zap.String("user_id", user.ID.String()))
	middleware.RedirectWithFlash(w, r, middleware.LoginPath, MsgRegistrationComplete)
}

// Logout ends the current session
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	principal, ok := currentPrincipal(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.userService.Logout(r.Context(), principal.SessionID); err != nil {
		respondInternalError(w, r, h.logger, "Logout failed", err)
		return
	}

	h.cookie.Clear(w)

	logger.ForRequest(h.logger, r).Info("User logged out successfully")
	http.Redirect(w, r, middleware.HomePath, http.StatusSeeOther)
}

// validationMessage folds field errors into a single flash line
func validationMessage(err error) string {
	fieldErrors := middleware.FormatValidationErrors(err)
	if len(fieldErrors) == 0 {
		prefix := service.ErrValidation.Error() + ": "
		if msg := err.Error(); errors.Is(err, service.ErrValidation) && strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
		return "Invalid form submission!"
	}

	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		messages = append(messages, fe.Field+": "+fe.Message)
	}
	return strings.Join(messages, "; ")
}
