package middleware

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/domain"

	"go.uber.org/zap"
)

const (
	LoginPath = "/login"
	HomePath  = "/"

	MsgLoginRequired = "Please log in to access this page."
	MsgNoPermission  = "You do not have permission to access this page!"
)

// RequireAuthenticated sends anonymous visitors to the login page
func RequireAuthenticated(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := auth.RequireAuthenticated(r.Context()); err != nil {
				logger.Debug("Anonymous request to protected page", zap.String("path", r.URL.Path))
				RedirectWithFlash(w, r, LoginPath, MsgLoginRequired)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole lets only principals holding role through; others go home
func RequireRole(role domain.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, err := auth.RequireRole(r.Context(), role)
			switch {
			case errors.Is(err, auth.ErrUnauthenticated):
				RedirectWithFlash(w, r, LoginPath, MsgLoginRequired)
				return
			case err != nil:
				principal, _ := auth.PrincipalFromContext(r.Context())
				logger.Warn("User role not authorized",
					zap.String("user_id", principal.UserID.String()),
					zap.String("required_role", role.String()),
					zap.String("path", r.URL.Path),
				)
				RedirectWithFlash(w, r, HomePath, MsgNoPermission)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RedirectIfAuthenticated keeps logged-in users away from the login and register pages
func RedirectIfAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := auth.PrincipalFromContext(r.Context()); ok {
				http.Redirect(w, r, HomePath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
