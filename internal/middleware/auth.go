package middleware

import (
	"context"
	"net/http"
	"time"

	"storefront/internal/auth"

	"go.uber.org/zap"
)

// Authenticator resolves a session token to the principal behind it
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Principal, error)
}

// SessionCookie describes the cookie holding the signed session token
type SessionCookie struct {
	Name   string
	Secure bool
	TTL    time.Duration
}

// Set writes token into the session cookie
func (c SessionCookie) Set(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear removes the session cookie from the browser
func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// LoadPrincipal attaches the logged-in principal to the request context when the
// session cookie is valid. Anonymous requests pass through untouched; a stale or
// forged cookie is cleared.
func LoadPrincipal(authenticator Authenticator, cookie SessionCookie, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookie.Name)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), c.Value)
			if err != nil {
				logger.Debug("Session cookie rejected", zap.Error(err))
				cookie.Clear(w)
				next.ServeHTTP(w, r)
				return
			}

			logger.Debug("User authenticated",
				zap.String("user_id", principal.UserID.String()),
				zap.String("role", principal.Role.String()),
			)

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
		})
	}
}
