package transport

import (
	"errors"
	"net/http"

	"storefront/internal/auth"
	"storefront/internal/logger"
	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errMissingPrincipal = errors.New("no principal on a protected route")

// Page is embedded in every view: the flashes queued for this render and the
// visitor, when logged in
type Page struct {
	Flashes []string     `json:"flashes"`
	User    *CurrentUser `json:"user,omitempty"`
}

// CurrentUser is the logged-in visitor as shown to views
type CurrentUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

func newPage(w http.ResponseWriter, r *http.Request) Page {
	page := Page{Flashes: middleware.PopFlashes(w, r)}
	if principal, ok := auth.PrincipalFromContext(r.Context()); ok {
		page.User = &CurrentUser{
			ID:       principal.UserID.String(),
			Username: principal.Username,
			IsAdmin:  principal.IsAdmin(),
		}
	}
	return page
}

// pathID parses the {id} URL parameter
func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// currentPrincipal returns the principal put in place by LoadPrincipal. Routes
// calling it sit behind RequireAuthenticated, so a miss is a wiring bug.
func currentPrincipal(w http.ResponseWriter, r *http.Request, log *zap.Logger) (*auth.Principal, bool) {
	principal, err := auth.RequireAuthenticated(r.Context())
	if err != nil {
		logger.ForRequest(log, r).Error("Principal missing", zap.Error(errMissingPrincipal))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	return principal, true
}

func respondInternalError(w http.ResponseWriter, r *http.Request, log *zap.Logger, msg string, err error) {
	logger.ForRequest(log, r).Error(msg, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
}
