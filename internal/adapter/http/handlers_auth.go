package http

import (
	"errors"
	"net/http"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/logger"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/service"
)

// Login handles GET /auth/login?return_to=/path by redirecting to the
// identity provider.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	authURL, err := h.Sessions.Login(ctx, middleware.SessionIDFromContext(ctx), r.URL.Query().Get("return_to"))
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			writeDomainError(w, r, err, "")
			return
		}
		logger.From(ctx).Error("start login", "error", err)
		writeError(w, http.StatusServiceUnavailable, "identity provider unavailable")
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback handles GET /auth/callback from the identity provider.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		logger.From(r.Context()).Info("identity provider returned an error", "error", e, "description", q.Get("error_description"))
		writeError(w, http.StatusUnauthorized, "login was not completed")
		return
	}

	_, returnTo, err := h.Sessions.Callback(r.Context(), middleware.SessionIDFromContext(r.Context()), q.Get("state"), q.Get("code"))
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "login failed")
			return
		}
		writeDomainError(w, r, err, "")
		return
	}
	http.Redirect(w, r, service.SafeReturnPath(returnTo), http.StatusFound)
}

type logoutResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// Logout handles POST /auth/logout. The browser follows redirect_url to end
// the provider session.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	endURL, err := h.Sessions.Logout(ctx, middleware.SessionIDFromContext(ctx))
	if err != nil {
		writeInternalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, logoutResponse{RedirectURL: endURL})
}
