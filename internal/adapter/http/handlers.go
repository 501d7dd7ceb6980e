package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/ws"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/service"
)

const loginPath = "/auth/login"

// Handlers holds the services the HTTP surface is built on.
type Handlers struct {
	Tenants   *service.TenantService
	Sessions  *service.SessionService
	Themes    *service.ThemeService
	Catalog   *service.CatalogService
	Pending   *service.PendingStore
	Bootstrap *service.Bootstrap
	Locales   *service.Locales
	Hub       *ws.Hub
	Proxy     http.Handler

	// APIHealth probes the marketplace API. Nil skips the probe.
	APIHealth func(ctx context.Context) error

	// AnnounceReload tells other replicas to re-resolve the tenant after an
	// admin reload. Nil disables the fan-out.
	AnnounceReload func(ctx context.Context) error
}

type healthResponse struct {
	Status    string `json:"status"`
	Bootstrap string `json:"bootstrap"`
	Tenant    string `json:"tenant"`
	API       string `json:"api,omitempty"`
}

// Health handles GET /health. It reports degraded, never fails, while the
// tenant is unresolved or the API is unreachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Bootstrap: string(h.Bootstrap.Indicator()),
		Tenant:    h.Tenants.IDOrSentinel(),
	}
	if resp.Tenant == tenant.UnresolvedID {
		resp.Status = "degraded"
	}
	if h.APIHealth != nil {
		if err := h.APIHealth(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.API = "unreachable"
		} else {
			resp.API = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type bootstrapResponse struct {
	Status string               `json:"status"`
	Steps  []service.StepResult `json:"steps"`
	Tenant *tenant.Tenant       `json:"tenant"`
	Theme  *theme.Theme         `json:"theme"`
	Locale string               `json:"locale"`
}

// GetBootstrap handles GET /api/v1/bootstrap.
func (h *Handlers) GetBootstrap(w http.ResponseWriter, r *http.Request) {
	resp := bootstrapResponse{
		Status: string(h.Bootstrap.Indicator()),
		Steps:  h.Bootstrap.Results(),
		Locale: h.Locales.Negotiate(r.Header.Get("Accept-Language")),
	}
	if t, err := h.Tenants.Current(); err == nil {
		resp.Tenant = t
	}
	if th, ok := h.Themes.Current(); ok {
		resp.Theme = &th
	}
	if resp.Steps == nil {
		resp.Steps = []service.StepResult{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetTenant handles GET /api/v1/tenant.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tenants.Current()
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// ReloadTenant handles POST /internal/tenant/reload.
func (h *Handlers) ReloadTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.Tenants.Reload(r.Context())
	if err != nil {
		writeDomainError(w, r, err, "tenant not found")
		return
	}
	h.Themes.Load(r.Context(), t)
	if h.AnnounceReload != nil {
		if err := h.AnnounceReload(r.Context()); err != nil {
			slog.Warn("tenant reload announce failed", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, t)
}

// GetTheme handles GET /api/v1/theme.
func (h *Handlers) GetTheme(w http.ResponseWriter, _ *http.Request) {
	th, ok := h.Themes.Current()
	if !ok {
		if h.Themes.Loading() {
			writeError(w, http.StatusServiceUnavailable, "theme is loading")
			return
		}
		writeError(w, http.StatusNotFound, "no theme applied")
		return
	}
	writeJSON(w, http.StatusOK, th)
}

// GetThemeHead handles GET /api/v1/theme/head. The response is an HTML
// fragment unless JSON is asked for.
func (h *Handlers) GetThemeHead(w http.ResponseWriter, r *http.Request) {
	head := h.Themes.Head()
	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, head)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(head.HTML()))
}

// ListCategories handles GET /api/v1/categories[?featured=true|tree=true].
func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if featured, _ := strconv.ParseBool(q.Get("featured")); featured {
		writeJSON(w, http.StatusOK, nonNil(h.Catalog.Featured()))
		return
	}
	if tree, _ := strconv.ParseBool(q.Get("tree")); tree {
		nodes := h.Catalog.Tree()
		if nodes == nil {
			nodes = []*category.Node{}
		}
		writeJSON(w, http.StatusOK, nodes)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(h.Catalog.All()))
}

func nonNil(list []category.Category) []category.Category {
	if list == nil {
		return []category.Category{}
	}
	return list
}

type meResponse struct {
	Authenticated bool            `json:"authenticated"`
	State         session.State   `json:"state"`
	Claims        *session.Claims `json:"claims,omitempty"`
	LoginURL      string          `json:"login_url,omitempty"`
	Locale        string          `json:"locale"`
}

// Me handles GET /api/v1/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := meResponse{
		State:  session.StateUnauthenticated,
		Locale: h.Locales.Negotiate(r.Header.Get("Accept-Language")),
	}
	if sess, err := h.Sessions.Lookup(ctx, middleware.SessionIDFromContext(ctx)); err == nil {
		resp.State = sess.State
		resp.LoginURL = sess.LoginURL
	}
	if claims := middleware.ClaimsFromContext(ctx); claims != nil {
		resp.Authenticated = true
		resp.Claims = claims
	}
	writeJSON(w, http.StatusOK, resp)
}
