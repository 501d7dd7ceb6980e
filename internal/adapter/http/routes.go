package http

import (
	"github.com/go-chi/chi/v5"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/checkout"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
)

// AdminRole is required for the internal endpoints.
const AdminRole = "storefront-admin"

// MountRoutes registers all storefront routes on the given chi router. The
// storefront's own /api/v1 routes take precedence over the /api/* proxy.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.Login)
		r.Get("/callback", h.Callback)
		r.Post("/logout", h.Logout)
	})

	r.With(middleware.RequireRole(AdminRole)).Post("/internal/tenant/reload", h.ReloadTenant)

	r.Route("/api/v1", func(r chi.Router) {
		if h.Proxy != nil {
			// Unknown /api/v1 paths belong to the marketplace API.
			r.NotFound(h.Proxy.ServeHTTP)
		}

		r.Get("/bootstrap", h.GetBootstrap)
		r.Get("/tenant", h.GetTenant)
		r.Get("/theme", h.GetTheme)
		r.Get("/theme/head", h.GetThemeHead)
		r.Get("/categories", h.ListCategories)
		r.Get("/me", h.Me)

		if h.Hub != nil {
			r.Get("/session/stream", h.Hub.HandleSession)
		}

		r.Route("/pending", func(r chi.Router) {
			r.Put("/checkout", handleSessionPut[checkout.PendingCheckout](maxRequestBodySize, h.Pending.SaveCheckout))
			r.Get("/checkout", handleSessionGet(h.Pending.RestoreCheckout, "no pending checkout"))
			r.Delete("/checkout", handleSessionDelete(h.Pending.ClearCheckout))
			r.Put("/purchase", handleSessionPut[checkout.PendingPurchase](maxRequestBodySize, h.Pending.SavePurchase))
			r.Get("/purchase", handleSessionGet(h.Pending.RestorePurchase, "no pending purchase"))
			r.Delete("/purchase", handleSessionDelete(h.Pending.ClearPurchase))
		})
	})

	if h.Proxy != nil {
		r.Handle("/api/*", h.Proxy)
	}
}
