package middleware

import (
	"context"
	"net/http"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
)

// TenantIDSource yields the process tenant id, or tenant.UnresolvedID before
// resolution completes.
type TenantIDSource interface {
	IDOrSentinel() string
}

type tenantCtxKey struct{}

// Tenant is middleware that stores the current tenant id in the request context.
func Tenant(src TenantIDSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithTenantID(r.Context(), src.IDOrSentinel())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithTenantID returns ctx carrying the tenant id.
func WithTenantID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, id)
}

// TenantIDFromContext returns the tenant ID stored in ctx, or tenant.UnresolvedID if absent.
func TenantIDFromContext(ctx context.Context) string {
	if tid, ok := ctx.Value(tenantCtxKey{}).(string); ok && tid != "" {
		return tid
	}
	return tenant.UnresolvedID
}
