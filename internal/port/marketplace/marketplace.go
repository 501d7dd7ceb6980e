// Package marketplace defines the port for the marketplace REST API.
package marketplace

import (
	"context"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
)

// TenantDirectory resolves community records by host-derived key.
type TenantDirectory interface {
	TenantInfo(ctx context.Context, domainKey string) (*tenant.Tenant, error)
}

// Catalog serves the category lists preloaded at bootstrap.
type Catalog interface {
	ListCategories(ctx context.Context, tenantID string) ([]category.Category, error)
	FeaturedCategories(ctx context.Context, tenantID string) ([]category.Category, error)
}

// Pagination is the paging block of an {items, pagination} envelope.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}
