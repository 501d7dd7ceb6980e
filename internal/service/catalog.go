package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/marketplace"
)

// CatalogService preloads the tenant's categories and keeps the last good lists.
type CatalogService struct {
	api    marketplace.Catalog
	tenant func(ctx context.Context) (string, error)

	mu       sync.RWMutex
	all      []category.Category
	featured []category.Category
}

// NewCatalogService creates a CatalogService. tenantID must block until the
// tenant is resolved (or fail), so no category call goes out unscoped.
func NewCatalogService(api marketplace.Catalog, tenantID func(ctx context.Context) (string, error)) *CatalogService {
	return &CatalogService{api: api, tenant: tenantID}
}

// PreloadAll fetches the full category list. On failure the previous list is kept.
func (s *CatalogService) PreloadAll(ctx context.Context) error {
	id, err := s.tenant(ctx)
	if err != nil {
		return fmt.Errorf("preload categories: %w", err)
	}
	list, err := s.api.ListCategories(ctx, id)
	if err != nil {
		return fmt.Errorf("preload categories: %w", err)
	}
	category.Sort(list)
	s.mu.Lock()
	s.all = list
	s.mu.Unlock()
	slog.Debug("categories preloaded", "count", len(list))
	return nil
}

// PreloadFeatured fetches the featured categories. On failure the previous list is kept.
func (s *CatalogService) PreloadFeatured(ctx context.Context) error {
	id, err := s.tenant(ctx)
	if err != nil {
		return fmt.Errorf("preload featured categories: %w", err)
	}
	list, err := s.api.FeaturedCategories(ctx, id)
	if err != nil {
		return fmt.Errorf("preload featured categories: %w", err)
	}
	category.Sort(list)
	s.mu.Lock()
	s.featured = list
	s.mu.Unlock()
	return nil
}

// All returns the preloaded flat list.
func (s *CatalogService) All() []category.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.all)
}

// Featured returns the preloaded featured list, falling back to the
// featured flag of the full list when the featured preload has not succeeded.
func (s *CatalogService) Featured() []category.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.featured != nil {
		return slices.Clone(s.featured)
	}
	return category.Featured(s.all)
}

// Tree builds the parent/child forest from the flat list.
func (s *CatalogService) Tree() []*category.Node {
	return category.Tree(s.All())
}
