package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	sfotel "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/otel"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/observe"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/marketplace"
)

// TenantService owns the process tenant. It is resolved once from the host
// the storefront serves and replaced only by an explicit Reload.
type TenantService struct {
	dir     marketplace.TenantDirectory
	host    string
	metrics Metrics

	mu      sync.RWMutex
	current *tenant.Tenant

	flight singleflight.Group
	ids    *observe.State[string]
}

// NewTenantService creates a TenantService for host.
func NewTenantService(dir marketplace.TenantDirectory, host string, metrics Metrics) *TenantService {
	return &TenantService{
		dir:     dir,
		host:    host,
		metrics: metricsOrNop(metrics),
		ids:     observe.New[string](),
	}
}

// Host returns the host name the tenant is resolved from.
func (s *TenantService) Host() string { return s.host }

// Resolve looks the tenant up by the host-derived key and stores it.
func (s *TenantService) Resolve(ctx context.Context) (*tenant.Tenant, error) {
	key := tenant.LookupKey(s.host)
	ctx, span := sfotel.StartTenantSpan(ctx, key)
	defer span.End()

	t, err := s.dir.TenantInfo(ctx, key)
	if err != nil {
		s.metrics.TenantResolved(ctx, false)
		span.RecordError(err)
		return nil, fmt.Errorf("resolve tenant for %s: %w", s.host, err)
	}
	if err := t.Validate(); err != nil {
		s.metrics.TenantResolved(ctx, false)
		return nil, fmt.Errorf("resolve tenant for %s: %w: %w", s.host, domain.ErrValidation, err)
	}

	s.mu.Lock()
	s.current = t
	s.mu.Unlock()
	s.metrics.TenantResolved(ctx, true)
	s.ids.Publish(t.ID)

	slog.Info("tenant resolved", "host", s.host, "key", key, "tenant_id", t.ID, "slug", t.Slug, "theme_version", t.ThemeVersion)
	return t, nil
}

// EnsureLoaded returns the resolved tenant, resolving it first if needed.
// Concurrent callers share one in-flight resolution; a failed resolution is
// forgotten so the next call retries. Cancelling ctx abandons the wait but
// not the shared call.
func (s *TenantService) EnsureLoaded(ctx context.Context) (*tenant.Tenant, error) {
	if t, err := s.Current(); err == nil {
		return t, nil
	}

	ch := s.flight.DoChan("resolve", func() (any, error) {
		if t, err := s.Current(); err == nil {
			return t, nil
		}
		return s.Resolve(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*tenant.Tenant), nil
	}
}

// Reload re-resolves the tenant even if one is loaded.
func (s *TenantService) Reload(ctx context.Context) (*tenant.Tenant, error) {
	v, err, _ := s.flight.Do("reload", func() (any, error) {
		return s.Resolve(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*tenant.Tenant), nil
}

// Current returns a copy of the resolved tenant, or domain.ErrTenantUnavailable.
func (s *TenantService) Current() (*tenant.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, domain.ErrTenantUnavailable
	}
	t := *s.current
	return &t, nil
}

// ID returns the resolved tenant id, or domain.ErrTenantUnavailable.
func (s *TenantService) ID() (string, error) {
	t, err := s.Current()
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// IDOrSentinel returns the resolved tenant id, or tenant.UnresolvedID.
func (s *TenantService) IDOrSentinel() string {
	id, err := s.ID()
	if err != nil {
		return tenant.UnresolvedID
	}
	return id
}

// Watch streams the tenant id. Nothing is delivered until the first
// resolution succeeds; every later Reload is delivered in order.
func (s *TenantService) Watch() (<-chan string, func()) {
	return s.ids.Subscribe()
}

// Close ends every Watch stream.
func (s *TenantService) Close() {
	s.ids.Close()
}
