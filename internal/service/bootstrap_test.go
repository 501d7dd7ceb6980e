package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
)

type stubTenants struct {
	calls atomic.Int32
	t     *tenant.Tenant
	err   error
}

func (s *stubTenants) EnsureLoaded(context.Context) (*tenant.Tenant, error) {
	s.calls.Add(1)
	return s.t, s.err
}

type stubThemes struct {
	mu        sync.Mutex
	loaded    []*tenant.Tenant
	fallbacks []string
}

func (s *stubThemes) Load(_ context.Context, t *tenant.Tenant) theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = append(s.loaded, t)
	return theme.Theme{Slug: t.Slug, Version: t.ThemeVersion}
}

func (s *stubThemes) Fallback(_ context.Context, reason string) theme.Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallbacks = append(s.fallbacks, reason)
	return theme.Fallback("", "")
}

type stubCatalog struct {
	all, featured atomic.Int32
	allErr        error
}

func (s *stubCatalog) PreloadAll(context.Context) error {
	s.all.Add(1)
	return s.allErr
}

func (s *stubCatalog) PreloadFeatured(context.Context) error {
	s.featured.Add(1)
	return nil
}

type stubSessions struct {
	calls atomic.Int32
	err   error
}

func (s *stubSessions) Init(context.Context) error {
	s.calls.Add(1)
	return s.err
}

func resultsByName(rs []StepResult) map[string]StepResult {
	out := make(map[string]StepResult, len(rs))
	for _, r := range rs {
		out[r.Name] = r
	}
	return out
}

func TestBootstrapInteractive(t *testing.T) {
	tenants := &stubTenants{t: &tenant.Tenant{ID: "42", Slug: "club", ThemeVersion: 2}}
	themes := &stubThemes{}
	catalog := &stubCatalog{allErr: errors.New("categories down")}
	sessions := &stubSessions{}
	b := NewBootstrap(BootstrapConfig{Interactive: true}, tenants, themes, catalog, sessions)

	if b.Indicator() != IndicatorLoading {
		t.Fatalf("initial indicator = %s", b.Indicator())
	}
	b.Run(context.Background())

	if len(themes.loaded) != 1 || themes.loaded[0].Slug != "club" {
		t.Fatalf("theme loads = %+v", themes.loaded)
	}
	if catalog.all.Load() != 1 || catalog.featured.Load() != 1 || sessions.calls.Load() != 1 {
		t.Fatal("every interactive step must run once")
	}
	res := resultsByName(b.Results())
	if len(res) != 5 {
		t.Fatalf("expected 5 step results, got %+v", b.Results())
	}
	if res["categories"].OK || res["categories"].Error == "" {
		t.Fatalf("category failure not recorded: %+v", res["categories"])
	}
	if !res["featured_categories"].OK || !res["theme"].OK || !res["tenant"].OK {
		t.Fatalf("a failing step must not affect the others: %+v", res)
	}
	if b.Indicator() != IndicatorReady {
		t.Fatalf("indicator = %s", b.Indicator())
	}
}

func TestBootstrapRenderOnly(t *testing.T) {
	tenants := &stubTenants{t: &tenant.Tenant{ID: "42", Slug: "club"}}
	themes := &stubThemes{}
	catalog := &stubCatalog{}
	sessions := &stubSessions{}
	b := NewBootstrap(BootstrapConfig{Interactive: false}, tenants, themes, catalog, sessions)

	b.Run(context.Background())

	if tenants.calls.Load() != 1 {
		t.Fatal("tenant resolution runs in every mode")
	}
	if len(themes.loaded) != 0 || catalog.all.Load() != 0 || sessions.calls.Load() != 0 {
		t.Fatal("interactive steps must be skipped in render-only mode")
	}
	if b.Indicator() != IndicatorReady {
		t.Fatalf("indicator = %s", b.Indicator())
	}
}

func TestBootstrapTenantFailureContinues(t *testing.T) {
	tenants := &stubTenants{err: domain.ErrTenantUnavailable}
	themes := &stubThemes{}
	catalog := &stubCatalog{}
	b := NewBootstrap(BootstrapConfig{Interactive: true}, tenants, themes, catalog, &stubSessions{})

	b.Run(context.Background())

	if len(themes.fallbacks) != 1 || themes.fallbacks[0] != "tenant_unavailable" {
		t.Fatalf("expected fallback theme, got %v", themes.fallbacks)
	}
	if catalog.all.Load() != 1 {
		t.Fatal("category preload still runs and retries the tenant itself")
	}
	if res := resultsByName(b.Results()); res["tenant"].OK {
		t.Fatal("tenant failure not recorded")
	}
	if b.Indicator() != IndicatorReady {
		t.Fatal("startup must reach ready despite failures")
	}
}

func TestBootstrapRunsOnce(t *testing.T) {
	tenants := &stubTenants{t: &tenant.Tenant{ID: "1", Slug: "a"}}
	b := NewBootstrap(BootstrapConfig{Interactive: true}, tenants, &stubThemes{}, &stubCatalog{}, &stubSessions{})

	var wg sync.WaitGroup
	for range 3 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Run(context.Background())
		}()
	}
	wg.Wait()

	if tenants.calls.Load() != 1 {
		t.Fatalf("expected one run, tenant resolved %d times", tenants.calls.Load())
	}
	select {
	case <-b.Done():
	default:
		t.Fatal("Done must be closed after Run")
	}
}

func TestBootstrapIndicatorSequence(t *testing.T) {
	tenants := &stubTenants{t: &tenant.Tenant{ID: "1", Slug: "a"}}
	b := NewBootstrap(BootstrapConfig{Interactive: true, FadeDuration: 10 * time.Millisecond},
		tenants, &stubThemes{}, &stubCatalog{}, &stubSessions{})

	ch, cancel := b.SubscribeIndicator()
	defer cancel()
	go b.Run(context.Background())

	want := []Indicator{IndicatorLoading, IndicatorFading, IndicatorReady}
	for i, w := range want {
		select {
		case got := <-ch:
			if got != w {
				t.Fatalf("indicator %d = %s, want %s", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("indicator %d not delivered", i)
		}
	}
}
