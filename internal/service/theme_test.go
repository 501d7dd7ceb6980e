package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache/cachetest"
)

func testThemeConfig() ThemeConfig {
	return ThemeConfig{
		CDNBase:        "https://cdn.test",
		BaseStylesheet: "/assets/css/base.css",
		FallbackLogo:   "/assets/img/logo.png",
		FallbackIcon:   "/assets/img/favicon.ico",
	}
}

func testTenant() *tenant.Tenant {
	return &tenant.Tenant{ID: "42", Slug: "club", ThemeVersion: 3}
}

func TestThemeCacheHitSkipsBundle(t *testing.T) {
	store := cachetest.NewMemory()
	cached := theme.Theme{Slug: "club", Version: 3, Assets: theme.Assets{Favicon: "fav.png"}}
	data, _ := json.Marshal(cached)
	_ = store.Set(context.Background(), theme.CacheKey("club", 3), data, 0)

	runner := &fakeRunner{err: errors.New("must not run")}
	metrics := &fakeMetrics{}
	svc := NewThemeService(testThemeConfig(), runner, store, metrics)

	got := svc.Load(context.Background(), testTenant())

	if got.Slug != "club" || got.Assets.Favicon != "fav.png" {
		t.Fatalf("unexpected theme %+v", got)
	}
	if runner.Calls() != 0 {
		t.Fatal("a cached theme must not fetch the bundle")
	}
	if metrics.cacheHits != 1 {
		t.Fatalf("cache hit metric = %d", metrics.cacheHits)
	}
	head := svc.Head().HTML()
	if !strings.Contains(head, `href="https://cdn.test/cmn/club/fav.png"`) {
		t.Fatalf("favicon not applied:\n%s", head)
	}
	if svc.Loading() {
		t.Fatal("loading flag must be cleared")
	}
}

func TestThemeMissRunsBundleAndCaches(t *testing.T) {
	store := cachetest.NewMemory()
	runner := &fakeRunner{theme: &theme.Theme{CustomCSS: "club.css", Assets: theme.Assets{Favicon: "fav.ico"}}}
	svc := NewThemeService(testThemeConfig(), runner, store, nil)

	tn := testTenant()
	tn.CDNBase = "https://tenant-cdn.test/"
	got := svc.Load(context.Background(), tn)

	if got.Slug != "club" || got.Version != 3 {
		t.Fatalf("slug/version not filled from the tenant: %+v", got)
	}
	if runner.urls[0] != "https://tenant-cdn.test/cmn/club/res-3.js" {
		t.Fatalf("bundle url = %q", runner.urls[0])
	}
	if !store.Has(theme.CacheKey("club", 3)) {
		t.Fatal("theme not persisted")
	}

	head := svc.Head()
	if head.Links[0].Href != "/assets/css/base.css" {
		t.Fatalf("base stylesheet must come first: %+v", head.Links)
	}
	html := head.HTML()
	if !strings.Contains(html, "https://tenant-cdn.test/cmn/club/club.css") {
		t.Fatalf("custom stylesheet missing:\n%s", html)
	}

	svc.Load(context.Background(), tn)
	if runner.Calls() != 1 {
		t.Fatalf("second load must hit the cache, runner called %d times", runner.Calls())
	}
	if n := strings.Count(svc.Head().HTML(), "base.css"); n != 1 {
		t.Fatalf("base stylesheet linked %d times", n)
	}
}

func TestThemeVersionBumpMissesCache(t *testing.T) {
	store := cachetest.NewMemory()
	runner := &fakeRunner{theme: &theme.Theme{}}
	svc := NewThemeService(testThemeConfig(), runner, store, nil)

	tn := testTenant()
	svc.Load(context.Background(), tn)
	tn.ThemeVersion = 4
	got := svc.Load(context.Background(), tn)

	if runner.Calls() != 2 {
		t.Fatalf("expected a fresh bundle run for the new version, got %d runs", runner.Calls())
	}
	if got.Version != 4 || !store.Has(theme.CacheKey("club", 4)) {
		t.Fatalf("new version not cached: %+v", got)
	}
}

func TestThemeFailuresFallBack(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		reason string
	}{
		{"timeout", fmt.Errorf("run bundle: %w", domain.ErrThemeTimeout), "timeout"},
		{"callback missing", domain.ErrThemeCallbackMissing, "callback_missing"},
		{"fetch error", errors.New("connection refused"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := cachetest.NewMemory()
			metrics := &fakeMetrics{}
			svc := NewThemeService(testThemeConfig(), &fakeRunner{err: tt.err}, store, metrics)

			got := svc.Load(context.Background(), testTenant())

			if !got.IsFallback() {
				t.Fatalf("expected fallback theme, got %+v", got)
			}
			if got.Assets.Logo != "/assets/img/logo.png" || got.Assets.Favicon != "/assets/img/favicon.ico" {
				t.Fatalf("fallback assets = %+v", got.Assets)
			}
			if store.Has(theme.CacheKey("club", 3)) {
				t.Fatal("fallback must not be cached")
			}
			if len(metrics.fallbacks) != 1 || metrics.fallbacks[0] != tt.reason {
				t.Fatalf("fallback reasons = %v", metrics.fallbacks)
			}
			if svc.Loading() {
				t.Fatal("loading flag must clear after a failure")
			}
			cur, ok := svc.Current()
			if !ok || !cur.IsFallback() {
				t.Fatal("fallback must become the current theme")
			}
		})
	}
}

func TestThemeSubscribe(t *testing.T) {
	svc := NewThemeService(testThemeConfig(), &fakeRunner{theme: &theme.Theme{}}, cachetest.NewMemory(), nil)
	if _, ok := svc.Current(); ok {
		t.Fatal("no theme before the first load")
	}

	ch, cancel := svc.Subscribe()
	defer cancel()
	svc.Load(context.Background(), testTenant())

	if th := <-ch; th.Slug != "club" {
		t.Fatalf("subscriber got %+v", th)
	}
}

func TestThemeCorruptCacheEntryIsReplaced(t *testing.T) {
	store := cachetest.NewMemory()
	_ = store.Set(context.Background(), theme.CacheKey("club", 3), []byte("{broken"), 0)
	runner := &fakeRunner{theme: &theme.Theme{}}
	svc := NewThemeService(testThemeConfig(), runner, store, nil)

	got := svc.Load(context.Background(), testTenant())
	if got.IsFallback() || runner.Calls() != 1 {
		t.Fatalf("corrupt entry must fall through to the bundle, got %+v after %d runs", got, runner.Calls())
	}
}

func TestThemeLoadingCoversOverlappingLoads(t *testing.T) {
	cdn := testThemeConfig().CDNBase
	first := theme.BundleURL(cdn, "club", 3)
	second := theme.BundleURL(cdn, "club", 4)
	runner := &fakeRunner{
		theme:   &theme.Theme{},
		gates:   map[string]chan struct{}{first: make(chan struct{}), second: make(chan struct{})},
		started: make(chan string, 2),
	}
	svc := NewThemeService(testThemeConfig(), runner, cachetest.NewMemory(), nil)

	load := func(version int) chan struct{} {
		done := make(chan struct{})
		go func() {
			defer close(done)
			svc.Load(context.Background(), &tenant.Tenant{ID: "42", Slug: "club", ThemeVersion: version})
		}()
		return done
	}
	firstDone := load(3)
	secondDone := load(4)
	<-runner.started
	<-runner.started

	close(runner.gates[first])
	<-firstDone
	if !svc.Loading() {
		t.Fatal("loading must stay set while another load is running")
	}

	close(runner.gates[second])
	<-secondDone
	if svc.Loading() {
		t.Fatal("loading must clear once every load has finished")
	}
}
