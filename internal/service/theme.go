package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	sfotel "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/otel"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/observe"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/themebundle"
)

// ThemeConfig configures the theme loader.
type ThemeConfig struct {
	CDNBase        string // used when the tenant record carries no CDN base
	BaseStylesheet string
	FallbackLogo   string
	FallbackIcon   string
	CacheTTL       time.Duration // 0 keeps entries until the cache evicts them
}

// ThemeService loads the tenant's theme and keeps the resulting head links.
type ThemeService struct {
	cfg     ThemeConfig
	runner  themebundle.Runner
	store   cache.Cache
	metrics Metrics

	mu      sync.RWMutex
	current *theme.Theme
	head    theme.Head

	inflight atomic.Int32 // concurrent Load calls

	themes *observe.State[theme.Theme]
}

// NewThemeService creates a ThemeService.
func NewThemeService(cfg ThemeConfig, runner themebundle.Runner, store cache.Cache, metrics Metrics) *ThemeService {
	return &ThemeService{
		cfg:     cfg,
		runner:  runner,
		store:   store,
		metrics: metricsOrNop(metrics),
		themes:  observe.New[theme.Theme](),
	}
}

// Load applies the theme for t and returns it. It never fails: a cached
// theme is applied without any fetch; otherwise the bundle is run and its
// payload cached, and any bundle failure (fetch error, script error, missing
// callback, timeout) applies the built-in fallback. Loading reports true
// while any Load is still running.
func (s *ThemeService) Load(ctx context.Context, t *tenant.Tenant) theme.Theme {
	ctx, span := sfotel.StartThemeSpan(ctx, t.Slug, t.ThemeVersion)
	defer span.End()

	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	cdn := t.CDNBase
	if cdn == "" {
		cdn = s.cfg.CDNBase
	}
	key := theme.CacheKey(t.Slug, t.ThemeVersion)

	if th, ok := s.cached(ctx, key); ok {
		s.metrics.ThemeCacheHit(ctx)
		s.apply(th, cdn)
		slog.Debug("theme applied from cache", "key", key)
		return th
	}

	s.ensureBaseStylesheet()

	th, err := s.runner.Run(ctx, theme.BundleURL(cdn, t.Slug, t.ThemeVersion))
	if err != nil {
		reason := fallbackReason(err)
		slog.Warn("theme bundle failed, applying fallback theme", "tenant", t.Slug, "version", t.ThemeVersion, "reason", reason, "error", err)
		span.RecordError(err)
		return s.fallback(ctx, reason, cdn)
	}

	if th.Slug == "" {
		th.Slug = t.Slug
	}
	if th.Version == 0 {
		th.Version = t.ThemeVersion
	}
	s.apply(*th, cdn)
	s.persist(ctx, key, *th)
	return *th
}

// Fallback applies the built-in theme without touching the cache. It is
// used when there is no tenant to load a theme for.
func (s *ThemeService) Fallback(ctx context.Context, reason string) theme.Theme {
	return s.fallback(ctx, reason, s.cfg.CDNBase)
}

func (s *ThemeService) fallback(ctx context.Context, reason, cdn string) theme.Theme {
	s.metrics.ThemeFallback(ctx, reason)
	fb := theme.Fallback(s.cfg.FallbackLogo, s.cfg.FallbackIcon)
	s.apply(fb, cdn)
	return fb
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrThemeTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, domain.ErrThemeCallbackMissing):
		return "callback_missing"
	default:
		return "error"
	}
}

func (s *ThemeService) cached(ctx context.Context, key string) (theme.Theme, bool) {
	data, ok, err := s.store.Get(ctx, key)
	if err != nil {
		slog.Warn("theme cache read failed", "key", key, "error", err)
		return theme.Theme{}, false
	}
	if !ok {
		return theme.Theme{}, false
	}
	var th theme.Theme
	if err := json.Unmarshal(data, &th); err != nil {
		slog.Warn("discarding corrupt theme cache entry", "key", key, "error", err)
		_ = s.store.Delete(ctx, key)
		return theme.Theme{}, false
	}
	return th, true
}

func (s *ThemeService) persist(ctx context.Context, key string, th theme.Theme) {
	data, err := json.Marshal(th)
	if err != nil {
		slog.Error("marshal theme", "error", err)
		return
	}
	if err := s.store.Set(ctx, key, data, s.cfg.CacheTTL); err != nil {
		slog.Warn("theme cache write failed", "key", key, "error", err)
	}
}

func (s *ThemeService) ensureBaseStylesheet() {
	if s.cfg.BaseStylesheet == "" {
		return
	}
	s.mu.Lock()
	s.head.EnsureStylesheet(s.cfg.BaseStylesheet)
	s.mu.Unlock()
}

func (s *ThemeService) apply(th theme.Theme, cdn string) {
	s.mu.Lock()
	if s.cfg.BaseStylesheet != "" {
		s.head.EnsureStylesheet(s.cfg.BaseStylesheet)
	}
	s.head.Apply(th, cdn)
	s.current = &th
	s.mu.Unlock()
	s.themes.Publish(th)
}

// Current returns the applied theme, if any.
func (s *ThemeService) Current() (theme.Theme, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return theme.Theme{}, false
	}
	return *s.current, true
}

// Loading reports whether any Load is in progress.
func (s *ThemeService) Loading() bool {
	return s.inflight.Load() > 0
}

// Head returns a copy of the head links for server-side rendering.
func (s *ThemeService) Head() theme.Head {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.head.Clone()
}

// Subscribe streams every applied theme, starting with the current one.
func (s *ThemeService) Subscribe() (<-chan theme.Theme, func()) {
	return s.themes.Subscribe()
}
