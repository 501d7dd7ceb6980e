package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	sfotel "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/otel"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/observe"
)

// Indicator is the state of the startup loading indicator.
type Indicator string

const (
	IndicatorLoading Indicator = "loading"
	IndicatorFading  Indicator = "fading"
	IndicatorReady   Indicator = "ready"
)

type tenantLoader interface {
	EnsureLoaded(ctx context.Context) (*tenant.Tenant, error)
}

type themeLoader interface {
	Load(ctx context.Context, t *tenant.Tenant) theme.Theme
	Fallback(ctx context.Context, reason string) theme.Theme
}

type catalogPreloader interface {
	PreloadAll(ctx context.Context) error
	PreloadFeatured(ctx context.Context) error
}

type sessionInitializer interface {
	Init(ctx context.Context) error
}

// BootstrapConfig configures the startup sequence.
type BootstrapConfig struct {
	Interactive  bool
	FadeDuration time.Duration
}

// StepResult is the outcome of one startup step.
type StepResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Bootstrap runs the startup sequence exactly once: tenant resolution first,
// then (interactive mode only) theme, categories and session discovery
// concurrently. A failing step is logged and never stops the others.
type Bootstrap struct {
	cfg      BootstrapConfig
	tenants  tenantLoader
	themes   themeLoader
	catalog  catalogPreloader
	sessions sessionInitializer

	once      sync.Once
	done      chan struct{}
	indicator *observe.State[Indicator]

	mu      sync.Mutex
	results []StepResult
}

// NewBootstrap wires the startup sequence.
func NewBootstrap(cfg BootstrapConfig, tenants tenantLoader, themes themeLoader, catalog catalogPreloader, sessions sessionInitializer) *Bootstrap {
	return &Bootstrap{
		cfg:       cfg,
		tenants:   tenants,
		themes:    themes,
		catalog:   catalog,
		sessions:  sessions,
		done:      make(chan struct{}),
		indicator: observe.NewWith(IndicatorLoading),
	}
}

// Run executes the sequence. Later calls wait for the first one to finish.
func (b *Bootstrap) Run(ctx context.Context) {
	b.once.Do(func() {
		defer close(b.done)
		b.run(ctx)
	})
	<-b.done
}

func (b *Bootstrap) run(ctx context.Context) {
	ctx, span := sfotel.StartBootstrapSpan(ctx, b.cfg.Interactive)
	defer span.End()
	start := time.Now()

	t, err := b.tenants.EnsureLoaded(ctx)
	b.record("tenant", err)
	if err != nil {
		slog.Error("tenant resolution failed, continuing startup", "error", err)
	}

	if b.cfg.Interactive {
		var g errgroup.Group
		g.Go(func() error {
			if t == nil {
				b.themes.Fallback(ctx, "tenant_unavailable")
				b.record("theme", nil)
				return nil
			}
			b.themes.Load(ctx, t)
			b.record("theme", nil)
			return nil
		})
		g.Go(func() error {
			b.step(ctx, "categories", b.catalog.PreloadAll)
			return nil
		})
		g.Go(func() error {
			b.step(ctx, "featured_categories", b.catalog.PreloadFeatured)
			return nil
		})
		g.Go(func() error {
			b.step(ctx, "session", b.sessions.Init)
			return nil
		})
		_ = g.Wait()
	} else {
		slog.Debug("render-only mode, skipping interactive startup steps")
	}

	b.indicator.Publish(IndicatorFading)
	if b.cfg.FadeDuration > 0 {
		timer := time.NewTimer(b.cfg.FadeDuration)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}
	b.indicator.Publish(IndicatorReady)
	slog.Info("bootstrap complete", "interactive", b.cfg.Interactive, "duration", time.Since(start))
}

func (b *Bootstrap) step(ctx context.Context, name string, fn func(context.Context) error) {
	err := fn(ctx)
	if err != nil {
		slog.Warn("startup step failed", "step", name, "error", err)
	}
	b.record(name, err)
}

func (b *Bootstrap) record(name string, err error) {
	r := StepResult{Name: name, OK: err == nil}
	if err != nil {
		r.Error = err.Error()
	}
	b.mu.Lock()
	b.results = append(b.results, r)
	b.mu.Unlock()
}

// Done is closed once Run has finished.
func (b *Bootstrap) Done() <-chan struct{} { return b.done }

// Indicator returns the current loading indicator state.
func (b *Bootstrap) Indicator() Indicator {
	v, _ := b.indicator.Get()
	return v
}

// SubscribeIndicator streams indicator changes, starting with the current state.
func (b *Bootstrap) SubscribeIndicator() (<-chan Indicator, func()) {
	return b.indicator.Subscribe()
}

// Results returns the outcome of every finished step in completion order.
func (b *Bootstrap) Results() []StepResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]StepResult(nil), b.results...)
}
