package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	sfhttp "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/http"
	sfnats "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/nats"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/oidc"
	sfotel "github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/otel"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/themejs"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/ws"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/config"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/logger"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/secrets"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/service"
)

func main() {
	var cmd string
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error
	switch cmd {
	case "tenant":
		err = runTenant(os.Args[2:])
	case "theme":
		err = runTheme(os.Args[2:])
	case "help", "--help", "-h":
		printHelp()
		return
	default:
		if err := serve(os.Args[1:]); err != nil {
			slog.Error("fatal", "error", err)
			os.Exit(1)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Fprintf(os.Stderr, `Usage: storefront [flags]
       storefront <command> [options]

Commands:
  tenant   Resolve and print the tenant for a host
  theme    Resolve the tenant for a host and load its theme
  help     Show this help message

Server flags:
  -c, --config     path to YAML config file
  -p, --port       HTTP listen port
  --host           public host name used for tenant lookup
  --api            marketplace API base URL
  --log-level      debug|info|warn|error

Examples:
  storefront --host club.tubarrio.com.ar
  storefront tenant --host club.tubarrio.com.ar
  storefront theme --host tubarrio.com.ar --json
`)
}

func serve(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}
	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Server.Port,
		"host", cfg.Server.PublicHost,
		"api", cfg.API.BaseURL,
		"interactive", cfg.Bootstrap.Interactive,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Infrastructure ---

	vault, err := secrets.NewVault(secrets.EnvLoader(secrets.KeyOIDCClientSecret, cfg.Session.KeyEnv))
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	slog.Info("secrets loaded", "keys", vault.Keys(), "oidc_client_secret", vault.Redacted(secrets.KeyOIDCClientSecret))
	sealer, err := secrets.NewSealer(vault, cfg.Session.KeyEnv)
	if err != nil {
		return fmt.Errorf("session sealer: %w", err)
	}

	shutdownOTel, err := sfotel.Init(ctx, cfg.OTel, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		if err := shutdownOTel(shutdownCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()
	metrics, err := sfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	caches, err := newCacheStack(ctx, cfg)
	if err != nil {
		return err
	}
	defer caches.Close()

	// --- Services ---

	// The decorator needs the tenant and session services, which need the
	// API client, so the transport is filled in once both exist.
	transport := &lateTransport{}
	api := newAPIClient(cfg, transport)

	tenants := service.NewTenantService(api, cfg.Server.PublicHost, metrics)
	defer tenants.Close()

	idp := oidc.NewClient(oidc.Config{
		IssuerURL:     cfg.OIDC.IssuerURL(),
		ClientID:      cfg.OIDC.ClientID,
		ClientSecret:  func() string { return vault.Get(secrets.KeyOIDCClientSecret) },
		RedirectURL:   cfg.Server.PublicURL + cfg.OIDC.RedirectPath,
		PostLogoutURL: cfg.Server.PublicURL + cfg.OIDC.PostLogoutPath,
		Scopes:        cfg.OIDC.Scopes,
	}, &http.Client{Transport: sfotel.Transport(http.DefaultTransport), Timeout: cfg.API.Timeout})

	sessions := service.NewSessionService(service.SessionConfig{
		Interactive: cfg.Bootstrap.Interactive,
		TTL:         cfg.Session.TTL,
		StateTTL:    cfg.OIDC.StateTTL,
		RefreshSkew: cfg.OIDC.RefreshSkew,
		LoginPath:   "/auth/login",
	}, idp, caches, sealer, metrics)
	defer sessions.Close()

	decorator := middleware.NewDecorator(sfotel.Transport(http.DefaultTransport), tenants, sessions, cfg.OIDC.SilentRefreshPath)
	transport.set(decorator)

	runner := themejs.NewRunner(&http.Client{Transport: sfotel.Transport(http.DefaultTransport)},
		cfg.Theme.CallbackName, cfg.Theme.LoadTimeout, cfg.Theme.MaxBundleBytes)
	themes := service.NewThemeService(service.ThemeConfig{
		CDNBase:        cfg.CDN.BaseURL,
		BaseStylesheet: cfg.Theme.BaseStylesheet,
		FallbackLogo:   cfg.Theme.FallbackLogo,
		FallbackIcon:   cfg.Theme.FallbackIcon,
	}, runner, caches, metrics)

	catalog := service.NewCatalogService(api, func(ctx context.Context) (string, error) {
		t, err := tenants.EnsureLoaded(ctx)
		if err != nil {
			return "", err
		}
		return t.ID, nil
	})

	locales, err := service.NewLocales(cfg.Locale.Default, cfg.Locale.Supported)
	if err != nil {
		return fmt.Errorf("locales: %w", err)
	}

	boot := service.NewBootstrap(service.BootstrapConfig{
		Interactive:  cfg.Bootstrap.Interactive,
		FadeDuration: cfg.Bootstrap.FadeDuration,
	}, tenants, themes, catalog, sessions)

	// --- Events ---

	cookie := middleware.CookieConfig{
		Name:   cfg.Session.CookieName,
		TTL:    cfg.Session.TTL,
		Secure: cfg.Session.SecureCookie,
	}
	hub := ws.NewHub([]string{originHost(cfg.Server.CORSOrigin), originHost(cfg.Server.PublicURL)}, sessions,
		func(r *http.Request) string { return middleware.SessionIDFromContext(r.Context()) })

	indicator, stopIndicator := boot.SubscribeIndicator()
	defer stopIndicator()
	go ws.Forward(ctx, hub, ws.EventIndicator, indicator, func(i service.Indicator) any {
		return ws.IndicatorEvent{State: string(i)}
	})
	applied, stopThemes := themes.Subscribe()
	defer stopThemes()
	go ws.Forward(ctx, hub, ws.EventTheme, applied, func(th theme.Theme) any { return th })
	tenantIDs, stopTenants := tenants.Watch()
	defer stopTenants()
	go ws.Forward(ctx, hub, ws.EventTenant, tenantIDs, func(id string) any {
		return ws.TenantEvent{TenantID: id}
	})

	announce, err := startReloadFanout(ctx, caches.bus, tenants, themes)
	if err != nil {
		return err
	}

	go boot.Run(ctx)

	// --- HTTP ---

	apiBase, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api base url: %w", err)
	}

	handlers := &sfhttp.Handlers{
		Tenants:        tenants,
		Sessions:       sessions,
		Themes:         themes,
		Catalog:        catalog,
		Pending:        service.NewPendingStore(caches, cfg.Checkout.PendingTTL, cfg.Checkout.PurchaseTTL),
		Bootstrap:      boot,
		Locales:        locales,
		Hub:            hub,
		Proxy:          sfhttp.NewAPIProxy(apiBase, decorator),
		APIHealth:      api.Health,
		AnnounceReload: announce,
	}

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tenant(tenants))
	r.Use(sfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(sfhttp.Logger)
	r.Use(sfhttp.SecurityHeaders(cfg.CDN.BaseURL))
	r.Use(sfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(limiter.Handler)
	r.Use(middleware.Session(cookie, sessions))
	sfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// SIGHUP re-reads secrets; the sealer rekeys on reload.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sig)

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("server: %w", err)
		case s := <-sig:
			if s == syscall.SIGHUP {
				if err := vault.Reload(); err != nil {
					slog.Error("secrets reload failed", "error", err)
				}
				continue
			}
			slog.Info("shutting down server", "signal", s.String())
			cancel()

			shutdownCtx, c := context.WithTimeout(context.Background(), 10*time.Second)
			defer c()
			return srv.Shutdown(shutdownCtx)
		}
	}
}

// startReloadFanout subscribes to tenant reload announcements from other
// replicas and returns the function that announces this replica's reloads.
// Without a bus both are no-ops.
func startReloadFanout(ctx context.Context, bus *sfnats.Bus, tenants *service.TenantService, themes *service.ThemeService) (func(context.Context) error, error) {
	if bus == nil {
		return nil, nil
	}
	instance := uuid.NewString()

	_, err := bus.Subscribe(ctx, sfnats.SubjectTenantReload, func(ctx context.Context, _ string, data []byte) error {
		if string(data) == instance {
			return nil
		}
		t, err := tenants.Reload(ctx)
		if err != nil {
			return err
		}
		themes.Load(ctx, t)
		slog.Info("tenant reloaded by announcement", "tenant_id", t.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tenant reload subscribe: %w", err)
	}

	return func(ctx context.Context) error {
		return bus.Publish(ctx, sfnats.SubjectTenantReload, []byte(instance))
	}, nil
}

// originHost reduces an origin URL to the host pattern the websocket
// handshake matches against.
func originHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host
}
