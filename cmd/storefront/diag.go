package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/ristretto"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/adapter/themejs"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/config"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/service"
)

// diagFlags are shared by the tenant and theme subcommands.
type diagFlags struct {
	host       string
	configPath string
	json       bool
}

func parseDiagFlags(name string, args []string) (diagFlags, error) {
	var f diagFlags
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.host, "host", "", "host name to resolve (required)")
	fs.StringVar(&f.configPath, "config", "", "path to YAML config file")
	fs.BoolVar(&f.json, "json", false, "print JSON even when attached to a terminal")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.host == "" {
		fs.Usage()
		return f, errors.New("--host is required")
	}
	return f, nil
}

// loadDiagDeps resolves the tenant for f.host against the configured API.
func loadDiagDeps(ctx context.Context, f diagFlags) (*config.Config, *tenant.Tenant, error) {
	flags := config.CLIFlags{Host: &f.host}
	if f.configPath != "" {
		flags.ConfigPath = &f.configPath
	}
	cfg, _, err := config.LoadWithCLI(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	api := newAPIClient(cfg, middleware.NewDecorator(nil, unresolved{}, nil, cfg.OIDC.SilentRefreshPath))
	tenants := service.NewTenantService(api, cfg.Server.PublicHost, nil)
	defer tenants.Close()

	t, err := tenants.Resolve(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", tenant.LookupKey(cfg.Server.PublicHost), err)
	}
	return cfg, t, nil
}

// unresolved sends the sentinel community header on the lookup call.
type unresolved struct{}

func (unresolved) IDOrSentinel() string { return tenant.UnresolvedID }

func runTenant(args []string) error {
	f, err := parseDiagFlags("tenant", args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	_, t, err := loadDiagDeps(ctx, f)
	if err != nil {
		return err
	}

	if f.json || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printJSON(t)
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tDOMAIN\tACTIVE\tTHEME_VERSION")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\n", t.ID, t.Slug, t.Name, t.Domain, t.Active, t.ThemeVersion)
	return w.Flush()
}

func runTheme(args []string) error {
	f, err := parseDiagFlags("theme", args)
	if err != nil {
		return err
	}
	ctx := context.Background()
	cfg, t, err := loadDiagDeps(ctx, f)
	if err != nil {
		return err
	}

	l1, err := ristretto.New(8 << 20)
	if err != nil {
		return err
	}
	defer l1.Close()

	runner := themejs.NewRunner(http.DefaultClient, cfg.Theme.CallbackName, cfg.Theme.LoadTimeout, cfg.Theme.MaxBundleBytes)
	themes := service.NewThemeService(service.ThemeConfig{
		CDNBase:        cfg.CDN.BaseURL,
		BaseStylesheet: cfg.Theme.BaseStylesheet,
		FallbackLogo:   cfg.Theme.FallbackLogo,
		FallbackIcon:   cfg.Theme.FallbackIcon,
	}, runner, l1, nil)
	th := themes.Load(ctx, t)
	head := themes.Head()

	if f.json || !term.IsTerminal(int(os.Stdout.Fd())) {
		return printJSON(map[string]any{"theme": th, "head": head})
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SLUG\tVERSION\tFALLBACK\tLOGO\tFAVICON")
	_, _ = fmt.Fprintf(w, "%s\t%d\t%t\t%s\t%s\n", th.Slug, th.Version, th.IsFallback(), th.Assets.Logo, th.Assets.Favicon)
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(head.HTML())
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
