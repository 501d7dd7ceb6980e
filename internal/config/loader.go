package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "storefront.yaml"

// CLIFlags holds command-line overrides. Nil fields were not set.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	Host       *string
	LogLevel   *string
	APIBaseURL *string
}

// ParseFlags parses storefront command-line flags. Only flags that were
// explicitly passed end up non-nil.
func ParseFlags(args []string) (CLIFlags, error) {
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	port := fs.String("port", "", "HTTP listen port")
	fs.StringVar(port, "p", "", "HTTP listen port (shorthand)")
	host := fs.String("host", "", "public host name used for tenant lookup")
	logLevel := fs.String("log-level", "", "log level (debug|info|warn|error)")
	apiBase := fs.String("api", "", "marketplace API base URL")

	if err := fs.Parse(args); err != nil {
		return CLIFlags{}, err
	}

	var out CLIFlags
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			out.ConfigPath = configPath
		case "port", "p":
			out.Port = port
		case "host":
			out.Host = host
		case "log-level":
			out.LogLevel = logLevel
		case "api":
			out.APIBaseURL = apiBase
		}
	})
	return out, nil
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// LoadWithCLI returns a Config using defaults < YAML < ENV < CLI and the
// YAML path that was used.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	path := DefaultConfigFile
	if flags.ConfigPath != nil && *flags.ConfigPath != "" {
		path = *flags.ConfigPath
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, path); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}
	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}
	return &cfg, path, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator-supplied config path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "STOREFRONT_PORT")
	setString(&cfg.Server.PublicHost, "STOREFRONT_PUBLIC_HOST")
	setString(&cfg.Server.PublicURL, "STOREFRONT_PUBLIC_URL")
	setString(&cfg.Server.CORSOrigin, "STOREFRONT_CORS_ORIGIN")

	// Externally supplied boundaries
	setString(&cfg.API.BaseURL, "STOREFRONT_API_URL")
	setDuration(&cfg.API.Timeout, "STOREFRONT_API_TIMEOUT")
	setString(&cfg.CDN.BaseURL, "STOREFRONT_CDN_URL")
	setString(&cfg.OIDC.Issuer, "STOREFRONT_OIDC_ISSUER")
	setString(&cfg.OIDC.Realm, "STOREFRONT_OIDC_REALM")
	setString(&cfg.OIDC.ClientID, "STOREFRONT_OIDC_CLIENT_ID")
	setStrings(&cfg.OIDC.Scopes, "STOREFRONT_OIDC_SCOPES")
	setDuration(&cfg.OIDC.RefreshSkew, "STOREFRONT_OIDC_REFRESH_SKEW")
	setString(&cfg.Locale.Default, "STOREFRONT_DEFAULT_LOCALE")
	setStrings(&cfg.Locale.Supported, "STOREFRONT_LOCALES")

	// Theme
	setString(&cfg.Theme.CallbackName, "STOREFRONT_THEME_CALLBACK")
	setDuration(&cfg.Theme.LoadTimeout, "STOREFRONT_THEME_TIMEOUT")

	// Bootstrap
	setBool(&cfg.Bootstrap.Interactive, "STOREFRONT_INTERACTIVE")
	setDuration(&cfg.Bootstrap.FadeDuration, "STOREFRONT_FADE_DURATION")

	// Cache
	setInt64(&cfg.Cache.L1MaxSizeMB, "STOREFRONT_CACHE_L1_SIZE_MB")
	setString(&cfg.Cache.L2Backend, "STOREFRONT_CACHE_L2_BACKEND")
	setString(&cfg.Cache.L2Bucket, "STOREFRONT_CACHE_L2_BUCKET")
	setDuration(&cfg.Cache.L2TTL, "STOREFRONT_CACHE_L2_TTL")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")

	// Session
	setString(&cfg.Session.CookieName, "STOREFRONT_SESSION_COOKIE")
	setDuration(&cfg.Session.TTL, "STOREFRONT_SESSION_TTL")
	setBool(&cfg.Session.SecureCookie, "STOREFRONT_SESSION_SECURE")

	setDuration(&cfg.Checkout.PendingTTL, "STOREFRONT_CHECKOUT_TTL")
	setDuration(&cfg.Checkout.PurchaseTTL, "STOREFRONT_PURCHASE_TTL")

	setString(&cfg.Logging.Level, "STOREFRONT_LOG_LEVEL")
	setString(&cfg.Logging.Service, "STOREFRONT_LOG_SERVICE")
	setInt(&cfg.Breaker.MaxFailures, "STOREFRONT_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "STOREFRONT_BREAKER_TIMEOUT")
	setFloat64(&cfg.Rate.RequestsPerSecond, "STOREFRONT_RATE_RPS")
	setInt(&cfg.Rate.Burst, "STOREFRONT_RATE_BURST")
	setBool(&cfg.OTel.Enabled, "STOREFRONT_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// applyCLI overlays explicitly passed command-line flags onto cfg.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.Host != nil {
		cfg.Server.PublicHost = *flags.Host
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.APIBaseURL != nil {
		cfg.API.BaseURL = *flags.APIBaseURL
	}
}

// validate checks that required fields are set.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Server.PublicHost == "" {
		return errors.New("server.public_host is required")
	}
	if err := requireURL(cfg.API.BaseURL, "api.base_url"); err != nil {
		return err
	}
	if err := requireURL(cfg.CDN.BaseURL, "cdn.base_url"); err != nil {
		return err
	}
	if cfg.OIDC.Issuer == "" || cfg.OIDC.ClientID == "" {
		return errors.New("oidc.issuer and oidc.client_id are required")
	}
	if cfg.Locale.Default == "" {
		return errors.New("locale.default is required")
	}
	if cfg.Theme.CallbackName == "" {
		return errors.New("theme.callback_name is required")
	}
	if cfg.Theme.LoadTimeout <= 0 {
		return errors.New("theme.load_timeout must be > 0")
	}
	switch cfg.Cache.L2Backend {
	case "nats", "redis", "none":
	default:
		return fmt.Errorf("cache.l2_backend %q must be one of nats, redis, none", cfg.Cache.L2Backend)
	}
	if cfg.Cache.L2Backend == "nats" && cfg.NATS.URL == "" {
		return errors.New("nats.url is required for the nats cache backend")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Rate.Burst < 1 {
		return errors.New("rate.burst must be >= 1")
	}
	return nil
}

func requireURL(raw, field string) error {
	if raw == "" {
		return errors.New(field + " is required")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must be an absolute URL", field)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// setStrings reads a comma-separated list.
func setStrings(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
