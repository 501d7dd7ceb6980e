// Package config provides hierarchical configuration loading for the storefront.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the storefront service.
type Config struct {
	Server    Server    `yaml:"server"`
	API       API       `yaml:"api"`
	CDN       CDN       `yaml:"cdn"`
	OIDC      OIDC      `yaml:"oidc"`
	Locale    Locale    `yaml:"locale"`
	Theme     Theme     `yaml:"theme"`
	Bootstrap Bootstrap `yaml:"bootstrap"`
	Cache     Cache     `yaml:"cache"`
	NATS      NATS      `yaml:"nats"`
	Redis     Redis     `yaml:"redis"`
	Session   Session   `yaml:"session"`
	Checkout  Checkout  `yaml:"checkout"`
	Logging   Logging   `yaml:"logging"`
	Breaker   Breaker   `yaml:"breaker"`
	Rate      Rate      `yaml:"rate"`
	OTel      OTel      `yaml:"otel"`
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	PublicHost string `yaml:"public_host"` // host name the storefront is served under; drives tenant lookup
	PublicURL  string `yaml:"public_url"`  // absolute base URL used to build OIDC redirect URIs
	CORSOrigin string `yaml:"cors_origin"`
}

// API holds the marketplace REST API connection settings.
type API struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// CDN holds the content-delivery base used for theme bundles and assets.
type CDN struct {
	BaseURL string `yaml:"base_url"`
}

// OIDC holds the identity provider client configuration.
type OIDC struct {
	Issuer            string        `yaml:"issuer"` // base URL of the identity provider, realm appended when set
	Realm             string        `yaml:"realm"`
	ClientID          string        `yaml:"client_id"`
	RedirectPath      string        `yaml:"redirect_path"`
	PostLogoutPath    string        `yaml:"post_logout_path"`
	SilentRefreshPath string        `yaml:"silent_refresh_path"`
	Scopes            []string      `yaml:"scopes"`
	RefreshSkew       time.Duration `yaml:"refresh_skew"` // how long before expiry the silent refresh fires
	StateTTL          time.Duration `yaml:"state_ttl"`
}

// IssuerURL returns the issuer with the realm path appended, Keycloak style.
func (o OIDC) IssuerURL() string {
	if o.Realm == "" {
		return o.Issuer
	}
	return o.Issuer + "/realms/" + o.Realm
}

// Locale holds locale negotiation defaults.
type Locale struct {
	Default   string   `yaml:"default"`
	Supported []string `yaml:"supported"`
}

// Theme holds the per-tenant theme bundle loader settings.
type Theme struct {
	CallbackName   string        `yaml:"callback_name"` // global function the bundle script invokes
	LoadTimeout    time.Duration `yaml:"load_timeout"`
	BaseStylesheet string        `yaml:"base_stylesheet"`
	FallbackLogo   string        `yaml:"fallback_logo"`
	FallbackIcon   string        `yaml:"fallback_icon"`
	MaxBundleBytes int64         `yaml:"max_bundle_bytes"`
}

// Bootstrap holds startup orchestration settings.
type Bootstrap struct {
	Interactive  bool          `yaml:"interactive"` // false = render-only mode, skips theme and category preloads
	FadeDuration time.Duration `yaml:"fade_duration"`
}

// Cache holds tiered cache configuration.
type Cache struct {
	L1MaxSizeMB int64         `yaml:"l1_max_size_mb"`
	L1Expire    time.Duration `yaml:"l1_expire"`
	L2Backend   string        `yaml:"l2_backend"` // "nats" | "redis" | "none"
	L2Bucket    string        `yaml:"l2_bucket"`
	L2TTL       time.Duration `yaml:"l2_ttl"`
}

// NATS holds NATS JetStream configuration.
type NATS struct {
	URL string `yaml:"url"`
}

// Redis holds redis connection configuration for the alternate L2 backend.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Session holds browser session cookie configuration.
type Session struct {
	CookieName   string        `yaml:"cookie_name"`
	TTL          time.Duration `yaml:"ttl"`
	SecureCookie bool          `yaml:"secure_cookie"`
	KeyEnv       string        `yaml:"key_env"` // env var holding the sealing key
}

// Checkout holds staleness windows for restorable checkout state.
type Checkout struct {
	PendingTTL  time.Duration `yaml:"pending_ttl"`
	PurchaseTTL time.Duration `yaml:"purchase_ttl"`
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
}

// Breaker holds circuit breaker configuration.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Rate holds rate limiter configuration.
type Rate struct {
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"`
	MaxIdleTime       time.Duration `yaml:"max_idle_time"`
}

// OTel holds OpenTelemetry exporter configuration.
type OTel struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "4000",
			PublicHost: "localhost",
			PublicURL:  "http://localhost:4000",
			CORSOrigin: "http://localhost:4200",
		},
		API: API{
			BaseURL: "http://localhost:8080/api",
			Timeout: 10 * time.Second,
		},
		CDN: CDN{
			BaseURL: "http://localhost:8081",
		},
		OIDC: OIDC{
			Issuer:            "http://localhost:8180",
			Realm:             "marketplace",
			ClientID:          "storefront",
			RedirectPath:      "/auth/callback",
			PostLogoutPath:    "/",
			SilentRefreshPath: "/silent-refresh.html",
			Scopes:            []string{"openid", "profile", "email"},
			RefreshSkew:       time.Minute,
			StateTTL:          10 * time.Minute,
		},
		Locale: Locale{
			Default:   "es-AR",
			Supported: []string{"es-AR", "es", "en"},
		},
		Theme: Theme{
			CallbackName:   "registerCommunityTheme",
			LoadTimeout:    5 * time.Second,
			BaseStylesheet: "/assets/css/base.css",
			FallbackLogo:   "/assets/img/logo.png",
			FallbackIcon:   "/assets/img/favicon.ico",
			MaxBundleBytes: 512 << 10,
		},
		Bootstrap: Bootstrap{
			Interactive:  true,
			FadeDuration: 300 * time.Millisecond,
		},
		Cache: Cache{
			L1MaxSizeMB: 64,
			L1Expire:    5 * time.Minute,
			L2Backend:   "nats",
			L2Bucket:    "STOREFRONT_CACHE",
			L2TTL:       24 * time.Hour,
		},
		NATS: NATS{
			URL: "nats://localhost:4222",
		},
		Redis: Redis{
			Addr: "localhost:6379",
		},
		Session: Session{
			CookieName:   "storefront_session",
			TTL:          12 * time.Hour,
			SecureCookie: false,
			KeyEnv:       "STOREFRONT_SESSION_KEY",
		},
		Checkout: Checkout{
			PendingTTL:  30 * time.Minute,
			PurchaseTTL: 10 * time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "storefront",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Rate: Rate{
			RequestsPerSecond: 20,
			Burst:             60,
			CleanupInterval:   5 * time.Minute,
			MaxIdleTime:       10 * time.Minute,
		},
		OTel: OTel{
			Enabled:  false,
			Endpoint: "localhost:4317",
		},
	}
}
