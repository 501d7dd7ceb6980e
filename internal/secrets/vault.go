// Package secrets holds the storefront's secret material: the OIDC client
// secret and the session sealing key. Values are reloadable on SIGHUP.
package secrets

import (
	"fmt"
	"sort"
	"sync"
)

// Well-known vault keys.
const (
	KeyOIDCClientSecret = "STOREFRONT_OIDC_CLIENT_SECRET"
	KeySessionKey       = "STOREFRONT_SESSION_KEY"
)

// Loader retrieves secrets from a source (env vars, file, remote vault, etc.).
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu       sync.RWMutex
	values   map[string]string
	loader   Loader
	onReload []func()
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Keys returns the names of all loaded secrets, sorted.
func (v *Vault) Keys() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	keys := make([]string, 0, len(v.values))
	for k := range v.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Redacted returns a masked form of the secret: the first two characters and
// "****", or just "****" for values of four characters or fewer.
func (v *Vault) Redacted(key string) string {
	return mask(v.Get(key))
}

// OnReload registers fn to run after every successful Reload.
func (v *Vault) OnReload(fn func()) {
	v.mu.Lock()
	v.onReload = append(v.onReload, fn)
	v.mu.Unlock()
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	hooks := append([]func(){}, v.onReload...)
	v.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
	return nil
}

func mask(val string) string {
	if val == "" {
		return ""
	}
	if len(val) <= 4 {
		return "****"
	}
	return val[:2] + "****"
}
