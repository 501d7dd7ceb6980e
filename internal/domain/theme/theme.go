// Package theme defines per-community branding delivered by the theme bundle.
package theme

import (
	"fmt"
	"strings"
)

// FallbackSlug and FallbackVersion identify the built-in theme used when a
// community bundle cannot be loaded.
const (
	FallbackSlug    = "default"
	FallbackVersion = 1
)

// Assets are the image paths a theme overrides.
type Assets struct {
	Logo    string `json:"logo"`
	Favicon string `json:"favicon"`
}

// Theme is the payload a community bundle hands to the registered callback.
type Theme struct {
	Slug         string `json:"slug"`
	Version      int    `json:"version"`
	Assets       Assets `json:"assets"`
	CustomCSS    string `json:"customCss,omitempty"`
	CustomJS     string `json:"customJs,omitempty"`
	I18nOverride string `json:"i18nOverride,omitempty"`
}

// IsFallback reports whether t is the built-in fallback theme.
func (t *Theme) IsFallback() bool {
	return t.Slug == FallbackSlug && t.Version == FallbackVersion
}

// Fallback returns the built-in theme with the given default assets.
func Fallback(logo, favicon string) Theme {
	return Theme{
		Slug:    FallbackSlug,
		Version: FallbackVersion,
		Assets:  Assets{Logo: logo, Favicon: favicon},
	}
}

// CacheKey is the durable cache key for a (slug, version) pair. Bumping the
// version produces a new key; old entries are simply never read again.
func CacheKey(slug string, version int) string {
	return fmt.Sprintf("theme_%s_%d", slug, version)
}

// BundleURL is the per-community script that carries the theme payload.
func BundleURL(cdnBase, slug string, version int) string {
	return fmt.Sprintf("%s/cmn/%s/res-%d.js", strings.TrimRight(cdnBase, "/"), slug, version)
}

// ResourceURL resolves a file name shipped next to the community bundle.
func ResourceURL(cdnBase, slug, name string) string {
	if strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://") || strings.HasPrefix(name, "/") {
		return name
	}
	return fmt.Sprintf("%s/cmn/%s/%s", strings.TrimRight(cdnBase, "/"), slug, name)
}
