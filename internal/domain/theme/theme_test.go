package theme

import (
	"strings"
	"testing"
)

func TestCacheKey(t *testing.T) {
	if got := CacheKey("club", 3); got != "theme_club_3" {
		t.Errorf("CacheKey = %q", got)
	}
	if CacheKey("club", 3) == CacheKey("club", 4) {
		t.Error("a version bump must produce a new key")
	}
}

func TestBundleURL(t *testing.T) {
	got := BundleURL("https://cdn.tubarrio.com.ar/", "club", 7)
	if got != "https://cdn.tubarrio.com.ar/cmn/club/res-7.js" {
		t.Errorf("BundleURL = %q", got)
	}
}

func TestResourceURL(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"custom.css", "https://cdn.x/cmn/club/custom.css"},
		{"/assets/logo.png", "/assets/logo.png"},
		{"https://img.x/logo.png", "https://img.x/logo.png"},
	}
	for _, tt := range tests {
		if got := ResourceURL("https://cdn.x", "club", tt.name); got != tt.want {
			t.Errorf("ResourceURL(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFallback(t *testing.T) {
	fb := Fallback("/logo.png", "/favicon.ico")
	if !fb.IsFallback() {
		t.Error("expected fallback theme")
	}
	if fb.Slug != "default" || fb.Version != 1 {
		t.Errorf("unexpected fallback %+v", fb)
	}
}

func TestEnsureStylesheetIdempotent(t *testing.T) {
	var h Head
	h.EnsureStylesheet("/assets/css/base.css")
	h.EnsureStylesheet("/assets/css/base.css")
	if len(h.Links) != 1 {
		t.Fatalf("expected 1 link, got %d", len(h.Links))
	}
}

func TestApplyMutatesExistingLinks(t *testing.T) {
	var h Head
	h.EnsureStylesheet("/assets/css/base.css")
	h.Apply(Theme{Slug: "club", Assets: Assets{Favicon: "fav.png"}, CustomCSS: "club.css"}, "https://cdn.x")
	h.Apply(Theme{Slug: "club", Assets: Assets{Favicon: "fav2.png"}, CustomCSS: "club2.css", CustomJS: "club.js"}, "https://cdn.x")

	if len(h.Links) != 3 {
		t.Fatalf("expected base + favicon + custom css, got %+v", h.Links)
	}
	if h.Links[1].Href != "https://cdn.x/cmn/club/fav2.png" || h.Links[1].Type != "image/png" {
		t.Errorf("favicon not replaced: %+v", h.Links[1])
	}
	if h.Links[2].Href != "https://cdn.x/cmn/club/club2.css" {
		t.Errorf("custom css not replaced: %+v", h.Links[2])
	}
	if len(h.Scripts) != 1 {
		t.Errorf("expected one custom script, got %v", h.Scripts)
	}
}

func TestApplyDropsStaleCustomStylesheet(t *testing.T) {
	var h Head
	h.EnsureStylesheet("/assets/css/base.css")
	h.Apply(Theme{Slug: "club", CustomCSS: "club.css"}, "https://cdn.x")
	h.Apply(Fallback("/logo.png", "/favicon.ico"), "https://cdn.x")

	for _, l := range h.Links {
		if l.ID == linkIDCustomCSS {
			t.Fatalf("community stylesheet survived a theme without one: %+v", h.Links)
		}
	}
	if h.Links[0].Href != "/assets/css/base.css" {
		t.Errorf("base stylesheet lost: %+v", h.Links)
	}
}

func TestHeadHTMLOnReturnedValue(t *testing.T) {
	current := func() Head {
		var h Head
		h.SetFavicon("/favicon.ico")
		return h
	}
	if out := current().HTML(); !strings.Contains(out, `id="favicon"`) {
		t.Errorf("unexpected head: %s", out)
	}
	if c := current().Clone(); len(c.Links) != 1 {
		t.Errorf("clone = %+v", c)
	}
}

func TestHeadHTMLEscapes(t *testing.T) {
	var h Head
	h.EnsureStylesheet(`/x.css"><script>`)
	out := h.HTML()
	if strings.Contains(out, "<script>") {
		t.Errorf("href not escaped: %s", out)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	var h Head
	h.EnsureStylesheet("/a.css")
	c := h.Clone()
	c.EnsureStylesheet("/b.css")
	if len(h.Links) != 1 {
		t.Error("clone shares backing array with original")
	}
}
