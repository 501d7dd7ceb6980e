package theme

import (
	"html"
	"slices"
	"strings"
)

// Link is one <link> element in the document head.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
	ID   string `json:"id,omitempty"`
	Type string `json:"type,omitempty"`
}

// Well-known link ids the loader mutates in place instead of duplicating.
const (
	linkIDCustomCSS = "community-css"
	linkIDFavicon   = "favicon"
)

// Head is the set of <link> tags the storefront renders for a theme.
// The zero value is ready to use.
type Head struct {
	Links   []Link   `json:"links"`
	Scripts []string `json:"scripts,omitempty"`
}

// EnsureStylesheet adds a stylesheet link unless one with the same href exists.
func (h *Head) EnsureStylesheet(href string) {
	for _, l := range h.Links {
		if l.Rel == "stylesheet" && l.Href == href {
			return
		}
	}
	h.Links = append(h.Links, Link{Rel: "stylesheet", Href: href})
}

// upsert mutates the link with id, or appends a new one.
func (h *Head) upsert(link Link) {
	for i := range h.Links {
		if h.Links[i].ID == link.ID {
			h.Links[i] = link
			return
		}
	}
	h.Links = append(h.Links, link)
}

// remove drops the link with id, if present.
func (h *Head) remove(id string) {
	h.Links = slices.DeleteFunc(h.Links, func(l Link) bool { return l.ID == id })
}

// SetFavicon creates or replaces the favicon link.
func (h *Head) SetFavicon(href string) {
	h.upsert(Link{Rel: "icon", Href: href, ID: linkIDFavicon, Type: faviconType(href)})
}

// SetCustomStylesheet creates or replaces the community stylesheet override.
func (h *Head) SetCustomStylesheet(href string) {
	h.upsert(Link{Rel: "stylesheet", Href: href, ID: linkIDCustomCSS})
}

// Apply writes the theme overrides for t onto h.
func (h *Head) Apply(t Theme, cdnBase string) {
	if t.Assets.Favicon != "" {
		h.SetFavicon(ResourceURL(cdnBase, t.Slug, t.Assets.Favicon))
	}
	if t.CustomCSS != "" {
		h.SetCustomStylesheet(ResourceURL(cdnBase, t.Slug, t.CustomCSS))
	} else {
		h.remove(linkIDCustomCSS)
	}
	h.Scripts = h.Scripts[:0]
	if t.CustomJS != "" {
		h.Scripts = append(h.Scripts, ResourceURL(cdnBase, t.Slug, t.CustomJS))
	}
}

// Clone returns a deep copy of h.
func (h Head) Clone() Head {
	return Head{
		Links:   append([]Link(nil), h.Links...),
		Scripts: append([]string(nil), h.Scripts...),
	}
}

// HTML renders the head fragment for server-side rendering.
func (h Head) HTML() string {
	var b strings.Builder
	for _, l := range h.Links {
		b.WriteString(`<link rel="`)
		b.WriteString(html.EscapeString(l.Rel))
		b.WriteString(`" href="`)
		b.WriteString(html.EscapeString(l.Href))
		b.WriteString(`"`)
		if l.ID != "" {
			b.WriteString(` id="`)
			b.WriteString(html.EscapeString(l.ID))
			b.WriteString(`"`)
		}
		if l.Type != "" {
			b.WriteString(` type="`)
			b.WriteString(html.EscapeString(l.Type))
			b.WriteString(`"`)
		}
		b.WriteString(">\n")
	}
	for _, s := range h.Scripts {
		b.WriteString(`<script src="`)
		b.WriteString(html.EscapeString(s))
		b.WriteString(`" defer></script>`)
		b.WriteString("\n")
	}
	return b.String()
}

func faviconType(href string) string {
	switch {
	case strings.HasSuffix(href, ".png"):
		return "image/png"
	case strings.HasSuffix(href, ".svg"):
		return "image/svg+xml"
	default:
		return "image/x-icon"
	}
}
