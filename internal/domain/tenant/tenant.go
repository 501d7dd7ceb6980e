// Package tenant defines the community (tenant) domain model.
package tenant

import (
	"errors"
	"net"
	"strings"
)

// UnresolvedID is sent as the community context when no tenant has been resolved yet.
const UnresolvedID = "0"

// Tenant is one marketplace community, resolved from the host name the
// storefront is served under.
type Tenant struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Domain       string `json:"domain"`
	CDNBase      string `json:"cdnBase,omitempty"`
	Active       bool   `json:"active"`
	ThemeVersion int    `json:"themeVersion"`
}

// Validate checks the fields every consumer relies on.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return errors.New("tenant id is missing")
	}
	if t.Slug == "" {
		return errors.New("tenant slug is missing")
	}
	return nil
}

// LookupKey derives the tenant lookup key from a host name. Hosts with three
// or more dot-separated labels resolve by their first label (the subdomain);
// anything shorter resolves by the full host.
//
//	tubarrio.com.ar      -> tubarrio.com.ar
//	club.tubarrio.com.ar -> club
func LookupKey(host string) string {
	h := strings.ToLower(strings.TrimSpace(host))
	if hostOnly, _, err := net.SplitHostPort(h); err == nil {
		h = hostOnly
	}
	h = strings.TrimSuffix(h, ".")

	labels := strings.Split(h, ".")
	if len(labels) >= 3 {
		return labels[0]
	}
	return h
}
