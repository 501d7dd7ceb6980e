package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
)

// HeaderCommunityContext carries the tenant id on every decorated API call.
const HeaderCommunityContext = "X-Community-Context"

// LoginTrigger is notified when an API call comes back 401 for a session.
type LoginTrigger interface {
	RequireLogin(ctx context.Context, sessionID string)
}

// Decorator is an http.RoundTripper that authenticates outgoing marketplace
// API requests. Requests for static assets and the silent-refresh page pass
// through untouched. Every other request gets the bearer token from its
// context (when present) and the community header. A 401 on an /api/ path
// triggers the login redirect once and surfaces as domain.ErrUnauthorized.
type Decorator struct {
	next              http.RoundTripper
	tenant            TenantIDSource
	login             LoginTrigger
	silentRefreshPath string
}

// NewDecorator wraps next. A nil next uses http.DefaultTransport.
func NewDecorator(next http.RoundTripper, tenant TenantIDSource, login LoginTrigger, silentRefreshPath string) *Decorator {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Decorator{next: next, tenant: tenant, login: login, silentRefreshPath: silentRefreshPath}
}

// RoundTrip implements http.RoundTripper.
func (d *Decorator) RoundTrip(req *http.Request) (*http.Response, error) {
	if d.skip(req) {
		return d.next.RoundTrip(req)
	}

	ctx := req.Context()
	out := req.Clone(ctx)
	if tok := AccessTokenFromContext(ctx); tok != "" {
		out.Header.Set("Authorization", "Bearer "+tok)
	}
	out.Header.Set(HeaderCommunityContext, d.tenant.IDOrSentinel())

	resp, err := d.next.RoundTrip(out)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized && strings.Contains(req.URL.Path, "/api/") {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
		sid := SessionIDFromContext(ctx)
		slog.Info("api call unauthorized, requiring login", "path", req.URL.Path, "session_present", sid != "")
		if d.login != nil {
			d.login.RequireLogin(ctx, sid)
		}
		return nil, domain.ErrUnauthorized
	}
	return resp, nil
}

func (d *Decorator) skip(req *http.Request) bool {
	p := req.URL.Path
	return strings.Contains(p, "/assets/") || (d.silentRefreshPath != "" && p == d.silentRefreshPath)
}
