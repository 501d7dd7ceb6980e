package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
)

// SessionLookup resolves a browser session id to its server-side record.
type SessionLookup interface {
	Lookup(ctx context.Context, id string) (*session.Session, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	TTL    time.Duration
	Secure bool
}

type (
	sessionIDCtxKey   struct{}
	accessTokenCtxKey struct{}
	claimsCtxKey      struct{}
)

// Session returns middleware that binds every request to a browser session.
// A missing or malformed cookie gets a fresh random id. When the session
// holds a valid access token, the token and claims are stored in the context
// for the request decorator and role checks.
func Session(cfg CookieConfig, lookup SessionLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(cfg.Name); err == nil {
				if _, err := uuid.Parse(c.Value); err == nil {
					id = c.Value
				}
			}
			if id == "" {
				id = uuid.NewString()
				SetSessionCookie(w, cfg, id)
			}

			ctx := WithSessionID(r.Context(), id)
			if s, err := lookup.Lookup(ctx, id); err == nil && s != nil && s.Valid(time.Now()) {
				ctx = WithAccessToken(ctx, s.AccessToken)
				ctx = WithClaims(ctx, &s.Claims)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SetSessionCookie writes the session cookie.
func SetSessionCookie(w http.ResponseWriter, cfg CookieConfig, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.Name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// WithSessionID returns ctx carrying the browser session id.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDCtxKey{}, id)
}

// SessionIDFromContext returns the browser session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDCtxKey{}).(string)
	return id
}

// WithAccessToken returns ctx carrying a bearer token for outgoing API calls.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenCtxKey{}, token)
}

// AccessTokenFromContext returns the bearer token, or "".
func AccessTokenFromContext(ctx context.Context) string {
	tok, _ := ctx.Value(accessTokenCtxKey{}).(string)
	return tok
}

// WithClaims returns ctx carrying the authenticated user's claims.
func WithClaims(ctx context.Context, c *session.Claims) context.Context {
	return context.WithValue(ctx, claimsCtxKey{}, c)
}

// ClaimsFromContext returns the authenticated user's claims, or nil.
func ClaimsFromContext(ctx context.Context) *session.Claims {
	c, _ := ctx.Value(claimsCtxKey{}).(*session.Claims)
	return c
}
