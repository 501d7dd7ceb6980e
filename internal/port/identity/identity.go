// Package identity defines the port for the OAuth2/OIDC identity provider.
package identity

import (
	"context"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
)

// Tokens is the result of a code exchange or refresh.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	Expiry       time.Time
	Claims       session.Claims
}

// Provider is an OIDC authorization-code (PKCE) client.
type Provider interface {
	// Discover loads the provider's discovery document.
	Discover(ctx context.Context) error
	// AuthCodeURL builds the authorization endpoint URL for state and PKCE verifier.
	AuthCodeURL(state, verifier string) (string, error)
	// Exchange trades an authorization code for tokens.
	Exchange(ctx context.Context, code, verifier string) (*Tokens, error)
	// Refresh obtains fresh tokens silently.
	Refresh(ctx context.Context, refreshToken string) (*Tokens, error)
	// EndSessionURL is where the browser goes to end the provider session.
	EndSessionURL(idToken string) string
	// NewVerifier returns a fresh PKCE code verifier.
	NewVerifier() string
}
