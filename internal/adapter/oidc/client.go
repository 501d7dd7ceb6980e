// Package oidc implements the identity port as an OpenID Connect
// authorization-code client with PKCE (S256).
package oidc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/identity"
)

// ErrNotDiscovered is returned by calls that need the discovery document
// before Discover has succeeded.
var ErrNotDiscovered = errors.New("oidc: discovery document not loaded")

// Config configures the OIDC client.
type Config struct {
	IssuerURL     string
	ClientID      string
	ClientSecret  func() string // optional; public clients leave it nil
	RedirectURL   string
	PostLogoutURL string
	Scopes        []string
}

// discovery is the subset of the provider metadata the client uses.
type discovery struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// Client implements identity.Provider.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu   sync.RWMutex
	disc *discovery
}

var _ identity.Provider = (*Client)(nil)

// NewClient creates an OIDC client. Call Discover before use.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	cfg.IssuerURL = strings.TrimRight(cfg.IssuerURL, "/")
	return &Client{cfg: cfg, httpClient: httpClient}
}

// Discover loads {issuer}/.well-known/openid-configuration.
func (c *Client) Discover(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.IssuerURL+"/.well-known/openid-configuration", http.NoBody)
	if err != nil {
		return fmt.Errorf("create discovery request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch discovery document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery document status %d", resp.StatusCode)
	}
	var d discovery
	if err := json.NewDecoder(resp.Body).Decode(&d); err != nil {
		return fmt.Errorf("decode discovery document: %w", err)
	}
	if d.AuthorizationEndpoint == "" || d.TokenEndpoint == "" {
		return errors.New("discovery document lacks authorization or token endpoint")
	}
	if d.Issuer != "" && strings.TrimRight(d.Issuer, "/") != c.cfg.IssuerURL {
		return fmt.Errorf("discovery issuer %q does not match %q", d.Issuer, c.cfg.IssuerURL)
	}

	c.mu.Lock()
	c.disc = &d
	c.mu.Unlock()
	return nil
}

func (c *Client) oauthConfig() (*oauth2.Config, *discovery, error) {
	c.mu.RLock()
	d := c.disc
	c.mu.RUnlock()
	if d == nil {
		return nil, nil, ErrNotDiscovered
	}
	var secret string
	if c.cfg.ClientSecret != nil {
		secret = c.cfg.ClientSecret()
	}
	return &oauth2.Config{
		ClientID:     c.cfg.ClientID,
		ClientSecret: secret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  d.AuthorizationEndpoint,
			TokenURL: d.TokenEndpoint,
		},
		RedirectURL: c.cfg.RedirectURL,
		Scopes:      c.cfg.Scopes,
	}, d, nil
}

// NewVerifier returns a fresh PKCE code verifier.
func (c *Client) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL builds the authorization endpoint URL carrying state and the
// S256 challenge of verifier.
func (c *Client) AuthCodeURL(state, verifier string) (string, error) {
	cfg, _, err := c.oauthConfig()
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// Exchange trades an authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*identity.Tokens, error) {
	cfg, _, err := c.oauthConfig()
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return c.tokens(tok, "")
}

// Refresh obtains fresh tokens with a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*identity.Tokens, error) {
	if refreshToken == "" {
		return nil, errors.New("no refresh token")
	}
	cfg, _, err := c.oauthConfig()
	if err != nil {
		return nil, err
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	expired := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := cfg.TokenSource(ctx, expired).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return c.tokens(tok, refreshToken)
}

// tokens converts an oauth2 token. Providers may omit the refresh token on
// refresh, in which case the previous one stays valid.
func (c *Client) tokens(tok *oauth2.Token, prevRefresh string) (*identity.Tokens, error) {
	out := &identity.Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if out.RefreshToken == "" {
		out.RefreshToken = prevRefresh
	}
	if idt, ok := tok.Extra("id_token").(string); ok {
		out.IDToken = idt
	}

	raw := out.IDToken
	if raw == "" {
		raw = out.AccessToken
	}
	claims, err := DecodeClaims(raw, c.cfg.ClientID)
	if err != nil {
		return nil, err
	}
	// Roles usually live in the access token only.
	if out.IDToken != "" && out.AccessToken != "" {
		if ac, err := DecodeClaims(out.AccessToken, c.cfg.ClientID); err == nil {
			claims.Roles = mergeRoles(claims.Roles, ac.Roles)
		}
	}
	out.Claims = claims
	return out, nil
}

// EndSessionURL is the provider logout URL, or the post-logout URL when the
// provider advertises no end-session endpoint.
func (c *Client) EndSessionURL(idToken string) string {
	c.mu.RLock()
	d := c.disc
	c.mu.RUnlock()
	if d == nil || d.EndSessionEndpoint == "" {
		return c.cfg.PostLogoutURL
	}
	q := url.Values{"client_id": {c.cfg.ClientID}}
	if c.cfg.PostLogoutURL != "" {
		q.Set("post_logout_redirect_uri", c.cfg.PostLogoutURL)
	}
	if idToken != "" {
		q.Set("id_token_hint", idToken)
	}
	sep := "?"
	if strings.Contains(d.EndSessionEndpoint, "?") {
		sep = "&"
	}
	return d.EndSessionEndpoint + sep + q.Encode()
}
