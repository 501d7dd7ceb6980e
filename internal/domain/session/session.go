// Package session defines the OIDC-backed user session model.
package session

import (
	"slices"
	"time"
)

// State is the authentication state of a session.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticated   State = "authenticated"
	// StateLoginRequired means the session lost its tokens (refresh failure or a
	// 401 upstream) and the browser must be sent through the login redirect.
	StateLoginRequired State = "login_required"
)

// Claims are the identity claims decoded from the ID and access tokens.
type Claims struct {
	Subject       string   `json:"sub"`
	Email         string   `json:"email,omitempty"`
	EmailVerified bool     `json:"email_verified,omitempty"`
	Name          string   `json:"name,omitempty"`
	Username      string   `json:"preferred_username,omitempty"`
	Roles         []string `json:"roles,omitempty"`
}

// HasRole reports whether the claims carry role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Session is the server-side state of one browser session.
type Session struct {
	ID            string    `json:"id"`
	State         State     `json:"state"`
	AccessToken   string    `json:"access_token,omitempty"`
	IDToken       string    `json:"id_token,omitempty"`
	RefreshToken  string    `json:"refresh_token,omitempty"`
	ExpiresAt     time.Time `json:"expires_at,omitzero"`
	Claims        Claims    `json:"claims"`
	Authenticated bool      `json:"authenticated"`
	LoginURL      string    `json:"login_url,omitempty"` // set with StateLoginRequired
}

// Valid reports whether the session holds an access token that has not expired at now.
func (s *Session) Valid(now time.Time) bool {
	return s.Authenticated && s.AccessToken != "" && now.Before(s.ExpiresAt)
}

// Clear drops every token and claim, leaving the session unauthenticated.
func (s *Session) Clear(state State) {
	s.AccessToken = ""
	s.IDToken = ""
	s.RefreshToken = ""
	s.ExpiresAt = time.Time{}
	s.Claims = Claims{}
	s.Authenticated = false
	s.State = state
}

// Transition is published to subscribers on every session state change.
type Transition struct {
	SessionID     string `json:"session_id"`
	State         State  `json:"state"`
	Authenticated bool   `json:"authenticated"`
	LoginURL      string `json:"login_url,omitempty"`
}

// PendingLogin is the data kept between the login redirect and the provider callback.
type PendingLogin struct {
	SessionID string    `json:"session_id"`
	Verifier  string    `json:"verifier"`
	ReturnTo  string    `json:"return_to"`
	CreatedAt time.Time `json:"created_at"`
}
