package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/session"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/observe"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/cache"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/identity"
)

// Sealer encrypts records before they reach the durable cache.
type Sealer interface {
	Seal(plaintext, ad []byte) ([]byte, error)
	Open(sealed, ad []byte) ([]byte, error)
}

type plainSealer struct{}

func (plainSealer) Seal(p, _ []byte) ([]byte, error) { return p, nil }
func (plainSealer) Open(s, _ []byte) ([]byte, error) { return s, nil }

// SessionConfig configures the session manager.
type SessionConfig struct {
	Interactive bool          // false skips provider discovery entirely
	TTL         time.Duration // lifetime of a stored session record
	StateTTL    time.Duration // lifetime of a pending login (state + PKCE verifier)
	RefreshSkew time.Duration // how long before expiry the silent refresh fires
	LoginPath   string        // storefront route that starts the login redirect
}

// SessionService manages OIDC sessions keyed by browser session id.
//
// States: unauthenticated -> (login + callback) -> authenticated ->
// (silent refresh)* -> authenticated, or on refresh failure -> login_required.
// Logout from any state -> unauthenticated.
type SessionService struct {
	cfg     SessionConfig
	idp     identity.Provider
	store   cache.Cache
	sealer  Sealer
	metrics Metrics
	now     func() time.Time

	discovered atomic.Bool
	recordMu   sync.Mutex // serializes session record writes

	mu     sync.Mutex
	states map[string]*observe.State[session.Transition]
	timers map[string]*time.Timer
	closed bool
}

// NewSessionService creates a SessionService. A nil sealer stores records in clear.
func NewSessionService(cfg SessionConfig, idp identity.Provider, store cache.Cache, sealer Sealer, metrics Metrics) *SessionService {
	if sealer == nil {
		sealer = plainSealer{}
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	return &SessionService{
		cfg:     cfg,
		idp:     idp,
		store:   store,
		sealer:  sealer,
		metrics: metricsOrNop(metrics),
		now:     time.Now,
		states:  make(map[string]*observe.State[session.Transition]),
		timers:  make(map[string]*time.Timer),
	}
}

// Init loads the provider's discovery document. Outside interactive mode it
// does nothing. A failure leaves every session unauthenticated; Login retries
// discovery on demand.
func (s *SessionService) Init(ctx context.Context) error {
	if !s.cfg.Interactive {
		slog.Debug("session init skipped outside interactive mode")
		return nil
	}
	return s.discover(ctx)
}

func (s *SessionService) discover(ctx context.Context) error {
	if s.discovered.Load() {
		return nil
	}
	if err := s.idp.Discover(ctx); err != nil {
		return fmt.Errorf("oidc discovery: %w", err)
	}
	s.discovered.Store(true)
	return nil
}

func sessionKey(id string) string  { return "session_" + id }
func loginKey(state string) string { return "oidc_state_" + state }

// Login starts the authorization-code flow for the browser session and
// returns the provider URL to redirect to. returnTo is honoured only when it
// is a same-site relative path.
func (s *SessionService) Login(ctx context.Context, sessionID, returnTo string) (string, error) {
	if sessionID == "" {
		return "", fmt.Errorf("%w: session id is required", domain.ErrValidation)
	}
	if err := s.discover(ctx); err != nil {
		return "", err
	}

	state := uuid.NewString()
	pending := session.PendingLogin{
		SessionID: sessionID,
		Verifier:  s.idp.NewVerifier(),
		ReturnTo:  SafeReturnPath(returnTo),
		CreatedAt: s.now(),
	}
	if err := s.put(ctx, loginKey(state), pending, s.cfg.StateTTL); err != nil {
		return "", fmt.Errorf("store pending login: %w", err)
	}

	authURL, err := s.idp.AuthCodeURL(state, pending.Verifier)
	if err != nil {
		return "", err
	}
	s.metrics.LoginRedirect(ctx)
	return authURL, nil
}

// Callback completes the code exchange started by Login for the browser
// session sessionID. A state issued to a different session is rejected, so a
// provider redirect cannot be replayed into someone else's browser session.
// It returns the authenticated session and the path to send the browser back to.
func (s *SessionService) Callback(ctx context.Context, sessionID, state, code string) (*session.Session, string, error) {
	if sessionID == "" || state == "" || code == "" {
		return nil, "/", fmt.Errorf("%w: session, state and code are required", domain.ErrValidation)
	}
	var pending session.PendingLogin
	found, err := s.get(ctx, loginKey(state), &pending)
	if err != nil {
		return nil, "/", err
	}
	// One use only.
	_ = s.store.Delete(ctx, loginKey(state))
	if !found || s.now().Sub(pending.CreatedAt) > s.cfg.StateTTL {
		return nil, "/", fmt.Errorf("%w: unknown or expired login state", domain.ErrValidation)
	}
	if pending.SessionID != sessionID {
		slog.Warn("login state presented by another session")
		return nil, "/", fmt.Errorf("%w: login state does not belong to this session", domain.ErrValidation)
	}
	if err := s.discover(ctx); err != nil {
		return nil, pending.ReturnTo, err
	}

	tok, err := s.idp.Exchange(ctx, code, pending.Verifier)
	if err != nil {
		slog.Warn("code exchange failed", "error", err)
		s.publish(ctx, pending.SessionID, session.Transition{
			SessionID: pending.SessionID,
			State:     session.StateUnauthenticated,
		})
		return nil, pending.ReturnTo, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	}

	sess := &session.Session{ID: pending.SessionID}
	applyTokens(sess, tok)
	s.recordMu.Lock()
	err = s.save(ctx, sess)
	s.recordMu.Unlock()
	if err != nil {
		return nil, pending.ReturnTo, err
	}
	s.publish(ctx, sess.ID, transitionOf(sess))
	s.schedule(sess)

	slog.Info("session authenticated", "subject", sess.Claims.Subject, "expires_at", sess.ExpiresAt)
	return sess, pending.ReturnTo, nil
}

func applyTokens(sess *session.Session, tok *identity.Tokens) {
	sess.State = session.StateAuthenticated
	sess.Authenticated = true
	sess.AccessToken = tok.AccessToken
	sess.IDToken = tok.IDToken
	sess.RefreshToken = tok.RefreshToken
	sess.ExpiresAt = tok.Expiry
	sess.Claims = tok.Claims
	sess.LoginURL = ""
}

func transitionOf(sess *session.Session) session.Transition {
	return session.Transition{
		SessionID:     sess.ID,
		State:         sess.State,
		Authenticated: sess.Authenticated,
		LoginURL:      sess.LoginURL,
	}
}

// Lookup returns the stored session, or domain.ErrNotFound. An authenticated
// session without a running refresh timer (after a restart) gets one.
func (s *SessionService) Lookup(ctx context.Context, id string) (*session.Session, error) {
	var sess session.Session
	found, err := s.get(ctx, sessionKey(id), &sess)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	if sess.Authenticated && sess.RefreshToken != "" && !s.hasTimer(id) {
		s.schedule(&sess)
	}
	return &sess, nil
}

// IsAuthenticated reports whether the session holds a valid access token.
func (s *SessionService) IsAuthenticated(ctx context.Context, id string) bool {
	sess, err := s.Lookup(ctx, id)
	return err == nil && sess.Valid(s.now())
}

// Roles returns the role claims of an authenticated session.
func (s *SessionService) Roles(ctx context.Context, id string) []string {
	sess, err := s.Lookup(ctx, id)
	if err != nil || !sess.Valid(s.now()) {
		return nil
	}
	return append([]string(nil), sess.Claims.Roles...)
}

// Subscribe streams the session's state transitions, starting with its
// current state.
func (s *SessionService) Subscribe(ctx context.Context, id string) (<-chan session.Transition, func()) {
	st := s.stateFor(id, func() session.Transition {
		if sess, err := s.Lookup(ctx, id); err == nil {
			return transitionOf(sess)
		}
		return session.Transition{SessionID: id, State: session.StateUnauthenticated}
	})
	return st.Subscribe()
}

// Logout clears the session and returns the provider's end-session URL.
func (s *SessionService) Logout(ctx context.Context, id string) (string, error) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	s.stopTimer(id)
	var sess session.Session
	if _, err := s.get(ctx, sessionKey(id), &sess); err != nil {
		slog.Warn("load session on logout", "error", err)
	}
	if err := s.store.Delete(ctx, sessionKey(id)); err != nil {
		return "", fmt.Errorf("delete session: %w", err)
	}
	s.publish(ctx, id, session.Transition{SessionID: id, State: session.StateUnauthenticated})
	return s.idp.EndSessionURL(sess.IDToken), nil
}

// RequireLogin drops the session's tokens and marks it login_required. It is
// called when an API call comes back 401 and when a silent refresh fails.
// Repeated calls while already login_required are ignored.
func (s *SessionService) RequireLogin(ctx context.Context, id string) {
	if id == "" {
		return
	}
	s.recordMu.Lock()
	defer s.recordMu.Unlock()
	s.requireLoginLocked(ctx, id)
}

func (s *SessionService) requireLoginLocked(ctx context.Context, id string) {
	s.stopTimer(id)
	sess := session.Session{ID: id}
	if _, err := s.get(ctx, sessionKey(id), &sess); err != nil {
		slog.Warn("load session for login_required", "error", err)
	}
	if sess.State == session.StateLoginRequired {
		return
	}
	sess.Clear(session.StateLoginRequired)
	sess.LoginURL = s.cfg.LoginPath
	if err := s.save(ctx, &sess); err != nil {
		slog.Error("persist login_required session", "error", err)
	}
	s.metrics.LoginRedirect(ctx)
	s.publish(ctx, id, transitionOf(&sess))
}

// schedule arms the silent refresh for sess.
func (s *SessionService) schedule(sess *session.Session) {
	if sess.RefreshToken == "" || sess.ExpiresAt.IsZero() {
		return
	}
	delay := sess.ExpiresAt.Sub(s.now()) - s.cfg.RefreshSkew
	if delay < 0 {
		delay = 0
	}
	id := sess.ID

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
	}
	s.timers[id] = time.AfterFunc(delay, func() { s.refresh(id) })
}

func (s *SessionService) hasTimer(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[id]
	return ok
}

func (s *SessionService) stopTimer(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
}

// refresh runs on the timer goroutine. The fired timer stays registered
// until refresh reschedules or stops it, so Lookup does not arm a second one.
// The provider call runs unlocked; its result is applied only if the record
// still holds the refresh token that was used, so a logout or login_required
// that lands meanwhile wins.
func (s *SessionService) refresh(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var sess session.Session
	found, err := s.get(ctx, sessionKey(id), &sess)
	if err != nil || !found || !sess.Authenticated {
		s.stopTimer(id)
		return
	}
	used := sess.RefreshToken

	tok, err := s.idp.Refresh(ctx, used)
	if err != nil {
		s.metrics.TokenRefreshed(ctx, false)
		slog.Warn("silent token refresh failed, login required", "error", err)
	}

	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	var latest session.Session
	found, lerr := s.get(ctx, sessionKey(id), &latest)
	if lerr != nil || !found || !latest.Authenticated {
		slog.Debug("session ended during refresh, dropping the result")
		s.stopTimer(id)
		return
	}
	if latest.RefreshToken != used {
		// A newer login replaced the tokens and armed its own timer.
		return
	}
	if err != nil {
		s.requireLoginLocked(ctx, id)
		return
	}
	s.metrics.TokenRefreshed(ctx, true)
	applyTokens(&latest, tok)
	if err := s.save(ctx, &latest); err != nil {
		slog.Error("persist refreshed session", "error", err)
		s.stopTimer(id)
		return
	}
	s.schedule(&latest)
}

func (s *SessionService) stateFor(id string, initial func() session.Transition) *observe.State[session.Transition] {
	s.mu.Lock()
	st, ok := s.states[id]
	s.mu.Unlock()
	if ok {
		return st
	}

	seeded := observe.NewWith(initial())
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok {
		return st
	}
	s.states[id] = seeded
	return seeded
}

// publish delivers t to the session's subscribers, if any.
func (s *SessionService) publish(_ context.Context, id string, t session.Transition) {
	s.mu.Lock()
	st, ok := s.states[id]
	s.mu.Unlock()
	if ok {
		st.Publish(t)
	}
}

// Release drops the state stream of a session with no subscribers left.
func (s *SessionService) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[id]; ok && st.Subscribers() == 0 {
		st.Close()
		delete(s.states, id)
	}
}

// Close stops every refresh timer and ends every state stream.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	for id, st := range s.states {
		st.Close()
		delete(s.states, id)
	}
}

func (s *SessionService) save(ctx context.Context, sess *session.Session) error {
	return s.put(ctx, sessionKey(sess.ID), sess, s.cfg.TTL)
}

func (s *SessionService) put(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	sealed, err := s.sealer.Seal(data, []byte(key))
	if err != nil {
		return fmt.Errorf("seal %s: %w", key, err)
	}
	return s.store.Set(ctx, key, sealed, ttl)
}

// get loads key into v. Records that fail to open (e.g. sealed under a
// rotated key) are dropped and reported as missing.
func (s *SessionService) get(ctx context.Context, key string, v any) (bool, error) {
	sealed, ok, err := s.store.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	data, err := s.sealer.Open(sealed, []byte(key))
	if err == nil {
		err = json.Unmarshal(data, v)
	}
	if err != nil {
		slog.Warn("discarding unreadable session record", "key", key, "error", err)
		_ = s.store.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

// SafeReturnPath returns p when it is a same-site relative path, else "/".
func SafeReturnPath(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.Contains(p, `\`) {
		return "/"
	}
	u, err := url.Parse(p)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return p
}
