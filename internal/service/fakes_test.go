package service

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/theme"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/identity"
)

// fakeDirectory is a marketplace.TenantDirectory. When gate is non-nil every
// call blocks until it is closed.
type fakeDirectory struct {
	mu     sync.Mutex
	calls  int
	keys   []string
	gate   chan struct{}
	errs   []error // consumed one per call before tenant is returned
	tenant tenant.Tenant
}

func (f *fakeDirectory) TenantInfo(ctx context.Context, key string) (*tenant.Tenant, error) {
	f.mu.Lock()
	f.calls++
	f.keys = append(f.keys, key)
	gate := f.gate
	var err error
	if len(f.errs) > 0 {
		err, f.errs = f.errs[0], f.errs[1:]
	}
	t := f.tenant
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (f *fakeDirectory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeMetrics struct {
	mu            sync.Mutex
	resolved      int
	resolveFailed int
	cacheHits     int
	fallbacks     []string
	refreshed     int
	refreshFailed int
	redirects     int
}

func (m *fakeMetrics) TenantResolved(_ context.Context, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.resolved++
	} else {
		m.resolveFailed++
	}
}

func (m *fakeMetrics) ThemeCacheHit(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheHits++
}

func (m *fakeMetrics) ThemeFallback(_ context.Context, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fallbacks = append(m.fallbacks, reason)
}

func (m *fakeMetrics) TokenRefreshed(_ context.Context, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ok {
		m.refreshed++
	} else {
		m.refreshFailed++
	}
}

func (m *fakeMetrics) LoginRedirect(context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.redirects++
}

func (m *fakeMetrics) Redirects() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.redirects
}

// fakeIDP is an identity.Provider with canned responses.
type fakeIDP struct {
	mu           sync.Mutex
	discoverErr  error
	discovers    int
	exchangeErr  error
	exchanged    *identity.Tokens
	refreshErr   error
	refreshed    *identity.Tokens
	refreshCalls int
	refreshGate  chan struct{} // when set, Refresh signals started and blocks until closed
	started      chan struct{}
	lastVerifier string
	verifiers    int
}

func (f *fakeIDP) Discover(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discovers++
	return f.discoverErr
}

func (f *fakeIDP) AuthCodeURL(state, verifier string) (string, error) {
	return "https://idp.test/auth?state=" + url.QueryEscape(state) + "&v=" + url.QueryEscape(verifier), nil
}

func (f *fakeIDP) Exchange(_ context.Context, _, verifier string) (*identity.Tokens, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastVerifier = verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	tok := *f.exchanged
	return &tok, nil
}

func (f *fakeIDP) Refresh(context.Context, string) (*identity.Tokens, error) {
	f.mu.Lock()
	f.refreshCalls++
	gate, started := f.refreshGate, f.started
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	tok := *f.refreshed
	return &tok, nil
}

func (f *fakeIDP) EndSessionURL(idToken string) string {
	return "https://idp.test/logout?id_token_hint=" + idToken
}

func (f *fakeIDP) NewVerifier() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.verifiers++
	return "verifier-" + string(rune('a'+f.verifiers))
}

func (f *fakeIDP) RefreshCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

// fakeRunner is a themebundle.Runner.
type fakeRunner struct {
	mu    sync.Mutex
	urls  []string
	theme *theme.Theme
	err   error

	gates   map[string]chan struct{} // per bundle URL; Run blocks until closed
	started chan string
}

func (f *fakeRunner) Run(_ context.Context, bundleURL string) (*theme.Theme, error) {
	f.mu.Lock()
	gate := f.gates[bundleURL]
	f.mu.Unlock()
	if gate != nil {
		f.started <- bundleURL
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, bundleURL)
	if f.err != nil {
		return nil, f.err
	}
	th := *f.theme
	return &th, nil
}

func (f *fakeRunner) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

// fakeCatalog is a marketplace.Catalog.
type fakeCatalog struct {
	mu          sync.Mutex
	all         []category.Category
	featured    []category.Category
	allErr      error
	featuredErr error
	tenantIDs   []string
}

func (f *fakeCatalog) ListCategories(_ context.Context, tenantID string) ([]category.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantIDs = append(f.tenantIDs, tenantID)
	if f.allErr != nil {
		return nil, f.allErr
	}
	return append([]category.Category(nil), f.all...), nil
}

func (f *fakeCatalog) FeaturedCategories(_ context.Context, tenantID string) ([]category.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tenantIDs = append(f.tenantIDs, tenantID)
	if f.featuredErr != nil {
		return nil, f.featuredErr
	}
	return append([]category.Category(nil), f.featured...), nil
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
