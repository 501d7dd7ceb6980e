package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/middleware"
)

type recordingLogin struct {
	mu    sync.Mutex
	calls []string
}

func (l *recordingLogin) RequireLogin(_ context.Context, sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, sessionID)
}

func (l *recordingLogin) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type captured struct {
	mu      sync.Mutex
	headers http.Header
}

func upstream(t *testing.T, status int, c *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.headers = r.Header.Clone()
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func decoratedClient(srv *httptest.Server, tenantID string, login middleware.LoginTrigger) *http.Client {
	return &http.Client{Transport: middleware.NewDecorator(srv.Client().Transport, staticTenant(tenantID), login, "/silent-refresh.html")}
}

func get(t *testing.T, c *http.Client, ctx context.Context, url string) (*http.Response, error) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := c.Do(req)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return resp, err
}

func authedCtx() context.Context {
	ctx := middleware.WithSessionID(context.Background(), "sess-1")
	return middleware.WithAccessToken(ctx, "tok-123")
}

func TestDecorator_AddsBearerAndCommunity(t *testing.T) {
	var c captured
	srv := upstream(t, http.StatusOK, &c)

	if _, err := get(t, decoratedClient(srv, "42", nil), authedCtx(), srv.URL+"/api/communities/42/listings"); err != nil {
		t.Fatal(err)
	}
	if got := c.headers.Get("Authorization"); got != "Bearer tok-123" {
		t.Fatalf("expected bearer header, got %q", got)
	}
	if got := c.headers.Get(middleware.HeaderCommunityContext); got != "42" {
		t.Fatalf("expected community 42, got %q", got)
	}
}

func TestDecorator_NoTokenNoAuthorization(t *testing.T) {
	var c captured
	srv := upstream(t, http.StatusOK, &c)

	if _, err := get(t, decoratedClient(srv, "0", nil), context.Background(), srv.URL+"/api/communities/info"); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.headers["Authorization"]; ok {
		t.Fatal("expected no Authorization header without a token")
	}
	if got := c.headers.Get(middleware.HeaderCommunityContext); got != "0" {
		t.Fatalf("expected sentinel community 0, got %q", got)
	}
}

func TestDecorator_SkipsAssetsAndSilentRefresh(t *testing.T) {
	for _, path := range []string{"/assets/img/logo.png", "/cmn/assets/x.css", "/silent-refresh.html"} {
		t.Run(path, func(t *testing.T) {
			var c captured
			srv := upstream(t, http.StatusOK, &c)

			if _, err := get(t, decoratedClient(srv, "42", nil), authedCtx(), srv.URL+path); err != nil {
				t.Fatal(err)
			}
			if _, ok := c.headers["Authorization"]; ok {
				t.Fatal("asset request must never carry Authorization")
			}
			if _, ok := c.headers[middleware.HeaderCommunityContext]; ok {
				t.Fatal("asset request must not carry the community header")
			}
		})
	}
}

func TestDecorator_UnauthorizedTriggersLoginOnce(t *testing.T) {
	var c captured
	srv := upstream(t, http.StatusUnauthorized, &c)
	login := &recordingLogin{}

	_, err := get(t, decoratedClient(srv, "42", login), authedCtx(), srv.URL+"/api/me/orders")
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if login.count() != 1 {
		t.Fatalf("expected exactly one login trigger, got %d", login.count())
	}
	if login.calls[0] != "sess-1" {
		t.Fatalf("expected session id passed, got %q", login.calls[0])
	}
}

func TestDecorator_OtherStatusesPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		var c captured
		srv := upstream(t, status, &c)
		login := &recordingLogin{}

		resp, err := get(t, decoratedClient(srv, "42", login), authedCtx(), srv.URL+"/api/listings")
		if err != nil {
			t.Fatalf("status %d: unexpected error %v", status, err)
		}
		if resp.StatusCode != status {
			t.Fatalf("expected %d, got %d", status, resp.StatusCode)
		}
		if login.count() != 0 {
			t.Fatalf("status %d must not trigger login", status)
		}
	}
}

func TestDecorator_UnauthorizedOutsideAPIPassesThrough(t *testing.T) {
	var c captured
	srv := upstream(t, http.StatusUnauthorized, &c)
	login := &recordingLogin{}

	resp, err := get(t, decoratedClient(srv, "42", login), authedCtx(), srv.URL+"/health")
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized || login.count() != 0 {
		t.Fatalf("expected plain 401 without login trigger, got %d / %d", resp.StatusCode, login.count())
	}
}
