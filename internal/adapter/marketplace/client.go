// Package marketplace provides an HTTP client for the marketplace REST API.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/category"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain/tenant"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/port/marketplace"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/resilience"
)

// maxBody bounds how much of a response is read.
const maxBody = 8 << 20

// Client talks to the marketplace REST API. Bearer and community headers are
// added by the transport of the injected http.Client, not here.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

var (
	_ marketplace.TenantDirectory = (*Client)(nil)
	_ marketplace.Catalog         = (*Client)(nil)
)

// NewClient creates a marketplace API client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// TenantInfo resolves the community served under the host-derived key.
func (c *Client) TenantInfo(ctx context.Context, domainKey string) (*tenant.Tenant, error) {
	q := url.Values{"domain": {domainKey}}
	raw, err := Get[json.RawMessage](ctx, c, "/communities/info", q)
	if err != nil {
		return nil, fmt.Errorf("tenant info %q: %w", domainKey, err)
	}
	t := parseTenant(gjson.ParseBytes(*raw))
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("tenant info %q: %w: %w", domainKey, domain.ErrValidation, err)
	}
	return t, nil
}

// ListCategories returns the community's full flat category list.
func (c *Client) ListCategories(ctx context.Context, tenantID string) ([]category.Category, error) {
	return c.categories(ctx, "/communities/"+url.PathEscape(tenantID)+"/categories")
}

// FeaturedCategories returns the community's featured categories.
func (c *Client) FeaturedCategories(ctx context.Context, tenantID string) ([]category.Category, error) {
	return c.categories(ctx, "/communities/"+url.PathEscape(tenantID)+"/categories/featured")
}

func (c *Client) categories(ctx context.Context, path string) ([]category.Category, error) {
	page, err := List[json.RawMessage](ctx, c, path, nil)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]category.Category, 0, len(page.Items))
	for _, item := range page.Items {
		out = append(out, parseCategory(gjson.ParseBytes(item)))
	}
	return out, nil
}

// Page is one page of a list endpoint. Pagination is nil for bare arrays.
type Page[T any] struct {
	Items      []T                     `json:"items"`
	Pagination *marketplace.Pagination `json:"pagination,omitempty"`
}

// List fetches a list endpoint that returns either a bare array or an
// {items, pagination} envelope.
func List[T any](ctx context.Context, c *Client, path string, query url.Values) (*Page[T], error) {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	items, pg, err := splitList(body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	page := &Page[T]{Pagination: pg}
	if err := json.Unmarshal(items, &page.Items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return page, nil
}

// Get fetches a detail endpoint that returns either a bare object or an
// {items: T} envelope.
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (*T, error) {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal(unwrapOne(body), &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &v, nil
}

// Health reports whether the API answers.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil, nil)
	return err
}

// callerFault reports errors that say nothing about the API's health.
func callerFault(err error) bool {
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return true
	}
	var apiErr *domain.APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	var result []byte
	call := func() error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				return domain.ErrUnauthorized
			case ctx.Err() != nil:
				return ctx.Err()
			}
			return domain.NewAPIError(0, err.Error())
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		if err != nil {
			return domain.NewAPIError(0, "read response: "+err.Error())
		}

		if resp.StatusCode >= 400 {
			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("%w: %w", domain.ErrNotFound, domain.NewAPIError(resp.StatusCode, string(data)))
			}
			return domain.NewAPIError(resp.StatusCode, string(data))
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.Execute(call, callerFault); err != nil {
			if errors.Is(err, resilience.ErrCircuitOpen) {
				return nil, fmt.Errorf("%w: %w", domain.NewAPIError(0, "circuit open"), err)
			}
			return nil, err
		}
		return result, nil
	}

	if err := call(); err != nil {
		return nil, err
	}
	return result, nil
}
