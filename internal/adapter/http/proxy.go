package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/roumanok/junto-tic-frontend-sub000/internal/domain"
	"github.com/roumanok/junto-tic-frontend-sub000/internal/logger"
)

// NewAPIProxy returns a reverse proxy that forwards /api/<path> to
// <apiBase>/<path> through transport, which is expected to be the request
// decorator. The browser's cookies never reach the API.
func NewAPIProxy(apiBase *url.URL, transport http.RoundTripper) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.Out.URL.Path = strings.TrimPrefix(pr.In.URL.Path, "/api")
			pr.Out.URL.RawPath = ""
			pr.SetURL(apiBase)
			pr.SetXForwarded()
			pr.Out.Header.Del("Cookie")
			pr.Out.Header.Del("Authorization")
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				writeDomainError(w, r, err, "")
			case errors.Is(err, context.Canceled):
				// Client went away, typically a superseded navigation.
				logger.From(r.Context()).Debug("proxied request cancelled", "path", r.URL.Path)
			default:
				logger.From(r.Context()).Warn("proxied request failed", "path", r.URL.Path, "error", err)
				writeError(w, http.StatusBadGateway, domain.MessageForStatus(0))
			}
		},
	}
}
