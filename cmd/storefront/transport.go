package main

import (
	"net/http"
	"sync/atomic"
)

// lateTransport forwards to a RoundTripper installed after construction.
type lateTransport struct {
	rt atomic.Pointer[http.RoundTripper]
}

func (t *lateTransport) set(rt http.RoundTripper) { t.rt.Store(&rt) }

func (t *lateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt := t.rt.Load(); rt != nil {
		return (*rt).RoundTrip(req)
	}
	return http.DefaultTransport.RoundTrip(req)
}
