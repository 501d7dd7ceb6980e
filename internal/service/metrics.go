// Package service implements the storefront's bootstrap pipeline: tenant
// resolution, OIDC sessions, theme loading, catalog preloads and the
// restorable checkout state.
package service

import "context"

// Metrics receives the pipeline's counters. The otel adapter implements it.
type Metrics interface {
	TenantResolved(ctx context.Context, ok bool)
	ThemeCacheHit(ctx context.Context)
	ThemeFallback(ctx context.Context, reason string)
	TokenRefreshed(ctx context.Context, ok bool)
	LoginRedirect(ctx context.Context)
}

type nopMetrics struct{}

func (nopMetrics) TenantResolved(context.Context, bool)  {}
func (nopMetrics) ThemeCacheHit(context.Context)         {}
func (nopMetrics) ThemeFallback(context.Context, string) {}
func (nopMetrics) TokenRefreshed(context.Context, bool)  {}
func (nopMetrics) LoginRedirect(context.Context)         {}

func metricsOrNop(m Metrics) Metrics {
	if m == nil {
		return nopMetrics{}
	}
	return m
}
