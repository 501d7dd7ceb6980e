package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "storefront"

// Metrics holds the storefront's metric instruments. It satisfies
// service.Metrics.
type Metrics struct {
	tenantResolutions metric.Int64Counter
	themeCacheHits    metric.Int64Counter
	themeFallbacks    metric.Int64Counter
	tokenRefreshes    metric.Int64Counter
	loginRedirects    metric.Int64Counter
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.tenantResolutions, err = meter.Int64Counter("storefront.tenant.resolutions",
		metric.WithDescription("Tenant resolution attempts by outcome"))
	if err != nil {
		return nil, err
	}

	m.themeCacheHits, err = meter.Int64Counter("storefront.theme.cache_hits",
		metric.WithDescription("Theme loads served from cache"))
	if err != nil {
		return nil, err
	}

	m.themeFallbacks, err = meter.Int64Counter("storefront.theme.fallbacks",
		metric.WithDescription("Theme loads that fell back to the built-in theme"))
	if err != nil {
		return nil, err
	}

	m.tokenRefreshes, err = meter.Int64Counter("storefront.session.token_refreshes",
		metric.WithDescription("Silent token refreshes by outcome"))
	if err != nil {
		return nil, err
	}

	m.loginRedirects, err = meter.Int64Counter("storefront.session.login_redirects",
		metric.WithDescription("Sessions sent back through the login redirect"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func outcome(ok bool) metric.AddOption {
	if ok {
		return metric.WithAttributes(attribute.String("outcome", "ok"))
	}
	return metric.WithAttributes(attribute.String("outcome", "error"))
}

func (m *Metrics) TenantResolved(ctx context.Context, ok bool) {
	m.tenantResolutions.Add(ctx, 1, outcome(ok))
}

func (m *Metrics) ThemeCacheHit(ctx context.Context) {
	m.themeCacheHits.Add(ctx, 1)
}

func (m *Metrics) ThemeFallback(ctx context.Context, reason string) {
	m.themeFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) TokenRefreshed(ctx context.Context, ok bool) {
	m.tokenRefreshes.Add(ctx, 1, outcome(ok))
}

func (m *Metrics) LoginRedirect(ctx context.Context) {
	m.loginRedirects.Add(ctx, 1)
}
