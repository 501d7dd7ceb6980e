package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "storefront"

// StartTenantSpan starts a span for a tenant resolution.
func StartTenantSpan(ctx context.Context, lookupKey string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tenant.resolve",
		trace.WithAttributes(attribute.String("tenant.lookup_key", lookupKey)),
	)
}

// StartThemeSpan starts a span for a theme load.
func StartThemeSpan(ctx context.Context, slug string, version int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "theme.load",
		trace.WithAttributes(
			attribute.String("theme.slug", slug),
			attribute.Int("theme.version", version),
		),
	)
}

// StartBootstrapSpan starts the span covering one bootstrap run.
func StartBootstrapSpan(ctx context.Context, interactive bool) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "bootstrap",
		trace.WithAttributes(attribute.Bool("bootstrap.interactive", interactive)),
	)
}
