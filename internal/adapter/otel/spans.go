package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "monitorforge"

// StartAdmitSpan starts a span for a quota admit decision.
func StartAdmitSpan(ctx context.Context, tenantID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "quota.admit",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("quota.kind", kind),
		),
	)
}

// StartAuditSpan starts a span for an audit append.
func StartAuditSpan(ctx context.Context, tenantID, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "audit.append",
		trace.WithAttributes(
			attribute.String("tenant.id", tenantID),
			attribute.String("audit.action", action),
		),
	)
}

// StartResourceSpan starts a span for a tenant-scoped resource operation.
func StartResourceSpan(ctx context.Context, op, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, op,
		trace.WithAttributes(
			attribute.String("resource.kind", kind),
		),
	)
}
