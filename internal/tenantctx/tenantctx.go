// Package tenantctx carries the acting tenant through a request's call tree.
//
// Every tenant-scoped operation reads its tenant from the context; there is
// no way to name a tenant explicitly at a call site and no default tenant.
// Code running outside a bound scope gets domain.ErrMissingContext, never a
// silently wrong answer.
package tenantctx

import (
	"context"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
)

// PrincipalKind tells what kind of credential authenticated the request.
type PrincipalKind string

const (
	PrincipalUser   PrincipalKind = "user"
	PrincipalAPIKey PrincipalKind = "api_key"
)

// TenantContext identifies the acting tenant and principal for one request.
// It is immutable; derive a new context with Bind to change it.
type TenantContext struct {
	TenantID      string
	PrincipalID   string
	PrincipalKind PrincipalKind
	Role          tenant.Role
	RequestID     string
}

type ctxKey struct{}

// Bind returns a child context scoped to tc. Nested binds shadow outer ones;
// the outer scope is restored when the inner context goes out of scope.
func Bind(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, tc)
}

// FromContext returns the bound tenant context. It fails with
// domain.ErrMissingContext when none is bound; callers must propagate that
// failure, not substitute a default.
func FromContext(ctx context.Context) (TenantContext, error) {
	tc, ok := ctx.Value(ctxKey{}).(TenantContext)
	if !ok || tc.TenantID == "" {
		return TenantContext{}, domain.ErrMissingContext
	}
	return tc, nil
}

// TenantID is a shorthand for the common case of needing only the tenant id.
func TenantID(ctx context.Context) (string, error) {
	tc, err := FromContext(ctx)
	if err != nil {
		return "", err
	}
	return tc.TenantID, nil
}

// Detach returns a context carrying tc but none of parent's deadline or
// cancellation. Background work spawned from a request uses this so the
// tenant scope survives the response being written.
func Detach(ctx context.Context) context.Context {
	tc, err := FromContext(ctx)
	if err != nil {
		return context.Background()
	}
	return Bind(context.Background(), tc)
}
