package tenantctx

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
)

func TestFromContextUnbound(t *testing.T) {
	_, err := FromContext(context.Background())
	if !errors.Is(err, domain.ErrMissingContext) {
		t.Fatalf("expected ErrMissingContext, got %v", err)
	}

	_, err = TenantID(context.Background())
	if !errors.Is(err, domain.ErrMissingContext) {
		t.Fatalf("expected ErrMissingContext from TenantID, got %v", err)
	}
}

func TestBindAndRead(t *testing.T) {
	tc := TenantContext{
		TenantID:      "t-1",
		PrincipalID:   "u-1",
		PrincipalKind: PrincipalUser,
		Role:          tenant.RoleMember,
		RequestID:     "req-1",
	}
	ctx := Bind(context.Background(), tc)

	got, err := FromContext(ctx)
	if err != nil {
		t.Fatalf("FromContext: %v", err)
	}
	if got != tc {
		t.Fatalf("got %+v, want %+v", got, tc)
	}

	id, err := TenantID(ctx)
	if err != nil || id != "t-1" {
		t.Fatalf("TenantID = %q, %v", id, err)
	}
}

func TestNestedBindInnermostWins(t *testing.T) {
	outer := Bind(context.Background(), TenantContext{TenantID: "t-outer"})
	inner := Bind(outer, TenantContext{TenantID: "t-inner"})

	id, err := TenantID(inner)
	if err != nil || id != "t-inner" {
		t.Fatalf("inner scope: got %q, %v", id, err)
	}

	// The outer context is untouched by the inner bind.
	id, err = TenantID(outer)
	if err != nil || id != "t-outer" {
		t.Fatalf("outer scope: got %q, %v", id, err)
	}
}

func TestEmptyTenantIDRejected(t *testing.T) {
	ctx := Bind(context.Background(), TenantContext{})
	if _, err := FromContext(ctx); !errors.Is(err, domain.ErrMissingContext) {
		t.Fatalf("expected ErrMissingContext for empty tenant id, got %v", err)
	}
}

func TestDetach(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	ctx := Bind(base, TenantContext{TenantID: "t-1"})
	cancel()

	detached := Detach(ctx)
	if detached.Err() != nil {
		t.Fatalf("detached context should not inherit cancellation: %v", detached.Err())
	}
	if id, err := TenantID(detached); err != nil || id != "t-1" {
		t.Fatalf("detached scope: got %q, %v", id, err)
	}

	if Detach(context.Background()).Err() != nil {
		t.Fatal("detaching an unbound context must still return a live context")
	}
}
