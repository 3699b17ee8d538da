package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/resource"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

func boundCtx() context.Context {
	return tenantctx.Bind(context.Background(), tenantctx.TenantContext{
		TenantID:      "tenant-1",
		PrincipalID:   "user-1",
		PrincipalKind: tenantctx.PrincipalUser,
		Role:          tenant.RoleAdmin,
	})
}

// Malformed ids must be caught before they reach SQL, where Postgres would
// answer with a cast error (SQLSTATE 22P02) instead of a missing row. These
// repos have no pool; reaching the database would panic the test.
func TestRepoRejectsMalformedIDs(t *testing.T) {
	ctx := boundCtx()
	monitors := NewMonitorRepo(nil)
	triggers := NewTriggerRepo(nil)

	if _, err := monitors.Get(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Get: expected ErrNotFound, got %v", err)
	}
	if _, err := monitors.Update(ctx, "not-a-uuid", resource.UpdateMonitorRequest{}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Update: expected ErrNotFound, got %v", err)
	}
	if err := monitors.Delete(ctx, "not-a-uuid"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}

	// A bad cursor is the caller's pagination token, so it reads as a
	// validation failure rather than a missing row.
	if _, _, err := monitors.List(ctx, "junk-cursor", 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("List: expected ErrValidation, got %v", err)
	}

	if _, _, err := triggers.ListByParent(ctx, "junk-monitor", "", 10); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ListByParent parent: expected ErrNotFound, got %v", err)
	}
	if _, _, err := triggers.ListByParent(ctx, "5f0c1f34-9c7e-4a52-9d4e-111111111111", "junk-cursor", 10); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ListByParent cursor: expected ErrValidation, got %v", err)
	}
}

func TestListByParentWithoutParentKind(t *testing.T) {
	// Monitors are not nested under anything; the view reads as absent.
	monitors := NewMonitorRepo(nil)
	_, _, err := monitors.ListByParent(boundCtx(), "5f0c1f34-9c7e-4a52-9d4e-111111111111", "", 10)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCheckOwnershipRejectsMalformedRef(t *testing.T) {
	err := checkOwnership(context.Background(), nil, "tenant-1", "tenant_networks", "network", "junk")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadAuditRejectsMalformedCursor(t *testing.T) {
	store := NewStore(nil)
	_, err := store.LoadAudit(boundCtx(), audit.Filter{Cursor: "junk", Limit: 10})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
