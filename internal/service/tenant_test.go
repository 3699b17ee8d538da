package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/port/cache"
)

func (m *mockStore) CreateTenant(_ context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	for _, t := range m.tenants {
		if t.Slug == req.Slug {
			return nil, domain.ErrAlreadyExists
		}
	}
	limits := req.Limits
	if limits.IsZero() {
		limits = quota.DefaultLimits
	}
	t := &tenant.Tenant{
		ID:       "tenant-" + req.Slug,
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: true,
		Limits:   limits,
	}
	m.tenants[t.ID] = t
	cp := *t
	return &cp, nil
}

func (m *mockStore) UpdateTenant(_ context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if req.Name != "" {
		t.Name = req.Name
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}
	if req.Limits != nil {
		t.Limits = *req.Limits
	}
	cp := *t
	return &cp, nil
}

func newTestTenants(store *mockStore, c *memCache) *TenantService {
	auditor := NewAuditor(store, nil, testLogger(), nil)
	var cc cache.Cache
	if c != nil {
		cc = c
	}
	return NewTenantService(store, cc, auditor, testLogger(), time.Minute)
}

func TestTenantCreateRejectsInvalidSlug(t *testing.T) {
	svc := newTestTenants(newMockStore(), nil)

	for _, slug := range []string{"", "ab", "-leading", "trailing-", "UPPER", "has space", "has_underscore"} {
		if _, err := svc.Create(context.Background(), tenant.CreateRequest{Name: "T", Slug: slug}); err == nil {
			t.Errorf("slug %q: expected error", slug)
		}
	}
}

func TestTenantCreateValid(t *testing.T) {
	store := newMockStore()
	svc := newTestTenants(store, nil)

	created, err := svc.Create(context.Background(), tenant.CreateRequest{Name: "Acme", Slug: "acme-prod"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.Limits != quota.DefaultLimits {
		t.Errorf("Limits = %+v, want defaults", created.Limits)
	}

	// Creation is recorded under the new tenant's own scope.
	events := store.auditEvents()
	if len(events) != 1 || events[0].TenantID != created.ID {
		t.Errorf("expected tenant_created event scoped to %s, got %+v", created.ID, events)
	}
}

func TestTenantGetServesFromCache(t *testing.T) {
	store := newMockStore()
	store.tenants["tenant-1"] = &tenant.Tenant{ID: "tenant-1", Name: "Old", Slug: "t", IsActive: true}
	svc := newTestTenants(store, newMemCache())

	if _, err := svc.GetTenant(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("GetTenant: %v", err)
	}

	// Mutate the backing store; the cached copy must still be served.
	store.tenants["tenant-1"].Name = "New"

	got, err := svc.GetTenant(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if got.Name != "Old" {
		t.Errorf("Name = %q, want cached %q", got.Name, "Old")
	}
}

func TestTenantUpdateInvalidatesCache(t *testing.T) {
	store := newMockStore()
	store.tenants["tenant-1"] = &tenant.Tenant{ID: "tenant-1", Name: "Old", Slug: "t", IsActive: true}
	svc := newTestTenants(store, newMemCache())

	if _, err := svc.GetTenant(context.Background(), "tenant-1"); err != nil {
		t.Fatalf("GetTenant: %v", err)
	}

	if _, err := svc.Update(context.Background(), "tenant-1", tenant.UpdateRequest{Name: "New"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := svc.GetTenant(context.Background(), "tenant-1")
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if got.Name != "New" {
		t.Errorf("Name = %q, want %q after invalidation", got.Name, "New")
	}
}

func TestTenantLimitsRequiresBoundTenant(t *testing.T) {
	svc := newTestTenants(newMockStore(), nil)

	_, err := svc.Limits(context.Background())
	if !errors.Is(err, domain.ErrMissingContext) {
		t.Fatalf("expected ErrMissingContext, got %v", err)
	}
}

func TestTenantLimitsSuspendedTenant(t *testing.T) {
	store := newMockStore()
	store.tenants["tenant-1"] = &tenant.Tenant{ID: "tenant-1", Slug: "t", IsActive: false}
	svc := newTestTenants(store, nil)

	if _, err := svc.Limits(boundCtx("tenant-1")); err == nil {
		t.Fatal("expected error for suspended tenant")
	}
}
