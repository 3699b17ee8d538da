package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/port/cache"
	"github.com/Strob0t/MonitorForge/internal/port/database"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// TenantService manages the tenant lifecycle on the host plane. Lookups are
// served through an in-process cache because every authenticated request
// checks the tenant's existence and active flag.
type TenantService struct {
	store    database.Store
	cache    cache.Cache
	auditor  *Auditor
	logger   *slog.Logger
	cacheTTL time.Duration
}

// NewTenantService creates a TenantService. The cache may be nil; lookups
// then always hit the store.
func NewTenantService(store database.Store, c cache.Cache, auditor *Auditor, logger *slog.Logger, cacheTTL time.Duration) *TenantService {
	return &TenantService{store: store, cache: c, auditor: auditor, logger: logger, cacheTTL: cacheTTL}
}

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}[a-z0-9]$`)

// Create validates and creates a new tenant.
func (s *TenantService) Create(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if !slugRegex.MatchString(req.Slug) {
		return nil, fmt.Errorf("%w: invalid slug %q: must be 3-64 lowercase alphanumeric characters or hyphens", domain.ErrValidation, req.Slug)
	}

	t, err := s.store.CreateTenant(ctx, req)
	if err != nil {
		return nil, err
	}

	// The creating principal acts on the host plane, so the event is scoped
	// to the tenant that was just born.
	changes, _ := json.Marshal(map[string]string{"name": t.Name, "slug": t.Slug})
	s.auditor.Emit(s.scopeTo(ctx, t.ID), audit.Event{
		Action:       audit.ActionTenantCreated,
		ResourceType: "tenant",
		ResourceID:   t.ID,
		Changes:      changes,
	})
	return t, nil
}

// GetTenant returns a tenant by id, serving repeat lookups from cache.
func (s *TenantService) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	if t, ok := s.cached(ctx, id); ok {
		return t, nil
	}

	t, err := s.store.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, t)
	return t, nil
}

// GetBySlug returns a tenant by its slug.
func (s *TenantService) GetBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	return s.store.GetTenantBySlug(ctx, slug)
}

// List returns a cursor-paginated page of tenants.
func (s *TenantService) List(ctx context.Context, cursor string, limit int) ([]tenant.Tenant, string, error) {
	return s.store.ListTenants(ctx, cursor, limit)
}

// Update modifies a tenant and drops it from the cache so suspensions and
// limit changes take effect on the next request.
func (s *TenantService) Update(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	t, err := s.store.UpdateTenant(ctx, id, req)
	if err != nil {
		return nil, err
	}

	s.forget(ctx, id)

	changes, _ := json.Marshal(req)
	s.auditor.Emit(s.scopeTo(ctx, t.ID), audit.Event{
		Action:       audit.ActionTenantUpdated,
		ResourceType: "tenant",
		ResourceID:   t.ID,
		Changes:      changes,
	})
	return t, nil
}

// Limits returns the quota ceilings of the acting tenant.
func (s *TenantService) Limits(ctx context.Context) (quota.Limits, error) {
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return quota.Limits{}, err
	}
	t, err := s.GetTenant(ctx, tid)
	if err != nil {
		return quota.Limits{}, err
	}
	if !t.IsActive {
		return quota.Limits{}, errors.New("tenant is suspended")
	}
	return t.Limits, nil
}

// scopeTo binds ctx to tenantID, keeping the acting principal when the
// caller is already authenticated.
func (s *TenantService) scopeTo(ctx context.Context, tenantID string) context.Context {
	tc, err := tenantctx.FromContext(ctx)
	if err != nil {
		tc = tenantctx.TenantContext{}
	}
	tc.TenantID = tenantID
	return tenantctx.Bind(ctx, tc)
}

func (s *TenantService) cacheKey(id string) string { return "tenant:" + id }

func (s *TenantService) cached(ctx context.Context, id string) (*tenant.Tenant, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil || !ok {
		return nil, false
	}
	var t tenant.Tenant
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false
	}
	return &t, true
}

func (s *TenantService) remember(ctx context.Context, t *tenant.Tenant) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(t)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(t.ID), data, s.cacheTTL); err != nil {
		s.logger.Debug("tenant cache set failed", "tenant_id", t.ID, "error", err)
	}
}

func (s *TenantService) forget(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.logger.Debug("tenant cache delete failed", "tenant_id", id, "error", err)
	}
}
