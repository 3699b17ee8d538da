package postgres

import (
	"context"
	"fmt"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
)

// tenantColumns is the SELECT column list for tenants queries.
const tenantColumns = `id, name, slug, is_active,
	max_monitors, max_networks, max_triggers_per_monitor,
	max_rpc_requests_per_minute, max_storage_mb,
	created_at, updated_at`

func scanTenant(row scannable) (*tenant.Tenant, error) {
	var t tenant.Tenant
	err := row.Scan(
		&t.ID, &t.Name, &t.Slug, &t.IsActive,
		&t.Limits.MaxMonitors, &t.Limits.MaxNetworks, &t.Limits.MaxTriggersPerMonitor,
		&t.Limits.MaxRPCRequestsPerMinute, &t.Limits.MaxStorageMB,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateTenant inserts a new tenant. Missing limits fall back to the
// configured defaults before insert.
func (s *Store) CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error) {
	limits := req.Limits
	if limits.IsZero() {
		limits = quota.DefaultLimits
	}

	row := s.pool.QueryRow(ctx,
		`INSERT INTO tenants (name, slug, max_monitors, max_networks, max_triggers_per_monitor, max_rpc_requests_per_minute, max_storage_mb)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+tenantColumns,
		req.Name, req.Slug,
		limits.MaxMonitors, limits.MaxNetworks, limits.MaxTriggersPerMonitor,
		limits.MaxRPCRequestsPerMinute, limits.MaxStorageMB)

	t, err := scanTenant(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create tenant %s: %w", req.Slug, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create tenant %s: %w", req.Slug, err)
	}
	return t, nil
}

func (s *Store) GetTenant(ctx context.Context, id string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = $1`, id)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "get tenant %s", id)
	}
	return t, nil
}

func (s *Store) GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE slug = $1`, slug)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "get tenant by slug %s", slug)
	}
	return t, nil
}

// ListTenants returns a cursor-paginated page of tenants ordered by id.
func (s *Store) ListTenants(ctx context.Context, cursor string, limit int) ([]tenant.Tenant, string, error) {
	limit = clampLimit(limit)

	rows, err := s.pool.Query(ctx,
		`SELECT `+tenantColumns+` FROM tenants
		 WHERE ($1 = '' OR id > $1::uuid)
		 ORDER BY id ASC LIMIT $2`,
		cursor, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []tenant.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(tenants) > limit {
		tenants = tenants[:limit]
		next = tenants[len(tenants)-1].ID
	}
	return tenants, next, nil
}

// UpdateTenant applies the non-empty fields of req. COALESCE keeps the
// stored value when a field was not provided.
func (s *Store) UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error) {
	var (
		maxMonitors, maxNetworks, maxTriggers, maxRPC, maxStorage *int64
	)
	if req.Limits != nil {
		maxMonitors = &req.Limits.MaxMonitors
		maxNetworks = &req.Limits.MaxNetworks
		maxTriggers = &req.Limits.MaxTriggersPerMonitor
		maxRPC = &req.Limits.MaxRPCRequestsPerMinute
		maxStorage = &req.Limits.MaxStorageMB
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE tenants SET
			name = COALESCE(NULLIF($2, ''), name),
			is_active = COALESCE($3, is_active),
			max_monitors = COALESCE($4, max_monitors),
			max_networks = COALESCE($5, max_networks),
			max_triggers_per_monitor = COALESCE($6, max_triggers_per_monitor),
			max_rpc_requests_per_minute = COALESCE($7, max_rpc_requests_per_minute),
			max_storage_mb = COALESCE($8, max_storage_mb),
			updated_at = now()
		 WHERE id = $1
		 RETURNING `+tenantColumns,
		id, req.Name, req.IsActive,
		maxMonitors, maxNetworks, maxTriggers, maxRPC, maxStorage)

	t, err := scanTenant(row)
	if err != nil {
		return nil, notFoundWrap(err, "update tenant %s", id)
	}
	return t, nil
}
