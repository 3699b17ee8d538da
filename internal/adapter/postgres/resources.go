package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
)

// tableDesc describes one resource kind to the generic repository: its
// table, columns, quota kind and how requests map to SQL arguments. All
// isolation logic lives in Repo itself; the descriptor contributes only the
// per-kind shape.
type tableDesc[T, C, U any] struct {
	table      string     // e.g. "tenant_monitors"
	name       string     // "monitor", for error messages
	quotaKind  quota.Kind // counter this kind draws from
	logicalCol string     // per-tenant logical id column, e.g. "monitor_id"
	columns    string     // SELECT column list
	scan       func(scannable) (*T, error)
	idOf       func(t *T) string

	insertSQL  string // INSERT ... RETURNING columns
	insertArgs func(id, tenantID string, req C) []any

	updateSQL  string // UPDATE ... WHERE id=$1 AND tenant_id=$2 RETURNING columns
	updateArgs func(id, tenantID string, req U) []any

	// ref names the row another tenant resource this create refers to, or
	// "" when the kind is standalone. Ownership is verified inside the
	// create transaction.
	ref func(req C) (refTable, refName, refID string)

	// parent* describe the owning row for kinds listed under a parent
	// (triggers under their monitor). Empty parentCol means the kind has no
	// such view.
	parentTable string
	parentName  string
	parentCol   string

	// admitPeriod is the ledger period key charged on create; releasePeriod
	// the one credited on delete.
	admitPeriod   func(req C) string
	releasePeriod func(t *T) string

	limitFor func(l quota.Limits) int64

	// onDelete runs inside the delete transaction after the row is gone,
	// for kind-specific cleanup. May be nil.
	onDelete func(ctx context.Context, tx pgx.Tx, tenantID string, t *T) error
}

// Repo is the tenant-scoped repository facade, instantiated once per
// resource kind. Every query is unconditionally constrained by the tenant
// bound to the context; a row owned by another tenant is indistinguishable
// from an absent one. Creates admit quota atomically in the insert
// transaction; deletes release it in the delete transaction.
type Repo[T, C, U any] struct {
	pool *pgxpool.Pool
	desc tableDesc[T, C, U]
}

// Create verifies cross-resource references, admits quota and inserts the
// row in one transaction. Everything rolls back together: a failed insert
// never leaves a charged counter behind.
func (r *Repo[T, C, U]) Create(ctx context.Context, req C) (*T, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.desc.name, err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("create %s: %v: %w", r.desc.name, err, domain.ErrStorageUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	limits, err := tenantLimits(ctx, tx, tid)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", r.desc.name, err)
	}

	if r.desc.ref != nil {
		refTable, refName, refID := r.desc.ref(req)
		if err := checkOwnership(ctx, tx, tid, refTable, refName, refID); err != nil {
			return nil, fmt.Errorf("create %s: %w", r.desc.name, err)
		}
	}

	period := r.desc.admitPeriod(req)
	if _, err := admitOn(ctx, tx, tid, r.desc.quotaKind, period, 1, r.desc.limitFor(limits)); err != nil {
		return nil, fmt.Errorf("create %s: %w", r.desc.name, err)
	}

	id := uuid.NewString()
	row := tx.QueryRow(ctx, r.desc.insertSQL, r.desc.insertArgs(id, tid, req)...)
	t, err := r.desc.scan(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create %s: %w", r.desc.name, domain.ErrAlreadyExists)
		}
		return nil, fmt.Errorf("create %s: %w", r.desc.name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("create %s: %v: %w", r.desc.name, err, domain.ErrStorageUnavailable)
	}
	return t, nil
}

func (r *Repo[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.desc.name, err)
	}
	if !validUUID(id) {
		return nil, fmt.Errorf("get %s %s: %w", r.desc.name, id, domain.ErrNotFound)
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+r.desc.columns+` FROM `+r.desc.table+` WHERE id = $1 AND tenant_id = $2`,
		id, tid)

	t, err := r.desc.scan(row)
	if err != nil {
		return nil, notFoundWrap(err, "get %s %s", r.desc.name, id)
	}
	return t, nil
}

func (r *Repo[T, C, U]) GetByLogicalID(ctx context.Context, logicalID string) (*T, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", r.desc.name, err)
	}

	row := r.pool.QueryRow(ctx,
		`SELECT `+r.desc.columns+` FROM `+r.desc.table+
			` WHERE `+r.desc.logicalCol+` = $1 AND tenant_id = $2`,
		logicalID, tid)

	t, err := r.desc.scan(row)
	if err != nil {
		return nil, notFoundWrap(err, "get %s %s", r.desc.name, logicalID)
	}
	return t, nil
}

// List returns a cursor-paginated page ordered by row id; the returned
// cursor is empty on the last page.
func (r *Repo[T, C, U]) List(ctx context.Context, cursor string, limit int) ([]T, string, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list %ss: %w", r.desc.name, err)
	}
	if cursor != "" && !validUUID(cursor) {
		return nil, "", fmt.Errorf("list %ss: %w: invalid cursor", r.desc.name, domain.ErrValidation)
	}

	limit = clampLimit(limit)

	rows, err := r.pool.Query(ctx,
		`SELECT `+r.desc.columns+` FROM `+r.desc.table+`
		 WHERE tenant_id = $1 AND ($2 = '' OR id > $2::uuid)
		 ORDER BY id ASC LIMIT $3`,
		tid, cursor, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list %ss: %w", r.desc.name, err)
	}
	return r.readPage(rows, limit)
}

// ListByParent returns the page of rows under one parent row. The parent is
// resolved within the acting tenant first, so a foreign parent reads as
// absent rather than an empty page.
func (r *Repo[T, C, U]) ListByParent(ctx context.Context, parentID, cursor string, limit int) ([]T, string, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list %ss: %w", r.desc.name, err)
	}
	if r.desc.parentCol == "" {
		return nil, "", fmt.Errorf("list %ss: %w", r.desc.name, domain.ErrNotFound)
	}
	if !validUUID(parentID) {
		return nil, "", fmt.Errorf("list %ss: %s %s: %w", r.desc.name, r.desc.parentName, parentID, domain.ErrNotFound)
	}
	if cursor != "" && !validUUID(cursor) {
		return nil, "", fmt.Errorf("list %ss: %w: invalid cursor", r.desc.name, domain.ErrValidation)
	}

	limit = clampLimit(limit)

	var one int
	err = r.pool.QueryRow(ctx,
		`SELECT 1 FROM `+r.desc.parentTable+` WHERE id = $1 AND tenant_id = $2`,
		parentID, tid).Scan(&one)
	if err != nil {
		return nil, "", notFoundWrap(err, "%s %s", r.desc.parentName, parentID)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+r.desc.columns+` FROM `+r.desc.table+`
		 WHERE tenant_id = $1 AND `+r.desc.parentCol+` = $2 AND ($3 = '' OR id > $3::uuid)
		 ORDER BY id ASC LIMIT $4`,
		tid, parentID, cursor, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list %ss: %w", r.desc.name, err)
	}
	return r.readPage(rows, limit)
}

// readPage drains rows into a page of at most limit items, using the extra
// fetched row to decide whether a next cursor exists.
func (r *Repo[T, C, U]) readPage(rows pgx.Rows, limit int) ([]T, string, error) {
	defer rows.Close()

	var items []T
	for rows.Next() {
		t, err := r.desc.scan(rows)
		if err != nil {
			return nil, "", fmt.Errorf("scan %s: %w", r.desc.name, err)
		}
		items = append(items, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	var next string
	if len(items) > limit {
		items = items[:limit]
		next = r.desc.idOf(&items[len(items)-1])
	}
	return items, next, nil
}

func (r *Repo[T, C, U]) Update(ctx context.Context, id string, req U) (*T, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", r.desc.name, err)
	}
	if !validUUID(id) {
		return nil, fmt.Errorf("update %s %s: %w", r.desc.name, id, domain.ErrNotFound)
	}

	row := r.pool.QueryRow(ctx, r.desc.updateSQL, r.desc.updateArgs(id, tid, req)...)
	t, err := r.desc.scan(row)
	if err != nil {
		return nil, notFoundWrap(err, "update %s %s", r.desc.name, id)
	}
	return t, nil
}

// Delete removes the row and releases its quota in the same transaction.
func (r *Repo[T, C, U]) Delete(ctx context.Context, id string) error {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %w", r.desc.name, err)
	}
	if !validUUID(id) {
		return fmt.Errorf("delete %s %s: %w", r.desc.name, id, domain.ErrNotFound)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("delete %s: %v: %w", r.desc.name, err, domain.ErrStorageUnavailable)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Load the row first; the release period may depend on it.
	row := tx.QueryRow(ctx,
		`SELECT `+r.desc.columns+` FROM `+r.desc.table+` WHERE id = $1 AND tenant_id = $2`,
		id, tid)
	t, err := r.desc.scan(row)
	if err != nil {
		return notFoundWrap(err, "delete %s %s", r.desc.name, id)
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM `+r.desc.table+` WHERE id = $1 AND tenant_id = $2`, id, tid)
	if err != nil {
		if isFKViolation(err) {
			return fmt.Errorf("delete %s %s: still referenced: %w", r.desc.name, id, domain.ErrConflict)
		}
		return fmt.Errorf("delete %s %s: %w", r.desc.name, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete %s %s: %w", r.desc.name, id, domain.ErrNotFound)
	}

	if err := releaseOn(ctx, tx, tid, r.desc.quotaKind, r.desc.releasePeriod(t), 1); err != nil {
		return fmt.Errorf("delete %s %s: %w", r.desc.name, id, err)
	}

	if r.desc.onDelete != nil {
		if err := r.desc.onDelete(ctx, tx, tid, t); err != nil {
			return fmt.Errorf("delete %s %s: %w", r.desc.name, id, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("delete %s %s: %v: %w", r.desc.name, id, err, domain.ErrStorageUnavailable)
	}
	return nil
}

// tenantLimits reads the tenant's quota ceilings inside the transaction.
func tenantLimits(ctx context.Context, q querier, tenantID string) (quota.Limits, error) {
	var l quota.Limits
	err := q.QueryRow(ctx,
		`SELECT max_monitors, max_networks, max_triggers_per_monitor,
		        max_rpc_requests_per_minute, max_storage_mb
		 FROM tenants WHERE id = $1 AND is_active`, tenantID).
		Scan(&l.MaxMonitors, &l.MaxNetworks, &l.MaxTriggersPerMonitor,
			&l.MaxRPCRequestsPerMinute, &l.MaxStorageMB)
	if err != nil {
		return quota.Limits{}, notFoundWrap(err, "tenant %s", tenantID)
	}
	return l, nil
}

// checkOwnership resolves the referenced row's owning tenant. A missing row
// is ErrNotFound; a row owned by someone else is ErrCrossTenantReference,
// the one place a foreign row is acknowledged, and only ever as a rejection.
func checkOwnership(ctx context.Context, q querier, tenantID, refTable, refName, refID string) error {
	if !validUUID(refID) {
		return fmt.Errorf("%s %s: %w", refName, refID, domain.ErrNotFound)
	}
	var owner string
	err := q.QueryRow(ctx,
		`SELECT tenant_id FROM `+refTable+` WHERE id = $1`, refID).Scan(&owner)
	if err != nil {
		return notFoundWrap(err, "%s %s", refName, refID)
	}
	if owner != tenantID {
		return fmt.Errorf("%s %s: %w", refName, refID, domain.ErrCrossTenantReference)
	}
	return nil
}
