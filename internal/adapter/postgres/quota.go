package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
)

// Ledger implements database.Ledger on the quota_counters table. One row per
// (tenant, kind, period); the admit statement is a single atomic
// increment-if-below-limit, so racing admits serialize on the row and can
// never overshoot the limit together.
type Ledger struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool *pgxpool.Pool, logger *slog.Logger) *Ledger {
	return &Ledger{pool: pool, logger: logger}
}

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, letting
// admits and releases join an enclosing transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// admitSQL inserts the counter row at n when absent, otherwise increments it,
// in both cases only if the result stays within the limit. Zero rows back
// means the admit was rejected.
const admitSQL = `
	INSERT INTO quota_counters AS qc (tenant_id, resource_kind, period_key, used_count)
	SELECT $1, $2, $3, $4 WHERE $4 <= $5
	ON CONFLICT (tenant_id, resource_kind, period_key)
	DO UPDATE SET used_count = qc.used_count + $4, updated_at = now()
	WHERE qc.used_count + $4 <= $5
	RETURNING used_count`

// admitOn runs the atomic admit against q, which may be the pool or an open
// transaction. On rejection it returns a *domain.QuotaExceededError carrying
// the usage observed at decision time. Storage failure is a rejection too
// (fail closed), reported as domain.ErrStorageUnavailable.
func admitOn(ctx context.Context, q querier, tenantID string, kind quota.Kind, periodKey string, n, limit int64) (int64, error) {
	var used int64
	err := q.QueryRow(ctx, admitSQL, tenantID, kind, periodKey, n, limit).Scan(&used)
	if err == nil {
		return used, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("quota admit %s: %v: %w", kind, err, domain.ErrStorageUnavailable)
	}

	// Rejected. Read the current usage for the error payload; if even that
	// fails we still reject, with usage unknown.
	var current int64
	if err := q.QueryRow(ctx,
		`SELECT COALESCE((SELECT used_count FROM quota_counters
		  WHERE tenant_id = $1 AND resource_kind = $2 AND period_key = $3), 0)`,
		tenantID, kind, periodKey).Scan(&current); err != nil {
		current = -1
	}
	return 0, &domain.QuotaExceededError{Kind: string(kind), Current: current, Limit: limit}
}

// releaseOn decrements the counter, never below zero. A missing row is a
// no-op: releasing what was never admitted must not create negative debt.
func releaseOn(ctx context.Context, q querier, tenantID string, kind quota.Kind, periodKey string, n int64) error {
	_, err := q.Exec(ctx,
		`UPDATE quota_counters
		 SET used_count = GREATEST(used_count - $4, 0), updated_at = now()
		 WHERE tenant_id = $1 AND resource_kind = $2 AND period_key = $3`,
		tenantID, kind, periodKey, n)
	if err != nil {
		return fmt.Errorf("quota release %s: %v: %w", kind, err, domain.ErrStorageUnavailable)
	}
	return nil
}

// Admit atomically admits n units for the acting tenant.
func (l *Ledger) Admit(ctx context.Context, kind quota.Kind, periodKey string, n, limit int64) (int64, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return 0, fmt.Errorf("quota admit: %w", err)
	}
	return admitOn(ctx, l.pool, tid, kind, periodKey, n, limit)
}

// Release returns n units to the acting tenant's counter.
func (l *Ledger) Release(ctx context.Context, kind quota.Kind, periodKey string, n int64) error {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return fmt.Errorf("quota release: %w", err)
	}
	return releaseOn(ctx, l.pool, tid, kind, periodKey, n)
}

// Used returns the acting tenant's current usage for (kind, periodKey).
func (l *Ledger) Used(ctx context.Context, kind quota.Kind, periodKey string) (int64, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return 0, fmt.Errorf("quota used: %w", err)
	}

	var used int64
	err = l.pool.QueryRow(ctx,
		`SELECT COALESCE((SELECT used_count FROM quota_counters
		  WHERE tenant_id = $1 AND resource_kind = $2 AND period_key = $3), 0)`,
		tid, kind, periodKey).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("quota used %s: %v: %w", kind, err, domain.ErrStorageUnavailable)
	}
	return used, nil
}

// StartCleanup launches a background goroutine that drops expired
// rate-window counter rows. Count kinds never expire and are untouched.
// The goroutine stops when ctx is cancelled.
func (l *Ledger) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := quota.MinutePeriod(time.Now().Add(-5 * time.Minute))
				tag, err := l.pool.Exec(ctx,
					`DELETE FROM quota_counters
					 WHERE resource_kind = $1 AND period_key < $2`,
					quota.KindRPCRequests, cutoff)
				if err != nil {
					l.logger.Warn("quota counter cleanup failed", "error", err)
					continue
				}
				if n := tag.RowsAffected(); n > 0 {
					l.logger.Debug("expired quota counters removed", "rows", n)
				}
			}
		}
	}()
}
