package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
)

// AppendAudit inserts an audit event into the acting tenant's trail.
// The table is append-only; there is no update or delete path.
func (s *Store) AppendAudit(ctx context.Context, ev audit.Event) error {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_log (id, tenant_id, user_id, api_key_id, action, resource_type, resource_id, changes, ip_address, user_agent, request_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ev.ID, tid, nullIfEmpty(ev.UserID), nullIfEmpty(ev.APIKeyID),
		ev.Action, ev.ResourceType, nullIfEmpty(ev.ResourceID), ev.Changes,
		ev.IPAddress, ev.UserAgent, ev.RequestID, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit: %w", err)
	}
	return nil
}

// LoadAudit returns a cursor-paginated page of the acting tenant's audit
// events, newest first.
func (s *Store) LoadAudit(ctx context.Context, f audit.Filter) (*audit.Page, error) {
	tid, err := tenantFromCtx(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}

	limit := clampLimit(f.Limit)

	args := []any{tid}
	conditions := []string{"tenant_id = $1"}
	argIdx := 2

	if f.Action != "" {
		conditions = append(conditions, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, f.Action)
		argIdx++
	}
	if f.ResourceType != "" {
		conditions = append(conditions, fmt.Sprintf("resource_type = $%d", argIdx))
		args = append(args, f.ResourceType)
		argIdx++
	}
	if !f.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, f.From)
		argIdx++
	}
	if !f.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, f.To)
		argIdx++
	}
	if f.Cursor != "" {
		if !validUUID(f.Cursor) {
			return nil, fmt.Errorf("load audit: %w: invalid cursor", domain.ErrValidation)
		}
		// Cursor is the id of the last event of the previous page; rows are
		// ordered newest first, so we continue strictly below it. The subquery
		// is tenant-filtered: another tenant's event id resolves to no row and
		// the page comes back empty, same as any unknown cursor.
		conditions = append(conditions,
			fmt.Sprintf("(created_at, id) < (SELECT created_at, id FROM audit_log WHERE id = $%d AND tenant_id = $1)", argIdx))
		args = append(args, f.Cursor)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	// Fetch limit+1 to detect hasMore.
	fetchSQL := fmt.Sprintf(
		`SELECT id, tenant_id, COALESCE(user_id::text, ''), COALESCE(api_key_id::text, ''), action, resource_type, COALESCE(resource_id::text, ''), changes, ip_address, user_agent, request_id, created_at
		 FROM audit_log WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d`,
		where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("load audit: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		if err := rows.Scan(&e.ID, &e.TenantID, &e.UserID, &e.APIKeyID, &e.Action,
			&e.ResourceType, &e.ResourceID, &e.Changes, &e.IPAddress, &e.UserAgent,
			&e.RequestID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(events) > limit
	if hasMore {
		events = events[:limit]
	}

	var nextCursor string
	if hasMore && len(events) > 0 {
		nextCursor = events[len(events)-1].ID
	}

	return &audit.Page{
		Events:     events,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
