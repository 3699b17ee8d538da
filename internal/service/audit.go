package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	mfotel "github.com/Strob0t/MonitorForge/internal/adapter/otel"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/logger"
	"github.com/Strob0t/MonitorForge/internal/port/database"
	"github.com/Strob0t/MonitorForge/internal/port/messagequeue"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// publishTimeout bounds queue writes once they are cut loose from the
// request context.
const publishTimeout = 5 * time.Second

// Auditor records audit events for the acting tenant. Recording is strictly
// best-effort: a failed append or publish is logged and counted but never
// surfaces to the operation that triggered it. The queue may be nil when
// event publishing is disabled.
type Auditor struct {
	store   database.Store
	queue   messagequeue.Queue
	logger  *slog.Logger
	metrics *mfotel.Metrics
}

// NewAuditor creates an audit emitter.
func NewAuditor(store database.Store, queue messagequeue.Queue, logger *slog.Logger, metrics *mfotel.Metrics) *Auditor {
	return &Auditor{store: store, queue: queue, logger: logger, metrics: metrics}
}

// Emit records one audit event. The acting principal and request id are
// filled in from the context; callers only provide what happened.
func (a *Auditor) Emit(ctx context.Context, ev audit.Event) {
	tc, err := tenantctx.FromContext(ctx)
	if err != nil {
		logger.FromContext(ctx, a.logger).Error("audit event without tenant scope dropped", "action", ev.Action)
		if a.metrics != nil {
			a.metrics.AuditFailures.Add(ctx, 1)
		}
		return
	}

	ev.ID = uuid.NewString()
	ev.TenantID = tc.TenantID
	ev.CreatedAt = time.Now().UTC()
	if ev.RequestID == "" {
		ev.RequestID = tc.RequestID
	}
	switch tc.PrincipalKind {
	case tenantctx.PrincipalUser:
		ev.UserID = tc.PrincipalID
	case tenantctx.PrincipalAPIKey:
		ev.APIKeyID = tc.PrincipalID
	}

	ctx, span := mfotel.StartAuditSpan(ctx, ev.TenantID, ev.Action)
	defer span.End()

	if err := a.store.AppendAudit(ctx, ev); err != nil {
		logger.FromContext(ctx, a.logger).Error("audit append failed",
			"action", ev.Action, "tenant_id", ev.TenantID, "error", err)
		if a.metrics != nil {
			a.metrics.AuditFailures.Add(ctx, 1)
		}
		return
	}

	if a.metrics != nil {
		a.metrics.AuditEvents.Add(ctx, 1)
	}
	a.publish(ctx, ev)
}

// publish mirrors the event onto the message queue for downstream consumers.
// The write survives the request that triggered it: only the tenant scope is
// carried over, not the request's deadline or cancellation.
func (a *Auditor) publish(ctx context.Context, ev audit.Event) {
	if a.queue == nil {
		return
	}
	ctx, cancel := context.WithTimeout(tenantctx.Detach(ctx), publishTimeout)
	defer cancel()

	payload := messagequeue.AuditRecordedPayload{
		EventID:      ev.ID,
		TenantID:     ev.TenantID,
		UserID:       ev.UserID,
		APIKeyID:     ev.APIKeyID,
		Action:       ev.Action,
		ResourceType: ev.ResourceType,
		ResourceID:   ev.ResourceID,
		Changes:      ev.Changes,
		RequestID:    ev.RequestID,
		CreatedAt:    ev.CreatedAt.Format(time.RFC3339Nano),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		a.logger.Error("marshal audit payload", "action", ev.Action, "error", err)
		return
	}

	subject := messagequeue.SubjectAuditRecorded + "." + ev.Action
	if err := a.queue.Publish(ctx, subject, data); err != nil {
		a.logger.Warn("audit publish failed", "subject", subject, "error", err)
	}
}

// EmitQuotaExceeded records a quota rejection and raises the dedicated
// quota.exceeded queue event operators alert on.
func (a *Auditor) EmitQuotaExceeded(ctx context.Context, kind string, current, limit int64, resourceType string) {
	changes, _ := json.Marshal(map[string]any{"kind": kind, "current": current, "limit": limit})
	a.Emit(ctx, audit.Event{
		Action:       audit.ActionQuotaExceeded,
		ResourceType: resourceType,
		Changes:      changes,
	})

	if a.queue == nil {
		return
	}
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return
	}
	data, err := json.Marshal(messagequeue.QuotaExceededPayload{
		TenantID: tid, Kind: kind, Current: current, Limit: limit,
	})
	if err != nil {
		return
	}
	pctx, cancel := context.WithTimeout(tenantctx.Detach(ctx), publishTimeout)
	defer cancel()
	if err := a.queue.Publish(pctx, messagequeue.SubjectQuotaExceeded, data); err != nil {
		a.logger.Warn("quota event publish failed", "tenant_id", tid, "kind", kind, "error", err)
	}
}

// Query returns one page of the acting tenant's audit trail.
func (a *Auditor) Query(ctx context.Context, f audit.Filter) (*audit.Page, error) {
	page, err := a.store.LoadAudit(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	return page, nil
}
