package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mfotel "github.com/Strob0t/MonitorForge/internal/adapter/otel"
	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/resource"
	"github.com/Strob0t/MonitorForge/internal/port/database"
)

// Resources wraps the tenant-scoped repository of one resource kind with
// validation, auditing and telemetry. The isolation guarantees themselves
// live in the repository; this layer records what happened.
type Resources[T, C, U any] struct {
	repo    database.Repository[T, C, U]
	kind    resource.Kind
	auditor *Auditor
	metrics *mfotel.Metrics
	idOf    func(*T) string
}

// MonitorService manages a tenant's monitors.
type MonitorService = Resources[resource.Monitor, resource.CreateMonitorRequest, resource.UpdateMonitorRequest]

// NetworkService manages a tenant's networks.
type NetworkService = Resources[resource.Network, resource.CreateNetworkRequest, resource.UpdateNetworkRequest]

// TriggerService manages a tenant's triggers.
type TriggerService = Resources[resource.Trigger, resource.CreateTriggerRequest, resource.UpdateTriggerRequest]

// NewMonitorService creates the monitor service.
func NewMonitorService(repo database.Repository[resource.Monitor, resource.CreateMonitorRequest, resource.UpdateMonitorRequest], auditor *Auditor, metrics *mfotel.Metrics) *MonitorService {
	return &MonitorService{
		repo: repo, kind: resource.KindMonitor, auditor: auditor, metrics: metrics,
		idOf: func(m *resource.Monitor) string { return m.ID },
	}
}

// NewNetworkService creates the network service.
func NewNetworkService(repo database.Repository[resource.Network, resource.CreateNetworkRequest, resource.UpdateNetworkRequest], auditor *Auditor, metrics *mfotel.Metrics) *NetworkService {
	return &NetworkService{
		repo: repo, kind: resource.KindNetwork, auditor: auditor, metrics: metrics,
		idOf: func(n *resource.Network) string { return n.ID },
	}
}

// NewTriggerService creates the trigger service.
func NewTriggerService(repo database.Repository[resource.Trigger, resource.CreateTriggerRequest, resource.UpdateTriggerRequest], auditor *Auditor, metrics *mfotel.Metrics) *TriggerService {
	return &TriggerService{
		repo: repo, kind: resource.KindTrigger, auditor: auditor, metrics: metrics,
		idOf: func(t *resource.Trigger) string { return t.ID },
	}
}

// Create validates the request and inserts the resource. Quota and
// cross-tenant rejections leave an audit trail of their own.
func (s *Resources[T, C, U]) Create(ctx context.Context, req C) (*T, error) {
	if err := validate(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ctx, span := mfotel.StartResourceSpan(ctx, "create", string(s.kind))
	defer span.End()

	t, err := s.repo.Create(ctx, req)
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}

	changes, _ := json.Marshal(req)
	s.auditor.Emit(ctx, audit.Event{
		Action:       string(s.kind) + "_created",
		ResourceType: string(s.kind),
		ResourceID:   s.idOf(t),
		Changes:      changes,
	})
	return t, nil
}

// Get returns the resource by row id within the acting tenant.
func (s *Resources[T, C, U]) Get(ctx context.Context, id string) (*T, error) {
	return s.repo.Get(ctx, id)
}

// GetByLogicalID returns the resource by its per-tenant logical id.
func (s *Resources[T, C, U]) GetByLogicalID(ctx context.Context, logicalID string) (*T, error) {
	return s.repo.GetByLogicalID(ctx, logicalID)
}

// List returns a cursor-paginated page of the acting tenant's resources.
func (s *Resources[T, C, U]) List(ctx context.Context, cursor string, limit int) ([]T, string, error) {
	return s.repo.List(ctx, cursor, limit)
}

// ListByParent pages the resources under one parent row of the same tenant,
// such as a monitor's triggers.
func (s *Resources[T, C, U]) ListByParent(ctx context.Context, parentID, cursor string, limit int) ([]T, string, error) {
	return s.repo.ListByParent(ctx, parentID, cursor, limit)
}

// Update applies a partial update to the resource.
func (s *Resources[T, C, U]) Update(ctx context.Context, id string, req U) (*T, error) {
	if err := validate(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	ctx, span := mfotel.StartResourceSpan(ctx, "update", string(s.kind))
	defer span.End()

	t, err := s.repo.Update(ctx, id, req)
	if err != nil {
		s.recordRejection(ctx, err)
		return nil, err
	}

	changes, _ := json.Marshal(req)
	s.auditor.Emit(ctx, audit.Event{
		Action:       string(s.kind) + "_updated",
		ResourceType: string(s.kind),
		ResourceID:   id,
		Changes:      changes,
	})
	return t, nil
}

// Delete removes the resource and releases its quota.
func (s *Resources[T, C, U]) Delete(ctx context.Context, id string) error {
	ctx, span := mfotel.StartResourceSpan(ctx, "delete", string(s.kind))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordRejection(ctx, err)
		return err
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:       string(s.kind) + "_deleted",
		ResourceType: string(s.kind),
		ResourceID:   id,
	})
	return nil
}

// recordRejection counts and audits the security-relevant failure modes.
func (s *Resources[T, C, U]) recordRejection(ctx context.Context, err error) {
	var qe *domain.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		if s.metrics != nil {
			s.metrics.QuotaRejects.Add(ctx, 1)
		}
		s.auditor.EmitQuotaExceeded(ctx, qe.Kind, qe.Current, qe.Limit, string(s.kind))
	case errors.Is(err, domain.ErrCrossTenantReference):
		if s.metrics != nil {
			s.metrics.CrossTenantRejects.Add(ctx, 1)
		}
		s.auditor.Emit(ctx, audit.Event{
			Action:       audit.ActionCrossTenantRejected,
			ResourceType: string(s.kind),
		})
	case errors.Is(err, domain.ErrMissingContext):
		if s.metrics != nil {
			s.metrics.MissingContextFails.Add(ctx, 1)
		}
	}
}

// validate calls the request's Validate method when it has one.
func validate(req any) error {
	if v, ok := req.(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
