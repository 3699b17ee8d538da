package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	mfotel "github.com/Strob0t/MonitorForge/internal/adapter/otel"
	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/port/database"
	"github.com/Strob0t/MonitorForge/internal/resilience"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// QuotaService reports a tenant's limits and live usage. Reads go through a
// circuit breaker so a struggling ledger degrades the status endpoint
// instead of hammering the database.
type QuotaService struct {
	tenants *TenantService
	ledger  database.Ledger
	breaker *resilience.Breaker
}

// NewQuotaService creates the quota status service.
func NewQuotaService(tenants *TenantService, ledger database.Ledger, breaker *resilience.Breaker) *QuotaService {
	return &QuotaService{tenants: tenants, ledger: ledger, breaker: breaker}
}

// Status returns the acting tenant's ceilings and current consumption.
// Count kinds read the live counter; the RPC kind reads the current minute
// bucket. Trigger ceilings are per monitor and appear in the limits block
// only.
func (s *QuotaService) Status(ctx context.Context) (*quota.Status, error) {
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota status: %w", err)
	}

	limits, err := s.tenants.Limits(ctx)
	if err != nil {
		return nil, fmt.Errorf("quota status: %w", err)
	}

	reads := []struct {
		kind   quota.Kind
		period string
		limit  int64
	}{
		{quota.KindMonitors, quota.CurrentPeriod, limits.MaxMonitors},
		{quota.KindNetworks, quota.CurrentPeriod, limits.MaxNetworks},
		{quota.KindRPCRequests, quota.MinutePeriod(time.Now()), limits.MaxRPCRequestsPerMinute},
	}

	var mu sync.Mutex
	usage := make([]quota.Usage, 0, len(reads))

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range reads {
		g.Go(func() error {
			var used int64
			err := s.breaker.Do(func() error {
				var uerr error
				used, uerr = s.ledger.Used(gctx, r.kind, r.period)
				return uerr
			})
			if errors.Is(err, resilience.ErrBreakerOpen) {
				// An open breaker is a storage outage as far as clients are
				// concerned.
				err = fmt.Errorf("%v: %w", err, domain.ErrStorageUnavailable)
			}
			if err != nil {
				return fmt.Errorf("usage %s: %w", r.kind, err)
			}

			available := r.limit - used
			if available < 0 {
				available = 0
			}
			mu.Lock()
			usage = append(usage, quota.Usage{Kind: r.kind, Used: used, Limit: r.limit, Available: available})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("quota status: %w", err)
	}

	// Parallel reads land in arbitrary order; put them back in kind order.
	ordered := make([]quota.Usage, 0, len(usage))
	for _, r := range reads {
		for _, u := range usage {
			if u.Kind == r.kind {
				ordered = append(ordered, u)
			}
		}
	}

	return &quota.Status{TenantID: tid, Limits: limits, Usage: ordered}, nil
}

// MeteredLedger decorates a ledger with admit telemetry. Only decisions made
// through the ledger port are metered; admits inside repository transactions
// are counted by the resource services when they reject.
type MeteredLedger struct {
	inner   database.Ledger
	metrics *mfotel.Metrics
}

// NewMeteredLedger wraps a ledger with metrics. A nil metrics struct yields
// a transparent passthrough.
func NewMeteredLedger(inner database.Ledger, metrics *mfotel.Metrics) *MeteredLedger {
	return &MeteredLedger{inner: inner, metrics: metrics}
}

// Admit delegates to the wrapped ledger and records outcome and latency.
func (m *MeteredLedger) Admit(ctx context.Context, kind quota.Kind, periodKey string, n, limit int64) (int64, error) {
	tid, _ := tenantctx.TenantID(ctx)
	ctx, span := mfotel.StartAdmitSpan(ctx, tid, string(kind))
	defer span.End()

	start := time.Now()
	used, err := m.inner.Admit(ctx, kind, periodKey, n, limit)

	if m.metrics != nil {
		m.metrics.AdmitDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			m.metrics.QuotaRejects.Add(ctx, 1)
		} else {
			m.metrics.QuotaAdmits.Add(ctx, 1)
		}
	}
	return used, err
}

// Release delegates to the wrapped ledger.
func (m *MeteredLedger) Release(ctx context.Context, kind quota.Kind, periodKey string, n int64) error {
	return m.inner.Release(ctx, kind, periodKey, n)
}

// Used delegates to the wrapped ledger.
func (m *MeteredLedger) Used(ctx context.Context, kind quota.Kind, periodKey string) (int64, error) {
	return m.inner.Used(ctx, kind, periodKey)
}
