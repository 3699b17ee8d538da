package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "monitorforge"

// Metrics holds all MonitorForge metric instruments.
type Metrics struct {
	QuotaAdmits         metric.Int64Counter
	QuotaRejects        metric.Int64Counter
	CrossTenantRejects  metric.Int64Counter
	MissingContextFails metric.Int64Counter
	AuditEvents         metric.Int64Counter
	AuditFailures       metric.Int64Counter
	AdmitDuration       metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QuotaAdmits, err = meter.Int64Counter("monitorforge.quota.admits",
		metric.WithDescription("Number of quota admits granted"))
	if err != nil {
		return nil, err
	}

	m.QuotaRejects, err = meter.Int64Counter("monitorforge.quota.rejects",
		metric.WithDescription("Number of quota admits rejected"))
	if err != nil {
		return nil, err
	}

	m.CrossTenantRejects, err = meter.Int64Counter("monitorforge.isolation.cross_tenant_rejects",
		metric.WithDescription("Number of cross-tenant references rejected"))
	if err != nil {
		return nil, err
	}

	m.MissingContextFails, err = meter.Int64Counter("monitorforge.isolation.missing_context",
		metric.WithDescription("Number of operations that ran without a bound tenant"))
	if err != nil {
		return nil, err
	}

	m.AuditEvents, err = meter.Int64Counter("monitorforge.audit.events",
		metric.WithDescription("Number of audit events recorded"))
	if err != nil {
		return nil, err
	}

	m.AuditFailures, err = meter.Int64Counter("monitorforge.audit.failures",
		metric.WithDescription("Number of audit writes that failed"))
	if err != nil {
		return nil, err
	}

	m.AdmitDuration, err = meter.Float64Histogram("monitorforge.quota.admit_duration_seconds",
		metric.WithDescription("Quota admit decision latency in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
