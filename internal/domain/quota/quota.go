// Package quota defines the resource kinds, limits and ledger decisions used
// to enforce per-tenant quotas.
package quota

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a quota-governed resource class.
type Kind string

const (
	KindMonitors    Kind = "monitors"
	KindNetworks    Kind = "networks"
	KindTriggers    Kind = "triggers"     // counted per monitor
	KindRPCRequests Kind = "rpc_requests" // rate, per minute
)

// CountKinds are the kinds whose usage is a live count of stored rows.
var CountKinds = []Kind{KindMonitors, KindNetworks, KindTriggers}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindMonitors, KindNetworks, KindTriggers, KindRPCRequests:
		return true
	}
	return false
}

// CurrentPeriod is the period key for count kinds, whose usage never expires
// on its own.
const CurrentPeriod = "current"

// MinutePeriod returns the ledger period key for the minute bucket containing
// t, in UTC. Rate kinds reset when the wall clock enters the next bucket.
func MinutePeriod(t time.Time) string {
	return t.UTC().Truncate(time.Minute).Format("200601021504")
}

// Limits holds a tenant's quota ceilings. A zero value means the field was
// not provided; persisted tenants always carry concrete limits.
type Limits struct {
	MaxMonitors             int64 `json:"max_monitors"`
	MaxNetworks             int64 `json:"max_networks"`
	MaxTriggersPerMonitor   int64 `json:"max_triggers_per_monitor"`
	MaxRPCRequestsPerMinute int64 `json:"max_rpc_requests_per_minute"`
	MaxStorageMB            int64 `json:"max_storage_mb"`
}

// DefaultLimits are applied when a tenant is created without explicit limits.
var DefaultLimits = Limits{
	MaxMonitors:             10,
	MaxNetworks:             5,
	MaxTriggersPerMonitor:   3,
	MaxRPCRequestsPerMinute: 60,
	MaxStorageMB:            100,
}

// Validate rejects negative limits. Zero is allowed and means "none admitted".
func (l Limits) Validate() error {
	if l.MaxMonitors < 0 || l.MaxNetworks < 0 || l.MaxTriggersPerMonitor < 0 ||
		l.MaxRPCRequestsPerMinute < 0 || l.MaxStorageMB < 0 {
		return errors.New("limits must not be negative")
	}
	return nil
}

// IsZero reports whether no limit was provided at all.
func (l Limits) IsZero() bool {
	return l == Limits{}
}

// For returns the ceiling for the given kind.
func (l Limits) For(kind Kind) (int64, error) {
	switch kind {
	case KindMonitors:
		return l.MaxMonitors, nil
	case KindNetworks:
		return l.MaxNetworks, nil
	case KindTriggers:
		return l.MaxTriggersPerMonitor, nil
	case KindRPCRequests:
		return l.MaxRPCRequestsPerMinute, nil
	}
	return 0, fmt.Errorf("unknown quota kind %q", kind)
}

// Usage reports consumption of one kind for the quota status endpoint.
type Usage struct {
	Kind      Kind  `json:"kind"`
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Available int64 `json:"available"`
}

// Status aggregates a tenant's limits and live usage per kind.
type Status struct {
	TenantID string  `json:"tenant_id"`
	Limits   Limits  `json:"limits"`
	Usage    []Usage `json:"usage"`
}
