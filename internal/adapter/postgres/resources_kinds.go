package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/resource"
)

// MonitorRepo is the tenant-scoped facade over tenant_monitors.
type MonitorRepo = Repo[resource.Monitor, resource.CreateMonitorRequest, resource.UpdateMonitorRequest]

// NetworkRepo is the tenant-scoped facade over tenant_networks.
type NetworkRepo = Repo[resource.Network, resource.CreateNetworkRequest, resource.UpdateNetworkRequest]

// TriggerRepo is the tenant-scoped facade over tenant_triggers.
type TriggerRepo = Repo[resource.Trigger, resource.CreateTriggerRequest, resource.UpdateTriggerRequest]

const monitorColumns = `id, tenant_id, monitor_id, network_id, name, configuration, is_active, created_at, updated_at`

func scanMonitor(row scannable) (*resource.Monitor, error) {
	var m resource.Monitor
	err := row.Scan(&m.ID, &m.TenantID, &m.LogicalID, &m.NetworkID, &m.Name,
		&m.Configuration, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// NewMonitorRepo builds the monitor facade. Monitors count against the
// max_monitors limit and reference a network of the same tenant.
func NewMonitorRepo(pool *pgxpool.Pool) *MonitorRepo {
	return &MonitorRepo{
		pool: pool,
		desc: tableDesc[resource.Monitor, resource.CreateMonitorRequest, resource.UpdateMonitorRequest]{
			table:      "tenant_monitors",
			name:       "monitor",
			quotaKind:  quota.KindMonitors,
			logicalCol: "monitor_id",
			columns:    monitorColumns,
			scan:       scanMonitor,
			idOf:       func(m *resource.Monitor) string { return m.ID },

			insertSQL: `INSERT INTO tenant_monitors (id, tenant_id, monitor_id, network_id, name, configuration)
				VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING ` + monitorColumns,
			insertArgs: func(id, tenantID string, req resource.CreateMonitorRequest) []any {
				return []any{id, tenantID, req.LogicalID, req.NetworkID, req.Name, req.Configuration}
			},

			updateSQL: `UPDATE tenant_monitors SET
					name = COALESCE(NULLIF($3, ''), name),
					configuration = COALESCE($4, configuration),
					is_active = COALESCE($5, is_active),
					updated_at = now()
				WHERE id = $1 AND tenant_id = $2
				RETURNING ` + monitorColumns,
			updateArgs: func(id, tenantID string, req resource.UpdateMonitorRequest) []any {
				return []any{id, tenantID, req.Name, nilIfEmptyJSON(req.Configuration), req.IsActive}
			},

			ref: func(req resource.CreateMonitorRequest) (string, string, string) {
				return "tenant_networks", "network", req.NetworkID
			},

			admitPeriod:   func(resource.CreateMonitorRequest) string { return quota.CurrentPeriod },
			releasePeriod: func(*resource.Monitor) string { return quota.CurrentPeriod },
			limitFor:      func(l quota.Limits) int64 { return l.MaxMonitors },

			// Deleting a monitor cascades its triggers; their per-monitor
			// counter bucket goes with them.
			onDelete: func(ctx context.Context, tx pgx.Tx, tenantID string, m *resource.Monitor) error {
				_, err := tx.Exec(ctx,
					`DELETE FROM quota_counters
					 WHERE tenant_id = $1 AND resource_kind = $2 AND period_key = $3`,
					tenantID, quota.KindTriggers, m.ID)
				return err
			},
		},
	}
}

const networkColumns = `id, tenant_id, network_id, name, configuration, is_active, created_at, updated_at`

func scanNetwork(row scannable) (*resource.Network, error) {
	var n resource.Network
	err := row.Scan(&n.ID, &n.TenantID, &n.LogicalID, &n.Name,
		&n.Configuration, &n.IsActive, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// NewNetworkRepo builds the network facade. Networks count against the
// max_networks limit and reference nothing.
func NewNetworkRepo(pool *pgxpool.Pool) *NetworkRepo {
	return &NetworkRepo{
		pool: pool,
		desc: tableDesc[resource.Network, resource.CreateNetworkRequest, resource.UpdateNetworkRequest]{
			table:      "tenant_networks",
			name:       "network",
			quotaKind:  quota.KindNetworks,
			logicalCol: "network_id",
			columns:    networkColumns,
			scan:       scanNetwork,
			idOf:       func(n *resource.Network) string { return n.ID },

			insertSQL: `INSERT INTO tenant_networks (id, tenant_id, network_id, name, configuration)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING ` + networkColumns,
			insertArgs: func(id, tenantID string, req resource.CreateNetworkRequest) []any {
				return []any{id, tenantID, req.LogicalID, req.Name, req.Configuration}
			},

			updateSQL: `UPDATE tenant_networks SET
					name = COALESCE(NULLIF($3, ''), name),
					configuration = COALESCE($4, configuration),
					is_active = COALESCE($5, is_active),
					updated_at = now()
				WHERE id = $1 AND tenant_id = $2
				RETURNING ` + networkColumns,
			updateArgs: func(id, tenantID string, req resource.UpdateNetworkRequest) []any {
				return []any{id, tenantID, req.Name, nilIfEmptyJSON(req.Configuration), req.IsActive}
			},

			admitPeriod:   func(resource.CreateNetworkRequest) string { return quota.CurrentPeriod },
			releasePeriod: func(*resource.Network) string { return quota.CurrentPeriod },
			limitFor:      func(l quota.Limits) int64 { return l.MaxNetworks },
		},
	}
}

const triggerColumns = `id, tenant_id, trigger_id, monitor_id, name, trigger_type, configuration, is_active, created_at, updated_at`

func scanTrigger(row scannable) (*resource.Trigger, error) {
	var t resource.Trigger
	err := row.Scan(&t.ID, &t.TenantID, &t.LogicalID, &t.MonitorID, &t.Name,
		&t.TriggerType, &t.Configuration, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// NewTriggerRepo builds the trigger facade. Triggers are counted per owning
// monitor: the ledger period key is the monitor's row id, and the ceiling is
// max_triggers_per_monitor.
func NewTriggerRepo(pool *pgxpool.Pool) *TriggerRepo {
	return &TriggerRepo{
		pool: pool,
		desc: tableDesc[resource.Trigger, resource.CreateTriggerRequest, resource.UpdateTriggerRequest]{
			table:      "tenant_triggers",
			name:       "trigger",
			quotaKind:  quota.KindTriggers,
			logicalCol: "trigger_id",
			columns:    triggerColumns,
			scan:       scanTrigger,
			idOf:       func(t *resource.Trigger) string { return t.ID },

			insertSQL: `INSERT INTO tenant_triggers (id, tenant_id, trigger_id, monitor_id, name, trigger_type, configuration)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				RETURNING ` + triggerColumns,
			insertArgs: func(id, tenantID string, req resource.CreateTriggerRequest) []any {
				return []any{id, tenantID, req.LogicalID, req.MonitorID, req.Name, req.TriggerType, req.Configuration}
			},

			updateSQL: `UPDATE tenant_triggers SET
					name = COALESCE(NULLIF($3, ''), name),
					configuration = COALESCE($4, configuration),
					is_active = COALESCE($5, is_active),
					updated_at = now()
				WHERE id = $1 AND tenant_id = $2
				RETURNING ` + triggerColumns,
			updateArgs: func(id, tenantID string, req resource.UpdateTriggerRequest) []any {
				return []any{id, tenantID, req.Name, nilIfEmptyJSON(req.Configuration), req.IsActive}
			},

			ref: func(req resource.CreateTriggerRequest) (string, string, string) {
				return "tenant_monitors", "monitor", req.MonitorID
			},

			parentTable: "tenant_monitors",
			parentName:  "monitor",
			parentCol:   "monitor_id",

			admitPeriod:   func(req resource.CreateTriggerRequest) string { return req.MonitorID },
			releasePeriod: func(t *resource.Trigger) string { return t.MonitorID },
			limitFor:      func(l quota.Limits) int64 { return l.MaxTriggersPerMonitor },
		},
	}
}
