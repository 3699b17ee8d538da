// Package audit defines the append-only audit trail entities.
package audit

import (
	"encoding/json"
	"time"
)

// Action identifies what happened. Accepted mutations and security-relevant
// rejections are both recorded.
const (
	ActionTenantCreated  = "tenant_created"
	ActionTenantUpdated  = "tenant_updated"
	ActionUserCreated    = "user_created"
	ActionUserUpdated    = "user_updated"
	ActionUserLogin      = "user_login"
	ActionAPIKeyCreated  = "api_key_created"
	ActionAPIKeyRevoked  = "api_key_revoked"
	ActionMonitorCreated = "monitor_created"
	ActionMonitorUpdated = "monitor_updated"
	ActionMonitorDeleted = "monitor_deleted"
	ActionNetworkCreated = "network_created"
	ActionNetworkUpdated = "network_updated"
	ActionNetworkDeleted = "network_deleted"
	ActionTriggerCreated = "trigger_created"
	ActionTriggerUpdated = "trigger_updated"
	ActionTriggerDeleted = "trigger_deleted"

	// Rejections worth an audit trail of their own.
	ActionQuotaExceeded       = "quota_exceeded"
	ActionCrossTenantRejected = "cross_tenant_rejected"
	ActionMissingContext      = "missing_context"
)

// Event is one immutable audit record. UserID and APIKeyID identify the
// acting principal; exactly one is set for authenticated requests.
type Event struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenant_id"`
	UserID       string          `json:"user_id,omitempty"`
	APIKeyID     string          `json:"api_key_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Changes      json.RawMessage `json:"changes,omitempty"`
	IPAddress    string          `json:"ip_address,omitempty"`
	UserAgent    string          `json:"user_agent,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// Filter narrows an audit query. The tenant scope is implicit and never part
// of the filter.
type Filter struct {
	Action       string
	ResourceType string
	From         time.Time
	To           time.Time
	Cursor       string
	Limit        int
}

// Page is one cursor-paginated slice of audit events, newest first.
type Page struct {
	Events     []Event `json:"events"`
	NextCursor string  `json:"next_cursor,omitempty"`
	HasMore    bool    `json:"has_more"`
}
