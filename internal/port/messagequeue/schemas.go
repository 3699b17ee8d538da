package messagequeue

import "encoding/json"

// AuditRecordedPayload is the schema for audit.recorded.* messages.
type AuditRecordedPayload struct {
	EventID      string          `json:"event_id"`
	TenantID     string          `json:"tenant_id"`
	UserID       string          `json:"user_id,omitempty"`
	APIKeyID     string          `json:"api_key_id,omitempty"`
	Action       string          `json:"action"`
	ResourceType string          `json:"resource_type"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Changes      json.RawMessage `json:"changes,omitempty"`
	RequestID    string          `json:"request_id,omitempty"`
	CreatedAt    string          `json:"created_at"`
}

// QuotaExceededPayload is the schema for quota.exceeded messages.
type QuotaExceededPayload struct {
	TenantID string `json:"tenant_id"`
	Kind     string `json:"kind"`
	Current  int64  `json:"current"`
	Limit    int64  `json:"limit"`
}
