// Package resource defines the tenant-owned resource envelopes: monitors,
// networks and triggers. Configuration payloads are opaque to this service
// and passed through to the shared monitoring backend untouched.
package resource

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifies a tenant-scoped resource class.
type Kind string

const (
	KindMonitor Kind = "monitor"
	KindNetwork Kind = "network"
	KindTrigger Kind = "trigger"
)

// Monitor is a tenant's envelope around a monitor definition. LogicalID is
// the tenant-chosen identifier referenced from configuration; it is unique
// per tenant, not globally.
type Monitor struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	LogicalID     string          `json:"monitor_id"`
	NetworkID     string          `json:"network_id"` // row id of the network this monitor watches
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Network is a tenant's envelope around a network definition.
type Network struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	LogicalID     string          `json:"network_id"`
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TriggerType is the notification channel a trigger fires through.
type TriggerType string

const (
	TriggerWebhook  TriggerType = "webhook"
	TriggerEmail    TriggerType = "email"
	TriggerSlack    TriggerType = "slack"
	TriggerDiscord  TriggerType = "discord"
	TriggerTelegram TriggerType = "telegram"
	TriggerScript   TriggerType = "script"
)

// Valid reports whether t is a known trigger type.
func (t TriggerType) Valid() bool {
	switch t {
	case TriggerWebhook, TriggerEmail, TriggerSlack, TriggerDiscord,
		TriggerTelegram, TriggerScript:
		return true
	}
	return false
}

// Trigger is a tenant's envelope around a trigger definition, attached to a
// monitor of the same tenant.
type Trigger struct {
	ID            string          `json:"id"`
	TenantID      string          `json:"tenant_id"`
	LogicalID     string          `json:"trigger_id"`
	MonitorID     string          `json:"monitor_id"` // row id of the owning monitor
	Name          string          `json:"name"`
	TriggerType   TriggerType     `json:"trigger_type"`
	Configuration json.RawMessage `json:"configuration"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CreateMonitorRequest is the input for creating a monitor.
type CreateMonitorRequest struct {
	LogicalID     string          `json:"monitor_id"`
	NetworkID     string          `json:"network_id"`
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// Validate checks that the CreateMonitorRequest has all required fields.
func (r *CreateMonitorRequest) Validate() error {
	if r.LogicalID == "" {
		return errors.New("monitor_id is required")
	}
	if r.NetworkID == "" {
		return errors.New("network_id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return validateConfiguration(r.Configuration)
}

// UpdateMonitorRequest is the input for updating a monitor. Nil/empty fields
// are left unchanged.
type UpdateMonitorRequest struct {
	Name          string          `json:"name,omitempty"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

// Validate checks optional fields that were provided.
func (r *UpdateMonitorRequest) Validate() error {
	if len(r.Configuration) == 0 {
		return nil
	}
	return validateConfiguration(r.Configuration)
}

// CreateNetworkRequest is the input for creating a network.
type CreateNetworkRequest struct {
	LogicalID     string          `json:"network_id"`
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// Validate checks that the CreateNetworkRequest has all required fields.
func (r *CreateNetworkRequest) Validate() error {
	if r.LogicalID == "" {
		return errors.New("network_id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return validateConfiguration(r.Configuration)
}

// UpdateNetworkRequest is the input for updating a network.
type UpdateNetworkRequest struct {
	Name          string          `json:"name,omitempty"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

// Validate checks optional fields that were provided.
func (r *UpdateNetworkRequest) Validate() error {
	if len(r.Configuration) == 0 {
		return nil
	}
	return validateConfiguration(r.Configuration)
}

// CreateTriggerRequest is the input for creating a trigger.
type CreateTriggerRequest struct {
	LogicalID     string          `json:"trigger_id"`
	MonitorID     string          `json:"monitor_id"`
	Name          string          `json:"name"`
	TriggerType   TriggerType     `json:"trigger_type"`
	Configuration json.RawMessage `json:"configuration"`
}

// Validate checks that the CreateTriggerRequest has all required fields.
func (r *CreateTriggerRequest) Validate() error {
	if r.LogicalID == "" {
		return errors.New("trigger_id is required")
	}
	if r.MonitorID == "" {
		return errors.New("monitor_id is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.TriggerType.Valid() {
		return fmt.Errorf("invalid trigger_type: %s", r.TriggerType)
	}
	return validateConfiguration(r.Configuration)
}

// UpdateTriggerRequest is the input for updating a trigger.
type UpdateTriggerRequest struct {
	Name          string          `json:"name,omitempty"`
	Configuration json.RawMessage `json:"configuration,omitempty"`
	IsActive      *bool           `json:"is_active,omitempty"`
}

// Validate checks optional fields that were provided.
func (r *UpdateTriggerRequest) Validate() error {
	if len(r.Configuration) == 0 {
		return nil
	}
	return validateConfiguration(r.Configuration)
}

// validateConfiguration requires a syntactically valid JSON document. The
// payload is otherwise opaque; its meaning belongs to the monitoring backend.
func validateConfiguration(raw json.RawMessage) error {
	if len(raw) == 0 {
		return errors.New("configuration is required")
	}
	if !json.Valid(raw) {
		return errors.New("configuration must be valid JSON")
	}
	return nil
}
