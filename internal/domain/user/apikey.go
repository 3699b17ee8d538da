package user

import (
	"errors"
	"fmt"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
)

// APIKeyPrefix is prepended to generated API keys for identification.
const APIKeyPrefix = "mfk_"

// Resource-based API key scopes.
const (
	ScopeMonitorsRead  = "monitors:read"
	ScopeMonitorsWrite = "monitors:write"
	ScopeNetworksRead  = "networks:read"
	ScopeNetworksWrite = "networks:write"
	ScopeTriggersRead  = "triggers:read"
	ScopeTriggersWrite = "triggers:write"
	ScopeAdminAll      = "admin:all"
)

// ValidScopes is the set of all valid API key scopes.
var ValidScopes = map[string]bool{
	ScopeMonitorsRead:  true,
	ScopeMonitorsWrite: true,
	ScopeNetworksRead:  true,
	ScopeNetworksWrite: true,
	ScopeTriggersRead:  true,
	ScopeTriggersWrite: true,
	ScopeAdminAll:      true,
}

// APIKey represents a stored API key. Keys are tenant principals in their own
// right and carry a role like users do.
type APIKey struct {
	ID        string      `json:"id"`
	TenantID  string      `json:"tenant_id"`
	Name      string      `json:"name"`
	Prefix    string      `json:"prefix"` // first 8 chars for display
	KeyHash   string      `json:"-"`      // SHA-256 hash, never serialized
	Role      tenant.Role `json:"role"`
	Scopes    []string    `json:"scopes,omitempty"`
	ExpiresAt time.Time   `json:"expires_at,omitzero"`
	CreatedAt time.Time   `json:"created_at"`
}

// HasScope checks whether the API key has the required scope.
// A nil/empty Scopes slice means full access within the key's role.
// The admin:all scope grants access to everything.
func (k *APIKey) HasScope(required string) bool {
	if k.Scopes == nil {
		return true
	}
	for _, s := range k.Scopes {
		if s == required || s == ScopeAdminAll {
			return true
		}
	}
	return false
}

// Expired reports whether the key is past its expiry, if one is set.
func (k *APIKey) Expired(now time.Time) bool {
	return !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt)
}

// CreateAPIKeyRequest is the input for creating a new API key.
type CreateAPIKeyRequest struct {
	Name      string      `json:"name"`
	Role      tenant.Role `json:"role"`
	ExpiresIn int         `json:"expires_in,omitempty"` // seconds; 0 = no expiry
	Scopes    []string    `json:"scopes,omitempty"`
}

// Validate checks that the CreateAPIKeyRequest has all required fields.
func (r *CreateAPIKeyRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !r.Role.Valid() {
		return errors.New("invalid role: must be owner, admin, member, or viewer")
	}
	return ValidateScopes(r.Scopes)
}

// ValidateScopes checks that all scopes are recognized.
func ValidateScopes(scopes []string) error {
	for _, s := range scopes {
		if !ValidScopes[s] {
			return fmt.Errorf("invalid scope: %s", s)
		}
	}
	return nil
}

// CreateAPIKeyResponse is returned after creating an API key.
// The PlainKey is only shown once at creation time.
type CreateAPIKeyResponse struct {
	APIKey   APIKey `json:"api_key"`
	PlainKey string `json:"plain_key"` // only returned once
}
