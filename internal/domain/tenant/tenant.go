// Package tenant defines the tenant domain model for multi-tenancy.
package tenant

import (
	"errors"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain/quota"
)

// Tenant represents an isolated tenant in the system. Each tenant owns a
// disjoint set of monitors, networks and triggers, and carries the quota
// limits the ledger enforces.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Slug      string       `json:"slug"` // unique, immutable after creation
	IsActive  bool         `json:"is_active"`
	Limits    quota.Limits `json:"limits"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Role represents a principal's authorization level within a tenant,
// ordered by privilege: owner > admin > member > viewer.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleViewer Role = "viewer"
)

// rolePrivilege orders roles for comparison. Higher is more privileged.
var rolePrivilege = map[Role]int{
	RoleViewer: 1,
	RoleMember: 2,
	RoleAdmin:  3,
	RoleOwner:  4,
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := rolePrivilege[r]
	return ok
}

// AtLeast reports whether r has at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return rolePrivilege[r] >= rolePrivilege[min]
}

// CanWrite reports whether the role may create, update or delete resources.
func (r Role) CanWrite() bool {
	return r.AtLeast(RoleMember)
}

// CanManage reports whether the role may manage tenant settings, users and
// API keys.
func (r Role) CanManage() bool {
	return r.AtLeast(RoleAdmin)
}

// CreateRequest holds the fields required to create a new tenant.
// Zero-valued limits fall back to quota.DefaultLimits.
type CreateRequest struct {
	Name   string       `json:"name"`
	Slug   string       `json:"slug"`
	Limits quota.Limits `json:"limits,omitzero"`
}

// Validate checks required fields and limit bounds. Slug format is enforced
// by the tenant service.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if r.Slug == "" {
		return errors.New("slug is required")
	}
	return r.Limits.Validate()
}

// UpdateRequest holds the fields that can be updated on a tenant. The slug
// is immutable and deliberately absent.
type UpdateRequest struct {
	Name     string        `json:"name,omitempty"`
	IsActive *bool         `json:"is_active,omitempty"`
	Limits   *quota.Limits `json:"limits,omitempty"`
}

// Validate rejects negative limit updates.
func (r *UpdateRequest) Validate() error {
	if r.Limits == nil {
		return nil
	}
	return r.Limits.Validate()
}
