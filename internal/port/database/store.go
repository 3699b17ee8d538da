// Package database defines the database store ports (interfaces).
package database

import (
	"context"

	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
)

// Store is the port interface for tenant, user, API key and audit storage.
// Tenant management operates on the host plane and names tenants explicitly;
// everything else reads the acting tenant from the context.
type Store interface {
	// Tenants (host plane)
	CreateTenant(ctx context.Context, req tenant.CreateRequest) (*tenant.Tenant, error)
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*tenant.Tenant, error)
	ListTenants(ctx context.Context, cursor string, limit int) ([]tenant.Tenant, string, error)
	UpdateTenant(ctx context.Context, id string, req tenant.UpdateRequest) (*tenant.Tenant, error)

	// Users. Lookup by email serves login and is not tenant-scoped;
	// everything else is.
	CreateUser(ctx context.Context, u user.User) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	UpdateUser(ctx context.Context, id string, req user.UpdateRequest) (*user.User, error)

	// API keys. Lookup by hash serves authentication and is not
	// tenant-scoped; everything else is.
	CreateAPIKey(ctx context.Context, k user.APIKey) (*user.APIKey, error)
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*user.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]user.APIKey, error)
	DeleteAPIKey(ctx context.Context, id string) error

	// Audit trail, append-only, always tenant-scoped.
	AppendAudit(ctx context.Context, ev audit.Event) error
	LoadAudit(ctx context.Context, f audit.Filter) (*audit.Page, error)
}

// Repository is the tenant-scoped resource facade, instantiated once per
// resource kind. Every operation resolves the acting tenant from ctx and
// fails with domain.ErrMissingContext when none is bound. Rows owned by
// other tenants are indistinguishable from absent rows.
type Repository[T any, C any, U any] interface {
	Create(ctx context.Context, req C) (*T, error)
	Get(ctx context.Context, id string) (*T, error)
	GetByLogicalID(ctx context.Context, logicalID string) (*T, error)
	List(ctx context.Context, cursor string, limit int) ([]T, string, error)
	// ListByParent pages the resources under one parent row of the same
	// tenant (a monitor's triggers). Kinds without a parent, and parents
	// owned by another tenant, read as absent.
	ListByParent(ctx context.Context, parentID, cursor string, limit int) ([]T, string, error)
	Update(ctx context.Context, id string, req U) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Ledger is the quota ledger port. Admit atomically increments the counter
// for (acting tenant, kind, periodKey) by n iff the result stays within
// limit, returning the post-increment usage. Two racing admits can never
// both land above the limit. Storage failure is a rejection, never a pass.
type Ledger interface {
	Admit(ctx context.Context, kind quota.Kind, periodKey string, n, limit int64) (int64, error)
	Release(ctx context.Context, kind quota.Kind, periodKey string, n int64) error
	Used(ctx context.Context, kind quota.Kind, periodKey string) (int64, error)
}
