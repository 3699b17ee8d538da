package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. The
// authentication, tenant guard and quota middleware are applied globally by
// the caller; only per-route role and scope requirements live here.
func MountRoutes(r chi.Router, h *Handlers) {
	// Health (public, exempt from auth)
	r.Get("/health", h.Health)
	r.Get("/health/ready", h.HealthReady)

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Auth (login is public, handled by middleware exemption)
		r.Post("/auth/login", h.Login)
		r.Get("/auth/me", h.GetCurrentUser)

		// API keys (admin only)
		r.Route("/auth/api-keys", func(r chi.Router) {
			r.Use(middleware.RequireRole(tenant.RoleAdmin))
			r.Get("/", h.ListAPIKeysHandler)
			r.Post("/", h.CreateAPIKeyHandler)
			r.Delete("/{id}", h.DeleteAPIKeyHandler)
		})

		// Tenant self-service (admin only). There is no cross-tenant surface
		// here: creating, listing, suspending and re-limiting tenants are
		// host plane operations and live on the admin CLI.
		r.Route("/tenant", func(r chi.Router) {
			r.Use(middleware.RequireRole(tenant.RoleAdmin))
			r.Get("/", h.GetOwnTenant)
			r.Put("/", h.RenameOwnTenant)
		})

		// Users (admin only)
		r.Route("/users", func(r chi.Router) {
			r.Use(middleware.RequireRole(tenant.RoleAdmin))
			r.Get("/", h.ListUsersHandler)
			r.Post("/", h.CreateUserHandler)
			r.Get("/{id}", h.GetUserHandler)
			r.Put("/{id}", h.UpdateUserHandler)
		})

		// Monitors
		r.Route("/monitors", func(r chi.Router) {
			r.With(middleware.RequireScope(user.ScopeMonitorsRead)).Get("/", h.ListMonitors())
			r.With(middleware.RequireScope(user.ScopeMonitorsRead)).Get("/{id}", h.GetMonitor())
			r.With(middleware.RequireScope(user.ScopeMonitorsRead)).Get("/by-id/{logicalId}", h.GetMonitorByLogicalID())
			r.With(middleware.RequireScope(user.ScopeTriggersRead)).Get("/{id}/triggers", h.ListMonitorTriggers())
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(tenant.RoleMember))
				r.Use(middleware.RequireScope(user.ScopeMonitorsWrite))
				r.Post("/", h.CreateMonitor())
				r.Put("/{id}", h.UpdateMonitor())
				r.Delete("/{id}", h.DeleteMonitor())
			})
		})

		// Networks
		r.Route("/networks", func(r chi.Router) {
			r.With(middleware.RequireScope(user.ScopeNetworksRead)).Get("/", h.ListNetworks())
			r.With(middleware.RequireScope(user.ScopeNetworksRead)).Get("/{id}", h.GetNetwork())
			r.With(middleware.RequireScope(user.ScopeNetworksRead)).Get("/by-id/{logicalId}", h.GetNetworkByLogicalID())
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(tenant.RoleMember))
				r.Use(middleware.RequireScope(user.ScopeNetworksWrite))
				r.Post("/", h.CreateNetwork())
				r.Put("/{id}", h.UpdateNetwork())
				r.Delete("/{id}", h.DeleteNetwork())
			})
		})

		// Triggers
		r.Route("/triggers", func(r chi.Router) {
			r.With(middleware.RequireScope(user.ScopeTriggersRead)).Get("/", h.ListTriggers())
			r.With(middleware.RequireScope(user.ScopeTriggersRead)).Get("/{id}", h.GetTrigger())
			r.With(middleware.RequireScope(user.ScopeTriggersRead)).Get("/by-id/{logicalId}", h.GetTriggerByLogicalID())
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(tenant.RoleMember))
				r.Use(middleware.RequireScope(user.ScopeTriggersWrite))
				r.Post("/", h.CreateTrigger())
				r.Put("/{id}", h.UpdateTrigger())
				r.Delete("/{id}", h.DeleteTrigger())
			})
		})

		// Quota status
		r.Get("/quota", h.QuotaStatus)

		// Audit trail (admin only)
		r.With(middleware.RequireRole(tenant.RoleAdmin)).Get("/audit", h.AuditTrail)
	})
}
