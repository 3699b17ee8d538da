package middleware

import (
	"context"
	"net/http"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// TenantSource resolves a tenant by id. The service layer implements it with
// a cached lookup so this guard stays off the hot path of the database.
type TenantSource interface {
	GetTenant(ctx context.Context, id string) (*tenant.Tenant, error)
}

// TenantGuard verifies that the tenant bound by Auth exists and is active.
// Requests without a bound tenant are rejected outright; there is no
// fallback tenant to run as. Suspended tenants get 403 on every call.
func TenantGuard(src TenantSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			tc, err := tenantctx.FromContext(r.Context())
			if err != nil {
				http.Error(w, `{"error":"no tenant bound to request"}`, http.StatusInternalServerError)
				return
			}

			t, err := src.GetTenant(r.Context(), tc.TenantID)
			if err != nil {
				http.Error(w, `{"error":"unknown tenant"}`, http.StatusUnauthorized)
				return
			}
			if !t.IsActive {
				http.Error(w, `{"error":"tenant is suspended"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
