package middleware

import (
	"net/http"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// RequireRole returns middleware that restricts access to principals whose
// role is at least min in the owner > admin > member > viewer ordering.
func RequireRole(min tenant.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, err := tenantctx.FromContext(r.Context())
			if err != nil {
				http.Error(w, `{"error":"authorization required"}`, http.StatusUnauthorized)
				return
			}

			if !tc.Role.AtLeast(min) {
				http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireScope returns middleware that enforces an API key scope. Requests
// authenticated with a JWT carry no key and pass; keys with a nil scope list
// have full access within their role.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := APIKeyFromContext(r.Context())
			if key != nil && !key.HasScope(scope) {
				http.Error(w, `{"error":"api key lacks scope `+scope+`"}`, http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
