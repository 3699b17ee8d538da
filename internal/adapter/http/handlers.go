package http

import (
	"context"
	"net/http"

	"github.com/Strob0t/MonitorForge/internal/service"
)

// Pinger reports whether the primary datastore is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tenants  *service.TenantService
	Auth     *service.AuthService
	Monitors *service.MonitorService
	Networks *service.NetworkService
	Triggers *service.TriggerService
	Quota    *service.QuotaService
	Auditor  *service.Auditor
	DB       Pinger
}

// Health handles GET /health. Liveness only; no dependencies are touched.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady handles GET /health/ready and verifies database connectivity.
func (h *Handlers) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		if err := h.DB.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
