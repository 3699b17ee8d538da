package http

import (
	"net/http"

	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// A tenant's admin can read and rename their own tenant record, nothing
// else. The tenant id always comes from the bound context, never from the
// URL, so one tenant cannot name another.

// tenantRenameRequest is the only field a tenant may change about itself.
// Limits and the active flag belong to the host plane.
type tenantRenameRequest struct {
	Name string `json:"name"`
}

// GetOwnTenant handles GET /api/v1/tenant
func (h *Handlers) GetOwnTenant(w http.ResponseWriter, r *http.Request) {
	tc, err := tenantctx.FromContext(r.Context())
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	t, err := h.Tenants.GetTenant(r.Context(), tc.TenantID)
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// RenameOwnTenant handles PUT /api/v1/tenant
func (h *Handlers) RenameOwnTenant(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[tenantRenameRequest](w, r)
	if !ok {
		return
	}
	tc, err := tenantctx.FromContext(r.Context())
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	t, err := h.Tenants.Update(r.Context(), tc.TenantID, tenant.UpdateRequest{Name: req.Name})
	if err != nil {
		writeDomainError(w, err, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, t)
}
