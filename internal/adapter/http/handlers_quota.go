package http

import (
	"net/http"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain/audit"
)

// QuotaStatus handles GET /api/v1/quota
func (h *Handlers) QuotaStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.Quota.Status(r.Context())
	if err != nil {
		writeDomainError(w, err, "quota status unavailable")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// AuditTrail handles GET /api/v1/audit
func (h *Handlers) AuditTrail(w http.ResponseWriter, r *http.Request) {
	f, ok := auditFilter(w, r)
	if !ok {
		return
	}

	page, err := h.Auditor.Query(r.Context(), f)
	if err != nil {
		writeDomainError(w, err, "audit query failed")
		return
	}
	if page.Events == nil {
		page.Events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, page)
}

// auditFilter parses the audit query parameters. Timestamps are RFC 3339.
func auditFilter(w http.ResponseWriter, r *http.Request) (audit.Filter, bool) {
	q := r.URL.Query()
	cursor, limit := pageParams(r)
	f := audit.Filter{
		Action:       q.Get("action"),
		ResourceType: q.Get("resource_type"),
		Cursor:       cursor,
		Limit:        limit,
	}

	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'from' timestamp, expected RFC 3339")
			return f, false
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid 'to' timestamp, expected RFC 3339")
			return f, false
		}
		f.To = t
	}
	return f, true
}
