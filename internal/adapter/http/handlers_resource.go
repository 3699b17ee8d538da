package http

import (
	"net/http"
)

// Monitor handlers.

func (h *Handlers) CreateMonitor() http.HandlerFunc {
	return handleCreate(h.Monitors.Create)
}

func (h *Handlers) GetMonitor() http.HandlerFunc {
	return handleGet(h.Monitors.Get, "monitor not found")
}

func (h *Handlers) GetMonitorByLogicalID() http.HandlerFunc {
	return handleGetByParam("logicalId", h.Monitors.GetByLogicalID, "monitor not found")
}

func (h *Handlers) ListMonitors() http.HandlerFunc {
	return handleList(h.Monitors.List)
}

func (h *Handlers) ListMonitorTriggers() http.HandlerFunc {
	return handleListByParam("id", h.Triggers.ListByParent)
}

func (h *Handlers) UpdateMonitor() http.HandlerFunc {
	return handleUpdate(h.Monitors.Update, "monitor not found")
}

func (h *Handlers) DeleteMonitor() http.HandlerFunc {
	return handleDelete(h.Monitors.Delete, "monitor not found")
}

// Network handlers.

func (h *Handlers) CreateNetwork() http.HandlerFunc {
	return handleCreate(h.Networks.Create)
}

func (h *Handlers) GetNetwork() http.HandlerFunc {
	return handleGet(h.Networks.Get, "network not found")
}

func (h *Handlers) GetNetworkByLogicalID() http.HandlerFunc {
	return handleGetByParam("logicalId", h.Networks.GetByLogicalID, "network not found")
}

func (h *Handlers) ListNetworks() http.HandlerFunc {
	return handleList(h.Networks.List)
}

func (h *Handlers) UpdateNetwork() http.HandlerFunc {
	return handleUpdate(h.Networks.Update, "network not found")
}

func (h *Handlers) DeleteNetwork() http.HandlerFunc {
	return handleDelete(h.Networks.Delete, "network not found")
}

// Trigger handlers.

func (h *Handlers) CreateTrigger() http.HandlerFunc {
	return handleCreate(h.Triggers.Create)
}

func (h *Handlers) GetTrigger() http.HandlerFunc {
	return handleGet(h.Triggers.Get, "trigger not found")
}

func (h *Handlers) GetTriggerByLogicalID() http.HandlerFunc {
	return handleGetByParam("logicalId", h.Triggers.GetByLogicalID, "trigger not found")
}

func (h *Handlers) ListTriggers() http.HandlerFunc {
	return handleList(h.Triggers.List)
}

func (h *Handlers) UpdateTrigger() http.HandlerFunc {
	return handleUpdate(h.Triggers.Update, "trigger not found")
}

func (h *Handlers) DeleteTrigger() http.HandlerFunc {
	return handleDelete(h.Triggers.Delete, "trigger not found")
}
