package http

import (
	"log/slog"
	"net/http"

	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.LoginRequest](w, r)
	if !ok {
		return
	}

	resp, err := h.Auth.Login(r.Context(), req)
	if err != nil {
		// Every failure looks identical to the caller; the detail stays in
		// the debug log.
		slog.Debug("login failed", "email", req.Email, "error", err)
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetCurrentUser handles GET /api/v1/auth/me
func (h *Handlers) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	tc, err := tenantctx.FromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if tc.PrincipalKind == tenantctx.PrincipalUser {
		u, err := h.Auth.GetUser(r.Context(), tc.PrincipalID)
		if err != nil {
			writeDomainError(w, err, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, u)
		return
	}

	// API key principals have no user record; echo the bound identity.
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id":      tc.TenantID,
		"principal_id":   tc.PrincipalID,
		"principal_kind": tc.PrincipalKind,
		"role":           tc.Role,
	})
}

// CreateUserHandler handles POST /api/v1/users
func (h *Handlers) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.Register(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "user creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// ListUsersHandler handles GET /api/v1/users
func (h *Handlers) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.Auth.ListUsers(r.Context())
	if err != nil {
		writeDomainError(w, err, "listing users failed")
		return
	}
	if users == nil {
		users = []user.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

// GetUserHandler handles GET /api/v1/users/{id}
func (h *Handlers) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.Auth.GetUser(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// UpdateUserHandler handles PUT /api/v1/users/{id}
func (h *Handlers) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.UpdateRequest](w, r)
	if !ok {
		return
	}
	u, err := h.Auth.UpdateUser(r.Context(), urlParam(r, "id"), req)
	if err != nil {
		writeDomainError(w, err, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CreateAPIKeyHandler handles POST /api/v1/auth/api-keys
func (h *Handlers) CreateAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[user.CreateAPIKeyRequest](w, r)
	if !ok {
		return
	}
	resp, err := h.Auth.CreateAPIKey(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "api key creation failed")
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAPIKeysHandler handles GET /api/v1/auth/api-keys
func (h *Handlers) ListAPIKeysHandler(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Auth.ListAPIKeys(r.Context())
	if err != nil {
		writeDomainError(w, err, "listing api keys failed")
		return
	}
	if keys == nil {
		keys = []user.APIKey{}
	}
	writeJSON(w, http.StatusOK, keys)
}

// DeleteAPIKeyHandler handles DELETE /api/v1/auth/api-keys/{id}
func (h *Handlers) DeleteAPIKeyHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.RevokeAPIKey(r.Context(), urlParam(r, "id")); err != nil {
		writeDomainError(w, err, "api key not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
