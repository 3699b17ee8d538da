package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/MonitorForge/internal/domain"
)

const maxRequestBodySize = 1 << 20 // 1 MB

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

// urlParam is a short alias for chi.URLParam.
func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// pageParams extracts cursor pagination query parameters. The limit is
// clamped so a client cannot request unbounded pages.
func pageParams(r *http.Request) (cursor string, limit int) {
	cursor = r.URL.Query().Get("cursor")
	limit = defaultPageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = min(n, maxPageLimit)
		}
	}
	return cursor, limit
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

type errorResponse struct {
	Error string `json:"error"`
}

// quotaErrorResponse carries the usage observed at decision time so clients
// can display it without a second request.
type quotaErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
}

// pageResponse is the cursor-paginated collection envelope.
type pageResponse[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writePage[T any](w http.ResponseWriter, items []T, nextCursor string) {
	if items == nil {
		items = []T{}
	}
	writeJSON(w, http.StatusOK, pageResponse[T]{Items: items, NextCursor: nextCursor})
}

// writeDomainError maps domain sentinel errors onto HTTP statuses. An error
// nobody claimed is an internal one; the detail stays server-side.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	var qe *domain.QuotaExceededError
	switch {
	case errors.As(err, &qe):
		writeJSON(w, http.StatusTooManyRequests, quotaErrorResponse{
			Error:   qe.Error(),
			Kind:    qe.Kind,
			Current: qe.Current,
			Limit:   qe.Limit,
		})
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCrossTenantReference):
		writeError(w, http.StatusUnprocessableEntity, "referenced resource does not belong to your tenant")
	case errors.Is(err, domain.ErrStorageUnavailable):
		writeError(w, http.StatusServiceUnavailable, "storage unavailable")
	case errors.Is(err, domain.ErrMissingContext):
		// Reaching storage without a bound tenant is a server bug, never a
		// client one.
		slog.Error("request reached storage without tenant context", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	case errors.Is(err, domain.ErrValidation):
		msg := strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": ")
		writeError(w, http.StatusBadRequest, msg)
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeInternalError logs the actual error server-side and returns a generic message to the client.
func writeInternalError(w http.ResponseWriter, err error) {
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
