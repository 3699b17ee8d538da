package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/MonitorForge/internal/domain"
)

func TestWriteDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", domain.ErrNotFound, http.StatusNotFound},
		{"already exists", domain.ErrAlreadyExists, http.StatusConflict},
		{"conflict", domain.ErrConflict, http.StatusConflict},
		{"cross tenant", domain.ErrCrossTenantReference, http.StatusUnprocessableEntity},
		{"storage down", domain.ErrStorageUnavailable, http.StatusServiceUnavailable},
		{"missing context", domain.ErrMissingContext, http.StatusInternalServerError},
		{"validation", fmt.Errorf("%w: name is required", domain.ErrValidation), http.StatusBadRequest},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden},
		{"quota", &domain.QuotaExceededError{Kind: "monitors", Current: 10, Limit: 10}, http.StatusTooManyRequests},
		{"wrapped not found", fmt.Errorf("get monitor: %w", domain.ErrNotFound), http.StatusNotFound},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err, "not found")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestWriteDomainErrorQuotaBody(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, &domain.QuotaExceededError{Kind: "monitors", Current: 10, Limit: 10}, "")

	var body quotaErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Kind != "monitors" || body.Current != 10 || body.Limit != 10 {
		t.Errorf("body = %+v, want monitors 10/10", body)
	}
}

func TestWriteDomainErrorValidationStripsPrefix(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, fmt.Errorf("%w: name is required", domain.ErrValidation), "")

	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "name is required" {
		t.Errorf("error = %q, want bare message", body.Error)
	}
}

func TestReadJSONRejectsOversizedBody(t *testing.T) {
	big := strings.NewReader(`{"name":"` + strings.Repeat("x", maxRequestBodySize+1) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/", big)
	rec := httptest.NewRecorder()

	if _, ok := readJSON[map[string]string](rec, req); ok {
		t.Fatal("expected oversized body to be rejected")
	}
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		query      string
		wantCursor string
		wantLimit  int
	}{
		{"", "", defaultPageLimit},
		{"?cursor=abc&limit=10", "abc", 10},
		{"?limit=0", "", defaultPageLimit},
		{"?limit=-5", "", defaultPageLimit},
		{"?limit=9999", "", maxPageLimit},
		{"?limit=nope", "", defaultPageLimit},
	}

	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
		cursor, limit := pageParams(r)
		if cursor != tt.wantCursor || limit != tt.wantLimit {
			t.Errorf("pageParams(%q) = (%q, %d), want (%q, %d)", tt.query, cursor, limit, tt.wantCursor, tt.wantLimit)
		}
	}
}

func TestAuditFilterParsesTimestamps(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/audit?action=monitor_created&from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()

	f, ok := auditFilter(rec, r)
	if !ok {
		t.Fatalf("auditFilter rejected valid query: %s", rec.Body.String())
	}
	if f.Action != "monitor_created" {
		t.Errorf("Action = %q", f.Action)
	}
	if f.From.IsZero() || f.To.IsZero() {
		t.Error("expected From and To to be set")
	}
}

func TestAuditFilterRejectsBadTimestamp(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/audit?from=yesterday", nil)
	rec := httptest.NewRecorder()

	if _, ok := auditFilter(rec, r); ok {
		t.Fatal("expected invalid timestamp to be rejected")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthReady(t *testing.T) {
	h := &Handlers{DB: stubPinger{}}
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestHealthReadyDatabaseDown(t *testing.T) {
	h := &Handlers{DB: stubPinger{err: errors.New("connection refused")}}
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
