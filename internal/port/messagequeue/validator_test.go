package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidAuditRecorded(t *testing.T) {
	data := []byte(`{"event_id":"e1","tenant_id":"t1","action":"monitor_created","resource_type":"monitor","resource_id":"m1","created_at":"2026-01-01T00:00:00Z"}`)
	if err := Validate(SubjectAuditRecorded+".monitor_created", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidQuotaExceeded(t *testing.T) {
	data := []byte(`{"tenant_id":"t1","kind":"monitors","current":10,"limit":10}`)
	if err := Validate(SubjectQuotaExceeded, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	// Unknown subjects should pass (future-proof).
	data := []byte(`{"foo":"bar"}`)
	if err := Validate("unknown.subject", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	data := []byte(`{not valid json`)
	err := Validate(SubjectQuotaExceeded, data)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected 'invalid JSON' in error, got: %v", err)
	}
}

func TestValidateInvalidSchema(t *testing.T) {
	// Valid JSON but the wrong shape entirely.
	data := []byte(`"just a string"`)
	err := Validate(SubjectAuditRecorded+".monitor_created", data)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected 'schema validation failed' in error, got: %v", err)
	}
}

func TestValidateEmptyJSON(t *testing.T) {
	// Empty object is valid JSON and valid for all schemas (all fields are zero-value).
	data := []byte(`{}`)
	if err := Validate(SubjectQuotaExceeded, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
