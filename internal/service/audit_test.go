package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/port/messagequeue"
)

func TestAuditorEmitFillsPrincipal(t *testing.T) {
	store := newMockStore()
	queue := newMockQueue()
	a := NewAuditor(store, queue, testLogger(), nil)

	a.Emit(boundCtx("tenant-1"), audit.Event{
		Action:       audit.ActionMonitorCreated,
		ResourceType: "monitor",
		ResourceID:   "mon-1",
	})

	events := store.auditEvents()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.ID == "" {
		t.Error("expected generated event id")
	}
	if ev.TenantID != "tenant-1" {
		t.Errorf("TenantID = %q, want tenant-1", ev.TenantID)
	}
	if ev.UserID != "user-1" {
		t.Errorf("UserID = %q, want user-1", ev.UserID)
	}
	if ev.APIKeyID != "" {
		t.Errorf("APIKeyID = %q, want empty for user principal", ev.APIKeyID)
	}
	if ev.RequestID != "req-1" {
		t.Errorf("RequestID = %q, want req-1", ev.RequestID)
	}
	if ev.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	if queue.count(messagequeue.SubjectAuditRecorded+"."+audit.ActionMonitorCreated) != 1 {
		t.Error("expected one published audit message")
	}
}

func TestAuditorEmitWithoutTenantDropsEvent(t *testing.T) {
	store := newMockStore()
	a := NewAuditor(store, newMockQueue(), testLogger(), nil)

	a.Emit(context.Background(), audit.Event{Action: audit.ActionMonitorCreated})

	if len(store.auditEvents()) != 0 {
		t.Error("event without tenant scope must not be stored")
	}
}

func TestAuditorStoreFailureDoesNotPropagate(t *testing.T) {
	store := newMockStore()
	store.appendErr = errors.New("db down")
	queue := newMockQueue()
	a := NewAuditor(store, queue, testLogger(), nil)

	// Emit has no error return; the failure must be swallowed entirely.
	a.Emit(boundCtx("tenant-1"), audit.Event{Action: audit.ActionMonitorCreated})

	if queue.count(messagequeue.SubjectAuditRecorded+"."+audit.ActionMonitorCreated) != 0 {
		t.Error("failed append must not publish")
	}
}

func TestAuditorPublishFailureDoesNotPropagate(t *testing.T) {
	store := newMockStore()
	queue := newMockQueue()
	queue.publishErr = errors.New("nats down")
	a := NewAuditor(store, queue, testLogger(), nil)

	a.Emit(boundCtx("tenant-1"), audit.Event{Action: audit.ActionMonitorCreated})

	if len(store.auditEvents()) != 1 {
		t.Error("append must succeed regardless of publish failure")
	}
}

func TestAuditorPublishOutlivesRequestCancel(t *testing.T) {
	store := newMockStore()
	queue := newMockQueue()
	a := NewAuditor(store, queue, testLogger(), nil)

	ctx, cancel := context.WithCancel(boundCtx("tenant-1"))
	cancel()

	a.Emit(ctx, audit.Event{Action: audit.ActionMonitorCreated})

	if queue.count(messagequeue.SubjectAuditRecorded+"."+audit.ActionMonitorCreated) != 1 {
		t.Fatal("expected the event to be published despite the canceled request")
	}
	queue.mu.Lock()
	defer queue.mu.Unlock()
	if queue.lastCtxErr != nil {
		t.Errorf("publish context carried the request's cancellation: %v", queue.lastCtxErr)
	}
	if queue.lastCtxTnnt != "tenant-1" {
		t.Errorf("publish context tenant = %q, want tenant-1", queue.lastCtxTnnt)
	}
}

func TestAuditorNilQueueIsFine(t *testing.T) {
	store := newMockStore()
	a := NewAuditor(store, nil, testLogger(), nil)

	a.Emit(boundCtx("tenant-1"), audit.Event{Action: audit.ActionMonitorCreated})

	if len(store.auditEvents()) != 1 {
		t.Error("append must succeed without a queue")
	}
}

func TestAuditorEmitQuotaExceeded(t *testing.T) {
	store := newMockStore()
	queue := newMockQueue()
	a := NewAuditor(store, queue, testLogger(), nil)

	a.EmitQuotaExceeded(boundCtx("tenant-1"), "monitors", 10, 10, "monitor")

	events := store.auditEvents()
	if len(events) != 1 || events[0].Action != audit.ActionQuotaExceeded {
		t.Fatalf("expected one quota_exceeded event, got %+v", events)
	}
	if queue.count(messagequeue.SubjectQuotaExceeded) != 1 {
		t.Error("expected one quota.exceeded message")
	}
}
