package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/port/database"
	"github.com/Strob0t/MonitorForge/internal/port/messagequeue"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// mockStore is a hand-rolled database.Store. Only the methods a test needs
// are overridden; calling anything else panics via the embedded nil.
type mockStore struct {
	database.Store

	mu     sync.Mutex
	events []audit.Event

	tenants   map[string]*tenant.Tenant
	users     map[string]*user.User
	apiKeys   map[string]*user.APIKey // keyed by hash
	appendErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		tenants: make(map[string]*tenant.Tenant),
		users:   make(map[string]*user.User),
		apiKeys: make(map[string]*user.APIKey),
	}
}

func (m *mockStore) AppendAudit(_ context.Context, ev audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	m.events = append(m.events, ev)
	return nil
}

func (m *mockStore) auditEvents() []audit.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]audit.Event, len(m.events))
	copy(out, m.events)
	return out
}

func (m *mockStore) GetTenant(_ context.Context, id string) (*tenant.Tenant, error) {
	t, ok := m.tenants[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return nil, err
	}
	u, ok := m.users[id]
	if !ok || u.TenantID != tid {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockStore) GetAPIKeyByHash(_ context.Context, keyHash string) (*user.APIKey, error) {
	k, ok := m.apiKeys[keyHash]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *k
	return &cp, nil
}

// mockQueue records published messages, plus the state of the context each
// publish arrived with.
type mockQueue struct {
	mu          sync.Mutex
	published   map[string][][]byte
	publishErr  error
	lastCtxErr  error
	lastCtxTnnt string
}

func newMockQueue() *mockQueue {
	return &mockQueue{published: make(map[string][][]byte)}
}

func (m *mockQueue) Publish(ctx context.Context, subject string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCtxErr = ctx.Err()
	m.lastCtxTnnt, _ = tenantctx.TenantID(ctx)
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published[subject] = append(m.published[subject], data)
	return nil
}

func (m *mockQueue) Subscribe(context.Context, string, messagequeue.Handler) (func(), error) {
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

func (m *mockQueue) count(subject string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.published[subject])
}

// memCache is an in-memory cache.Cache without eviction.
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// memLedger keeps counters in memory with ledger semantics.
type memLedger struct {
	mu      sync.Mutex
	used    map[string]int64
	usedErr error
}

func newMemLedger() *memLedger { return &memLedger{used: make(map[string]int64)} }

func (l *memLedger) key(tid string, kind quota.Kind, period string) string {
	return tid + "/" + string(kind) + "/" + period
}

func (l *memLedger) Admit(ctx context.Context, kind quota.Kind, periodKey string, n, limit int64) (int64, error) {
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(tid, kind, periodKey)
	if l.used[k]+n > limit {
		return 0, &domain.QuotaExceededError{Kind: string(kind), Current: l.used[k], Limit: limit}
	}
	l.used[k] += n
	return l.used[k], nil
}

func (l *memLedger) Release(ctx context.Context, kind quota.Kind, periodKey string, n int64) error {
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := l.key(tid, kind, periodKey)
	if l.used[k] -= n; l.used[k] < 0 {
		l.used[k] = 0
	}
	return nil
}

func (l *memLedger) Used(ctx context.Context, kind quota.Kind, periodKey string) (int64, error) {
	if l.usedErr != nil {
		return 0, l.usedErr
	}
	tid, err := tenantctx.TenantID(ctx)
	if err != nil {
		return 0, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used[l.key(tid, kind, periodKey)], nil
}

// boundCtx returns a context scoped to a user principal of the given tenant.
func boundCtx(tenantID string) context.Context {
	return tenantctx.Bind(context.Background(), tenantctx.TenantContext{
		TenantID:      tenantID,
		PrincipalID:   "user-1",
		PrincipalKind: tenantctx.PrincipalUser,
		Role:          tenant.RoleAdmin,
		RequestID:     "req-1",
	})
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
