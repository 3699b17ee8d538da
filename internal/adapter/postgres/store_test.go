package postgres_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/MonitorForge/internal/adapter/postgres"
	"github.com/Strob0t/MonitorForge/internal/domain"
	"github.com/Strob0t/MonitorForge/internal/domain/audit"
	"github.com/Strob0t/MonitorForge/internal/domain/quota"
	"github.com/Strob0t/MonitorForge/internal/domain/resource"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// setupPool creates a pgxpool connection and runs all migrations. The pool is
// closed via t.Cleanup. Tests are skipped unless DATABASE_URL is set.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()

	if err := postgres.RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

func setupStore(t *testing.T) *postgres.Store {
	t.Helper()
	return postgres.NewStore(setupPool(t))
}

// createTestTenant creates a tenant with a random slug and returns it.
func createTestTenant(t *testing.T, store *postgres.Store, limits quota.Limits) *tenant.Tenant {
	t.Helper()
	slug := "test-" + uuid.New().String()[:8]
	tn, err := store.CreateTenant(context.Background(), tenant.CreateRequest{
		Name:   "Test Tenant " + slug,
		Slug:   slug,
		Limits: limits,
	})
	if err != nil {
		t.Fatalf("create test tenant: %v", err)
	}
	return tn
}

// scoped returns a context bound to the given tenant.
func scoped(tenantID string) context.Context {
	return tenantctx.Bind(context.Background(), tenantctx.TenantContext{
		TenantID:      tenantID,
		PrincipalID:   "test-user",
		PrincipalKind: tenantctx.PrincipalUser,
		Role:          tenant.RoleAdmin,
	})
}

func testConfig() json.RawMessage {
	return json.RawMessage(`{"interval":"30s"}`)
}

// createTestNetwork inserts a network for the tenant bound to ctx.
func createTestNetwork(t *testing.T, repo *postgres.NetworkRepo, ctx context.Context) *resource.Network {
	t.Helper()
	n, err := repo.Create(ctx, resource.CreateNetworkRequest{
		LogicalID:     "net-" + uuid.New().String()[:8],
		Name:          "Test Net",
		Configuration: testConfig(),
	})
	if err != nil {
		t.Fatalf("create test network: %v", err)
	}
	return n
}

// --------------------------------------------------------------------------
// Tenants
// --------------------------------------------------------------------------

func TestStore_TenantCRUD(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	created := createTestTenant(t, store, quota.Limits{})

	if created.Limits != quota.DefaultLimits {
		t.Fatalf("expected default limits, got %+v", created.Limits)
	}
	if !created.IsActive {
		t.Fatal("new tenant must be active")
	}

	t.Run("Get", func(t *testing.T) {
		got, err := store.GetTenant(ctx, created.ID)
		if err != nil {
			t.Fatalf("GetTenant: %v", err)
		}
		if got.Slug != created.Slug {
			t.Fatalf("expected slug %q, got %q", created.Slug, got.Slug)
		}
	})

	t.Run("GetBySlug", func(t *testing.T) {
		got, err := store.GetTenantBySlug(ctx, created.Slug)
		if err != nil {
			t.Fatalf("GetTenantBySlug: %v", err)
		}
		if got.ID != created.ID {
			t.Fatalf("expected tenant %s, got %s", created.ID, got.ID)
		}
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := store.GetTenant(ctx, uuid.New().String())
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("DuplicateSlug", func(t *testing.T) {
		_, err := store.CreateTenant(ctx, tenant.CreateRequest{
			Name: "Clone", Slug: created.Slug,
		})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("Suspend", func(t *testing.T) {
		inactive := false
		got, err := store.UpdateTenant(ctx, created.ID, tenant.UpdateRequest{IsActive: &inactive})
		if err != nil {
			t.Fatalf("UpdateTenant: %v", err)
		}
		if got.IsActive {
			t.Fatal("expected tenant to be suspended")
		}
	})

	t.Run("UpdateLimits", func(t *testing.T) {
		limits := quota.Limits{MaxMonitors: 50, MaxNetworks: 10, MaxTriggersPerMonitor: 5, MaxRPCRequestsPerMinute: 120, MaxStorageMB: 500}
		got, err := store.UpdateTenant(ctx, created.ID, tenant.UpdateRequest{Limits: &limits})
		if err != nil {
			t.Fatalf("UpdateTenant: %v", err)
		}
		if got.Limits.MaxMonitors != 50 {
			t.Fatalf("expected MaxMonitors 50, got %d", got.Limits.MaxMonitors)
		}
	})
}

// --------------------------------------------------------------------------
// Users
// --------------------------------------------------------------------------

func TestStore_UserTenantIsolation(t *testing.T) {
	store := setupStore(t)

	tenantA := createTestTenant(t, store, quota.Limits{})
	tenantB := createTestTenant(t, store, quota.Limits{})
	ctxA := scoped(tenantA.ID)
	ctxB := scoped(tenantB.ID)

	email := "user-" + uuid.New().String()[:8] + "@example.com"

	created, err := store.CreateUser(ctxA, user.User{
		Email:        email,
		Name:         "Tenant A User",
		PasswordHash: "$2a$10$dummyhashforintegrationtest0000000000000000000000",
		Role:         tenant.RoleMember,
		Enabled:      true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	t.Run("CreateRequiresContext", func(t *testing.T) {
		_, err := store.CreateUser(context.Background(), user.User{Email: "x@example.com"})
		if !errors.Is(err, domain.ErrMissingContext) {
			t.Fatalf("expected ErrMissingContext, got %v", err)
		}
	})

	t.Run("GetScopedToTenant", func(t *testing.T) {
		got, err := store.GetUser(ctxA, created.ID)
		if err != nil {
			t.Fatalf("GetUser in own tenant: %v", err)
		}
		if got.Email != email {
			t.Fatalf("expected email %q, got %q", email, got.Email)
		}

		// The other tenant sees nothing, not even that the user exists.
		if _, err := store.GetUser(ctxB, created.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from other tenant, got %v", err)
		}
	})

	t.Run("ListScopedToTenant", func(t *testing.T) {
		users, err := store.ListUsers(ctxB)
		if err != nil {
			t.Fatalf("ListUsers: %v", err)
		}
		for i := range users {
			if users[i].ID == created.ID {
				t.Fatal("ListUsers leaked a user from another tenant")
			}
		}
	})
}

// --------------------------------------------------------------------------
// Resource repository: isolation, quota, cross-tenant references
// --------------------------------------------------------------------------

func TestRepo_MonitorTenantIsolation(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	networks := postgres.NewNetworkRepo(pool)
	monitors := postgres.NewMonitorRepo(pool)

	tenantA := createTestTenant(t, store, quota.Limits{})
	tenantB := createTestTenant(t, store, quota.Limits{})
	ctxA := scoped(tenantA.ID)
	ctxB := scoped(tenantB.ID)

	netA := createTestNetwork(t, networks, ctxA)

	monA, err := monitors.Create(ctxA, resource.CreateMonitorRequest{
		LogicalID:     "mon-1",
		NetworkID:     netA.ID,
		Name:          "Ping",
		Configuration: testConfig(),
	})
	if err != nil {
		t.Fatalf("Create monitor: %v", err)
	}

	t.Run("RequiresContext", func(t *testing.T) {
		_, err := monitors.Get(context.Background(), monA.ID)
		if !errors.Is(err, domain.ErrMissingContext) {
			t.Fatalf("expected ErrMissingContext, got %v", err)
		}
	})

	t.Run("ForeignRowInvisible", func(t *testing.T) {
		if _, err := monitors.Get(ctxB, monA.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from tenant B, got %v", err)
		}
	})

	t.Run("LogicalIDPerTenant", func(t *testing.T) {
		// The same logical id in another tenant is a fresh namespace.
		netB := createTestNetwork(t, networks, ctxB)
		monB, err := monitors.Create(ctxB, resource.CreateMonitorRequest{
			LogicalID:     "mon-1",
			NetworkID:     netB.ID,
			Name:          "B Ping",
			Configuration: testConfig(),
		})
		if err != nil {
			t.Fatalf("Create monitor in tenant B: %v", err)
		}

		got, err := monitors.GetByLogicalID(ctxB, "mon-1")
		if err != nil {
			t.Fatalf("GetByLogicalID: %v", err)
		}
		if got.ID != monB.ID {
			t.Fatalf("expected tenant B's monitor, got %s", got.ID)
		}
	})

	t.Run("DuplicateLogicalID", func(t *testing.T) {
		_, err := monitors.Create(ctxA, resource.CreateMonitorRequest{
			LogicalID:     "mon-1",
			NetworkID:     netA.ID,
			Name:          "Clone",
			Configuration: testConfig(),
		})
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("CrossTenantReferenceRejected", func(t *testing.T) {
		// Tenant B referencing tenant A's network is rejected, not silently
		// reattributed.
		_, err := monitors.Create(ctxB, resource.CreateMonitorRequest{
			LogicalID:     "mon-stealer",
			NetworkID:     netA.ID,
			Name:          "Stealer",
			Configuration: testConfig(),
		})
		if !errors.Is(err, domain.ErrCrossTenantReference) {
			t.Fatalf("expected ErrCrossTenantReference, got %v", err)
		}
	})

	t.Run("DeleteFromWrongTenant", func(t *testing.T) {
		if err := monitors.Delete(ctxB, monA.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRepo_MonitorQuotaEnforced(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	networks := postgres.NewNetworkRepo(pool)
	monitors := postgres.NewMonitorRepo(pool)

	tn := createTestTenant(t, store, quota.Limits{
		MaxMonitors:             2,
		MaxNetworks:             1,
		MaxTriggersPerMonitor:   1,
		MaxRPCRequestsPerMinute: 60,
		MaxStorageMB:            10,
	})
	ctx := scoped(tn.ID)
	net := createTestNetwork(t, networks, ctx)

	mk := func(logicalID string) (*resource.Monitor, error) {
		return monitors.Create(ctx, resource.CreateMonitorRequest{
			LogicalID:     logicalID,
			NetworkID:     net.ID,
			Name:          logicalID,
			Configuration: testConfig(),
		})
	}

	first, err := mk("m-1")
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if _, err := mk("m-2"); err != nil {
		t.Fatalf("second create: %v", err)
	}

	// The third create exceeds MaxMonitors=2.
	_, err = mk("m-3")
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if qe.Kind != string(quota.KindMonitors) || qe.Limit != 2 {
		t.Fatalf("unexpected quota error: %+v", qe)
	}

	// Deleting one frees the slot again.
	if err := monitors.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := mk("m-3"); err != nil {
		t.Fatalf("create after delete: %v", err)
	}
}

func TestRepo_ListTriggersByMonitor(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	networks := postgres.NewNetworkRepo(pool)
	monitors := postgres.NewMonitorRepo(pool)
	triggers := postgres.NewTriggerRepo(pool)

	tenantA := createTestTenant(t, store, quota.Limits{})
	tenantB := createTestTenant(t, store, quota.Limits{})
	ctxA := scoped(tenantA.ID)
	ctxB := scoped(tenantB.ID)

	net := createTestNetwork(t, networks, ctxA)
	mkMonitor := func(logicalID string) *resource.Monitor {
		m, err := monitors.Create(ctxA, resource.CreateMonitorRequest{
			LogicalID:     logicalID,
			NetworkID:     net.ID,
			Name:          logicalID,
			Configuration: testConfig(),
		})
		if err != nil {
			t.Fatalf("create monitor %s: %v", logicalID, err)
		}
		return m
	}
	monOne := mkMonitor("mon-1")
	monTwo := mkMonitor("mon-2")

	mkTrigger := func(monitorID, logicalID string) {
		_, err := triggers.Create(ctxA, resource.CreateTriggerRequest{
			LogicalID:     logicalID,
			MonitorID:     monitorID,
			Name:          logicalID,
			TriggerType:   resource.TriggerWebhook,
			Configuration: testConfig(),
		})
		if err != nil {
			t.Fatalf("create trigger %s: %v", logicalID, err)
		}
	}
	mkTrigger(monOne.ID, "trig-1")
	mkTrigger(monOne.ID, "trig-2")
	mkTrigger(monTwo.ID, "trig-other")

	t.Run("OnlyOwnMonitorsTriggers", func(t *testing.T) {
		got, next, err := triggers.ListByParent(ctxA, monOne.ID, "", 50)
		if err != nil {
			t.Fatalf("ListByParent: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 triggers, got %d", len(got))
		}
		if next != "" {
			t.Fatalf("unexpected next cursor %q", next)
		}
		for i := range got {
			if got[i].MonitorID != monOne.ID {
				t.Fatalf("trigger %s belongs to monitor %s", got[i].ID, got[i].MonitorID)
			}
		}
	})

	t.Run("ForeignMonitorReadsAsAbsent", func(t *testing.T) {
		if _, _, err := triggers.ListByParent(ctxB, monOne.ID, "", 50); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound from tenant B, got %v", err)
		}
	})

	t.Run("UnknownMonitorReadsAsAbsent", func(t *testing.T) {
		if _, _, err := triggers.ListByParent(ctxA, uuid.NewString(), "", 50); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Pagination", func(t *testing.T) {
		page, next, err := triggers.ListByParent(ctxA, monOne.ID, "", 1)
		if err != nil {
			t.Fatalf("ListByParent page 1: %v", err)
		}
		if len(page) != 1 || next == "" {
			t.Fatalf("expected a full page with a cursor, got %d events cursor=%q", len(page), next)
		}
		rest, next, err := triggers.ListByParent(ctxA, monOne.ID, next, 1)
		if err != nil {
			t.Fatalf("ListByParent page 2: %v", err)
		}
		if len(rest) != 1 || next != "" {
			t.Fatalf("expected final page with 1 trigger, got %d cursor=%q", len(rest), next)
		}
	})
}

// --------------------------------------------------------------------------
// Quota ledger
// --------------------------------------------------------------------------

func TestLedger_AdmitReleaseUsed(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	ledger := postgres.NewLedger(pool, slog.New(slog.DiscardHandler))

	tn := createTestTenant(t, store, quota.Limits{})
	ctx := scoped(tn.ID)

	if _, err := ledger.Admit(ctx, quota.KindRPCRequests, "test-period", 3, 5); err != nil {
		t.Fatalf("admit: %v", err)
	}

	used, err := ledger.Used(ctx, quota.KindRPCRequests, "test-period")
	if err != nil {
		t.Fatalf("used: %v", err)
	}
	if used != 3 {
		t.Fatalf("used = %d, want 3", used)
	}

	// Admitting beyond the limit fails and leaves usage unchanged.
	_, err = ledger.Admit(ctx, quota.KindRPCRequests, "test-period", 3, 5)
	var qe *domain.QuotaExceededError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if used, _ := ledger.Used(ctx, quota.KindRPCRequests, "test-period"); used != 3 {
		t.Fatalf("rejected admit changed usage to %d", used)
	}

	if err := ledger.Release(ctx, quota.KindRPCRequests, "test-period", 2); err != nil {
		t.Fatalf("release: %v", err)
	}
	if used, _ := ledger.Used(ctx, quota.KindRPCRequests, "test-period"); used != 1 {
		t.Fatalf("used after release = %d, want 1", used)
	}

	t.Run("RequiresContext", func(t *testing.T) {
		_, err := ledger.Admit(context.Background(), quota.KindRPCRequests, "test-period", 1, 5)
		if !errors.Is(err, domain.ErrMissingContext) {
			t.Fatalf("expected ErrMissingContext, got %v", err)
		}
	})
}

func TestLedger_ConcurrentAdmitsNeverOvershoot(t *testing.T) {
	pool := setupPool(t)
	store := postgres.NewStore(pool)
	ledger := postgres.NewLedger(pool, slog.New(slog.DiscardHandler))

	tn := createTestTenant(t, store, quota.Limits{})
	ctx := scoped(tn.ID)

	const workers = 20
	const limit = 10

	var wg sync.WaitGroup
	admitted := make(chan struct{}, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Admit(ctx, quota.KindMonitors, "race-period", 1, limit); err == nil {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	if n := len(admitted); n != limit {
		t.Fatalf("admitted %d of %d concurrent requests, want exactly %d", n, workers, limit)
	}
	if used, _ := ledger.Used(ctx, quota.KindMonitors, "race-period"); used != limit {
		t.Fatalf("used = %d, want %d", used, limit)
	}
}

// --------------------------------------------------------------------------
// Audit trail
// --------------------------------------------------------------------------

func TestStore_AuditAppendAndLoad(t *testing.T) {
	store := setupStore(t)

	tenantA := createTestTenant(t, store, quota.Limits{})
	tenantB := createTestTenant(t, store, quota.Limits{})
	ctxA := scoped(tenantA.ID)
	ctxB := scoped(tenantB.ID)

	for _, action := range []string{audit.ActionMonitorCreated, audit.ActionMonitorDeleted, audit.ActionQuotaExceeded} {
		err := store.AppendAudit(ctxA, audit.Event{
			ID:           uuid.NewString(),
			Action:       action,
			ResourceType: "monitor",
			ResourceID:   uuid.NewString(),
		})
		if err != nil {
			t.Fatalf("AppendAudit: %v", err)
		}
	}

	t.Run("LoadScopedToTenant", func(t *testing.T) {
		page, err := store.LoadAudit(ctxB, audit.Filter{Limit: 50})
		if err != nil {
			t.Fatalf("LoadAudit: %v", err)
		}
		if len(page.Events) != 0 {
			t.Fatalf("tenant B sees %d foreign events", len(page.Events))
		}
	})

	t.Run("FilterByAction", func(t *testing.T) {
		page, err := store.LoadAudit(ctxA, audit.Filter{Action: audit.ActionQuotaExceeded, Limit: 50})
		if err != nil {
			t.Fatalf("LoadAudit: %v", err)
		}
		if len(page.Events) != 1 {
			t.Fatalf("expected 1 quota_exceeded event, got %d", len(page.Events))
		}
	})

	t.Run("CursorPagination", func(t *testing.T) {
		page, err := store.LoadAudit(ctxA, audit.Filter{Limit: 2})
		if err != nil {
			t.Fatalf("LoadAudit: %v", err)
		}
		if len(page.Events) != 2 || !page.HasMore {
			t.Fatalf("expected a full first page with more, got %d events hasMore=%t", len(page.Events), page.HasMore)
		}

		rest, err := store.LoadAudit(ctxA, audit.Filter{Cursor: page.NextCursor, Limit: 2})
		if err != nil {
			t.Fatalf("LoadAudit page 2: %v", err)
		}
		if len(rest.Events) != 1 || rest.HasMore {
			t.Fatalf("expected final page with 1 event, got %d hasMore=%t", len(rest.Events), rest.HasMore)
		}
	})

	t.Run("ForeignCursorResolvesToNothing", func(t *testing.T) {
		// Paginating with another tenant's event id must not confirm that the
		// event exists: the page reads the same as for any unknown cursor.
		foreign := uuid.NewString()
		if err := store.AppendAudit(ctxB, audit.Event{
			ID:     foreign,
			Action: audit.ActionMonitorCreated,
		}); err != nil {
			t.Fatalf("AppendAudit for tenant B: %v", err)
		}

		page, err := store.LoadAudit(ctxA, audit.Filter{Cursor: foreign, Limit: 50})
		if err != nil {
			t.Fatalf("LoadAudit with foreign cursor: %v", err)
		}
		unknown, err := store.LoadAudit(ctxA, audit.Filter{Cursor: uuid.NewString(), Limit: 50})
		if err != nil {
			t.Fatalf("LoadAudit with unknown cursor: %v", err)
		}
		if len(page.Events) != len(unknown.Events) || page.HasMore != unknown.HasMore {
			t.Fatalf("foreign cursor page (%d events, hasMore=%t) differs from unknown cursor page (%d events, hasMore=%t)",
				len(page.Events), page.HasMore, len(unknown.Events), unknown.HasMore)
		}
	})

	t.Run("AppendRequiresContext", func(t *testing.T) {
		err := store.AppendAudit(context.Background(), audit.Event{ID: uuid.NewString(), Action: "x"})
		if !errors.Is(err, domain.ErrMissingContext) {
			t.Fatalf("expected ErrMissingContext, got %v", err)
		}
	})
}
