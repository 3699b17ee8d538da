package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/Strob0t/MonitorForge/internal/adapter/postgres"
	"github.com/Strob0t/MonitorForge/internal/config"
	"github.com/Strob0t/MonitorForge/internal/domain/tenant"
	"github.com/Strob0t/MonitorForge/internal/domain/user"
	"github.com/Strob0t/MonitorForge/internal/logger"
	"github.com/Strob0t/MonitorForge/internal/service"
	"github.com/Strob0t/MonitorForge/internal/tenantctx"
)

// runAdmin dispatches admin subcommands (create-tenant, create-user,
// list-tenants). They talk to the database directly and bypass the HTTP
// layer, which is how the very first tenant and user get bootstrapped.
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "create-tenant":
		return runAdminCreateTenant(args[1:])
	case "create-user":
		return runAdminCreateUser(args[1:])
	case "list-tenants":
		return runAdminListTenants(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: monitorforge admin <command> [options]

Commands:
  create-tenant    Create a new tenant
  create-user      Create a user within a tenant
  list-tenants     List all tenants
  help             Show this help message

Examples:
  monitorforge admin create-tenant --name "Acme Corp" --slug acme
  monitorforge admin create-user --tenant acme --email admin@acme.test --name "Acme Admin" --role owner
  monitorforge admin list-tenants
`)
}

type adminDeps struct {
	tenants *service.TenantService
	auth    *service.AuthService
	cleanup func()
}

func loadAdminDeps() (*adminDeps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		logCloser.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	store := postgres.NewStore(pool)
	auditor := service.NewAuditor(store, nil, log, nil)
	tenantSvc := service.NewTenantService(store, nil, auditor, log, 0)
	authSvc := service.NewAuthService(store, tenantSvc, auditor, log, cfg.Auth)

	return &adminDeps{
		tenants: tenantSvc,
		auth:    authSvc,
		cleanup: func() {
			pool.Close()
			logCloser.Close()
		},
	}, nil
}

func runAdminCreateTenant(args []string) error {
	fs := flag.NewFlagSet("create-tenant", flag.ContinueOnError)
	name := fs.String("name", "", "tenant display name (required)")
	slug := fs.String("slug", "", "tenant slug (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if *slug == "" {
		return fmt.Errorf("--slug is required")
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	t, err := deps.tenants.Create(context.Background(), tenant.CreateRequest{
		Name: *name,
		Slug: *slug,
	})
	if err != nil {
		return fmt.Errorf("create tenant: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Tenant created: %s (id=%s, slug=%s)\n", t.Name, t.ID, t.Slug)
	return nil
}

func runAdminCreateUser(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	tenantSlug := fs.String("tenant", "", "tenant slug (required)")
	email := fs.String("email", "", "user email address (required)")
	name := fs.String("name", "", "user display name (required)")
	password := fs.String("password", "", "password (prompted if not provided)") //nolint:gosec // CLI flag
	role := fs.String("role", string(tenant.RoleMember), "role: owner, admin, member or viewer")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *tenantSlug == "" {
		return fmt.Errorf("--tenant is required")
	}
	if *email == "" {
		return fmt.Errorf("--email is required")
	}
	if *name == "" {
		return fmt.Errorf("--name is required")
	}
	if !tenant.Role(*role).Valid() {
		return fmt.Errorf("invalid role: %s", *role)
	}

	pass := *password
	if pass == "" {
		var err error
		pass, err = promptPassword("Password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		if pass != confirm {
			return fmt.Errorf("passwords do not match")
		}
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	ctx := context.Background()
	t, err := deps.tenants.GetBySlug(ctx, *tenantSlug)
	if err != nil {
		return fmt.Errorf("resolve tenant %q: %w", *tenantSlug, err)
	}

	// All storage operations require a bound tenant scope, the CLI included.
	ctx = tenantctx.Bind(ctx, tenantctx.TenantContext{
		TenantID: t.ID,
		Role:     tenant.RoleOwner,
	})

	u, err := deps.auth.Register(ctx, user.CreateRequest{
		Email:    *email,
		Name:     *name,
		Password: pass,
		Role:     tenant.Role(*role),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(os.Stderr, "User created: %s (id=%s, tenant=%s, role=%s)\n", u.Email, u.ID, t.Slug, u.Role)
	return nil
}

func runAdminListTenants(args []string) error {
	fs := flag.NewFlagSet("list-tenants", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	deps, err := loadAdminDeps()
	if err != nil {
		return err
	}
	defer deps.cleanup()

	tenants, _, err := deps.tenants.List(context.Background(), "", 200)
	if err != nil {
		return fmt.Errorf("list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSLUG\tNAME\tACTIVE\tMAX_MONITORS\tMAX_NETWORKS")
	for i := range tenants {
		t := &tenants[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%t\t%d\t%d\n",
			t.ID, t.Slug, t.Name, t.IsActive, t.Limits.MaxMonitors, t.Limits.MaxNetworks)
	}
	return w.Flush()
}

// promptPassword reads a password from the terminal without echoing.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
