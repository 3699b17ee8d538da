package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	mfhttp "github.com/Strob0t/MonitorForge/internal/adapter/http"
	mfnats "github.com/Strob0t/MonitorForge/internal/adapter/nats"
	mfotel "github.com/Strob0t/MonitorForge/internal/adapter/otel"
	"github.com/Strob0t/MonitorForge/internal/adapter/postgres"
	"github.com/Strob0t/MonitorForge/internal/adapter/ristretto"
	"github.com/Strob0t/MonitorForge/internal/config"
	"github.com/Strob0t/MonitorForge/internal/logger"
	"github.com/Strob0t/MonitorForge/internal/middleware"
	"github.com/Strob0t/MonitorForge/internal/port/messagequeue"
	"github.com/Strob0t/MonitorForge/internal/resilience"
	"github.com/Strob0t/MonitorForge/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	log.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"pg_max_conns", cfg.Postgres.MaxConns,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---
	otelShutdown, err := mfotel.Setup(ctx, cfg.OTel, cfg.Logging.Service, log)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = otelShutdown(shutdownCtx)
	}()

	metrics, err := mfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- Infrastructure ---
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	log.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	log.Info("migrations applied")

	// NATS is optional; without it audit events are stored but not fanned out.
	var queue messagequeue.Queue
	if cfg.NATS.URL != "" {
		q, err := mfnats.Connect(ctx, cfg.NATS.URL, log)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() { _ = q.Close() }()
		queue = q
	} else {
		log.Warn("nats disabled, audit fan-out is off")
	}

	tenantCache, err := ristretto.New(cfg.Cache.MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer tenantCache.Close()

	// --- Storage ---
	store := postgres.NewStore(pool)
	pgLedger := postgres.NewLedger(pool, log)
	ledger := service.NewMeteredLedger(pgLedger, metrics)
	monitorRepo := postgres.NewMonitorRepo(pool)
	networkRepo := postgres.NewNetworkRepo(pool)
	triggerRepo := postgres.NewTriggerRepo(pool)

	// --- Services ---
	auditor := service.NewAuditor(store, queue, log, metrics)
	tenantSvc := service.NewTenantService(store, tenantCache, auditor, log, cfg.Cache.TenantTTL)
	authSvc := service.NewAuthService(store, tenantSvc, auditor, log, cfg.Auth)
	monitorSvc := service.NewMonitorService(monitorRepo, auditor, metrics)
	networkSvc := service.NewNetworkService(networkRepo, auditor, metrics)
	triggerSvc := service.NewTriggerService(triggerRepo, auditor, metrics)

	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)
	quotaSvc := service.NewQuotaService(tenantSvc, ledger, breaker)

	// Expired rate buckets are swept in the background for as long as the
	// process runs.
	pgLedger.StartCleanup(ctx, time.Hour)

	// --- HTTP ---
	handlers := &mfhttp.Handlers{
		Tenants:  tenantSvc,
		Auth:     authSvc,
		Monitors: monitorSvc,
		Networks: networkSvc,
		Triggers: triggerSvc,
		Quota:    quotaSvc,
		Auditor:  auditor,
		DB:       pool,
	}

	rl := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopRL := rl.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopRL()

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(mfhttp.SecurityHeaders)
	r.Use(mfhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(middleware.RequestID)
	r.Use(mfhttp.Logger)
	r.Use(mfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(rl.Handler)
	r.Use(middleware.Auth(authSvc))
	r.Use(middleware.TenantGuard(tenantSvc))
	r.Use(middleware.TenantRPCQuota(ledger, tenantSvc))

	mfhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
