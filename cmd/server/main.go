// Package main is the entrypoint for the hireflow API server and its
// operator commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kiranshivaraju/hireflow/internal/api"
	"github.com/kiranshivaraju/hireflow/internal/api/handler"
	mw "github.com/kiranshivaraju/hireflow/internal/api/middleware"
	"github.com/kiranshivaraju/hireflow/internal/api/response"
	"github.com/kiranshivaraju/hireflow/internal/auth"
	"github.com/kiranshivaraju/hireflow/internal/cache"
	"github.com/kiranshivaraju/hireflow/internal/config"
	"github.com/kiranshivaraju/hireflow/internal/events"
	"github.com/kiranshivaraju/hireflow/internal/metrics"
	"github.com/kiranshivaraju/hireflow/internal/pipeline"
	"github.com/kiranshivaraju/hireflow/internal/store"
	"github.com/kiranshivaraju/hireflow/internal/store/memstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const (
	appName         = "hireflow"
	shutdownTimeout = 30 * time.Second
)

// Version is overridden at build time with -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	configureLogging("info")

	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		slog.Error("hireflow failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Hiring pipeline service",
		Long: `hireflow tracks applications and interviews between job seekers and
employers, enforcing who may move each record and which moves are legal.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configureLogging(logLevel)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP server",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context())
			},
		},
		migrateCmd(),
		createAPIKeyCmd(),
		issueTokenCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func configureLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: l})))
}

func run(ctx context.Context) error {
	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "store_driver", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Open store (runs migrations for postgres)
	st, closeStore, err := openStore(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer closeStore()

	// 3. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 4. Event publisher
	publisher, bus, err := openPublisher(cfg.Events)
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer publisher.Close()

	// 5. Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 6. Pipeline service and auth
	svc := pipeline.NewService(st, publisher, m, pipeline.WithJobCache(redisCache))
	resolver := auth.Chain{
		Keys:   auth.NewAPIKeyResolver(st),
		Tokens: auth.NewJWTResolver(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer),
	}

	// 7. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(resolver),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.PerMinute),

		HealthHandler:  healthHandler(st, redisCache, bus),
		MetricsHandler: metrics.Handler(reg),

		PostJob:        handler.NewPostJobHandler(svc),
		GetJob:         handler.NewGetJobHandler(svc),
		ApplyToJob:     handler.NewApplyHandler(svc),
		ListApps:       handler.NewListApplicationsHandler(svc),
		GetApp:         handler.NewGetApplicationHandler(svc),
		UpdateAppState: handler.NewUpdateApplicationStatusHandler(svc),
		Schedule:       handler.NewScheduleInterviewHandler(svc),

		ListInterviews:   handler.NewListInterviewsHandler(svc),
		GetInterview:     handler.NewGetInterviewHandler(svc),
		EditInterview:    handler.NewEditInterviewHandler(svc),
		RespondInterview: handler.NewRespondHandler(svc),
		CancelInterview:  handler.NewCancelInterviewHandler(svc),
		InterviewHistory: handler.NewInterviewHistoryHandler(svc),

		CreateKeyHandler: handler.NewCreateKeyHandler(st),
		ListKeysHandler:  handler.NewListKeysHandler(st),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(st),
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openStore returns the configured store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config, migrate bool) (store.Store, func(), error) {
	if cfg.Store.Driver == config.DriverMemory {
		slog.Warn("using in-memory store, state is lost on restart")
		return memstore.New(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("database connected")

	if migrate {
		if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		slog.Info("database migrations applied")
	}

	return store.NewPostgresStore(pool), pool.Close, nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

// openPublisher returns the event publisher and, when events go to NATS, the
// connection for health checks.
func openPublisher(cfg config.EventsConfig) (events.Publisher, pinger, error) {
	if cfg.NATSURL == "" {
		slog.Info("NATS_URL not set, pipeline events are not published")
		return events.Nop{}, nil, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("nats connected", "subject_prefix", cfg.SubjectPrefix)
	return pub, pub, nil
}

// healthHandler checks database and cache connectivity. The event bus is
// reported but never marks the service degraded.
func healthHandler(s store.Store, c cache.Cache, bus pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
			"events":   "disabled",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}
		if bus != nil {
			checks["events"] = "ok"
			if err := bus.Ping(r.Context()); err != nil {
				checks["events"] = "degraded"
			}
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded,
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
