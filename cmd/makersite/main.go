// Command makersite runs the platform API server: the multi-tenant
// backend for sites, products, courses, media and the admin panel.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/makersite/makersite/pkg/api"
	"github.com/makersite/makersite/pkg/audit"
	"github.com/makersite/makersite/pkg/auth"
	"github.com/makersite/makersite/pkg/config"
	"github.com/makersite/makersite/pkg/courses"
	"github.com/makersite/makersite/pkg/jobs"
	"github.com/makersite/makersite/pkg/media"
	"github.com/makersite/makersite/pkg/middleware"
	"github.com/makersite/makersite/pkg/observability"
	"github.com/makersite/makersite/pkg/policy"
	"github.com/makersite/makersite/pkg/products"
	"github.com/makersite/makersite/pkg/sites"
	"github.com/makersite/makersite/pkg/storage"
	"github.com/makersite/makersite/pkg/store"
	"github.com/makersite/makersite/pkg/users"
)

const policyCacheSize = 4096

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "makersite: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)
	logger.Info("starting makersite")

	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := runMigrations(ctx, db); err != nil {
		return err
	}

	files, err := newFileStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("initializing file storage: %w", err)
	}

	metrics := observability.NewMetrics()
	directory := store.NewDirectory(db)
	engine := policy.NewEngine(directory, policyCacheSize)

	userStore := users.NewSQLStore(db)
	userSvc := users.NewService(userStore, engine, logger)
	siteSvc := sites.NewService(sites.NewSQLStore(db), engine, files, logger)
	productSvc := products.NewService(products.NewSQLStore(db), engine, files, logger)
	courseSvc := courses.NewService(courses.NewSQLStore(db), engine, files, logger)
	mediaSvc := media.NewService(media.NewSQLStore(db), engine, files, logger, metrics)

	tokenStore := auth.NewSQLStore(db)
	impersonator := auth.NewImpersonator(cfg.Auth.ImpersonationSecret, cfg.Auth.ImpersonationTTL)
	authSvc := auth.NewService(tokenStore, userStore, engine, impersonator, logger)

	recorder := audit.NewSQLRecorder(db, logger)

	server := api.NewServer(api.Deps{
		Users:    userSvc,
		Sites:    siteSvc,
		Products: productSvc,
		Courses:  courseSvc,
		Media:    mediaSvc,
		Auth:     authSvc,
		Audit:    recorder,
		Logger:   logger,
		Metrics:  metrics,
	}, middleware.NewAuth(authSvc, logger))

	handler := buildMiddleware(ctx, cfg, metrics, logger, server)

	// Log level follows the config file; other settings need a restart
	if path := os.Getenv("MAKERSITE_CONFIG_FILE"); path != "" {
		go func() {
			err := config.Watch(ctx, path, logger, func(updated *config.Config) {
				logger.SetLevel(observability.ParseLogLevel(updated.LogLevel))
			})
			if err != nil && ctx.Err() == nil {
				logger.WithError(err).Warn("config watcher stopped")
			}
		}()
	}

	scheduler := jobs.NewScheduler(logger)
	if cfg.Purge.Enabled {
		purger := jobs.NewPurger(db, files, tokenStore, recorder, cfg.Purge.Retention, logger)
		if err := scheduler.AddPurge(cfg.Purge.Schedule, purger); err != nil {
			return err
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", httpServer.Addr).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// runMigrations applies each package's schema in dependency order:
// users first, then the tables that reference them.
func runMigrations(ctx context.Context, db *sql.DB) error {
	steps := []struct {
		namespace  string
		migrations []store.Migration
	}{
		{"users", users.GetMigrations()},
		{"auth", auth.GetMigrations()},
		{"sites", sites.GetMigrations()},
		{"products", products.GetMigrations()},
		{"courses", courses.GetMigrations()},
		{"media", media.GetMigrations()},
		{"audit", audit.GetMigrations()},
	}
	for _, step := range steps {
		if err := store.RunMigrations(ctx, db, step.namespace, step.migrations); err != nil {
			return fmt.Errorf("migrating %s: %w", step.namespace, err)
		}
	}
	return nil
}

func newFileStore(ctx context.Context, cfg storage.Config) (storage.FileStore, error) {
	switch cfg.Type {
	case "s3":
		return storage.NewS3Store(ctx, cfg)
	default:
		return storage.NewFileSystemStore(cfg.Root, cfg.BaseURL)
	}
}

// buildMiddleware wraps the server with request ids, logging, panic
// recovery and rate limiting. Redis-backed limiting is used when a
// Redis URL is configured so limits hold across replicas.
func buildMiddleware(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *observability.Logger, server http.Handler) http.Handler {
	var handler http.Handler = server

	distributed := false
	if cfg.RateLimit.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("invalid redis url, falling back to in-process rate limiting")
		} else {
			client := redis.NewClient(opts)
			limiter := middleware.NewDistributedRateLimiter(client, cfg.RateLimit, metrics, logger)
			handler = limiter.Handler(handler)
			distributed = true
		}
	}
	if !distributed {
		limiter := middleware.NewRateLimiter(cfg.RateLimit, metrics)
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					limiter.Cleanup(10 * time.Minute)
				}
			}
		}()
		handler = limiter.Handler(handler)
	}

	handler = middleware.Logging(logger, metrics)(handler)
	handler = middleware.Recovery(logger)(handler)
	handler = middleware.RequestID(handler)
	return handler
}
