package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/redis/go-redis/v9"

	"github.com/UoMCS/bigscreen/aggregation"
	"github.com/UoMCS/bigscreen/api"
	"github.com/UoMCS/bigscreen/config"
	"github.com/UoMCS/bigscreen/datastore"
	"github.com/UoMCS/bigscreen/id"
	"github.com/UoMCS/bigscreen/logger"
	"github.com/UoMCS/bigscreen/placement"
	rh "github.com/UoMCS/bigscreen/route-handlers"
	"github.com/UoMCS/bigscreen/scheduler"
	"github.com/UoMCS/bigscreen/slideshow"
	"github.com/UoMCS/bigscreen/sources"
	"github.com/UoMCS/bigscreen/telemetry"
)

const (
	dbPingTimeout     = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
	dbMaxOpenConns    = 25
	dbMaxIdleConns    = 25
	dbConnMaxLifetime = 5 * time.Minute
)

// sourceStore is satisfied by both the SQL repository and the YAML registry.
type sourceStore interface {
	rh.SourceStore
	aggregation.SourceStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx := context.Background()
	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		log.Fatalf("Telemetry setup failed: %v", err)
	}
	logger.Setup(cfg)

	if err := id.Init(cfg.NodeID); err != nil {
		log.Fatalf("ID generator setup failed: %v", err)
	}

	store, closeStore, err := setupStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Source store setup failed: %v", err)
	}
	defer closeStore()

	httpClient := &http.Client{Timeout: cfg.Sources.FetchTimeout}
	modules := sources.DefaultRegistry(httpClient, cfg.Sources.UserAgent)

	aggregator := aggregation.New(store, modules, aggregation.Options{
		FetchTimeout:   cfg.Sources.FetchTimeout,
		MaxConcurrency: cfg.Sources.MaxConcurrency,
	})

	cache, err := setupPlanCache(cfg.PlanCache)
	if err != nil {
		log.Fatalf("Plan cache setup failed: %v", err)
	}
	service := slideshow.NewService(aggregator, placement.New(), cache)

	sourceHandler := rh.NewSourceHandler(store, modules, id.New)
	slideshowHandler := rh.NewSlideshowHandler(service, modules)
	planScheduler := scheduler.New(service)

	apiRouter := api.SetupRoutes(sourceHandler, slideshowHandler, planScheduler.HandleTick)

	mainRouter := chi.NewRouter()
	mainRouter.Mount("/", apiRouter)

	startServer(cfg.Port, mainRouter, tel)
}

// setupStore opens the configured source registry. The returned close func is
// always safe to call.
func setupStore(ctx context.Context, cfg config.StoreConfig) (sourceStore, func(), error) {
	if cfg.Driver == config.StoreFile {
		registry, err := datastore.LoadFileRegistry(cfg.SourcesFile)
		if err != nil {
			return nil, func() {}, err
		}
		slog.Info("Loaded sources file", "path", cfg.SourcesFile, "sources", len(registry.Sources()))
		return registry, func() {}, nil
	}

	driverName := "postgres"
	if cfg.Driver == config.StoreSQLite {
		driverName = "sqlite3"
	}
	db, err := setupDatabase(driverName, cfg.DSN)
	if err != nil {
		return nil, func() {}, err
	}

	repo := datastore.NewSourceRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, func() {}, err
	}
	return repo, func() { db.Close() }, nil
}

func setupDatabase(driverName, connStr string) (*sql.DB, error) {
	db, err := sql.Open(driverName, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if driverName == "sqlite3" {
		// sqlite serialises writers anyway
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(dbMaxOpenConns)
		db.SetMaxIdleConns(dbMaxIdleConns)
		db.SetConnMaxLifetime(dbConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), dbPingTimeout)
	defer cancel()

	if err = db.PingContext(ctx); err != nil {
		db.Close() // Close unusable connection pool
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connection successful", "driver", driverName)
	return db, nil
}

func setupPlanCache(cfg config.PlanCacheConfig) (slideshow.PlanCache, error) {
	if !cfg.Enabled() {
		return slideshow.NoCache{}, nil
	}
	if cfg.RedisURL == "" {
		slog.Info("Caching placement plans in memory", "ttl", cfg.TTL)
		return slideshow.NewMemoryCache(cfg.TTL), nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	slog.Info("Caching placement plans in redis", "addr", opts.Addr, "key", cfg.Key, "ttl", cfg.TTL)
	return slideshow.NewRedisCache(redis.NewClient(opts), cfg.Key, cfg.TTL), nil
}

func startServer(port string, router http.Handler, tel *telemetry.Telemetry) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownSignal // Block until signal received
	slog.Info("Shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	if err := tel.Shutdown(shutdownCtx); err != nil {
		slog.Error("Telemetry shutdown failed", "error", err)
	}

	slog.Info("Server gracefully stopped")
}
