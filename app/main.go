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

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lysyi3m/dining-comb/app/api"
	"github.com/lysyi3m/dining-comb/app/cfg"
	"github.com/lysyi3m/dining-comb/app/database"
	"github.com/lysyi3m/dining-comb/app/freshness"
	"github.com/lysyi3m/dining-comb/app/guard"
	"github.com/lysyi3m/dining-comb/app/metrics"
	"github.com/lysyi3m/dining-comb/app/orchestrator"
	"github.com/lysyi3m/dining-comb/app/reconcile"
	"github.com/lysyi3m/dining-comb/app/scrape"
	"github.com/lysyi3m/dining-comb/app/sources"
	"github.com/lysyi3m/dining-comb/app/tasks"
)

// Long enough to cover a slow full scrape; a crashed holder frees the slot after this.
const lockTTL = 15 * time.Minute

func main() {
	if err := run(); err != nil {
		slog.Error("Dining Comb exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	c, err := cfg.Load()
	if err != nil {
		return err
	}
	if c == nil {
		return nil
	}

	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("Starting Dining Comb server", "version", c.Version, "timezone", c.Location.String())

	repo, err := openStore(c)
	if err != nil {
		return err
	}
	defer repo.Close()

	catalog := sources.NewCache(c.SourcesDir)
	if err := catalog.Run(); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	slog.Info("Sources loaded", "dir", c.SourcesDir, "count", catalog.Count())

	menuLock, truckLock, closeLocks, err := openLocks(c)
	if err != nil {
		return err
	}
	defer closeLocks()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	fetcher := scrape.NewFetcher(c.UserAgent, c.FetchTimeout)
	engine := reconcile.NewEngine(repo, c.UpsertConcurrency, c.Location)
	runner := orchestrator.NewOrchestrator(catalog, fetcher, engine, menuLock, truckLock, c.Location)
	gate := freshness.NewGate(repo, catalog.HallNames, c.Location)

	scheduler := tasks.NewScheduler(runner, gate, catalog)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	slog.Info("Scheduler started", "workers", c.WorkerCount, "menu_cron", c.MenuCron, "truck_cron", c.TruckCron)

	handler := api.NewHandler(repo, runner, gate, catalog, c.Location)
	httpServer := &http.Server{
		Addr:         ":" + c.Port,
		Handler:      api.NewServer(handler, c.APIAccessKey),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", c.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErr:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	handler.Wait()
	scheduler.Stop()
	slog.Info("Dining Comb server shutdown complete")

	return nil
}

func openStore(c *cfg.Cfg) (database.Repository, error) {
	if c.Store == "memory" {
		slog.Warn("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	}

	db, err := database.NewConnection(c.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("Connected to database", "path", c.DBPath, "schema_version", version, "dirty", dirty)

	return database.NewSQLiteStore(db), nil
}

// openLocks returns process-local locks unless a Redis address is configured.
func openLocks(c *cfg.Cfg) (guard.Locker, guard.Locker, func(), error) {
	if c.RedisAddr == "" {
		return guard.NewLocal(), guard.NewLocal(), func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := guard.NewRedisClient(ctx, c.RedisAddr)
	if err != nil {
		return nil, nil, nil, err
	}

	menus := guard.NewRedis(client, "dining:scrape:menus", lockTTL)
	trucks := guard.NewRedis(client, "dining:scrape:trucks", lockTTL)
	return menus, trucks, func() { client.Close() }, nil
}
