package main

import (
	"context"
	"database/sql"
	"errors"
	"field-route-service/internal/adapters/cache"
	"field-route-service/internal/adapters/events"
	"field-route-service/internal/adapters/optimizer"
	"field-route-service/internal/adapters/repositories"
	"field-route-service/internal/api"
	"field-route-service/internal/config"
	"field-route-service/internal/platform/db"
	"field-route-service/internal/platform/metrics"
	"field-route-service/internal/platform/obs"
	"field-route-service/internal/ports"
	"field-route-service/internal/services"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// eventBroker is what the server needs from either broker implementation.
type eventBroker interface {
	ports.EventPublisher
	ports.EventSubscriber
}

// main is the application composition root.
// It loads config, then hands off to run; only main exits the process.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	if err := obs.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		logrus.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		stop()
		logrus.Fatal(err)
	}
}

// run wires concrete adapters (SQL store, optimizer client, event broker)
// behind ports and serves HTTP until ctx is cancelled. Every resource it
// opens is closed before it returns.
func run(ctx context.Context, cfg config.Config) error {
	metrics.RegisterDefault()

	conn, dialect, err := db.Connect(cfg.DatabaseURL, cfg.DBPath)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Initialize schema and seed demo data on startup for local runs.
	if err := initAndSeed(conn, dialect, cfg.SeedPath); err != nil {
		return err
	}

	opt, geo, err := buildOptimizer(cfg)
	if err != nil {
		return err
	}

	broker, closeBroker, err := buildBroker(cfg)
	if err != nil {
		return err
	}
	defer closeBroker()

	repo := repositories.NewSQLRouteRepository(conn, dialect)
	planner := &services.RoutePlanner{
		Optimizer:  opt,
		Geocoder:   geo,
		Cache:      cache.NewSQLGeocodeCache(conn, dialect),
		Selection:  repo,
		Reconciler: services.NewRouteReconciler(repo, broker),
	}

	router := api.NewRouter(api.Deps{
		Planner: planner,
		Routes:  repo,
		Events:  broker,
		Ping:    conn.PingContext,
	})

	// Timeouts are tuned for cold-cache optimization (external API latency).
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.OptimizerTimeout + 30*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{"addr": srv.Addr, "store": dialect.String()}).Info("Server listening")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}

func initAndSeed(conn *sql.DB, dialect db.Dialect, seedPath string) error {
	ctx := context.Background()
	if err := repositories.InitSchema(ctx, conn, dialect); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	if _, err := os.Stat(seedPath); errors.Is(err, os.ErrNotExist) {
		logrus.WithField("path", seedPath).Info("no seed file, skipping seed")
		return nil
	}
	if err := repositories.SeedFromJSON(ctx, conn, dialect, seedPath); err != nil {
		return fmt.Errorf("init and seed: %w", err)
	}

	return nil
}

// buildOptimizer returns the remote client, or the in-process planner when
// OPTIMIZER_API_URL is "local". The local mode has no geocoder, so jobs must
// carry coordinates or already be in the geocode cache.
func buildOptimizer(cfg config.Config) (ports.RouteOptimizer, ports.Geocoder, error) {
	if cfg.LocalOptimizer() {
		logrus.Info("using local route optimizer")
		return services.NewLocalOptimizer(), nil, nil
	}

	client, err := optimizer.NewClient(optimizer.Options{
		BaseURL:    cfg.OptimizerURL,
		Timeout:    cfg.OptimizerTimeout,
		RatePerSec: cfg.OptimizerRate,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build optimizer: %w", err)
	}
	logrus.WithField("url", cfg.OptimizerURL).Info("using remote route optimizer")
	return client, client, nil
}

// buildBroker uses Redis when REDIS_URL is set so every instance sees every
// save, and an in-process broker otherwise.
func buildBroker(cfg config.Config) (eventBroker, func(), error) {
	if cfg.RedisURL == "" {
		return events.NewMemoryBroker(), func() {}, nil
	}

	rb, err := events.NewRedisBroker(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rb.Ping(ctx); err != nil {
		_ = rb.Close()
		return nil, nil, fmt.Errorf("redis broker: ping: %w", err)
	}
	return rb, func() { _ = rb.Close() }, nil
}
