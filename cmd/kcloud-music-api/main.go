// -------------------------------------------------------------------------------
// Main - KCloud Music API Entrypoint
//
// Project: KCloud / Author: Alex Freidah
//
// Wires configuration, telemetry, the record and object stores, the optional
// cache and event publisher, and the HTTP server, then serves until SIGINT or
// SIGTERM. Startup is fail-fast: an unreachable database or bucket aborts the
// process rather than serving requests that can only fail.
// -------------------------------------------------------------------------------

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/nestorara/kcloud-music-api/internal/cache"
	"github.com/nestorara/kcloud-music-api/internal/config"
	"github.com/nestorara/kcloud-music-api/internal/events"
	"github.com/nestorara/kcloud-music-api/internal/server"
	"github.com/nestorara/kcloud-music-api/internal/storage"
	"github.com/nestorara/kcloud-music-api/internal/telemetry"
)

// Version is stamped by the build via -ldflags.
var Version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Telemetry ---

	telemetry.BuildInfo.WithLabelValues(Version, runtime.Version()).Set(1)

	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.Tracing)
	if err != nil {
		return fmt.Errorf("initializing tracer: %w", err)
	}
	defer shutdownTracer(context.Background()) //nolint:errcheck

	// --- Record store ---

	store, err := storage.NewMongoStore(ctx,
		cfg.Database.ConnectionString(),
		cfg.Database.Database,
		cfg.Database.ConnectTimeout,
	)
	if err != nil {
		return fmt.Errorf("connecting to the database: %w", err)
	}
	defer store.Close(context.Background()) //nolint:errcheck

	breaker := storage.NewBreakerStore(store, cfg.CircuitBreaker)

	// --- Object store ---

	backend := storage.NewS3Backend(cfg.Bucket)
	if !backend.Healthy(ctx) {
		return fmt.Errorf("bucket %q is not reachable at %s", cfg.Bucket.Name, cfg.Bucket.Endpoint)
	}

	// --- Optional collaborators ---

	var urlCache storage.URLCache
	if cfg.Cache.Enabled {
		c, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			// The API is fully functional without the cache.
			slog.Warn("url cache unavailable, continuing without it", "error", err)
		} else {
			defer c.Close() //nolint:errcheck
			urlCache = c
		}
	}

	var publisher storage.EventPublisher
	if cfg.Events.Enabled {
		p, err := events.New(cfg.Events)
		if err != nil {
			slog.Warn("event broker unavailable, continuing without events", "error", err)
		} else {
			defer p.Close()
			publisher = p
		}
	}

	// --- HTTP server ---

	manager := storage.NewManager(breaker, backend, urlCache, publisher, cfg.Bucket)
	srv := server.New(cfg, manager, breaker)

	slog.Info("starting kcloud-music-api",
		"version", Version,
		"listen_addr", cfg.Server.ListenAddr,
		"database", cfg.Database.Database,
		"bucket", cfg.Bucket.Name,
	)
	return srv.Run(ctx)
}
