// Renovd is the bathroom renovation planning daemon.
//
// One POST turns a room photo into a structured room spec, a deterministic
// cost estimate, and a photorealistic after image. Configuration is loaded
// from an optional YAML file plus environment variables; see internal/config.
//
// Usage:
//
//	# Start server with defaults
//	renovd
//
//	# Configure via environment
//	SERVER_HTTP_PORT=9090 UPSTREAM_API_KEY=... renovd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/analysis"
	"github.com/fyrsmithlabs/renovd/internal/catalog"
	"github.com/fyrsmithlabs/renovd/internal/config"
	"github.com/fyrsmithlabs/renovd/internal/estimate"
	"github.com/fyrsmithlabs/renovd/internal/genai"
	renovhttp "github.com/fyrsmithlabs/renovd/internal/http"
	"github.com/fyrsmithlabs/renovd/internal/imaging"
	"github.com/fyrsmithlabs/renovd/internal/logging"
	"github.com/fyrsmithlabs/renovd/internal/pipeline"
	"github.com/fyrsmithlabs/renovd/internal/render"
	"github.com/fyrsmithlabs/renovd/internal/telemetry"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("renovd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires all dependencies and blocks until ctx is cancelled:
//  1. Loads and validates configuration
//  2. Initializes logger and telemetry
//  3. Creates the upstream model client and call executor
//  4. Creates the catalog provider with its TTL cache
//  5. Builds the three stages and the orchestrator
//  6. Starts the HTTP server
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting renovd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.HTTPPort),
		zap.String("fidelity", cfg.Pipeline.Fidelity),
	)

	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:     cfg.Telemetry.Enabled,
		Endpoint:    cfg.Telemetry.Endpoint,
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return fmt.Errorf("initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
	}()

	model, err := genai.NewHTTPClient(genai.Config{
		APIKey:        cfg.Upstream.APIKey.Value(),
		DirectBaseURL: cfg.Upstream.DirectBaseURL,
		ProxyBaseURL:  cfg.Upstream.ProxyBaseURL,
		TextModel:     cfg.Upstream.Model,
		ImageModel:    cfg.Upstream.ImageModel,
	})
	if err != nil {
		return fmt.Errorf("create upstream client: %w", err)
	}

	exec := upstream.NewExecutor(logger)

	provider, err := catalog.NewHTTPProvider(cfg.Catalog.BaseURL)
	if err != nil {
		return fmt.Errorf("create catalog provider: %w", err)
	}
	cache := catalog.NewCache(cfg.Catalog.CacheTTL.Duration(), cfg.Catalog.CacheMaxEntries, time.Now)
	cache.SetMetrics(catalog.NewMetrics(prometheus.DefaultRegisterer))
	catalogSvc := catalog.NewCachingProvider(provider, cache)

	orch := pipeline.New(
		analysis.NewStage(model, exec, logger),
		estimate.NewStage(model, exec, logger),
		render.NewStage(model, model, exec, logger),
		imaging.NewNormalizer(cfg.Pipeline.MaxPhotoDimension, cfg.Pipeline.PhotoQuality),
		logger,
		pipeline.WithBudget(cfg.Pipeline.Budget.Duration()),
		pipeline.WithTracer(tel.Tracer("pipeline")),
		pipeline.WithMetrics(pipeline.NewMetrics(prometheus.DefaultRegisterer)),
	)

	srv, err := renovhttp.NewServer(orch, catalogSvc, logger, &renovhttp.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.HTTPPort,
	})
	if err != nil {
		return fmt.Errorf("create http server: %w", err)
	}

	logger.Info("renovd ready", zap.String("addr", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.HTTPPort)))
	return srv.Start(ctx)
}
