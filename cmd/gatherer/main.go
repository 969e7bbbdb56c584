package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/bookdata/internal/capture"
	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/connector/gateway"
	"github.com/rickgao/bookdata/internal/database"
	"github.com/rickgao/bookdata/internal/market"
	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/rickgao/bookdata/internal/poller"
	"github.com/rickgao/bookdata/internal/store"
	"github.com/rickgao/bookdata/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/gatherer.local.yaml", "path to config file")
	exchanges := flag.String("exchange", "", "comma separated exchange ids or * (overrides capture.exchanges)")
	interval := flag.Int("interval", 0, "tick interval in seconds (overrides capture.interval)")
	bases := flag.String("base", "", "comma separated base tokens or * (overrides capture.bases)")
	quotes := flag.String("quote", "", "comma separated quote tokens or * (overrides capture.quotes)")
	target := flag.String("target", "", "all, book or trade (overrides capture.target)")
	workers := flag.Int("workers", 0, "concurrent capture tasks (overrides capture.workers)")
	initSchema := flag.Bool("init-schema", false, "create missing tables and functions before starting")
	flag.Parse()

	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load configuration
	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		bootLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *exchanges != "" {
		cfg.Capture.Exchanges = *exchanges
	}
	if *interval > 0 {
		cfg.Capture.Interval = time.Duration(*interval) * time.Second
	}
	if *bases != "" {
		cfg.Capture.Bases = *bases
	}
	if *quotes != "" {
		cfg.Capture.Quotes = *quotes
	}
	if *target != "" {
		cfg.Capture.Target = *target
	}
	if *workers > 0 {
		cfg.Capture.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Error("invalid config", "error", err)
		os.Exit(1)
	}
	sel, err := cfg.Capture.Selection()
	if err != nil {
		bootLogger.Error("invalid selection", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting gatherer",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"instance_id", cfg.Instance.ID,
		"exchanges", sel.Exchanges.String(),
		"bases", sel.Bases.String(),
		"quotes", sel.Quotes.String(),
		"target", string(sel.Target),
		"interval", cfg.Capture.Interval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Host,
		"port", cfg.Database.Port,
		"database", cfg.Database.Name,
	)
	pool, err := database.Connect(ctx, cfg.Database, "gatherer-"+cfg.Instance.ID)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	db := store.New(pool, logger)
	if *initSchema {
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
	}

	m := metrics.New()

	// Create gateway client
	client := gateway.NewClient(
		cfg.Gateway.URL,
		cfg.Gateway.APIKey,
		gateway.WithLogger(logger),
		gateway.WithTimeout(cfg.Gateway.Timeout),
		gateway.WithRetries(cfg.Gateway.Retries(), time.Second),
		gateway.WithRateLimit(cfg.Gateway.RateLimit, cfg.Gateway.RateBurst),
		gateway.WithUserAgent(version.UserAgent("gatherer")),
	)
	factory := gateway.Factory(client)

	// Load the capture catalog
	catalogCfg := market.Config{
		ReconcileInterval: cfg.Capture.CatalogRefresh,
		LoadConcurrency:   market.DefaultConfig().LoadConcurrency,
	}
	catalog := market.NewCatalog(catalogCfg, sel, client, factory, db, m, logger)

	// Start health server early so we can monitor catalog loading
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: createHealthHandler(pool, catalog, m, cfg.Metrics.Path),
	}
	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("loading market catalog")
	if err := catalog.Start(ctx); err != nil {
		logger.Error("failed to start market catalog", "error", err)
		os.Exit(1)
	}
	if len(catalog.Targets()) == 0 {
		logger.Error("no capture targets matched the selection")
		os.Exit(1)
	}

	// Capture tasks
	books := capture.NewBookCapturer(db, logger)
	trades := capture.NewTradeFetcher(db, capture.FetchConfig{
		Limit:       cfg.Capture.TradesLimit,
		ProbeWindow: cfg.Capture.ProbeWindow,
	}, logger)
	runner := capture.NewRunner(factory, books, trades, sel.Target, m)

	scheduler := poller.New(poller.Config{
		Interval:     cfg.Capture.Interval,
		PollInterval: cfg.Capture.PollInterval,
		Concurrency:  cfg.Capture.Workers,
	}, catalog, runner, m, logger)
	if err := scheduler.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	logger.Info("gatherer running",
		"instance_id", cfg.Instance.ID,
		"targets", len(catalog.Targets()),
		"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*cfg.Gateway.Timeout)
	defer shutdownCancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler stop timed out", "error", err)
	}
	catalog.Stop(shutdownCtx)
	healthServer.Shutdown(shutdownCtx)

	logger.Info("gatherer stopped")
}

// createHealthHandler creates the HTTP handler for health, debug and metrics.
func createHealthHandler(pool *pgxpool.Pool, catalog *market.Catalog, m *metrics.Metrics, metricsPath string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Version    string         `json:"version"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Version:    version.String(),
			Components: make(map[string]any),
		}

		// Check database
		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		// Check catalog
		targets := catalog.Targets()
		health.Components["catalog"] = map[string]any{
			"exchanges": len(catalog.Exchanges()),
			"targets":   len(targets),
		}
		if len(targets) == 0 && health.Status == "healthy" {
			health.Status = "degraded"
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	mux.HandleFunc("/debug/targets", func(w http.ResponseWriter, r *http.Request) {
		targets := catalog.Targets()

		// Limit to first 100 for debugging
		limit := 100
		if len(targets) > limit {
			targets = targets[:limit]
		}

		type row struct {
			ID       int32  `json:"id"`
			Exchange string `json:"exchange"`
			Symbol   string `json:"symbol"`
			Depth    int    `json:"depth"`
		}
		rows := make([]row, len(targets))
		for i, t := range targets {
			rows[i] = row{ID: t.Market.ID, Exchange: t.Market.Exchange, Symbol: t.Symbol, Depth: t.Policy.DepthLimit}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"count":     len(catalog.Targets()),
			"showing":   len(rows),
			"exchanges": catalog.Exchanges(),
			"targets":   rows,
		})
	})

	mux.Handle(metricsPath, m.Handler())

	return mux
}
