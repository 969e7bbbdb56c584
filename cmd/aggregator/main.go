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

	"github.com/rickgao/bookdata/internal/aggregate"
	"github.com/rickgao/bookdata/internal/config"
	"github.com/rickgao/bookdata/internal/database"
	"github.com/rickgao/bookdata/internal/metrics"
	"github.com/rickgao/bookdata/internal/store"
	"github.com/rickgao/bookdata/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/aggregator.local.yaml", "path to config file")
	initSchema := flag.Bool("init-schema", false, "create missing tables and functions before starting")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Set up structured logging
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("starting aggregator",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
		"depth_workers", cfg.Aggregation.DepthWorkers,
		"bar_workers", cfg.Aggregation.BarWorkers,
		"server_functions", cfg.Aggregation.ServerFunctions,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.Database, "aggregator-"+cfg.Instance.ID)
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
	workers := aggregate.NewPool(m, logger)

	depthCfg := aggregate.DepthConfig{
		Batch:           cfg.Aggregation.DepthBatch,
		ServerFunctions: cfg.Aggregation.ServerFunctions,
	}
	for i := 0; i < cfg.Aggregation.DepthWorkers; i++ {
		workers.Add(aggregate.NewDepthWorker(db, depthCfg, m, logger), cfg.Aggregation.DepthDelay)
	}

	// Bar workers split the markets by hash; each owns one partition.
	for i := 0; i < cfg.Aggregation.BarWorkers; i++ {
		barCfg := aggregate.BarConfig{
			Index:      i,
			Count:      cfg.Aggregation.BarWorkers,
			MaxMinutes: cfg.Aggregation.BarMaxMinutes,
		}
		workers.Add(aggregate.NewBarWorker(db, barCfg, m, logger), cfg.Aggregation.BarDelay)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		pingCtx, pingCancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer pingCancel()

		status, code := "healthy", http.StatusOK
		if err := db.Ping(pingCtx); err != nil {
			status, code = "unhealthy", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]any{
			"status":  status,
			"version": version.String(),
			"workers": workers.Size(),
		})
	})
	mux.Handle(cfg.Metrics.Path, m.Handler())

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}
	go func() {
		logger.Info("starting metrics server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Blocks until a signal cancels ctx and every worker has returned.
	if err := workers.Run(ctx); err != nil {
		logger.Error("aggregation pool failed", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("aggregator stopped")
}
