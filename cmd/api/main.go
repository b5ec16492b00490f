package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"valuation_research/pkg/api/config"
	"valuation_research/pkg/api/report"
	coreConfig "valuation_research/pkg/core/config"
	"valuation_research/pkg/core/logging"
	"valuation_research/pkg/core/pipeline"
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "config/models.yaml"
	}
	cfg, err := coreConfig.Load(configPath)
	logger := logging.MustNew(cfg.LogLevel)
	defer logger.Sync()
	if err != nil {
		logger.Fatal("[FATAL] failed to load config", zap.Error(err))
	}
	for _, p := range cfg.Validate() {
		logger.Warn("[CONFIG] " + p)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	setup, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("[FATAL] failed to build pipeline", zap.Error(err))
	}
	defer setup.Close()

	mux := http.NewServeMux()

	// Config endpoints
	configHandler := config.NewHandler(setup.Manager, cfg)
	mux.HandleFunc("/api/config", configHandler.HandleConfig)
	mux.HandleFunc("/api/config/switch", configHandler.HandleSwitch)

	// Report endpoints
	report.NewHandler(setup.Orchestrator, logger).Register(mux)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("API server starting",
		zap.String("addr", srv.Addr),
		zap.String("provider", setup.Manager.GetActiveProvider()),
		zap.Strings("routes", []string{
			"GET  /api/config",
			"POST /api/config/switch",
			"POST /api/reports/generate",
			"POST /api/reports/plan",
			"POST /api/reports/summary",
			"GET  /api/reports/latest",
		}))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("[FATAL] Server failed to start", zap.Error(err))
	}
}
