package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/StrokeRisk/internal/artifact"
	"github.com/Skufu/StrokeRisk/internal/assessment"
	"github.com/Skufu/StrokeRisk/internal/config"
	"github.com/Skufu/StrokeRisk/internal/gemini"
	"github.com/Skufu/StrokeRisk/internal/logging"
	"github.com/Skufu/StrokeRisk/internal/metrics"
	"github.com/Skufu/StrokeRisk/internal/store"
	"github.com/Skufu/StrokeRisk/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config error", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	opts := []assessment.Option{assessment.WithLogger(logger)}
	var db web.HealthChecker
	if cfg.EnableDB {
		st, err := store.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		defer st.Close()

		if err := st.EnsureSchema(ctx); err != nil {
			logger.Error("database schema setup failed", "error", err)
			os.Exit(1)
		}
		db = st
		opts = append(opts, assessment.WithRecorder(st))
	}

	if cfg.GeminiAPIKey == "" {
		logger.Warn("GEMINI_API_KEY is not set; suggestions will be unavailable")
	}

	m := metrics.New()
	opts = append(opts, assessment.WithMetrics(m))

	bundle := loadBundle(cfg, logger)
	suggester := gemini.NewClient(cfg.GeminiURL, cfg.GeminiAPIKey, cfg.GeminiTimeout)
	svc := assessment.NewService(bundle, suggester, opts...)

	router := web.SetupRouter(svc, web.Options{DB: db, Metrics: m, Logger: logger})
	server := newServer(cfg, router)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("server listening", "port", cfg.Port, "model_loaded", bundle != nil, "db_enabled", cfg.EnableDB)
	waitForShutdown(server, logger)
}

// loadBundle returns nil when the artifacts are missing or unreadable; the
// server still starts and reports the model as unavailable.
func loadBundle(cfg *config.Config, logger *slog.Logger) *artifact.Bundle {
	modelPath := artifact.Locate(cfg.ModelPath)
	encodersPath := artifact.Locate(cfg.EncodersPath)

	bundle, err := artifact.Load(modelPath, encodersPath)
	if err != nil {
		logger.Error("could not load model artifacts",
			"model_path", modelPath,
			"encoders_path", encodersPath,
			"error", err,
		)
		return nil
	}

	logger.Info("model artifacts loaded",
		"model_path", modelPath,
		"trees", len(bundle.Forest.Trees),
	)
	return bundle
}

func newServer(cfg *config.Config, handler http.Handler) *http.Server {
	// Suggestion calls can take up to GeminiTimeout, so the write deadline
	// has to outlast them.
	writeTimeout := cfg.GeminiTimeout + 30*time.Second
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       60 * time.Second,
	}
}

func waitForShutdown(server *http.Server, logger *slog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
