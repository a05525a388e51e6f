package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sourcesense-inc/sourcesense-engine/pkg/config"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/handlers"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/logging"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/repositories"
	"github.com/sourcesense-inc/sourcesense-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // stderr sync failure is harmless

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("upload_dir", cfg.UploadDir),
		zap.String("connector", cfg.Connector.Name))

	runRepo := repositories.NewMemoryRunRepository()
	pipelineSvc := services.NewPipelineService(runRepo, cfg, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewPipelineHandler(pipelineSvc, cfg.UploadDir, logger).RegisterRoutes(mux)

	server := &http.Server{
		Addr:    cfg.BindAddr + ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Info("Starting sourcesense-engine",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pipelineSvc.Shutdown(shutdownCtx); err != nil {
		logger.Error("Pipeline service shutdown failed", zap.Error(err))
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}
