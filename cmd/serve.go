package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"netmon-dashboard/internal/api"
	"netmon-dashboard/internal/worker"
	"netmon-dashboard/pkg/config"
	"netmon-dashboard/pkg/logger"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard API, the poller and the background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger.Info("Configuration loaded",
		logger.String("environment", cfg.Environment),
		logger.String("port", cfg.Port),
		logger.String("api_base_url", cfg.APIBaseURL),
		logger.String("storage", cfg.StorageBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orchestrator, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := orchestrator.Close(); err != nil {
			logger.Error("Error closing orchestrator", logger.Err(err))
		}
	}()

	go orchestrator.GetHub().Run(ctx)
	orchestrator.Start(ctx)

	workerPool := worker.NewWorkerPool(cfg, orchestrator)
	workerPool.Start()
	defer workerPool.Stop()

	apiServer := api.NewServer(cfg, orchestrator)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting network dashboard",
			logger.String("port", cfg.Port),
			logger.String("address", fmt.Sprintf("http://localhost:%s", cfg.Port)),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	}

	logger.Info("Shutting down network dashboard...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", logger.Err(err))
	}

	logger.Info("Network dashboard stopped")
	return nil
}

