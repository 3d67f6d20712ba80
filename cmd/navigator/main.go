package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kirillkom/docnav/internal/bootstrap"
	"github.com/kirillkom/docnav/internal/config"
	"github.com/kirillkom/docnav/internal/observability/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger(os.Stdout, "navigator", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if cfg.ProjectID != "" {
		if _, err := app.Navigator.RefreshDocuments(ctx); err != nil {
			logger.Warn("initial_document_list_failed", "project_id", cfg.ProjectID, "error", err)
		}
		if job, err := app.Batches.Resume(ctx, cfg.ProjectID); err != nil {
			logger.Warn("batch_resume_failed", "project_id", cfg.ProjectID, "error", err)
		} else if job != nil {
			logger.Info("batch_job_resumed", "job_id", job.ID, "status", string(job.Status))
		}
	}

	go func() {
		if err := app.WatchBatchEvents(ctx); err != nil {
			logger.Error("batch_event_watch_failed", "error", err)
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.HTTPTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("api_shutdown_failed", "error", err)
	}
}
