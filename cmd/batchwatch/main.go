// Command batchwatch starts or attaches to a batch parsing job and logs its
// progress until the job is finished.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docnav/internal/bootstrap"
	"github.com/kirillkom/docnav/internal/config"
	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/observability/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		return 1
	}

	project := flag.String("project", cfg.ProjectID, "project id")
	parser := flag.String("parser", cfg.Parser, "parser to run when starting a job")
	model := flag.String("model", "", "parser model")
	documents := flag.String("documents", "", "comma separated document ids; empty means all")
	start := flag.Bool("start", false, "start a new job instead of attaching to the active one")
	reparse := flag.Bool("reparse", false, "parse documents that already have a cached result")
	serveMetrics := flag.Bool("metrics", false, "serve metrics on METRICS_PORT while watching")
	flag.Parse()

	logger := logging.NewJSONLogger(os.Stdout, "batchwatch", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.ProjectID = *project
	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	if *serveMetrics {
		go serveMetricsEndpoint(ctx, app, logger)
	}

	var job *domain.BatchJob
	if *start {
		job, err = app.Batches.Start(ctx, *project, domain.BatchProcessRequest{
			DocumentIDs:       splitIDs(*documents),
			Parser:            *parser,
			Model:             *model,
			SkipAlreadyParsed: !*reparse,
		})
	} else {
		job, err = app.Batches.Resume(ctx, *project)
	}
	if err != nil {
		logger.Error("batch_attach_failed", "project_id", *project, "error", err, "message", domain.Describe(err))
		return 1
	}
	if job == nil {
		logger.Info("no_active_batch_job", "project_id", *project)
		return 0
	}

	final := watch(ctx, app, job.ID, cfg.BatchPollInterval, logger)
	if final.Status != domain.BatchCompleted {
		return 2
	}
	return 0
}

// watch logs every progress change and returns the last snapshot seen.
func watch(ctx context.Context, app *bootstrap.App, jobID string, interval time.Duration, logger *slog.Logger) domain.BatchJob {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last domain.BatchJob
	lastProgress := -1.0
	for {
		job, ok := app.Batches.Active()
		if !ok || job.ID != jobID {
			logger.Warn("batch_job_no_longer_tracked", "job_id", jobID)
			return last
		}
		last = job
		if progress := job.ProgressPercent(); progress != lastProgress || job.IsTerminal() {
			lastProgress = progress
			logger.Info("batch_progress",
				"job_id", job.ID,
				"status", string(job.Status),
				"progress_percent", progress,
				"completed_documents", job.Completed,
				"failed_documents", job.Failed,
				"skipped_documents", job.SkippedCount(),
				"total_documents", job.Total,
			)
		}
		if job.IsTerminal() {
			return job
		}

		select {
		case <-ctx.Done():
			logger.Info("batch_watch_detached", "job_id", jobID)
			return last
		case <-ticker.C:
		}
	}
}

func serveMetricsEndpoint(ctx context.Context, app *bootstrap.App, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: ":" + app.Config.MetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = server.Close()
	}()
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("metrics_server_failed", "error", err)
	}
}

func splitIDs(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
