package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	httpadapter "github.com/kirillkom/docnav/internal/adapters/http"
	"github.com/kirillkom/docnav/internal/config"
	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
	"github.com/kirillkom/docnav/internal/core/usecase"
	natsbus "github.com/kirillkom/docnav/internal/infrastructure/events/nats"
	"github.com/kirillkom/docnav/internal/infrastructure/markdown"
	"github.com/kirillkom/docnav/internal/infrastructure/pdfinfo"
	"github.com/kirillkom/docnav/internal/infrastructure/remoteapi"
	"github.com/kirillkom/docnav/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docnav/internal/infrastructure/resilience"
	"github.com/kirillkom/docnav/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/docnav/internal/infrastructure/surface"
	"github.com/kirillkom/docnav/internal/observability/metrics"
)

const (
	serviceName      = "navigator"
	terminalHookWait = 10 * time.Second
	publishAttempts  = 3
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPServerMetrics

	Navigator *usecase.NavigationOrchestrator
	Batches   *usecase.BatchJobTracker
	Surface   *surface.CommandLog
	Events    *natsbus.Bus

	closeFns []func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: metrics.NewRegistry(),
	}
	app.HTTPMetrics = metrics.NewHTTPServerMetrics(serviceName, app.Registry)
	navMetrics := metrics.NewNavigationMetrics(serviceName, app.Registry)

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.BreakerEnabled = cfg.BreakerEnabled
	executor := resilience.NewExecutor(resilienceCfg,
		resilience.WithLogger(logger),
		resilience.WithStateListener(navMetrics.ObserveBreakerState),
	)

	remote := remoteapi.New(cfg.RemoteAPIURL, remoteapi.Options{
		Token:     cfg.RemoteAPIToken,
		Timeout:   cfg.HTTPTimeout,
		RateLimit: cfg.RemoteRateLimitRPS,
		RateBurst: cfg.RemoteRateLimitBurst,
		Executor:  executor,
		Logger:    logger,
	})

	var (
		store ports.DocumentStore = remote
		cache ports.ParseCache    = remote
	)
	if cfg.LocalStoragePath != "" {
		local, err := localfs.New(cfg.LocalStoragePath)
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		store, cache = local, local
		logger.Info("document_source_selected", "source", "localfs", "path", cfg.LocalStoragePath)
	}
	if cfg.ParseCacheDSN != "" {
		db, err := postgres.OpenDB(ctx, cfg.ParseCacheDSN)
		if err != nil {
			return nil, fmt.Errorf("open parse cache db: %w", err)
		}
		app.closeFns = append(app.closeFns, func() { _ = db.Close() })
		cache = postgres.NewParseCacheRepository(db)
		logger.Info("parse_cache_selected", "source", "postgres")
	}

	if cfg.NATSURL != "" {
		bus, err := natsbus.Connect(cfg.NATSURL, cfg.NATSSubject, natsbus.Options{
			ResilienceExecutor: resilience.NewExecutor(resilienceCfg.WithRetries(publishAttempts), resilience.WithLogger(logger)),
			Logger:             logger,
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init batch events: %w", err)
		}
		app.Events = bus
		app.closeFns = append(app.closeFns, bus.Close)
	}

	previewer := markdown.NewPreviewer(markdown.DefaultPreviewRunes)
	app.Surface = surface.NewCommandLog(0)
	loader := usecase.NewDocumentLoader(store, cache, pdfinfo.PageCounter{}, logger)
	highlights := usecase.NewHighlightSynchronizer(loader, app.Surface, usecase.SynchronizerOptions{
		SettleDelay: cfg.HighlightSettleDelay,
		Logger:      logger,
		Observer:    navMetrics,
	})
	app.Navigator = usecase.NewNavigationOrchestrator(highlights, store, app.Surface, usecase.OrchestratorOptions{
		ProjectID: cfg.ProjectID,
		Parser:    cfg.Parser,
		Logger:    logger,
		Observer:  navMetrics,
		Preview:   previewer.Preview,
	})
	app.Batches = usecase.NewBatchJobTracker(remote, usecase.TrackerOptions{
		PollInterval: cfg.BatchPollInterval,
		Logger:       logger,
		Observer:     navMetrics,
		OnTerminal:   app.onBatchFinished,
	})
	app.closeFns = append([]func(){app.Batches.Stop}, app.closeFns...)

	return app, nil
}

// Router builds the host-facing HTTP handler.
func (a *App) Router() http.Handler {
	return httpadapter.NewRouter(a.Navigator, a.Batches, a.Surface, httpadapter.Options{
		ProjectID:      a.Config.ProjectID,
		Logger:         a.Logger,
		Metrics:        a.HTTPMetrics,
		MetricsHandler: metrics.Handler(a.Registry),
		RateLimitRPS:   a.Config.APIRateLimitRPS,
		RateLimitBurst: a.Config.APIRateLimitBurst,
		MaxInFlight:    a.Config.APIMaxInFlight,
	}).Handler()
}

// WatchBatchEvents refreshes the document list whenever another instance
// reports a finished batch for this project. It blocks until ctx is done.
func (a *App) WatchBatchEvents(ctx context.Context) error {
	if a.Events == nil {
		<-ctx.Done()
		return nil
	}
	return a.Events.SubscribeBatchFinished(ctx, func(ctx context.Context, event natsbus.BatchFinished) error {
		if a.Config.ProjectID != "" && event.ProjectID != a.Config.ProjectID {
			return nil
		}
		a.Logger.Info("batch_event_received", "job_id", event.JobID, "status", string(event.Status))
		_, err := a.Navigator.RefreshDocuments(ctx)
		return err
	})
}

// onBatchFinished refreshes the document list so new parse results show up,
// then announces the job to other instances.
func (a *App) onBatchFinished(ctx context.Context, job domain.BatchJob) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), terminalHookWait)
	defer cancel()

	if _, err := a.Navigator.RefreshDocuments(hookCtx); err != nil {
		a.Logger.Warn("batch_refresh_failed", "job_id", job.ID, "error", err)
	}
	if a.Events == nil {
		return
	}
	if err := a.Events.PublishBatchFinished(hookCtx, job); err != nil {
		a.Logger.Warn("batch_event_publish_failed", "job_id", job.ID, "error", err)
	}
}

func (a *App) Close() {
	for _, fn := range a.closeFns {
		fn()
	}
	a.closeFns = nil
}
