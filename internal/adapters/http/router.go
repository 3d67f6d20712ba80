// Package httpadapter exposes the navigation callbacks and batch controls to the
// host UI over HTTP.
package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
	"github.com/kirillkom/docnav/internal/infrastructure/surface"
	"github.com/kirillkom/docnav/internal/observability/metrics"
)

const (
	serviceName     = "navigator"
	maxRequestBytes = 1 << 20
)

type navigationService interface {
	ports.Navigator
	SelectChunk(ctx context.Context, chunkID string) error
	RefreshDocuments(ctx context.Context) ([]domain.Document, error)
}

type commandFeed interface {
	Since(after uint64) ([]surface.Command, uint64)
	Current() (*domain.LoadedDocument, bool)
}

type Options struct {
	// ProjectID is used for batch requests that do not name a project.
	ProjectID      string
	Logger         *slog.Logger
	Metrics        *metrics.HTTPServerMetrics
	MetricsHandler http.Handler
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueWait      time.Duration
}

type Router struct {
	nav     navigationService
	batches ports.BatchTracker
	feed    commandFeed
	opts    Options
	logger  *slog.Logger
}

func NewRouter(nav navigationService, batches ports.BatchTracker, feed commandFeed, opts Options) *Router {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.QueueWait <= 0 {
		opts.QueueWait = 100 * time.Millisecond
	}
	return &Router{
		nav:     nav,
		batches: batches,
		feed:    feed,
		opts:    opts,
		logger:  opts.Logger,
	}
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(accessLogMiddleware(rt.logger))
	if rt.opts.Metrics != nil {
		r.Use(rt.opts.Metrics.Middleware(serviceName))
	}

	r.Get("/healthz", rt.healthz)
	if rt.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", rt.opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		if rt.opts.RateLimitRPS > 0 {
			r.Use(rateLimitMiddleware(rt.opts.RateLimitRPS, rt.opts.RateLimitBurst))
		}
		r.Use(func(next http.Handler) http.Handler {
			return backpressureMiddleware(next, rt.opts.MaxInFlight, rt.opts.QueueWait)
		})

		r.Route("/v1/navigation", func(r chi.Router) {
			r.Get("/state", rt.navigationState)
			r.Get("/documents", rt.refreshDocuments)
			r.Post("/chunk-select", rt.chunkSelect)
			r.Post("/chunk-click", rt.chunkClick)
			r.Post("/annotation-click", rt.annotationClick)
			r.Post("/document-select", rt.documentSelect)
			r.Post("/surface-ready", rt.surfaceReady)
			r.Post("/focus/clear", rt.clearFocus)
		})

		r.Route("/v1/surface", func(r chi.Router) {
			r.Get("/commands", rt.surfaceCommands)
			r.Get("/document", rt.surfaceDocument)
		})

		r.Route("/v1/batch", func(r chi.Router) {
			r.Post("/", rt.startBatch)
			r.Get("/active", rt.activeBatch)
			r.Post("/resume", rt.resumeBatch)
			r.Post("/cancel", rt.cancelBatch)
		})
	})

	return r
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Warn("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		Message:   domain.Describe(err),
		RequestID: requestIDFromContext(r.Context()),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, operation string, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.WrapError(domain.ErrInvalidInput, operation, errors.New("request body is required"))
		}
		return domain.WrapError(domain.ErrInvalidInput, operation, fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
