package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
	"github.com/kirillkom/docnav/internal/infrastructure/resilience"
)

var _ ports.BatchEventPublisher = (*Bus)(nil)

// BatchFinished is published once a tracked batch job reaches a terminal status.
type BatchFinished struct {
	JobID      string                `json:"job_id"`
	ProjectID  string                `json:"project_id"`
	Status     domain.BatchJobStatus `json:"status"`
	Total      int                   `json:"total_documents"`
	Completed  int                   `json:"completed_documents"`
	Failed     int                   `json:"failed_documents"`
	Skipped    int                   `json:"skipped_documents"`
	FinishedAt time.Time             `json:"finished_at"`
}

func newBatchFinished(job domain.BatchJob, now time.Time) BatchFinished {
	finished := now.UTC()
	if job.CompletedAt != nil && !job.CompletedAt.IsZero() {
		finished = job.CompletedAt.Time
	}
	return BatchFinished{
		JobID:      job.ID,
		ProjectID:  job.ProjectID,
		Status:     job.Status,
		Total:      job.Total,
		Completed:  job.Completed,
		Failed:     job.Failed,
		Skipped:    job.SkippedCount(),
		FinishedAt: finished,
	}
}

type Options struct {
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

// Bus carries batch lifecycle events between navigator instances.
type Bus struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

func Connect(url, subject string, opts Options) (*Bus, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 2 * time.Second
	}
	if opts.ReconnectWait <= 0 {
		opts.ReconnectWait = 2 * time.Second
	}
	if opts.MaxReconnects <= 0 {
		opts.MaxReconnects = 60
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger

	conn, err := nats.Connect(
		url,
		nats.Name("docnav"),
		nats.Timeout(opts.ConnectTimeout),
		nats.ReconnectWait(opts.ReconnectWait),
		nats.MaxReconnects(opts.MaxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		subject:  subject,
		executor: opts.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishBatchFinished(ctx context.Context, job domain.BatchJob) error {
	payload, err := json.Marshal(newBatchFinished(job, time.Now()))
	if err != nil {
		return fmt.Errorf("marshal batch event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := b.conn.Publish(b.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}
	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}

// SubscribeBatchFinished delivers events to handler until ctx is cancelled.
// Every subscriber receives every event.
func (b *Bus) SubscribeBatchFinished(ctx context.Context, handler func(context.Context, BatchFinished) error) error {
	sub, err := b.conn.Subscribe(b.subject, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}
		var event BatchFinished
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			b.logger.Warn("batch_event_invalid", "error", err)
			return
		}
		if err := handler(ctx, event); err != nil {
			b.logger.Error("batch_event_handler_failed", "job_id", event.JobID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}
	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	return nil
}
