package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docnav/internal/core/domain"
	"github.com/kirillkom/docnav/internal/core/ports"
)

const DefaultPollInterval = 2 * time.Second

type TrackerOptions struct {
	PollInterval time.Duration
	Logger       *slog.Logger
	Observer     BatchObserver
	// OnTerminal runs once per tracked job, from the polling goroutine.
	OnTerminal func(ctx context.Context, job domain.BatchJob)
}

// BatchJobTracker follows one server-side batch job at a time. Every poll
// replaces the tracked record with the server snapshot.
type BatchJobTracker struct {
	service    ports.BatchJobService
	interval   time.Duration
	logger     *slog.Logger
	observer   BatchObserver
	onTerminal func(ctx context.Context, job domain.BatchJob)

	mu       sync.Mutex
	job      *domain.BatchJob
	tracking uint64
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

func NewBatchJobTracker(service ports.BatchJobService, opts TrackerOptions) *BatchJobTracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}
	return &BatchJobTracker{
		service:    service,
		interval:   opts.PollInterval,
		logger:     opts.Logger,
		observer:   opts.Observer,
		onTerminal: opts.OnTerminal,
	}
}

// Start creates a batch job on the server and begins tracking it.
func (t *BatchJobTracker) Start(ctx context.Context, projectID string, req domain.BatchProcessRequest) (*domain.BatchJob, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "start batch job", errors.New("project id is required"))
	}
	if strings.TrimSpace(req.Parser) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "start batch job", errors.New("parser is required"))
	}

	job, err := t.service.CreateBatchJob(ctx, projectID, req)
	if err != nil {
		return nil, err
	}
	t.logger.Info("batch_job_started",
		"job_id", job.ID,
		"project_id", projectID,
		"parser", req.Parser,
		"total_documents", job.Total,
	)
	t.Track(*job)
	return job, nil
}

// Resume re-attaches to the newest non-terminal job of the project, if any.
func (t *BatchJobTracker) Resume(ctx context.Context, projectID string) (*domain.BatchJob, error) {
	jobs, err := t.service.ListBatchJobs(ctx, projectID, domain.BatchJobFilter{Limit: 20})
	if err != nil {
		return nil, err
	}

	var newest *domain.BatchJob
	for i := range jobs {
		if jobs[i].IsTerminal() {
			continue
		}
		if newest == nil || jobs[i].CreatedAt.After(newest.CreatedAt.Time) {
			newest = &jobs[i]
		}
	}
	if newest == nil {
		return nil, nil
	}

	t.logger.Info("batch_job_resumed", "job_id", newest.ID, "status", string(newest.Status))
	t.Track(*newest)
	out := *newest
	return &out, nil
}

// Track replaces the tracked job and restarts polling for it.
func (t *BatchJobTracker) Track(job domain.BatchJob) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.tracking++
	snapshot := job
	t.job = &snapshot

	if job.IsTerminal() {
		t.wg.Add(1)
		go func() {
			defer t.wg.Done()
			t.finish(context.Background(), job)
		}()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.wg.Add(1)
	go t.poll(ctx, t.tracking, job.ID)
}

// Active returns the tracked job. A terminal job stays visible until replaced or cancelled.
func (t *BatchJobTracker) Active() (domain.BatchJob, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.job == nil {
		return domain.BatchJob{}, false
	}
	return *t.job, true
}

// Cancel clears the local job right away and then asks the server to cancel it.
// A failed cancel is only logged; the job comes back on the next Resume.
func (t *BatchJobTracker) Cancel(ctx context.Context) {
	t.mu.Lock()
	job := t.job
	t.stopLocked()
	t.tracking++
	t.job = nil
	t.mu.Unlock()

	if job == nil {
		return
	}
	if job.IsTerminal() {
		return
	}
	if _, err := t.service.CancelBatchJob(ctx, job.ID); err != nil {
		t.logger.Warn("batch_cancel_failed", "job_id", job.ID, "error", err)
		return
	}
	t.logger.Info("batch_job_cancelled", "job_id", job.ID)
}

// Stop halts polling and waits for the polling goroutine to exit.
func (t *BatchJobTracker) Stop() {
	t.mu.Lock()
	t.stopLocked()
	t.tracking++
	t.mu.Unlock()
	t.wg.Wait()
}

func (t *BatchJobTracker) stopLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

func (t *BatchJobTracker) poll(ctx context.Context, generation uint64, jobID string) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		job, err := t.service.GetBatchJob(ctx, jobID)
		if ctx.Err() != nil {
			return
		}
		t.observer.ObservePoll(err)
		if err != nil {
			t.logger.Warn("batch_poll_failed", "job_id", jobID, "error", err)
			continue
		}
		if !t.replace(generation, *job) {
			return
		}
		if job.IsTerminal() {
			t.finish(ctx, *job)
			return
		}
	}
}

// replace stores the snapshot unless the tracker moved on to another job.
func (t *BatchJobTracker) replace(generation uint64, job domain.BatchJob) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if generation != t.tracking {
		return false
	}
	t.job = &job
	return true
}

func (t *BatchJobTracker) finish(ctx context.Context, job domain.BatchJob) {
	t.logger.Info("batch_job_finished",
		"job_id", job.ID,
		"status", string(job.Status),
		"completed_documents", job.Completed,
		"failed_documents", job.Failed,
		"skipped_documents", job.SkippedCount(),
	)
	t.observer.ObserveBatchTerminal(job.Status)
	if t.onTerminal != nil {
		t.onTerminal(ctx, job)
	}
}
