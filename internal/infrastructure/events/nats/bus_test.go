package nats

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/docnav/internal/core/domain"
)

func TestNewBatchFinishedCountsSkippedTasks(t *testing.T) {
	completed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	job := domain.BatchJob{
		ID:          "job-1",
		ProjectID:   "p-1",
		Status:      domain.BatchCancelled,
		Total:       3,
		Completed:   1,
		CompletedAt: &domain.Timestamp{Time: completed},
		Tasks: []domain.BatchTask{
			{Status: domain.TaskCompleted},
			{Status: domain.TaskSkipped},
			{Status: domain.TaskSkipped},
		},
	}

	event := newBatchFinished(job, time.Now())
	if event.Skipped != 2 || event.Status != domain.BatchCancelled || !event.FinishedAt.Equal(completed) {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNewBatchFinishedFallsBackToNow(t *testing.T) {
	now := time.Date(2025, 3, 2, 8, 0, 0, 0, time.UTC)
	event := newBatchFinished(domain.BatchJob{ID: "job-2", Status: domain.BatchCompleted}, now)
	if !event.FinishedAt.Equal(now) {
		t.Fatalf("expected finished_at %v, got %v", now, event.FinishedAt)
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		temporary bool
	}{
		{"no servers", fmt.Errorf("nats publish: %w", nats.ErrNoServers), true},
		{"closed", nats.ErrConnectionClosed, true},
		{"open circuit", gobreaker.ErrOpenState, true},
		{"bad subject", nats.ErrBadSubject, false},
		{"cancelled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := wrapTemporaryIfNeeded(tc.err)
			if got := domain.IsKind(err, domain.ErrTemporary); got != tc.temporary {
				t.Fatalf("temporary = %v, want %v (err=%v)", got, tc.temporary, err)
			}
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected original error to be preserved, got %v", err)
			}
		})
	}
}
