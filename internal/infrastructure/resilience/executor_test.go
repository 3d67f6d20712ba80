package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
)

func TestDefaultConfigRunsOperationOnce(t *testing.T) {
	exec := NewExecutor(Config{BreakerEnabled: false})

	calls := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "fetch_file", func(context.Context) error {
		calls++
		return errTemp
	}, func(error) ErrorClassification {
		return ErrorClassification{Retryable: true, RecordFailure: true}
	})
	if !errors.Is(err, errTemp) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestWithRetriesRetriesRetryableFailure(t *testing.T) {
	cfg := Config{
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
	}.WithRetries(3)
	exec := NewExecutor(cfg)

	calls := 0
	errTemp := errors.New("temporary")
	err := exec.Execute(context.Background(), "publish", func(context.Context) error {
		calls++
		if calls < 3 {
			return errTemp
		}
		return nil
	}, func(err error) ErrorClassification {
		return ErrorClassification{Retryable: errors.Is(err, errTemp), RecordFailure: true}
	})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestWithRetriesStopsOnPermanentFailure(t *testing.T) {
	exec := NewExecutor(Config{RetryInitialBackoff: time.Millisecond}.WithRetries(3))

	calls := 0
	errPermanent := errors.New("permanent")
	err := exec.Execute(context.Background(), "publish", func(context.Context) error {
		calls++
		return errPermanent
	}, func(error) ErrorClassification {
		return ErrorClassification{}
	})
	if !errors.Is(err, errPermanent) || calls != 1 {
		t.Fatalf("expected one permanent failure, got %v after %d calls", err, calls)
	}
}

func TestExecuteOpensCircuitAfterFailures(t *testing.T) {
	var mu sync.Mutex
	var transitions []string
	exec := NewExecutor(Config{
		BreakerEnabled:          true,
		BreakerMinRequests:      2,
		BreakerFailureRatio:     0.5,
		BreakerOpenTimeout:      50 * time.Millisecond,
		BreakerHalfOpenMaxCalls: 1,
	}, WithStateListener(func(op, from, to string) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, op+":"+from+"->"+to)
	}))

	errDown := errors.New("server down")
	for i := 0; i < 2; i++ {
		err := exec.Execute(context.Background(), "get_batch_job", func(context.Context) error {
			return errDown
		}, nil)
		if !errors.Is(err, errDown) {
			t.Fatalf("expected server error on iteration %d, got %v", i, err)
		}
	}

	err := exec.Execute(context.Background(), "get_batch_job", func(context.Context) error {
		t.Fatalf("circuit should be open and must not call operation")
		return nil
	}, nil)
	if !errors.Is(err, gobreaker.ErrOpenState) || !IsCircuitOpen(err) {
		t.Fatalf("expected open state error, got %v", err)
	}
	if exec.State("get_batch_job") != "open" {
		t.Fatalf("expected open breaker, got %s", exec.State("get_batch_job"))
	}

	mu.Lock()
	defer mu.Unlock()
	if len(transitions) != 1 || transitions[0] != "get_batch_job:closed->open" {
		t.Fatalf("unexpected transitions: %v", transitions)
	}
}

func TestFailuresNotRecordedKeepCircuitClosed(t *testing.T) {
	exec := NewExecutor(Config{
		BreakerEnabled:     true,
		BreakerMinRequests: 1,
	})

	errMissing := errors.New("not found")
	for i := 0; i < 5; i++ {
		_ = exec.Execute(context.Background(), "fetch_file", func(context.Context) error {
			return errMissing
		}, func(error) ErrorClassification {
			return ErrorClassification{RecordFailure: false}
		})
	}
	if exec.State("fetch_file") != "closed" {
		t.Fatalf("expected closed breaker, got %s", exec.State("fetch_file"))
	}
}
