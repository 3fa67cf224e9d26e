package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

func fastPolicy(maxRetries int) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        maxRetries,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Millisecond,
		AttemptTimeout:    time.Second,
	}
}

func TestExecutorRetryBound(t *testing.T) {
	var calls atomic.Int32
	stage := Stage(func(context.Context, *domain.StageContext) error {
		calls.Add(1)
		return domain.NetworkError(errors.New("connection reset"))
	})

	executor := &Executor{Policy: fastPolicy(3)}
	history, err := executor.Run(context.Background(), stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if err == nil {
		t.Fatalf("expected terminal error")
	}
	if got := calls.Load(); got != 4 {
		t.Fatalf("expected initial attempt + 3 retries = 4 calls, got %d", got)
	}
	if len(history) != 4 {
		t.Fatalf("expected every attempt in history, got %d records", len(history))
	}
	for index, attempt := range history {
		if attempt.Attempt != index+1 {
			t.Fatalf("history attempt %d numbered %d", index, attempt.Attempt)
		}
		if attempt.Kind != domain.ErrorKindNetwork {
			t.Fatalf("expected network classification, got %s", attempt.Kind)
		}
	}
}

func TestExecutorNonRetryableFailsImmediately(t *testing.T) {
	var calls atomic.Int32
	stage := Stage(func(context.Context, *domain.StageContext) error {
		calls.Add(1)
		return domain.ValidationError(errors.New("malformed input"))
	})

	executor := &Executor{Policy: fastPolicy(5)}
	history, err := executor.Run(context.Background(), stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("validation errors must not consume the retry budget, got %d calls", got)
	}
	if len(history) != 1 || history[0].Kind != domain.ErrorKindValidation {
		t.Fatalf("expected single validation record, got %+v", history)
	}
}

func TestExecutorUnknownErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	stage := Stage(func(context.Context, *domain.StageContext) error {
		calls.Add(1)
		return errors.New("unclassified explosion")
	})

	executor := &Executor{Policy: fastPolicy(5)}
	_, err := executor.Run(context.Background(), stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("unknown errors are non-retryable, got %d calls", got)
	}
}

func TestExecutorSucceedsAfterTransientFailures(t *testing.T) {
	var calls atomic.Int32
	stage := Stage(func(context.Context, *domain.StageContext) error {
		if calls.Add(1) < 3 {
			return domain.ServerError(errors.New("status 503"))
		}
		return nil
	})

	retries := 0
	executor := &Executor{
		Policy: fastPolicy(5),
		OnRetry: func(attempt int, delay time.Duration, err error) {
			retries++
			if delay < 0 {
				t.Errorf("negative delay for attempt %d", attempt)
			}
		},
	}
	history, err := executor.Run(context.Background(), stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected success on third call, got %d", calls.Load())
	}
	if retries != 2 {
		t.Fatalf("expected 2 retry notifications, got %d", retries)
	}
	if len(history) != 2 {
		t.Fatalf("expected the 2 failed attempts in history, got %d", len(history))
	}
}

func TestExecutorAttemptTimeoutIsRetryable(t *testing.T) {
	var calls atomic.Int32
	stage := Stage(func(ctx context.Context, _ *domain.StageContext) error {
		calls.Add(1)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	executor := &Executor{Policy: RetryPolicy{
		MaxRetries:        1,
		BaseDelay:         time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          5 * time.Millisecond,
		AttemptTimeout:    10 * time.Millisecond,
	}}
	history, err := executor.Run(context.Background(), stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if err == nil {
		t.Fatalf("expected timeout failure")
	}
	if domain.Classify(err) != domain.ErrorKindTimeout {
		t.Fatalf("expected timeout classification, got %s", domain.Classify(err))
	}
	if calls.Load() != 2 {
		t.Fatalf("timeouts are retryable: expected 2 attempts, got %d", calls.Load())
	}
	for _, attempt := range history {
		if attempt.Kind != domain.ErrorKindTimeout {
			t.Fatalf("expected timeout records, got %s", attempt.Kind)
		}
	}
}

func TestExecutorCancelDuringBackoff(t *testing.T) {
	stage := Stage(func(context.Context, *domain.StageContext) error {
		return domain.NetworkError(errors.New("flaky"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	executor := &Executor{
		Policy: RetryPolicy{
			MaxRetries:        3,
			BaseDelay:         5 * time.Second,
			BackoffMultiplier: 2,
			MaxDelay:          time.Minute,
			AttemptTimeout:    time.Second,
		},
		OnRetry: func(int, time.Duration, error) {
			cancel()
		},
	}

	start := time.Now()
	_, err := executor.Run(ctx, stage, domain.NewStageContext("https://example.com", domain.StageOptions{}))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("backoff sleep was not interrupted, took %s", elapsed)
	}
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         100 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxDelay:          time.Second,
	}

	previous := time.Duration(0)
	for attempt := 1; attempt <= 8; attempt++ {
		delay := policy.Backoff(attempt)
		if delay < previous {
			t.Fatalf("backoff decreased at attempt %d: %s < %s", attempt, delay, previous)
		}
		if delay > policy.MaxDelay {
			t.Fatalf("backoff exceeded cap at attempt %d: %s", attempt, delay)
		}
		previous = delay
	}

	if got := policy.Backoff(1); got != 100*time.Millisecond {
		t.Fatalf("first backoff should equal base delay, got %s", got)
	}
	if got := policy.Backoff(8); got != time.Second {
		t.Fatalf("late backoff should hit the cap, got %s", got)
	}
}

func TestBackoffMultiplierBelowOneTreatedAsConstant(t *testing.T) {
	policy := RetryPolicy{
		BaseDelay:         50 * time.Millisecond,
		BackoffMultiplier: 0.5,
		MaxDelay:          time.Second,
	}
	for attempt := 1; attempt <= 4; attempt++ {
		if got := policy.Backoff(attempt); got != 50*time.Millisecond {
			t.Fatalf("expected constant backoff, attempt %d got %s", attempt, got)
		}
	}
}
