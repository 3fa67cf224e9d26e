package pipeline

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/moatasim-KT/interactive-knowledge-system-sub003/internal/domain"
)

// jitterFraction bounds the random slice of the base delay added to each
// backoff so concurrently-failing jobs do not retry in lockstep.
const jitterFraction = 0.1

// RetryPolicy is the per-stage retry and timeout budget. A manager captures
// it from the live configuration when a job is dispatched.
type RetryPolicy struct {
	// MaxRetries is the number of re-attempts after the first try, so a
	// stage that always fails runs MaxRetries+1 times.
	MaxRetries        int
	BaseDelay         time.Duration
	BackoffMultiplier float64
	MaxDelay          time.Duration
	// AttemptTimeout bounds a single attempt, not the whole stage; a stage
	// retried several times may run longer in total.
	AttemptTimeout time.Duration
}

// Backoff is the deterministic part of the delay before the attempt after
// the given failed attempt (1-based): BaseDelay * multiplier^(attempt-1),
// capped at MaxDelay. Jitter is added separately by delay.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := p.BackoffMultiplier
	if multiplier < 1 {
		multiplier = 1
	}
	backoff := float64(p.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	capped := time.Duration(backoff)
	if p.MaxDelay > 0 && capped > p.MaxDelay {
		capped = p.MaxDelay
	}
	return capped
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	jitter := time.Duration(rand.Float64() * jitterFraction * float64(p.BaseDelay))
	total := p.Backoff(attempt) + jitter
	if p.MaxDelay > 0 && total > p.MaxDelay {
		total = p.MaxDelay
	}
	return total
}

// AttemptError is one failed attempt in an execution's history.
type AttemptError struct {
	Attempt int
	Kind    domain.ErrorKind
	Err     error
	At      time.Time
}

// Executor runs a single stage under the retry policy, isolating the manager
// from stage-level failure handling. Retryable failures are re-attempted
// after an exponential backoff with jitter; validation and unknown failures
// terminate immediately as the final attempt.
type Executor struct {
	Policy RetryPolicy
	// OnRetry, when set, is invoked before each backoff sleep with the
	// attempt that failed, the computed delay and the error.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Run executes the stage until it succeeds, the retry budget is exhausted,
// a non-retryable error occurs, or ctx is cancelled. It returns the full
// attempt history alongside the final error; history is nil on first-try
// success. Cancellation interrupts a backoff sleep immediately and
// surfaces as ctx.Err().
func (x *Executor) Run(ctx context.Context, stage Stage, sc *domain.StageContext) ([]AttemptError, error) {
	maxAttempts := x.Policy.MaxRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var history []AttemptError
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return history, err
		}

		err := x.runAttempt(ctx, stage, sc)
		if err == nil {
			return history, nil
		}
		if ctx.Err() != nil {
			// Cancelled mid-attempt: not a stage failure.
			return history, ctx.Err()
		}

		kind := domain.Classify(err)
		history = append(history, AttemptError{
			Attempt: attempt,
			Kind:    kind,
			Err:     err,
			At:      time.Now().UTC(),
		})

		if !kind.Retryable() || attempt == maxAttempts {
			return history, err
		}

		delay := x.Policy.delay(attempt)
		if x.OnRetry != nil {
			x.OnRetry(attempt, delay, err)
		}
		if err := sleepContext(ctx, delay); err != nil {
			return history, err
		}
	}
	return history, nil
}

// runAttempt invokes the stage in its own goroutine so the attempt timeout
// holds even when a stage ignores its context. An attempt that outlives the
// timeout is reported as a timeout error and left to finish in the
// background.
func (x *Executor) runAttempt(ctx context.Context, stage Stage, sc *domain.StageContext) error {
	attemptCtx := ctx
	cancel := context.CancelFunc(func() {})
	if x.Policy.AttemptTimeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, x.Policy.AttemptTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- stage(attemptCtx, sc)
	}()

	select {
	case err := <-done:
		if err != nil && attemptCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return domain.TimeoutError(fmt.Errorf("stage attempt exceeded %s: %w", x.Policy.AttemptTimeout, err))
		}
		return err
	case <-attemptCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return domain.TimeoutError(fmt.Errorf("stage attempt exceeded %s", x.Policy.AttemptTimeout))
	}
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
