// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package task wraps a single unreliable asynchronous operation with
// bounded retries, a per-attempt timeout, and cooperative cancellation.
//
// The provider API silently drops oversized responses, which surfaces to
// callers as a timeout. Supervise therefore treats a timed-out attempt as
// transient and re-issues the operation from scratch, up to the configured
// retry budget. A genuine error from the operation bypasses the budget
// entirely: partial results for one metric window are meaningless, so the
// whole scope is cancelled on first real failure.
//
// Per invocation the state machine is:
//
//	Idle -> Attempting -> {Succeeded, Retrying, Cancelled, Failed}
//
// with Retrying looping back to a fresh attempt. At most MaxRetries+1
// attempts are issued and no two attempts for the same task ever run
// concurrently: a timed-out attempt's context is cancelled and the
// operation is waited on before the next attempt starts. Operations must
// honor their context for this to terminate - the same contract every
// provider client call already satisfies.
package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
)

var (
	// ErrRetryBudgetExceeded is returned when every attempt timed out and
	// the retry budget is exhausted. Callers use it to detect the provider
	// silently refusing an oversized response.
	ErrRetryBudgetExceeded = errors.New("retry budget exceeded")

	// ErrScopeCancelled is returned when a task ends because its scope was
	// cancelled. It is a distinct outcome from failure: the task did not
	// break, a sibling's outcome made its work moot.
	ErrScopeCancelled = errors.New("scope cancelled")
)

// Task is one retryable, timeout-bounded, cancellable unit of asynchronous
// work. Tasks are not persisted; a Task value lives only for the duration
// of one Supervise call.
type Task[T any] struct {
	// Name identifies the task in errors and logs.
	Name string

	// Run performs the underlying operation. It must return promptly once
	// its context is done.
	Run func(ctx context.Context) (T, error)

	// Timeout bounds each individual attempt. Zero means no deadline.
	Timeout time.Duration

	// MaxRetries is the number of re-issues after the first attempt.
	// MaxRetries = 0 with a Timeout is the common single-attempt,
	// hard-deadline configuration.
	MaxRetries int
}

// Supervise runs t under the given cancellation scope.
//
// Outcomes:
//   - success: the attempt's result is returned.
//   - timeout: the attempt is re-issued until the budget is exhausted,
//     then ErrRetryBudgetExceeded is returned and the scope is cancelled.
//   - genuine error: returned immediately (wrapped), scope cancelled.
//   - scope or context cancellation: ErrScopeCancelled is returned.
func Supervise[T any](ctx context.Context, scope *Scope, t Task[T]) (T, error) {
	var zero T

	for n := 0; n <= t.MaxRetries; n++ {
		if scope.Cancelled() {
			metrics.TaskOutcomes.WithLabelValues("cancelled").Inc()
			return zero, fmt.Errorf("task %q: %w", t.Name, ErrScopeCancelled)
		}
		if ctx.Err() != nil {
			scope.Cancel()
			metrics.TaskOutcomes.WithLabelValues("cancelled").Inc()
			return zero, fmt.Errorf("task %q: %w", t.Name, ErrScopeCancelled)
		}

		if n > 0 {
			metrics.TaskRetries.Inc()
			logging.Warn().Str("task", t.Name).Int("attempt", n+1).Int("max_attempts", t.MaxRetries+1).Msg("Retrying timed-out task")
		}
		metrics.TaskAttempts.Inc()

		value, err := runAttempt(ctx, scope, t)
		switch {
		case err == nil:
			metrics.TaskOutcomes.WithLabelValues("succeeded").Inc()
			return value, nil

		case errors.Is(err, ErrScopeCancelled), errors.Is(err, context.Canceled):
			scope.Cancel()
			metrics.TaskOutcomes.WithLabelValues("cancelled").Inc()
			return zero, fmt.Errorf("task %q: %w", t.Name, ErrScopeCancelled)

		case errors.Is(err, context.DeadlineExceeded):
			// Transient: loop back for a fresh attempt. The timed-out
			// attempt is never resumed.
			continue

		default:
			// Genuine provider error: the budget is bypassed and the
			// whole group is invalidated.
			scope.Cancel()
			metrics.TaskOutcomes.WithLabelValues("failed").Inc()
			return zero, fmt.Errorf("task %q: %w", t.Name, err)
		}
	}

	scope.Cancel()
	metrics.TaskOutcomes.WithLabelValues("failed").Inc()
	return zero, fmt.Errorf("task %q after %d attempts: %w", t.Name, t.MaxRetries+1, ErrRetryBudgetExceeded)
}

// runAttempt issues one attempt with its own deadline and waits for it to
// settle. On timeout or cancellation the attempt context is cancelled and
// the operation is drained before returning, so attempts never overlap.
func runAttempt[T any](ctx context.Context, scope *Scope, t Task[T]) (T, error) {
	var zero T

	var attemptCtx context.Context
	var cancel context.CancelFunc
	if t.Timeout > 0 {
		attemptCtx, cancel = context.WithTimeout(ctx, t.Timeout)
	} else {
		attemptCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		value, err := t.Run(attemptCtx)
		ch <- result{value: value, err: err}
	}()

	select {
	case r := <-ch:
		return r.value, r.err

	case <-scope.Done():
		cancel()
		<-ch
		return zero, ErrScopeCancelled

	case <-attemptCtx.Done():
		cancel()
		<-ch
		// DeadlineExceeded for a per-attempt timeout, Canceled when the
		// parent context was torn down.
		return zero, attemptCtx.Err()
	}
}
