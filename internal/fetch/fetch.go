// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package fetch fans a chunked time range out into concurrent supervised
// provider calls and flattens the results back in chunk order.
//
// All chunk tasks of one call share a single cancellation scope: the first
// genuine failure (or exhausted retry budget) cancels every sibling, since
// partial results for a metric window are not meaningful. The orchestrator
// reports that first root-cause error, never a generic aggregate.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/task"
)

// DefaultConcurrency bounds the fan-out when Options.Concurrency is unset.
// Provider-friendly: enough parallelism to hide latency without hammering
// the API with one request per calendar day of a year-long backfill.
const DefaultConcurrency = 4

// Options configures one orchestrated fetch.
type Options struct {
	// Timeout bounds each chunk attempt (see task.Task.Timeout).
	Timeout time.Duration

	// MaxRetries is the per-chunk retry budget (see task.Task.MaxRetries).
	MaxRetries int

	// Concurrency bounds how many chunk fetches run at once.
	// Default: DefaultConcurrency.
	Concurrency int
}

// All runs fn once per chunk under one shared cancellation scope and
// returns the concatenation of all chunk results in chunk order, regardless
// of completion order.
//
// Zero-length sentinel chunks are skipped without a provider call.
//
// If any chunk task fails, All returns the first genuine error found in
// chunk order; cancellation outcomes of siblings are reported only when no
// task produced a real error (e.g. the parent context was torn down).
func All[T any](ctx context.Context, name string, chunks []models.TimeRange, opts Options, fn func(ctx context.Context, r models.TimeRange) ([]T, error)) ([]T, error) {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	metrics.FetchChunks.Observe(float64(len(chunks)))

	scope := task.NewScope()
	results := make([][]T, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	sem := make(chan struct{}, concurrency)

	for i, chunk := range chunks {
		if chunk.IsZero() {
			continue
		}

		wg.Add(1)
		go func(i int, chunk models.TimeRange) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			results[i], errs[i] = task.Supervise(ctx, scope, task.Task[[]T]{
				Name:       fmt.Sprintf("%s [%s, %s)", name, chunk.Start.Format(time.RFC3339), chunk.End.Format(time.RFC3339)),
				Timeout:    opts.Timeout,
				MaxRetries: opts.MaxRetries,
				Run: func(ctx context.Context) ([]T, error) {
					return fn(ctx, chunk)
				},
			})
		}(i, chunk)
	}

	wg.Wait()

	// First genuine error in chunk order wins; sibling cancellations are
	// a side effect of it and are discarded.
	var firstCancelled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, task.ErrScopeCancelled) {
			if firstCancelled == nil {
				firstCancelled = err
			}
			continue
		}
		return nil, err
	}
	if firstCancelled != nil {
		return nil, firstCancelled
	}

	var out []T
	for _, r := range results {
		out = append(out, r...)
	}
	return out, nil
}
