// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package uploader

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
)

// CircuitBreakerUploader wraps an Uploader with the circuit breaker
// pattern, preventing cascading failures when the backend is unavailable
// or slow.
//
// DETERMINISM NOTE: the breaker uses real time (via sony/gobreaker) for
// its interval and timeout calculations. The timing determines when to
// recover from failures, not data integrity; unit tests should mock the
// wrapped Uploader rather than the breaker.
type CircuitBreakerUploader struct {
	next Uploader
	cb   *gobreaker.CircuitBreaker[struct{}]
	name string
}

// NewCircuitBreakerUploader wraps next with a circuit breaker.
// Configuration:
//   - Max 1 request in half-open state (payloads are not cheap)
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 5 requests
func NewCircuitBreakerUploader(next Uploader) *CircuitBreakerUploader {
	cbName := "backend-upload"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &CircuitBreakerUploader{next: next, cb: cb, name: cbName}
}

// Upload implements Uploader with circuit breaker protection.
func (u *CircuitBreakerUploader) Upload(ctx context.Context, payload *Payload) error {
	_, err := u.cb.Execute(func() (struct{}, error) {
		return struct{}{}, u.next.Upload(ctx, payload)
	})

	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(u.name, "success").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(u.name, "rejected").Inc()
		metrics.UploadRequests.WithLabelValues("rejected").Inc()
		logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Upload rejected")
		return err
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(u.name, "failure").Inc()
		return err
	}
}

// stateToFloat converts circuit breaker state to a numeric value for metrics.
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to a string for logging.
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
