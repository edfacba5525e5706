// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the sync pipeline:
// - Supervised task attempts, retries, and outcomes
// - Per-family sync duration and record counts
// - Dedup filter efficiency
// - Provider API latency
// - Upload circuit breaker state

var (
	// Supervised task metrics
	TaskAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_attempts_total",
			Help: "Total number of supervised task attempts issued",
		},
	)

	TaskRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_retries_total",
			Help: "Total number of supervised task attempts re-issued after a timeout",
		},
	)

	TaskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_outcomes_total",
			Help: "Terminal supervised task outcomes",
		},
		[]string{"outcome"}, // "succeeded", "failed", "cancelled"
	)

	// Fetch orchestration metrics
	FetchChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fetch_chunks_per_call",
			Help:    "Number of chunks fanned out per orchestrated fetch",
			Buckets: []float64{1, 2, 5, 10, 30, 90, 365},
		},
	)

	FetchRescues = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fetch_session_rescues_total",
			Help: "Total number of session detail fetches that fell back to the per-subtype rescue path",
		},
	)

	// Sync metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sync_duration_seconds",
			Help:    "Duration of sync passes per metric family",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"family"}, // "intraday", "sessions", "profile"
	)

	SyncRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_records_total",
			Help: "Records uploaded per sync pass",
		},
		[]string{"family"},
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sync_errors_total",
			Help: "Failed sync passes",
		},
		[]string{"family", "error_type"}, // error_type: "fetch", "upload", "store"
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync per family",
		},
		[]string{"family"},
	)

	// Dedup metrics
	DedupUnchanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_unchanged_total",
			Help: "Candidates skipped because their fingerprint matched the stored one",
		},
		[]string{"kind"},
	)

	DedupChanged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dedup_changed_total",
			Help: "Candidates selected for upload because no matching fingerprint was stored",
		},
		[]string{"kind"},
	)

	// Provider API metrics
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Provider API requests by endpoint and status",
		},
		[]string{"endpoint", "status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Duration of provider API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Upload metrics
	UploadRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upload_requests_total",
			Help: "Backend upload requests by result",
		},
		[]string{"result"}, // "success", "failure", "rejected"
	)

	UploadPayloadItems = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "upload_payload_items",
			Help:    "Number of items per upload payload",
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000},
		},
	)

	// Circuit Breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker by result",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	// Store metrics
	StoreGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_gc_runs_total",
			Help: "Badger value-log GC runs by result",
		},
		[]string{"result"}, // "reclaimed", "noop", "error"
	)
)
