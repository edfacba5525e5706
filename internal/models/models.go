// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package models defines the shared data types flowing through the sync
// pipeline: time ranges, data points, batches, and exercise sessions.
//
// All types here are plain values with no behavior beyond construction and
// comparison helpers. Ownership and lifecycle rules live with the packages
// that produce them (chunk, batch, sync).
package models

import (
	"math"
	"time"
)

// Float comparison tolerances. Fingerprint equality uses these rather than
// exact comparison because provider aggregates are recomputed server-side
// and drift in the last decimal places between fetches.
const (
	// EpsilonGeneric is the tolerance for generic float values (kcal, km).
	EpsilonGeneric = 1e-4

	// EpsilonPhysio is the tolerance for physiological aggregates
	// (heart rate averages), which the provider rounds more aggressively.
	EpsilonPhysio = 1e-2
)

// FloatEquals reports whether two floats are equal within eps.
func FloatEquals(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// MetricKind identifies a metric family or session data subtype.
type MetricKind string

// Metric kinds understood by the provider and the upload backend.
const (
	KindCalories  MetricKind = "calories"
	KindSteps     MetricKind = "steps"
	KindHeartRate MetricKind = "heart_rate"
	KindDistance  MetricKind = "distance"
	KindSpeed     MetricKind = "speed"
	KindPower     MetricKind = "power"
	KindSegments  MetricKind = "segments"
	KindWeight    MetricKind = "weight"
	KindHeight    MetricKind = "height"
)

// TimeRange is a closed-start/open-end interval [Start, End).
// Invariant: Start <= End. A zero-length range (Start == End) is the
// explicit "fetch nothing" sentinel, not an error.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// NewTimeRange builds a range, swapping bounds if given in reverse so the
// Start <= End invariant always holds.
func NewTimeRange(start, end time.Time) TimeRange {
	if end.Before(start) {
		start, end = end, start
	}
	return TimeRange{Start: start, End: end}
}

// Duration returns End - Start.
func (r TimeRange) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// IsZero reports whether the range is the zero-length sentinel.
func (r TimeRange) IsZero() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether t falls within [Start, End).
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Intersect clamps r to the bounds of other. The result may be the
// zero-length sentinel when the ranges do not overlap.
func (r TimeRange) Intersect(other TimeRange) TimeRange {
	start := r.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := r.End
	if other.End.Before(end) {
		end = other.End
	}
	if end.Before(start) {
		end = start
	}
	return TimeRange{Start: start, End: end}
}

// DataPoint is one timestamped metric reading.
//
// End is the zero time for instantaneous points. Value carries the scalar
// reading (kcal, step count, average bpm); Min/Max are populated only for
// tuple-valued kinds such as heart rate.
type DataPoint struct {
	Start        time.Time
	End          time.Time
	DataSourceID string
	Value        float64
	Min          float64
	Max          float64
}

// Instantaneous reports whether the point has no duration.
func (p DataPoint) Instantaneous() bool {
	return p.End.IsZero()
}

// Batch is a fixed-duration bucket of points covering [WindowStart, WindowEnd).
// A batch may be empty: an empty batch is an explicit "nothing happened in
// this window" signal, distinct from "window not yet fetched".
type Batch struct {
	Points      []DataPoint
	WindowStart time.Time
	WindowEnd   time.Time
}

// Count returns the number of points in the batch.
func (b Batch) Count() int {
	return len(b.Points)
}

// Total returns the sum of the points' scalar values.
func (b Batch) Total() float64 {
	var total float64
	for _, p := range b.Points {
		total += p.Value
	}
	return total
}

// Empty reports whether the batch holds no points.
func (b Batch) Empty() bool {
	return len(b.Points) == 0
}

// Clock is an injectable source of "now". The sync managers use it to clamp
// windows against the future and the metadata store uses it to stamp
// fingerprint write times, keeping both deterministic under test.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time { return time.Now() }
