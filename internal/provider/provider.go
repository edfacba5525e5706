// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package provider defines the query interface of the external health data
// provider and a REST client implementing it.
//
// The provider is known to be unreliable: oversized responses
// are silently dropped (the request just never completes) and transient
// delivery failures are common. Neither surfaces as a distinct error kind
// here - the task supervisor's timeout/retry machinery above this package
// is the layer that deals with them.
package provider

import (
	"context"

	"github.com/tomtom215/vitalsync/internal/models"
)

// RawPoint is one metric reading as the provider serves it, before
// conversion to a typed models.DataPoint.
type RawPoint struct {
	StartMillis  int64   `json:"start_ms"`
	EndMillis    int64   `json:"end_ms,omitempty"`
	Value        float64 `json:"value"`
	Min          float64 `json:"min,omitempty"`
	Max          float64 `json:"max,omitempty"`
	DataSourceID string  `json:"data_source_id,omitempty"`
}

// RawSession is one entry of the provider's coarse session list. ID is the
// provider's own session identifier, used for detail fetches; it is not the
// deterministic ID this system derives for fingerprinting.
type RawSession struct {
	ID           string `json:"id"`
	Title        string `json:"title,omitempty"`
	ActivityType string `json:"activity_type"`
	StartMillis  int64  `json:"start_ms"`
	EndMillis    int64  `json:"end_ms"`
}

// RawSessionDetail is one session's full detail: the session attributes
// plus every data subtype's point list in a single response. This is the
// payload that can silently exceed the provider's response size limit.
type RawSessionDetail struct {
	Session RawSession            `json:"session"`
	Points  map[string][]RawPoint `json:"points"`
}

// API is the provider query surface the sync pipeline consumes.
// Implementations must honor context cancellation on every call.
type API interface {
	// FetchPoints returns raw points of one metric kind within [r.Start, r.End).
	FetchPoints(ctx context.Context, kind models.MetricKind, r models.TimeRange) ([]RawPoint, error)

	// FetchSessionList returns the coarse session list overlapping r,
	// in provider order.
	FetchSessionList(ctx context.Context, r models.TimeRange) ([]RawSession, error)

	// FetchSessionDetail returns one session's full detail in a single
	// combined request.
	FetchSessionDetail(ctx context.Context, sessionID string) (*RawSessionDetail, error)

	// FetchSessionSlice returns one data subtype of one session over a
	// bounded sub-interval. This is the rescue-path primitive used when
	// the combined detail request is suspected oversized.
	FetchSessionSlice(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]RawPoint, error)
}
