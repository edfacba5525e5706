// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
)

// effectiveWindow intersects the requested window with the tracking lower
// bound and clamps the end against now. Data older than trackingSince was
// never recorded by the provider account, and data "newer than now" cannot
// exist; fetching either is wasted provider load.
//
// The result may be the zero-length sentinel, in which case the sync pass
// is a successful no-op.
func effectiveWindow(requested models.TimeRange, trackingSince, now time.Time) models.TimeRange {
	start := requested.Start
	if !trackingSince.IsZero() && trackingSince.After(start) {
		start = trackingSince
	}
	end := requested.End
	if end.After(now) {
		end = now
	}
	if end.Before(start) {
		end = start
	}
	return models.TimeRange{Start: start, End: end}
}

// alignToBatches snaps the window to batch boundaries anchored at local
// midnight: start floored, end floored. The periodic loop hands each pass a
// window ending at the current instant, so without alignment every pass
// would tile different batch windows and mint fresh fingerprint keys for
// data that has not changed. BatchDuration evenly divides 24h (config
// validation enforces it), so the midnight anchor yields the same grid on
// every pass.
//
// The end is floored rather than ceiled: the in-progress trailing cell
// accumulates points until its window completes, and fingerprinting it
// early would re-upload it on every pass. It is picked up whole by a later
// pass, which the lookback window guarantees.
func alignToBatches(window models.TimeRange, d time.Duration, loc *time.Location) models.TimeRange {
	if d <= 0 || window.IsZero() {
		return window
	}
	if loc == nil {
		loc = time.UTC
	}
	start := window.Start.In(loc)
	midnight := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	alignedStart := midnight.Add(start.Sub(midnight) / d * d)
	alignedEnd := alignedStart.Add(window.End.Sub(alignedStart) / d * d)
	return models.TimeRange{Start: alignedStart, End: alignedEnd}
}
