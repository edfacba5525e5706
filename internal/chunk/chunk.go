// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package chunk splits large time ranges into provider-safe sub-queries.
//
// The provider's query API silently fails on oversized responses, so every
// fetch is issued over a bounded sub-range: one local calendar day for
// intraday metrics (dedup fingerprints are keyed per day), or a fixed
// duration for session listing where responses are not tied to day
// boundaries.
//
// Both functions are pure: they own no state and never touch the clock.
package chunk

import (
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
)

// ByCalendarDay splits r into sub-ranges that each lie within one local
// calendar day in loc. The first and last sub-ranges are clipped to
// r.Start/r.End. A zero-length input yields a single zero-length range,
// the fetch-nothing sentinel.
//
// The concatenation of the result exactly covers [r.Start, r.End) with no
// gaps or overlaps.
func ByCalendarDay(r models.TimeRange, loc *time.Location) []models.TimeRange {
	if loc == nil {
		loc = time.UTC
	}
	if r.IsZero() {
		return []models.TimeRange{{Start: r.Start, End: r.Start}}
	}

	var out []models.TimeRange
	cursor := r.Start
	for cursor.Before(r.End) {
		next := startOfNextDay(cursor, loc)
		if next.After(r.End) {
			next = r.End
		}
		out = append(out, models.TimeRange{Start: cursor, End: next})
		cursor = next
	}
	return out
}

// ByDuration splits r into contiguous chunks of exactly d, except the final
// chunk which is clipped to r.End. A zero-length input yields the sentinel.
//
// When the chunks feed dedup-bucket-aligned consumers, callers must pass a
// d that evenly divides 24h; this function does not enforce that.
func ByDuration(r models.TimeRange, d time.Duration) []models.TimeRange {
	if d <= 0 {
		return []models.TimeRange{r}
	}
	if r.IsZero() {
		return []models.TimeRange{{Start: r.Start, End: r.Start}}
	}

	var out []models.TimeRange
	cursor := r.Start
	for cursor.Before(r.End) {
		next := cursor.Add(d)
		if next.After(r.End) {
			next = r.End
		}
		out = append(out, models.TimeRange{Start: cursor, End: next})
		cursor = next
	}
	return out
}

// startOfNextDay returns local midnight of the day after t in loc.
func startOfNextDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	y, m, d := local.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}
