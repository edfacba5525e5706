// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package batch groups timestamped data points into fixed-duration,
// contiguous, gap-free batches covering a sync window.
//
// Batches serve two purposes downstream: they shape the upload payload and
// they are the unit of fingerprint-keyed deduplication. Empty batches are
// produced deliberately - "nothing happened in this window" is a signal the
// dedup store must be able to distinguish from "window not yet fetched".
package batch

import (
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
)

// Group tiles [windowStart, windowEnd) in steps of batchDuration and bins
// every point into exactly one batch by its Start value.
//
// If windowEnd does not fall on a batchDuration boundary, the last batch's
// end is rounded up to the next multiple past windowEnd - windows are never
// truncated mid-batch. Callers that need exact alignment must pre-round
// windowEnd.
//
// Points outside [windowStart, lastBatchEnd) are dropped. Input order does
// not matter; each point is binned independently.
func Group(windowStart, windowEnd time.Time, points []models.DataPoint, batchDuration time.Duration) []models.Batch {
	if batchDuration <= 0 || !windowEnd.After(windowStart) {
		return nil
	}

	window := windowEnd.Sub(windowStart)
	n := int(window / batchDuration)
	if window%batchDuration != 0 {
		n++
	}

	batches := make([]models.Batch, n)
	for i := range batches {
		batches[i].WindowStart = windowStart.Add(time.Duration(i) * batchDuration)
		batches[i].WindowEnd = batches[i].WindowStart.Add(batchDuration)
	}

	lastEnd := batches[n-1].WindowEnd
	for _, p := range points {
		if p.Start.Before(windowStart) || !p.Start.Before(lastEnd) {
			continue
		}
		idx := int(p.Start.Sub(windowStart) / batchDuration)
		batches[idx].Points = append(batches[idx].Points, p)
	}

	return batches
}
