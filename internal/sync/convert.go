// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"math"
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

// convertPoint converts a raw provider point to a typed data point.
// Returns false when the raw point is unusable; unusable points are
// dropped, never a fatal sync error.
func convertPoint(raw provider.RawPoint) (models.DataPoint, bool) {
	if raw.StartMillis <= 0 {
		return models.DataPoint{}, false
	}
	if math.IsNaN(raw.Value) || math.IsInf(raw.Value, 0) {
		return models.DataPoint{}, false
	}

	p := models.DataPoint{
		Start:        time.UnixMilli(raw.StartMillis).UTC(),
		DataSourceID: raw.DataSourceID,
		Value:        raw.Value,
		Min:          raw.Min,
		Max:          raw.Max,
	}
	if raw.EndMillis > 0 {
		if raw.EndMillis < raw.StartMillis {
			return models.DataPoint{}, false
		}
		p.End = time.UnixMilli(raw.EndMillis).UTC()
	}
	return p, true
}

// convertPoints converts a raw point list, dropping unusable entries.
func convertPoints(raw []provider.RawPoint) []models.DataPoint {
	out := make([]models.DataPoint, 0, len(raw))
	for _, r := range raw {
		if p, ok := convertPoint(r); ok {
			out = append(out, p)
		}
	}
	return out
}

// newSessionStub builds a session bundle shell from a coarse list entry,
// with the deterministic fingerprint ID derived from immutable attributes.
// Metrics are filled in by the detail (or rescue) fetch.
func newSessionStub(raw provider.RawSession) *models.SessionBundle {
	start := time.UnixMilli(raw.StartMillis).UTC()
	end := time.UnixMilli(raw.EndMillis).UTC()
	return &models.SessionBundle{
		ID:           models.SessionID(start, end, raw.ActivityType, raw.Title),
		Name:         raw.Title,
		Start:        start,
		End:          end,
		ActivityType: raw.ActivityType,
		Metrics:      make(map[models.MetricKind][]models.DataPoint),
	}
}

// toUploadPoint converts a typed point to wire form.
func toUploadPoint(p models.DataPoint) uploader.Point {
	out := uploader.Point{
		StartMillis:  p.Start.UnixMilli(),
		Value:        p.Value,
		Min:          p.Min,
		Max:          p.Max,
		DataSourceID: p.DataSourceID,
	}
	if !p.End.IsZero() {
		out.EndMillis = p.End.UnixMilli()
	}
	return out
}
