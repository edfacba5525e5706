// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/vitalsync/internal/chunk"
	"github.com/tomtom215/vitalsync/internal/dedup"
	"github.com/tomtom215/vitalsync/internal/fetch"
	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

// profileFields are the body measurements tracked as single current values.
var profileFields = []models.MetricKind{models.KindWeight, models.KindHeight}

// ProfileFamily syncs body measurements. Only the most recent reading per
// field matters; a field whose latest value is unchanged within tolerance
// is skipped.
type ProfileFamily struct {
	api    provider.API
	store  *dedup.Store
	upload uploader.Uploader
	clock  models.Clock
	cfg    FamilyConfig
}

// NewProfileFamily wires the body-measurement sync pipeline.
func NewProfileFamily(api provider.API, store *dedup.Store, upload uploader.Uploader, clock models.Clock, cfg FamilyConfig) *ProfileFamily {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &ProfileFamily{api: api, store: store, upload: upload, clock: clock, cfg: cfg}
}

// Name implements Family.
func (f *ProfileFamily) Name() string { return "profile" }

// Sync implements Family.
func (f *ProfileFamily) Sync(ctx context.Context, requested models.TimeRange) error {
	window := effectiveWindow(requested, f.cfg.TrackingSince, f.clock.Now())
	if window.IsZero() {
		logging.Debug().Msg("Profile: effective window empty, nothing to do")
		return nil
	}

	payload := &uploader.Payload{PassID: uuid.NewString()}
	var toRecord []dedup.Candidate
	for _, field := range profileFields {
		latest, ok, err := f.fetchLatest(ctx, field, window)
		if err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "fetch").Inc()
			return fmt.Errorf("fetch %s: %w", field, err)
		}
		if !ok {
			continue
		}

		cand := dedup.ProfileCandidate{Field: field, Value: latest.Value, Tolerance: models.EpsilonGeneric}
		if !f.store.NeedsSync(ctx, cand) {
			continue
		}
		payload.Profile = append(payload.Profile, uploader.ProfileValue{Field: field, Value: latest.Value})
		toRecord = append(toRecord, cand)
	}

	if payload.Empty() {
		logging.Debug().Msg("Profile: no measurements changed, skipping upload")
		return nil
	}

	if err := f.upload.Upload(ctx, payload); err != nil {
		metrics.SyncErrors.WithLabelValues(f.Name(), "upload").Inc()
		return fmt.Errorf("upload profile payload: %w", err)
	}

	for _, cand := range toRecord {
		if err := f.store.RecordSynced(ctx, cand); err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "store").Inc()
			return fmt.Errorf("record profile fingerprints: %w", err)
		}
	}

	metrics.SyncRecords.WithLabelValues(f.Name()).Add(float64(len(payload.Profile)))
	logging.Info().Str("pass_id", payload.PassID).Int("fields", len(payload.Profile)).Msg("Profile sync uploaded")
	return nil
}

// fetchLatest fetches one field over the window and returns its most recent
// reading. ok is false when the provider has no reading in the window.
func (f *ProfileFamily) fetchLatest(ctx context.Context, field models.MetricKind, window models.TimeRange) (models.DataPoint, bool, error) {
	chunks := chunk.ByCalendarDay(window, f.cfg.Location)
	raw, err := fetch.All(ctx, "profile "+string(field), chunks, f.cfg.fetchOptions(),
		func(ctx context.Context, r models.TimeRange) ([]provider.RawPoint, error) {
			return f.api.FetchPoints(ctx, field, r)
		})
	if err != nil {
		return models.DataPoint{}, false, err
	}

	points := convertPoints(raw)
	if len(points) == 0 {
		return models.DataPoint{}, false, nil
	}
	latest := points[0]
	for _, p := range points[1:] {
		if p.Start.After(latest.Start) {
			latest = p
		}
	}
	return latest, true, nil
}
