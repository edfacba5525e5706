// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/vitalsync/internal/batch"
	"github.com/tomtom215/vitalsync/internal/chunk"
	"github.com/tomtom215/vitalsync/internal/dedup"
	"github.com/tomtom215/vitalsync/internal/fetch"
	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

// intradayKind pairs a metric kind with the tolerance its batch
// fingerprints compare under.
type intradayKind struct {
	metric    models.MetricKind
	tolerance float64
}

// intradayKinds are the intraday metrics synced per pass. Heart rate uses
// the coarser physiological tolerance; additive values use the generic one.
var intradayKinds = []intradayKind{
	{models.KindCalories, models.EpsilonGeneric},
	{models.KindSteps, models.EpsilonGeneric},
	{models.KindDistance, models.EpsilonGeneric},
	{models.KindHeartRate, models.EpsilonPhysio},
}

// IntradayFamily syncs the intraday metrics: fetch per calendar day,
// group into fixed-duration batches, filter through the fingerprint store,
// upload the remainder, and record fingerprints on confirmed success only.
type IntradayFamily struct {
	api    provider.API
	store  *dedup.Store
	upload uploader.Uploader
	clock  models.Clock
	cfg    FamilyConfig
}

// NewIntradayFamily wires the intraday sync pipeline.
func NewIntradayFamily(api provider.API, store *dedup.Store, upload uploader.Uploader, clock models.Clock, cfg FamilyConfig) *IntradayFamily {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &IntradayFamily{api: api, store: store, upload: upload, clock: clock, cfg: cfg}
}

// Name implements Family.
func (f *IntradayFamily) Name() string { return "intraday" }

// Sync implements Family.
func (f *IntradayFamily) Sync(ctx context.Context, requested models.TimeRange) error {
	window := effectiveWindow(requested, f.cfg.TrackingSince, f.clock.Now())
	if window.IsZero() {
		logging.Debug().Msg("Intraday: effective window empty, nothing to do")
		return nil
	}
	// Batch windows (and so fingerprint keys) must land on the same grid no
	// matter when the pass runs.
	window = alignToBatches(window, f.cfg.BatchDuration, f.cfg.Location)
	if window.IsZero() {
		logging.Debug().Msg("Intraday: no complete batch window yet, nothing to do")
		return nil
	}

	// Each kind is its own independently-scoped task group; kinds run
	// concurrently and interleave freely.
	type kindResult struct {
		batches []models.Batch
		err     error
	}
	results := make([]kindResult, len(intradayKinds))
	var wg sync.WaitGroup
	for i, k := range intradayKinds {
		wg.Add(1)
		go func(i int, k intradayKind) {
			defer wg.Done()
			results[i].batches, results[i].err = f.fetchKind(ctx, k.metric, window)
		}(i, k)
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "fetch").Inc()
			return fmt.Errorf("fetch %s: %w", intradayKinds[i].metric, r.err)
		}
	}

	payload := &uploader.Payload{PassID: uuid.NewString()}
	var toRecord []dedup.Candidate
	for i, k := range intradayKinds {
		for _, b := range results[i].batches {
			cand := dedup.NewIntradayBatchCandidate(k.metric, b, k.tolerance)
			if !f.store.NeedsSync(ctx, cand) {
				continue
			}
			payload.IntradayBatches = append(payload.IntradayBatches, toUploadBatch(k.metric, b))
			toRecord = append(toRecord, cand)
		}
	}

	if payload.Empty() {
		logging.Debug().Msg("Intraday: no batches changed, skipping upload")
		return nil
	}

	if err := f.upload.Upload(ctx, payload); err != nil {
		// Metadata stays untouched so the next pass retries the same data.
		metrics.SyncErrors.WithLabelValues(f.Name(), "upload").Inc()
		return fmt.Errorf("upload intraday payload: %w", err)
	}

	for _, cand := range toRecord {
		if err := f.store.RecordSynced(ctx, cand); err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "store").Inc()
			return fmt.Errorf("record intraday fingerprints: %w", err)
		}
	}

	metrics.SyncRecords.WithLabelValues(f.Name()).Add(float64(len(payload.IntradayBatches)))
	logging.Info().Str("pass_id", payload.PassID).Int("batches", len(payload.IntradayBatches)).Msg("Intraday sync uploaded")
	return nil
}

// fetchKind fetches one metric over the window, one supervised task per
// local calendar day, and groups the converted points into batches.
func (f *IntradayFamily) fetchKind(ctx context.Context, metric models.MetricKind, window models.TimeRange) ([]models.Batch, error) {
	chunks := chunk.ByCalendarDay(window, f.cfg.Location)
	raw, err := fetch.All(ctx, "intraday "+string(metric), chunks, f.cfg.fetchOptions(),
		func(ctx context.Context, r models.TimeRange) ([]provider.RawPoint, error) {
			return f.api.FetchPoints(ctx, metric, r)
		})
	if err != nil {
		return nil, err
	}
	return batch.Group(window.Start, window.End, convertPoints(raw), f.cfg.BatchDuration), nil
}

// toUploadBatch converts one batch to wire form.
func toUploadBatch(metric models.MetricKind, b models.Batch) uploader.IntradayBatch {
	points := make([]uploader.Point, 0, len(b.Points))
	for _, p := range b.Points {
		points = append(points, toUploadPoint(p))
	}
	return uploader.IntradayBatch{
		Metric:            metric,
		WindowStartMillis: b.WindowStart.UnixMilli(),
		WindowEndMillis:   b.WindowEnd.UnixMilli(),
		Points:            points,
	}
}
