// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/vitalsync/internal/chunk"
	"github.com/tomtom215/vitalsync/internal/dedup"
	"github.com/tomtom215/vitalsync/internal/fetch"
	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/task"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

// rescueKinds are the data subtypes re-fetched independently when a
// session's combined detail request is suspected oversized.
var rescueKinds = []models.MetricKind{
	models.KindHeartRate,
	models.KindSteps,
	models.KindSpeed,
	models.KindPower,
	models.KindCalories,
	models.KindSegments,
}

// SessionFamily syncs exercise sessions: coarse list over large chunks,
// then one detail fetch per session (with the per-subtype rescue path),
// fingerprint filtering, upload, and the per-day session-list record.
//
// The coarse list is always fetched before any detail fetch - the provider
// requires it - but independent sessions' details run concurrently.
type SessionFamily struct {
	api    provider.API
	store  *dedup.Store
	upload uploader.Uploader
	clock  models.Clock
	cfg    FamilyConfig
}

// NewSessionFamily wires the session sync pipeline.
func NewSessionFamily(api provider.API, store *dedup.Store, upload uploader.Uploader, clock models.Clock, cfg FamilyConfig) *SessionFamily {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &SessionFamily{api: api, store: store, upload: upload, clock: clock, cfg: cfg}
}

// Name implements Family.
func (f *SessionFamily) Name() string { return "sessions" }

// Sync implements Family.
func (f *SessionFamily) Sync(ctx context.Context, requested models.TimeRange) error {
	window := effectiveWindow(requested, f.cfg.TrackingSince, f.clock.Now())
	if window.IsZero() {
		logging.Debug().Msg("Sessions: effective window empty, nothing to do")
		return nil
	}

	rawSessions, err := f.listSessions(ctx, window)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(f.Name(), "fetch").Inc()
		return fmt.Errorf("fetch session list: %w", err)
	}
	if len(rawSessions) == 0 {
		logging.Debug().Msg("Sessions: no sessions in window")
		return nil
	}

	bundles, err := f.detailSessions(ctx, rawSessions)
	if err != nil {
		metrics.SyncErrors.WithLabelValues(f.Name(), "fetch").Inc()
		return err
	}

	payload := &uploader.Payload{PassID: uuid.NewString()}
	var toRecord []dedup.Candidate
	for _, bundle := range bundles {
		cand := dedup.NewSessionCandidate(bundle)
		if !f.store.NeedsSync(ctx, cand) {
			continue
		}
		payload.Sessions = append(payload.Sessions, toUploadSession(bundle))
		toRecord = append(toRecord, cand)
	}

	if payload.Empty() {
		logging.Debug().Int("sessions", len(bundles)).Msg("Sessions: all unchanged, skipping upload")
		return nil
	}

	if err := f.upload.Upload(ctx, payload); err != nil {
		metrics.SyncErrors.WithLabelValues(f.Name(), "upload").Inc()
		return fmt.Errorf("upload session payload: %w", err)
	}

	for _, cand := range toRecord {
		if err := f.store.RecordSynced(ctx, cand); err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "store").Inc()
			return fmt.Errorf("record session fingerprints: %w", err)
		}
	}
	for _, listCand := range f.sessionListCandidates(bundles) {
		if err := f.store.RecordSynced(ctx, listCand); err != nil {
			metrics.SyncErrors.WithLabelValues(f.Name(), "store").Inc()
			return fmt.Errorf("record session list: %w", err)
		}
	}

	metrics.SyncRecords.WithLabelValues(f.Name()).Add(float64(len(payload.Sessions)))
	logging.Info().Str("pass_id", payload.PassID).Int("sessions", len(payload.Sessions)).Msg("Session sync uploaded")
	return nil
}

// listSessions fetches the coarse session list over large fixed-duration
// chunks, preserving provider order.
func (f *SessionFamily) listSessions(ctx context.Context, window models.TimeRange) ([]provider.RawSession, error) {
	chunks := chunk.ByDuration(window, f.cfg.SessionListChunk)
	return fetch.All(ctx, "session list", chunks, f.cfg.fetchOptions(),
		func(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error) {
			return f.api.FetchSessionList(ctx, r)
		})
}

// detailSessions fetches every session's detail concurrently (bounded) and
// returns the bundles in provider order. The first failing session, in
// provider order, fails the pass.
func (f *SessionFamily) detailSessions(ctx context.Context, raw []provider.RawSession) ([]*models.SessionBundle, error) {
	concurrency := f.cfg.FetchConcurrency
	if concurrency <= 0 {
		concurrency = fetch.DefaultConcurrency
	}

	bundles := make([]*models.SessionBundle, len(raw))
	errs := make([]error, len(raw))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	for i, rs := range raw {
		wg.Add(1)
		go func(i int, rs provider.RawSession) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			bundles[i], errs[i] = f.detailSession(ctx, rs)
		}(i, rs)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", raw[i].ID, err)
		}
	}
	return bundles, nil
}

// detailSession fetches one session's detail as a single combined request,
// falling back to the per-subtype rescue path when the retry budget is
// exhausted.
//
// Retry-budget exhaustion is read as the provider silently refusing an
// oversized response. A genuinely slow or unreachable provider trips the
// same condition and lands in the rescue path unnecessarily; the trigger is
// knowingly over-broad.
func (f *SessionFamily) detailSession(ctx context.Context, rs provider.RawSession) (*models.SessionBundle, error) {
	scope := task.NewScope()
	detail, err := task.Supervise(ctx, scope, task.Task[*provider.RawSessionDetail]{
		Name:       "session detail " + rs.ID,
		Timeout:    f.cfg.FetchTimeout,
		MaxRetries: f.cfg.FetchRetries,
		Run: func(ctx context.Context) (*provider.RawSessionDetail, error) {
			return f.api.FetchSessionDetail(ctx, rs.ID)
		},
	})

	switch {
	case err == nil:
		return assembleSession(rs, detail), nil
	case errors.Is(err, task.ErrRetryBudgetExceeded):
		logging.Warn().Str("session", rs.ID).Msg("Session detail retry budget exceeded, rescuing per subtype")
		metrics.FetchRescues.Inc()
		return f.rescueSession(ctx, rs)
	default:
		return nil, err
	}
}

// rescueSession re-fetches each data subtype independently over small
// fixed-duration sub-chunks of the session's own interval, with a fresh
// cancellation scope per subtype. A failure here is terminal - there is no
// further fallback.
func (f *SessionFamily) rescueSession(ctx context.Context, rs provider.RawSession) (*models.SessionBundle, error) {
	bundle := newSessionStub(rs)
	opts := f.cfg.fetchOptions()
	for _, kind := range rescueKinds {
		chunks := chunk.ByDuration(bundle.Range(), f.cfg.RescueChunk)
		raw, err := fetch.All(ctx, fmt.Sprintf("rescue %s %s", rs.ID, kind), chunks, opts,
			func(ctx context.Context, r models.TimeRange) ([]provider.RawPoint, error) {
				return f.api.FetchSessionSlice(ctx, rs.ID, kind, r)
			})
		if err != nil {
			return nil, fmt.Errorf("rescue %s: %w", kind, err)
		}
		if points := convertPoints(raw); len(points) > 0 {
			bundle.Metrics[kind] = points
		}
	}
	return bundle, nil
}

// assembleSession builds a bundle from a combined detail response.
func assembleSession(rs provider.RawSession, detail *provider.RawSessionDetail) *models.SessionBundle {
	bundle := newSessionStub(rs)
	for kind, rawPoints := range detail.Points {
		if points := convertPoints(rawPoints); len(points) > 0 {
			bundle.Metrics[models.MetricKind(kind)] = points
		}
	}
	return bundle
}

// sessionListCandidates groups the synced sessions' IDs by local reference
// date, in date order.
func (f *SessionFamily) sessionListCandidates(bundles []*models.SessionBundle) []dedup.SessionListCandidate {
	byDate := make(map[string][]string)
	for _, bundle := range bundles {
		date := bundle.Start.In(f.cfg.Location).Format(dedup.DateKeyLayout)
		byDate[date] = append(byDate[date], bundle.ID)
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]dedup.SessionListCandidate, 0, len(dates))
	for _, date := range dates {
		out = append(out, dedup.SessionListCandidate{Date: date, IDs: byDate[date]})
	}
	return out
}

// toUploadSession converts one bundle to wire form.
func toUploadSession(bundle *models.SessionBundle) uploader.Session {
	points := make(map[string][]uploader.Point, len(bundle.Metrics))
	for kind, list := range bundle.Metrics {
		wire := make([]uploader.Point, 0, len(list))
		for _, p := range list {
			wire = append(wire, toUploadPoint(p))
		}
		points[string(kind)] = wire
	}
	return uploader.Session{
		ID:           bundle.ID,
		Title:        bundle.Name,
		ActivityType: bundle.ActivityType,
		StartMillis:  bundle.Start.UnixMilli(),
		EndMillis:    bundle.End.UnixMilli(),
		Points:       points,
	}
}
