// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/vitalsync/internal/dedup"
	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
)

func TestSessionFamilySync(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	window := models.TimeRange{Start: now.Add(-4 * time.Hour), End: now}
	clock := fixedClock{t: now}

	morningRun := provider.RawSession{
		ID:           "prov-1",
		Title:        "Morning Run",
		ActivityType: "running",
		StartMillis:  now.Add(-3 * time.Hour).UnixMilli(),
		EndMillis:    now.Add(-2 * time.Hour - 30*time.Minute).UnixMilli(),
	}

	listOne := func(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error) {
		return []provider.RawSession{morningRun}, nil
	}

	hrDetail := func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
		return &provider.RawSessionDetail{
			Points: map[string][]provider.RawPoint{
				string(models.KindHeartRate): {
					{StartMillis: morningRun.StartMillis + 60_000, Value: 140},
					{StartMillis: morningRun.StartMillis + 120_000, Value: 152},
				},
			},
		}, nil
	}

	newFamily := func(api *mockAPI, up *mockUploader) *SessionFamily {
		store := dedup.NewStore(dedup.NewMemoryKV(), clock)
		return NewSessionFamily(api, store, up, clock, testFamilyConfig())
	}

	t.Run("uploads detailed sessions and skips unchanged ones", func(t *testing.T) {
		api := &mockAPI{sessionList: listOne, sessionDetail: hrDetail}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if up.count() != 1 {
			t.Fatalf("uploads = %d, want 1", up.count())
		}

		payload := up.last()
		if len(payload.Sessions) != 1 {
			t.Fatalf("sessions = %d, want 1", len(payload.Sessions))
		}
		s := payload.Sessions[0]
		wantID := models.SessionID(
			time.UnixMilli(morningRun.StartMillis).UTC(),
			time.UnixMilli(morningRun.EndMillis).UTC(),
			morningRun.ActivityType, morningRun.Title,
		)
		if s.ID != wantID {
			t.Errorf("session ID = %s, want %s", s.ID, wantID)
		}
		if got := len(s.Points[string(models.KindHeartRate)]); got != 2 {
			t.Errorf("heart rate points = %d, want 2", got)
		}

		// Same list and detail again: fingerprints match, no upload.
		if err := fam.Sync(context.Background(), window); err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if up.count() != 1 {
			t.Errorf("uploads after unchanged pass = %d, want 1", up.count())
		}
	})

	t.Run("no sessions in window is a no-op", func(t *testing.T) {
		api := &mockAPI{}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if up.count() != 0 {
			t.Errorf("uploads = %d, want 0", up.count())
		}
	})

	t.Run("genuine detail error fails the pass without rescue", func(t *testing.T) {
		var sliceCalls atomic.Int32
		api := &mockAPI{
			sessionList: listOne,
			sessionDetail: func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
				return nil, errors.New("detail endpoint 500")
			},
			sessionSlice: func(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error) {
				sliceCalls.Add(1)
				return nil, nil
			},
		}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err == nil {
			t.Fatal("Sync() = nil, want detail error")
		}
		if sliceCalls.Load() != 0 {
			t.Error("rescue ran for a genuine provider error")
		}
		if up.count() != 0 {
			t.Errorf("uploads = %d, want 0", up.count())
		}
	})

	t.Run("list fetch error fails the pass", func(t *testing.T) {
		api := &mockAPI{
			sessionList: func(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error) {
				return nil, errors.New("list endpoint 500")
			},
		}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err == nil {
			t.Fatal("Sync() = nil, want list error")
		}
		if up.count() != 0 {
			t.Errorf("uploads = %d, want 0", up.count())
		}
	})
}

func TestSessionDetailRescue(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	window := models.TimeRange{Start: now.Add(-4 * time.Hour), End: now}
	clock := fixedClock{t: now}

	bigRide := provider.RawSession{
		ID:           "prov-2",
		Title:        "Century Ride",
		ActivityType: "cycling",
		StartMillis:  now.Add(-3 * time.Hour).UnixMilli(),
		EndMillis:    now.Add(-2 * time.Hour).UnixMilli(),
	}

	listOne := func(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error) {
		return []provider.RawSession{bigRide}, nil
	}

	sliceHR := func(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error) {
		if kind != models.KindHeartRate {
			return nil, nil
		}
		return []provider.RawPoint{{StartMillis: r.Start.UnixMilli(), Value: 135}}, nil
	}

	newFamily := func(api *mockAPI, up *mockUploader) *SessionFamily {
		store := dedup.NewStore(dedup.NewMemoryKV(), clock)
		return NewSessionFamily(api, store, up, clock, testFamilyConfig())
	}

	t.Run("oversized detail falls back to subtype slices", func(t *testing.T) {
		var detailAttempts atomic.Int32
		api := &mockAPI{
			sessionList: listOne,
			sessionDetail: func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
				// The provider never answers the combined request; each
				// attempt rides its deadline out.
				detailAttempts.Add(1)
				<-ctx.Done()
				return nil, ctx.Err()
			},
			sessionSlice: sliceHR,
		}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		// FetchRetries=1: original attempt plus one retry before rescue.
		if got := detailAttempts.Load(); got != 2 {
			t.Errorf("detail attempts = %d, want 2", got)
		}
		if up.count() != 1 {
			t.Fatalf("uploads = %d, want 1", up.count())
		}

		s := up.last().Sessions[0]
		// One hour of 10-minute rescue chunks: six heart rate points.
		if got := len(s.Points[string(models.KindHeartRate)]); got != 6 {
			t.Errorf("rescued heart rate points = %d, want 6", got)
		}
	})

	t.Run("slow provider also triggers rescue", func(t *testing.T) {
		// A provider that is merely slow, not refusing, still exhausts the
		// budget and lands in the rescue path. Pinned behavior: the trigger
		// cannot tell the two apart.
		api := &mockAPI{
			sessionList: listOne,
			sessionDetail: func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
				select {
				case <-time.After(10 * time.Second):
					return hrDetailFor(bigRide), nil
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			},
			sessionSlice: sliceHR,
		}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if up.count() != 1 {
			t.Fatalf("uploads = %d, want 1", up.count())
		}
		if got := len(up.last().Sessions[0].Points[string(models.KindHeartRate)]); got != 6 {
			t.Errorf("rescued heart rate points = %d, want 6", got)
		}
	})

	t.Run("rescue failure is terminal", func(t *testing.T) {
		api := &mockAPI{
			sessionList: listOne,
			sessionDetail: func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			sessionSlice: func(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error) {
				return nil, errors.New("slice endpoint 500")
			},
		}
		up := &mockUploader{}
		fam := newFamily(api, up)

		if err := fam.Sync(context.Background(), window); err == nil {
			t.Fatal("Sync() = nil, want rescue error")
		}
		if up.count() != 0 {
			t.Errorf("uploads = %d, want 0", up.count())
		}
	})
}

func hrDetailFor(rs provider.RawSession) *provider.RawSessionDetail {
	return &provider.RawSessionDetail{
		Points: map[string][]provider.RawPoint{
			string(models.KindHeartRate): {{StartMillis: rs.StartMillis + 60_000, Value: 120}},
		},
	}
}
