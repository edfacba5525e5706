// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	stdsync "sync"
	"time"

	"github.com/tomtom215/vitalsync/internal/models"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

// steppingClock can be moved forward between sync passes.
type steppingClock struct {
	mu stdsync.Mutex
	t  time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *steppingClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// mockAPI implements provider.API with overridable function fields.
// Unset fields return empty results.
type mockAPI struct {
	points        func(ctx context.Context, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error)
	sessionList   func(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error)
	sessionDetail func(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error)
	sessionSlice  func(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error)
}

func (m *mockAPI) FetchPoints(ctx context.Context, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error) {
	if m.points == nil {
		return nil, nil
	}
	return m.points(ctx, kind, r)
}

func (m *mockAPI) FetchSessionList(ctx context.Context, r models.TimeRange) ([]provider.RawSession, error) {
	if m.sessionList == nil {
		return nil, nil
	}
	return m.sessionList(ctx, r)
}

func (m *mockAPI) FetchSessionDetail(ctx context.Context, sessionID string) (*provider.RawSessionDetail, error) {
	if m.sessionDetail == nil {
		return &provider.RawSessionDetail{}, nil
	}
	return m.sessionDetail(ctx, sessionID)
}

func (m *mockAPI) FetchSessionSlice(ctx context.Context, sessionID string, kind models.MetricKind, r models.TimeRange) ([]provider.RawPoint, error) {
	if m.sessionSlice == nil {
		return nil, nil
	}
	return m.sessionSlice(ctx, sessionID, kind, r)
}

// mockUploader records payloads and can be told to fail.
type mockUploader struct {
	mu       stdsync.Mutex
	payloads []*uploader.Payload
	err      error
}

func (m *mockUploader) Upload(ctx context.Context, payload *uploader.Payload) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *mockUploader) setErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *mockUploader) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payloads)
}

func (m *mockUploader) last() *uploader.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.payloads) == 0 {
		return nil
	}
	return m.payloads[len(m.payloads)-1]
}

func testFamilyConfig() FamilyConfig {
	return FamilyConfig{
		Location:         time.UTC,
		FetchTimeout:     50 * time.Millisecond,
		FetchRetries:     1,
		FetchConcurrency: 2,
		BatchDuration:    30 * time.Minute,
		SessionListChunk: 24 * time.Hour,
		RescueChunk:      10 * time.Minute,
	}
}
