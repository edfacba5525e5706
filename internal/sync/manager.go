// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package sync drives the provider-to-backend pipeline: periodic passes
// over each metric family, fingerprint-filtered uploads, and
// record-on-confirmed-success metadata.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
)

// Manager runs every registered family on a fixed interval. Families run
// concurrently within a pass; one family's failure never blocks another's
// progress, but the pass as a whole reports the first failure in
// registration order.
type Manager struct {
	families []Family
	interval time.Duration
	lookback time.Duration
	clock    models.Clock

	mu       stdsync.Mutex
	running  bool
	lastSync time.Time
	lastErr  error
	stopChan chan struct{}
	wg       stdsync.WaitGroup

	// syncMu serializes passes so a manual trigger cannot overlap the
	// periodic loop.
	syncMu stdsync.Mutex
}

// NewManager creates a sync manager over the given families.
func NewManager(families []Family, interval, lookback time.Duration, clock models.Clock) *Manager {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &Manager{
		families: families,
		interval: interval,
		lookback: lookback,
		clock:    clock,
	}
}

// Start launches the periodic sync loop, running an initial pass
// immediately. It is a no-op if the manager is already running.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	m.stopChan = make(chan struct{})
	stop := m.stopChan
	m.mu.Unlock()

	m.wg.Add(1)
	go m.syncLoop(ctx, stop)
}

// Stop halts the periodic loop and waits for any in-flight pass.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stopChan)
	m.mu.Unlock()

	m.wg.Wait()
	logging.Info().Msg("Sync manager stopped")
}

func (m *Manager) syncLoop(ctx context.Context, stop <-chan struct{}) {
	defer m.wg.Done()

	if err := m.runPass(ctx); err != nil {
		logging.Err(err).Msg("Initial sync pass failed")
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.runPass(ctx); err != nil {
				logging.Err(err).Msg("Sync pass failed")
			}
		}
	}
}

// TriggerSync runs one pass immediately, serialized against the periodic
// loop, and returns its result.
func (m *Manager) TriggerSync(ctx context.Context) error {
	return m.runPass(ctx)
}

// runPass syncs the lookback window across all families concurrently.
func (m *Manager) runPass(ctx context.Context) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	now := m.clock.Now()
	window := models.TimeRange{Start: now.Add(-m.lookback), End: now}
	logging.Info().Time("start", window.Start).Time("end", window.End).Msg("Sync pass starting")

	errs := make([]error, len(m.families))
	var wg stdsync.WaitGroup
	for i, fam := range m.families {
		wg.Add(1)
		go func(i int, fam Family) {
			defer wg.Done()
			started := m.clock.Now()
			err := fam.Sync(ctx, window)
			metrics.SyncDuration.WithLabelValues(fam.Name()).Observe(time.Since(started).Seconds())
			if err == nil {
				metrics.SyncLastSuccess.WithLabelValues(fam.Name()).Set(float64(m.clock.Now().Unix()))
			}
			errs[i] = err
		}(i, fam)
	}
	wg.Wait()

	var firstErr error
	for i, err := range errs {
		if err != nil {
			logging.Err(err).Str("family", m.families[i].Name()).Msg("Family sync failed")
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", m.families[i].Name(), err)
			}
		}
	}

	m.mu.Lock()
	m.lastSync = now
	m.lastErr = firstErr
	m.mu.Unlock()

	if firstErr != nil {
		return firstErr
	}
	logging.Info().Msg("Sync pass complete")
	return nil
}

// LastSyncTime returns when the most recent pass started. Zero means no
// pass has run yet.
func (m *Manager) LastSyncTime() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSync
}

// Status describes the manager for the ops API.
type Status struct {
	Running  bool     `json:"running"`
	LastSync string   `json:"last_sync,omitempty"`
	LastErr  string   `json:"last_error,omitempty"`
	Families []string `json:"families"`
}

// CurrentStatus snapshots the manager state.
func (m *Manager) CurrentStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{Running: m.running}
	if !m.lastSync.IsZero() {
		s.LastSync = m.lastSync.UTC().Format(time.RFC3339)
	}
	if m.lastErr != nil {
		s.LastErr = m.lastErr.Error()
	}
	for _, fam := range m.families {
		s.Families = append(s.Families, fam.Name())
	}
	return s
}
