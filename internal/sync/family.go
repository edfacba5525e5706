// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package sync

import (
	"context"
	"time"

	"github.com/tomtom215/vitalsync/internal/config"
	"github.com/tomtom215/vitalsync/internal/fetch"
	"github.com/tomtom215/vitalsync/internal/models"
)

// Family is one metric family's sync pipeline (intraday, sessions,
// profile). A family either succeeds - including the "nothing to sync"
// no-op - or returns one concrete error; it never partially records
// metadata.
type Family interface {
	Name() string
	Sync(ctx context.Context, requested models.TimeRange) error
}

// FamilyConfig carries the pipeline knobs shared by the family managers.
type FamilyConfig struct {
	// TrackingSince is the lower bound below which data is never fetched.
	// Zero means no bound.
	TrackingSince time.Time

	// Location is the local zone for calendar-day chunking and
	// session-list date keys.
	Location *time.Location

	// FetchTimeout / FetchRetries / FetchConcurrency parameterize every
	// supervised provider fetch.
	FetchTimeout     time.Duration
	FetchRetries     int
	FetchConcurrency int

	// BatchDuration is the intraday batch bucket size.
	BatchDuration time.Duration

	// SessionListChunk bounds coarse session-list queries.
	SessionListChunk time.Duration

	// RescueChunk bounds per-subtype queries on the session rescue path.
	RescueChunk time.Duration
}

// NewFamilyConfig extracts family knobs from the app configuration.
func NewFamilyConfig(cfg *config.Config) FamilyConfig {
	return FamilyConfig{
		TrackingSince:    cfg.TrackingSinceTime(),
		Location:         cfg.Location(),
		FetchTimeout:     cfg.Sync.FetchTimeout,
		FetchRetries:     cfg.Sync.FetchRetries,
		FetchConcurrency: cfg.Sync.FetchConcurrency,
		BatchDuration:    cfg.Sync.BatchDuration,
		SessionListChunk: cfg.Sync.SessionListChunk,
		RescueChunk:      cfg.Sync.RescueChunk,
	}
}

// fetchOptions builds the orchestrator options every family fetch uses.
func (c FamilyConfig) fetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:     c.FetchTimeout,
		MaxRetries:  c.FetchRetries,
		Concurrency: c.FetchConcurrency,
	}
}
