// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package config

import (
	"fmt"
	"time"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateProvider,
		c.validateUpload,
		c.validateSync,
		c.validateStore,
		c.validateServer,
	}
	for _, validate := range validators {
		if err := validate(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateProvider() error {
	if c.Provider.URL == "" {
		return fmt.Errorf("provider.url is required")
	}
	if c.Provider.Token == "" {
		return fmt.Errorf("provider.token is required")
	}
	if c.Provider.RequestsPerSecond < 0 {
		return fmt.Errorf("provider.requests_per_second must not be negative")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if c.Upload.URL == "" {
		return fmt.Errorf("upload.url is required")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync.interval must be positive")
	}
	if c.Sync.Lookback <= 0 {
		return fmt.Errorf("sync.lookback must be positive")
	}
	if c.Sync.FetchTimeout <= 0 {
		return fmt.Errorf("sync.fetch_timeout must be positive")
	}
	if c.Sync.FetchRetries < 0 {
		return fmt.Errorf("sync.fetch_retries must not be negative")
	}
	if c.Sync.BatchDuration <= 0 {
		return fmt.Errorf("sync.batch_duration must be positive")
	}
	// Dedup keys are per local calendar day; a batch duration that does
	// not tile a day would produce batches straddling day boundaries.
	if 24*time.Hour%c.Sync.BatchDuration != 0 {
		return fmt.Errorf("sync.batch_duration %s must evenly divide 24h", c.Sync.BatchDuration)
	}
	if c.Sync.SessionListChunk <= 0 {
		return fmt.Errorf("sync.session_list_chunk must be positive")
	}
	if c.Sync.RescueChunk <= 0 {
		return fmt.Errorf("sync.rescue_chunk must be positive")
	}
	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		return fmt.Errorf("sync.timezone %q is not a valid IANA zone: %w", c.Sync.Timezone, err)
	}
	if c.Sync.TrackingSince != "" {
		if _, err := time.Parse(time.RFC3339, c.Sync.TrackingSince); err != nil {
			return fmt.Errorf("sync.tracking_since must be RFC3339: %w", err)
		}
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case "badger":
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the badger backend")
		}
	case "memory":
		// Ephemeral, nothing to check.
	default:
		return fmt.Errorf("store.backend must be \"badger\" or \"memory\", got %q", c.Store.Backend)
	}
	if c.Store.GCInterval < 0 {
		return fmt.Errorf("store.gc_interval must not be negative")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	return nil
}

// Location returns the configured sync timezone. Validate must have
// succeeded first.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TrackingSinceTime returns the parsed tracking lower bound, or the zero
// time when unset.
func (c *Config) TrackingSinceTime() time.Time {
	if c.Sync.TrackingSince == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, c.Sync.TrackingSince)
	if err != nil {
		return time.Time{}
	}
	return t
}
