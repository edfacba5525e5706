// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package config loads and validates daemon configuration with layered
// sources: built-in defaults, an optional YAML file, and VITALSYNC_*
// environment variables (highest priority).
package config

import (
	"time"
)

// Config is the root configuration for the syncd daemon.
type Config struct {
	Provider ProviderConfig `koanf:"provider"`
	Upload   UploadConfig   `koanf:"upload"`
	Sync     SyncConfig     `koanf:"sync"`
	Store    StoreConfig    `koanf:"store"`
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ProviderConfig configures the external health data provider API.
type ProviderConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`

	// RequestsPerSecond caps outbound provider requests across all
	// concurrent chunk fetches. Zero disables limiting.
	RequestsPerSecond float64 `koanf:"requests_per_second"`
	Burst             int     `koanf:"burst"`
}

// UploadConfig configures the backend ingest API.
type UploadConfig struct {
	URL   string `koanf:"url"`
	Token string `koanf:"token"`

	// CircuitBreaker toggles the gobreaker wrapper around uploads.
	CircuitBreaker bool `koanf:"circuit_breaker"`
}

// SyncConfig configures the sync pipeline.
type SyncConfig struct {
	// Interval between periodic sync passes.
	Interval time.Duration `koanf:"interval"`

	// Lookback is how far back each pass re-examines data. Combined with
	// TrackingSince and "now" it yields the effective sync window.
	Lookback time.Duration `koanf:"lookback"`

	// TrackingSince is the RFC3339 instant tracking began. Data older than
	// this is never fetched. Empty means no lower bound beyond Lookback.
	TrackingSince string `koanf:"tracking_since"`

	// Timezone is the IANA zone used for calendar-day chunking and
	// session-list date keys. Default: UTC.
	Timezone string `koanf:"timezone"`

	// FetchTimeout bounds each provider chunk attempt.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// FetchRetries is the per-chunk retry budget after the first attempt.
	FetchRetries int `koanf:"fetch_retries"`

	// FetchConcurrency bounds how many chunk fetches run at once.
	FetchConcurrency int `koanf:"fetch_concurrency"`

	// BatchDuration is the intraday batch bucket size. Must evenly divide
	// 24h so batches align with the calendar-day dedup keys.
	BatchDuration time.Duration `koanf:"batch_duration"`

	// SessionListChunk is the chunk size for coarse session listing.
	SessionListChunk time.Duration `koanf:"session_list_chunk"`

	// RescueChunk is the sub-interval size used when a session's combined
	// detail fetch is suspected oversized and subtypes are re-fetched
	// independently.
	RescueChunk time.Duration `koanf:"rescue_chunk"`
}

// StoreConfig configures fingerprint persistence.
type StoreConfig struct {
	// Backend: "badger" (durable) or "memory" (ephemeral, mostly for
	// development - every restart re-uploads everything).
	Backend string `koanf:"backend"`

	// Path is the BadgerDB directory (badger backend only).
	Path string `koanf:"path"`

	// GCInterval is how often the badger value-log GC runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible default values.
// Defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			URL:               "",
			Token:             "",
			RequestsPerSecond: 8,
			Burst:             4,
		},
		Upload: UploadConfig{
			URL:            "",
			Token:          "",
			CircuitBreaker: true,
		},
		Sync: SyncConfig{
			Interval:         15 * time.Minute,
			Lookback:         48 * time.Hour,
			TrackingSince:    "",
			Timezone:         "UTC",
			FetchTimeout:     30 * time.Second,
			FetchRetries:     2,
			FetchConcurrency: 4,
			BatchDuration:    30 * time.Minute,
			SessionListChunk: 5 * 24 * time.Hour,
			RescueChunk:      10 * time.Minute,
		},
		Store: StoreConfig{
			Backend:    "badger",
			Path:       "/data/vitalsync/fingerprints",
			GCInterval: 10 * time.Minute,
		},
		Server: ServerConfig{
			Host:    "127.0.0.1",
			Port:    9464,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}
