// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// validBase returns a config that passes validation, for mutation tests.
func validBase() *Config {
	cfg := defaultConfig()
	cfg.Provider.URL = "https://provider.example.com"
	cfg.Provider.Token = "provider-token"
	cfg.Upload.URL = "https://backend.example.com"
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		if err := validBase().Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing provider url", func(c *Config) { c.Provider.URL = "" }, "provider.url"},
		{"missing provider token", func(c *Config) { c.Provider.Token = "" }, "provider.token"},
		{"missing upload url", func(c *Config) { c.Upload.URL = "" }, "upload.url"},
		{"non-positive interval", func(c *Config) { c.Sync.Interval = 0 }, "sync.interval"},
		{"non-positive lookback", func(c *Config) { c.Sync.Lookback = -time.Hour }, "sync.lookback"},
		{"negative retries", func(c *Config) { c.Sync.FetchRetries = -1 }, "sync.fetch_retries"},
		{"batch duration not dividing a day", func(c *Config) { c.Sync.BatchDuration = 7 * time.Hour }, "evenly divide"},
		{"bad timezone", func(c *Config) { c.Sync.Timezone = "Mars/Olympus" }, "sync.timezone"},
		{"bad tracking since", func(c *Config) { c.Sync.TrackingSince = "last tuesday" }, "tracking_since"},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "etcd" }, "store.backend"},
		{"badger without path", func(c *Config) { c.Store.Path = "" }, "store.path"},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validBase()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("env variables override file and defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		yaml := `
provider:
  url: https://provider.example.com
  token: file-token
upload:
  url: https://backend.example.com
sync:
  interval: 5m
`
		if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Setenv(ConfigPathEnvVar, path)
		t.Setenv("VITALSYNC_PROVIDER_TOKEN", "env-token")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Provider.Token != "env-token" {
			t.Errorf("Provider.Token = %q, want env-token", cfg.Provider.Token)
		}
		if cfg.Sync.Interval != 5*time.Minute {
			t.Errorf("Sync.Interval = %v, want 5m (from file)", cfg.Sync.Interval)
		}
		// Untouched settings keep their defaults.
		if cfg.Sync.BatchDuration != 30*time.Minute {
			t.Errorf("Sync.BatchDuration = %v, want default 30m", cfg.Sync.BatchDuration)
		}
	})

	t.Run("invalid config is rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte("provider:\n  url: \"\"\n"), 0o600); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		t.Setenv(ConfigPathEnvVar, path)

		if _, err := Load(); err == nil {
			t.Fatal("Load() = nil, want validation error")
		}
	})
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"VITALSYNC_PROVIDER_TOKEN", "provider.token"},
		{"VITALSYNC_SYNC_FETCH_TIMEOUT", "sync.fetch_timeout"},
		{"VITALSYNC_SERVER_PORT", "server.port"},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAccessors(t *testing.T) {
	t.Run("tracking since parses", func(t *testing.T) {
		cfg := validBase()
		cfg.Sync.TrackingSince = "2023-06-01T00:00:00Z"
		want := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
		if got := cfg.TrackingSinceTime(); !got.Equal(want) {
			t.Errorf("TrackingSinceTime() = %v, want %v", got, want)
		}
	})

	t.Run("empty tracking since is the zero time", func(t *testing.T) {
		if got := validBase().TrackingSinceTime(); !got.IsZero() {
			t.Errorf("TrackingSinceTime() = %v, want zero", got)
		}
	})

	t.Run("location falls back to UTC", func(t *testing.T) {
		cfg := validBase()
		cfg.Sync.Timezone = "Nowhere/Invalid"
		if got := cfg.Location(); got != time.UTC {
			t.Errorf("Location() = %v, want UTC", got)
		}
	})
}
