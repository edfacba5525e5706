// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package main is the entry point for the VitalSync daemon.
//
// The daemon periodically pulls health metrics (intraday calories, steps,
// distance and heart rate, exercise sessions, body measurements) from an
// unreliable provider API and pushes them to a backend ingest API, using a
// persistent fingerprint store to suppress redundant re-uploads across
// overlapping sync windows.
//
// Components start under a suture supervisor tree:
//   - store layer: badger value-log GC (badger backend only)
//   - sync layer: the periodic sync manager
//   - api layer: the ops HTTP server (health, metrics, sync status/trigger)
//
// Configuration is loaded via koanf with layered sources (highest priority
// wins): VITALSYNC_* environment variables, an optional YAML file, and
// built-in defaults.
//
// The daemon handles graceful shutdown on SIGINT and SIGTERM: the
// supervisor tree drains its services, the in-flight sync pass completes
// or is canceled, and the fingerprint database closes cleanly.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/vitalsync/internal/api"
	"github.com/tomtom215/vitalsync/internal/config"
	"github.com/tomtom215/vitalsync/internal/dedup"
	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/provider"
	"github.com/tomtom215/vitalsync/internal/supervisor"
	"github.com/tomtom215/vitalsync/internal/supervisor/services"
	syncpkg "github.com/tomtom215/vitalsync/internal/sync"
	"github.com/tomtom215/vitalsync/internal/uploader"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("provider_url", cfg.Provider.URL).
		Str("store_backend", cfg.Store.Backend).
		Dur("interval", cfg.Sync.Interval).
		Msg("Starting VitalSync")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fingerprint store.
	var (
		kv dedup.KV
		db *badger.DB
	)
	switch cfg.Store.Backend {
	case "memory":
		kv = dedup.NewMemoryKV()
		logging.Warn().Msg("Using in-memory fingerprint store; every restart re-uploads everything")
	default:
		db, err = badger.Open(badger.DefaultOptions(cfg.Store.Path).WithLogger(nil))
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open fingerprint database")
		}
		defer func() {
			if err := db.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing fingerprint database")
			}
		}()
		kv = dedup.NewBadgerKV(db)
	}
	store := dedup.NewStore(kv, nil)

	// Provider and backend clients.
	providerClient := provider.NewClient(provider.ClientConfig{
		BaseURL:           cfg.Provider.URL,
		Token:             cfg.Provider.Token,
		RequestsPerSecond: cfg.Provider.RequestsPerSecond,
		Burst:             cfg.Provider.Burst,
	})

	var upload uploader.Uploader = uploader.NewHTTPUploader(cfg.Upload.URL, cfg.Upload.Token)
	if cfg.Upload.CircuitBreaker {
		upload = uploader.NewCircuitBreakerUploader(upload)
		logging.Info().Msg("Upload circuit breaker enabled")
	}

	// Metric families and the sync manager.
	famCfg := syncpkg.NewFamilyConfig(cfg)
	families := []syncpkg.Family{
		syncpkg.NewIntradayFamily(providerClient, store, upload, nil, famCfg),
		syncpkg.NewSessionFamily(providerClient, store, upload, nil, famCfg),
		syncpkg.NewProfileFamily(providerClient, store, upload, nil, famCfg),
	}
	manager := syncpkg.NewManager(families, cfg.Sync.Interval, cfg.Sync.Lookback, nil)

	// Ops HTTP server.
	router := api.NewRouter(manager)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Supervisor tree.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if db != nil {
		tree.AddStoreService(services.NewBadgerGCService(db, cfg.Store.GCInterval))
	}
	tree.AddSyncService(services.NewSyncService(manager))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("Ops server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("VitalSync stopped gracefully")
}
