// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
)

// gcDiscardRatio is the badger value-log rewrite threshold: a log file is
// rewritten when at least this fraction of it is stale.
const gcDiscardRatio = 0.5

// BadgerGCService periodically runs value-log garbage collection on the
// fingerprint database. Badger never reclaims value-log space on its own;
// without this loop the store grows unbounded on long-running daemons.
type BadgerGCService struct {
	db       *badger.DB
	interval time.Duration
	name     string
}

// NewBadgerGCService creates the GC loop. interval defaults to 10 minutes.
func NewBadgerGCService(db *badger.DB, interval time.Duration) *BadgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BadgerGCService{db: db, interval: interval, name: "badger-gc"}
}

// Serve implements suture.Service.
func (s *BadgerGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runGC()
		}
	}
}

// runGC runs value-log GC until badger reports nothing left to rewrite.
// One Serve-loop tick may reclaim several log files.
func (s *BadgerGCService) runGC() {
	for {
		err := s.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			metrics.StoreGCRuns.WithLabelValues("reclaimed").Inc()
			continue
		}
		if errors.Is(err, badger.ErrNoRewrite) {
			metrics.StoreGCRuns.WithLabelValues("noop").Inc()
			return
		}
		metrics.StoreGCRuns.WithLabelValues("error").Inc()
		logging.Err(err).Msg("Badger value-log GC failed")
		return
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *BadgerGCService) String() string {
	return s.name
}
