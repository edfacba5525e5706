// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

// Package dedup decides, per batch or entity, whether re-upload is needed,
// using a small deterministic fingerprint instead of raw payload equality.
//
// Fingerprints are persisted only after a confirmed successful upload and
// looked up before every fetch decision. The store fails open: unreadable
// or corrupt records are treated as "no stored fingerprint", because one
// redundant upload is tolerable and a silently missed change is not.
package dedup

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/vitalsync/internal/logging"
	"github.com/tomtom215/vitalsync/internal/metrics"
	"github.com/tomtom215/vitalsync/internal/models"
)

// Store is the sync metadata store. It exclusively owns the persisted
// fingerprints; no other component writes the backing KV directly.
type Store struct {
	kv    KV
	clock models.Clock
}

// NewStore creates a metadata store over the given persistence backend.
func NewStore(kv KV, clock models.Clock) *Store {
	if clock == nil {
		clock = models.SystemClock{}
	}
	return &Store{kv: kv, clock: clock}
}

// NeedsSync reports whether the candidate's data differs from what was last
// synced. Returns true when no fingerprint is stored, when the stored one
// differs beyond tolerance, or when the stored record cannot be read.
func (s *Store) NeedsSync(ctx context.Context, c Candidate) bool {
	stored, ok, err := s.kv.Get(ctx, c.Key())
	if err != nil {
		// Fail open toward re-syncing.
		logging.Warn().Err(err).Str("key", c.Key()).Msg("Fingerprint read failed, forcing re-sync")
		metrics.DedupChanged.WithLabelValues(c.Kind()).Inc()
		return true
	}
	if !ok {
		metrics.DedupChanged.WithLabelValues(c.Kind()).Inc()
		return true
	}
	if c.Matches(stored) {
		metrics.DedupUnchanged.WithLabelValues(c.Kind()).Inc()
		return false
	}
	metrics.DedupChanged.WithLabelValues(c.Kind()).Inc()
	return true
}

// RecordSynced persists the candidate's freshly computed fingerprint,
// overwriting any prior one for its key. Call it only after a confirmed
// successful upload.
//
// Session lists get the merge-on-conflict treatment described on
// SessionListCandidate; every other candidate is a plain overwrite.
func (s *Store) RecordSynced(ctx context.Context, c Candidate) error {
	if list, ok := c.(SessionListCandidate); ok {
		return s.recordSessionList(ctx, list)
	}

	data, err := c.Record(s.clock.Now())
	if err != nil {
		return fmt.Errorf("encode fingerprint %s: %w", c.Key(), err)
	}
	if err := s.kv.Set(ctx, c.Key(), data); err != nil {
		return fmt.Errorf("persist fingerprint %s: %w", c.Key(), err)
	}
	return nil
}

// recordSessionList applies the session-list save rule:
//
//   - stored record missing/corrupt: write the candidate as-is.
//   - candidate date strictly after the stored date: the stored set is a
//     previous day's list - it is fully superseded and its member session
//     fingerprints are deleted.
//   - otherwise both describe the same day (or a re-sync of an older one):
//     the ID lists are merged so older sessions are not forgotten and
//     re-synced.
func (s *Store) recordSessionList(ctx context.Context, c SessionListCandidate) error {
	stored, ok, err := s.kv.Get(ctx, c.Key())
	if err != nil {
		logging.Warn().Err(err).Msg("Session list read failed, overwriting")
		ok = false
	}

	merged := c
	if ok {
		if rec, valid := decodeSessionList(stored); valid {
			if c.Date > rec.Date {
				// New day: evict the superseded members so their keys do
				// not accumulate forever.
				for _, id := range rec.IDs {
					if err := s.kv.Delete(ctx, SessionCandidate{ID: id}.Key()); err != nil {
						return fmt.Errorf("evict superseded session %s: %w", id, err)
					}
				}
			} else {
				merged.Date = rec.Date
				merged.IDs = unionIDs(rec.IDs, c.IDs)
			}
		}
	}

	sort.Strings(merged.IDs)
	data, err := merged.Record(s.clock.Now())
	if err != nil {
		return fmt.Errorf("encode session list: %w", err)
	}
	if err := s.kv.Set(ctx, c.Key(), data); err != nil {
		return fmt.Errorf("persist session list: %w", err)
	}
	return nil
}

// unionIDs merges two ID lists, deduplicated, stored-first.
func unionIDs(stored, fresh []string) []string {
	seen := make(map[string]struct{}, len(stored)+len(fresh))
	out := make([]string, 0, len(stored)+len(fresh))
	for _, list := range [][]string{stored, fresh} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
