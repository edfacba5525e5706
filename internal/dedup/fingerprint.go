// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package dedup

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/vitalsync/internal/models"
)

// SchemaVersion is stamped into every persisted fingerprint. A stored
// record with a different version never matches a candidate, so changing
// the fingerprint definition forces one redundant re-upload instead of a
// decode crash.
const SchemaVersion = 1

// Candidate is a batch or entity whose "did this change since the last
// upload" question the Store answers.
//
// Each concrete candidate carries its own key construction, encoding, and
// tolerance-aware comparison; there is no reflective generic equality.
// EditedAt is stamped on write and always excluded from Matches.
type Candidate interface {
	// Key is the stable lookup key. It must embed an explicit kind
	// discriminator so keys never collide across entity kinds.
	Key() string

	// Kind labels the candidate for metrics.
	Kind() string

	// Record encodes the fingerprint for persistence, stamped with now.
	Record(now time.Time) ([]byte, error)

	// Matches reports whether the stored encoding describes the same data
	// within the candidate's tolerance. Any decode failure or schema
	// version mismatch is a non-match.
	Matches(stored []byte) bool
}

// IntradayBatchCandidate fingerprints one fixed-duration batch of intraday
// points (calories, steps, heart rate) by count and aggregate value.
type IntradayBatchCandidate struct {
	Metric      models.MetricKind
	WindowStart time.Time
	Count       int
	Total       float64
	Tolerance   float64
}

type intradayRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Metric        string    `json:"metric"`
	WindowStart   string    `json:"window_start"`
	Count         int       `json:"count"`
	Total         float64   `json:"total"`
	EditedAt      time.Time `json:"edited_at"`
}

// NewIntradayBatchCandidate summarizes a batch for dedup. The tolerance
// should be models.EpsilonGeneric for additive values and
// models.EpsilonPhysio for physiological aggregates.
func NewIntradayBatchCandidate(metric models.MetricKind, b models.Batch, tolerance float64) IntradayBatchCandidate {
	return IntradayBatchCandidate{
		Metric:      metric,
		WindowStart: b.WindowStart,
		Count:       b.Count(),
		Total:       b.Total(),
		Tolerance:   tolerance,
	}
}

// Key implements Candidate.
func (c IntradayBatchCandidate) Key() string {
	return "intraday:" + string(c.Metric) + ":" + c.WindowStart.UTC().Format(time.RFC3339)
}

// Kind implements Candidate.
func (c IntradayBatchCandidate) Kind() string { return "intraday:" + string(c.Metric) }

// Record implements Candidate.
func (c IntradayBatchCandidate) Record(now time.Time) ([]byte, error) {
	return json.Marshal(intradayRecord{
		SchemaVersion: SchemaVersion,
		Metric:        string(c.Metric),
		WindowStart:   c.WindowStart.UTC().Format(time.RFC3339),
		Count:         c.Count,
		Total:         c.Total,
		EditedAt:      now.UTC(),
	})
}

// Matches implements Candidate.
func (c IntradayBatchCandidate) Matches(stored []byte) bool {
	var rec intradayRecord
	if err := json.Unmarshal(stored, &rec); err != nil {
		return false
	}
	if rec.SchemaVersion != SchemaVersion || rec.Metric != string(c.Metric) {
		return false
	}
	return rec.Count == c.Count && models.FloatEquals(rec.Total, c.Total, c.Tolerance)
}

// SessionCandidate fingerprints one exercise session by its immutable
// attributes and per-subtype point counts.
type SessionCandidate struct {
	ID           string
	ActivityType string
	Start        time.Time
	End          time.Time
	Counts       map[models.MetricKind]int
}

type sessionRecord struct {
	SchemaVersion int            `json:"schema_version"`
	ActivityType  string         `json:"activity_type"`
	StartMillis   int64          `json:"start_ms"`
	EndMillis     int64          `json:"end_ms"`
	Counts        map[string]int `json:"counts"`
	EditedAt      time.Time      `json:"edited_at"`
}

// NewSessionCandidate summarizes a fully detailed session bundle.
func NewSessionCandidate(s *models.SessionBundle) SessionCandidate {
	counts := make(map[models.MetricKind]int, len(s.Metrics))
	for kind, points := range s.Metrics {
		counts[kind] = len(points)
	}
	return SessionCandidate{
		ID:           s.ID,
		ActivityType: s.ActivityType,
		Start:        s.Start,
		End:          s.End,
		Counts:       counts,
	}
}

// Key implements Candidate.
func (c SessionCandidate) Key() string { return "session:" + c.ID }

// Kind implements Candidate.
func (c SessionCandidate) Kind() string { return "session" }

// Record implements Candidate.
func (c SessionCandidate) Record(now time.Time) ([]byte, error) {
	counts := make(map[string]int, len(c.Counts))
	for kind, n := range c.Counts {
		counts[string(kind)] = n
	}
	return json.Marshal(sessionRecord{
		SchemaVersion: SchemaVersion,
		ActivityType:  c.ActivityType,
		StartMillis:   c.Start.UnixMilli(),
		EndMillis:     c.End.UnixMilli(),
		Counts:        counts,
		EditedAt:      now.UTC(),
	})
}

// Matches implements Candidate.
func (c SessionCandidate) Matches(stored []byte) bool {
	var rec sessionRecord
	if err := json.Unmarshal(stored, &rec); err != nil {
		return false
	}
	if rec.SchemaVersion != SchemaVersion {
		return false
	}
	if rec.ActivityType != c.ActivityType ||
		rec.StartMillis != c.Start.UnixMilli() ||
		rec.EndMillis != c.End.UnixMilli() {
		return false
	}
	if len(rec.Counts) != len(c.Counts) {
		return false
	}
	for kind, n := range c.Counts {
		if rec.Counts[string(kind)] != n {
			return false
		}
	}
	return true
}

// SessionListCandidate fingerprints the per-day session ID list. All
// session lists share one lookup key: the record carries its reference
// date, and the store's save rule (merge same-day, supersede on a newer
// day) keeps older sessions from being forgotten and re-synced.
type SessionListCandidate struct {
	// Date is the local reference date, formatted as DateKeyLayout.
	Date string
	IDs  []string
}

// DateKeyLayout formats session-list reference dates. Lexicographic order
// on the formatted value matches chronological order, which the store's
// supersede rule relies on.
const DateKeyLayout = "2006-01-02"

type sessionListRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Date          string    `json:"date"`
	IDs           []string  `json:"ids"`
	EditedAt      time.Time `json:"edited_at"`
}

// Key implements Candidate.
func (c SessionListCandidate) Key() string { return "sessionlist" }

// Kind implements Candidate.
func (c SessionListCandidate) Kind() string { return "sessionlist" }

// Record implements Candidate.
func (c SessionListCandidate) Record(now time.Time) ([]byte, error) {
	return json.Marshal(sessionListRecord{
		SchemaVersion: SchemaVersion,
		Date:          c.Date,
		IDs:           c.IDs,
		EditedAt:      now.UTC(),
	})
}

// Matches implements Candidate. The candidate matches when it describes the
// same day and every candidate ID is already in the stored list; extra
// stored IDs are fine, they are older sessions of the same day.
func (c SessionListCandidate) Matches(stored []byte) bool {
	rec, ok := decodeSessionList(stored)
	if !ok {
		return false
	}
	if rec.Date != c.Date {
		return false
	}
	known := make(map[string]struct{}, len(rec.IDs))
	for _, id := range rec.IDs {
		known[id] = struct{}{}
	}
	for _, id := range c.IDs {
		if _, ok := known[id]; !ok {
			return false
		}
	}
	return true
}

func decodeSessionList(stored []byte) (sessionListRecord, bool) {
	var rec sessionListRecord
	if err := json.Unmarshal(stored, &rec); err != nil {
		return rec, false
	}
	if rec.SchemaVersion != SchemaVersion {
		return rec, false
	}
	return rec, true
}

// ProfileCandidate fingerprints one body-profile value (weight, height).
type ProfileCandidate struct {
	Field     models.MetricKind
	Value     float64
	Tolerance float64
}

type profileRecord struct {
	SchemaVersion int       `json:"schema_version"`
	Field         string    `json:"field"`
	Value         float64   `json:"value"`
	EditedAt      time.Time `json:"edited_at"`
}

// Key implements Candidate.
func (c ProfileCandidate) Key() string { return "profile:" + string(c.Field) }

// Kind implements Candidate.
func (c ProfileCandidate) Kind() string { return "profile" }

// Record implements Candidate.
func (c ProfileCandidate) Record(now time.Time) ([]byte, error) {
	return json.Marshal(profileRecord{
		SchemaVersion: SchemaVersion,
		Field:         string(c.Field),
		Value:         c.Value,
		EditedAt:      now.UTC(),
	})
}

// Matches implements Candidate.
func (c ProfileCandidate) Matches(stored []byte) bool {
	var rec profileRecord
	if err := json.Unmarshal(stored, &rec); err != nil {
		return false
	}
	if rec.SchemaVersion != SchemaVersion || rec.Field != string(c.Field) {
		return false
	}
	return models.FloatEquals(rec.Value, c.Value, c.Tolerance)
}
