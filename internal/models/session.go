// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// sessionIDNamespace is the fixed UUIDv5 namespace for session identity.
// Changing it would re-key every previously synced session, so it is
// effectively frozen.
var sessionIDNamespace = uuid.MustParse("9b2f41d6-55c0-4cf0-8f0a-6cf3a19f4a31")

// SessionBundle is one exercise/activity session together with its
// per-subtype data point lists (heart rate, steps, speed, power, calories,
// segments).
type SessionBundle struct {
	ID           string
	Name         string
	Start        time.Time
	End          time.Time
	ActivityType string
	Metrics      map[MetricKind][]DataPoint
}

// SessionID derives a deterministic session identifier from the session's
// immutable attributes. Re-fetching the same underlying session always
// yields the same ID, which is what keys session fingerprints.
func SessionID(start, end time.Time, activityType, title string) string {
	name := fmt.Sprintf("%d|%d|%s|%s", start.UnixMilli(), end.UnixMilli(), activityType, title)
	return uuid.NewSHA1(sessionIDNamespace, []byte(name)).String()
}

// Range returns the session's own time interval.
func (s *SessionBundle) Range() TimeRange {
	return TimeRange{Start: s.Start, End: s.End}
}

// PointCounts returns the number of data points per subtype. Used as the
// session fingerprint's summary fields.
func (s *SessionBundle) PointCounts() map[MetricKind]int {
	counts := make(map[MetricKind]int, len(s.Metrics))
	for kind, points := range s.Metrics {
		counts[kind] = len(points)
	}
	return counts
}
