// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package models

import (
	"testing"
	"time"
)

func TestTimeRange(t *testing.T) {
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("reversed bounds are swapped", func(t *testing.T) {
		r := NewTimeRange(base.Add(time.Hour), base)
		if !r.Start.Equal(base) || !r.End.Equal(base.Add(time.Hour)) {
			t.Errorf("NewTimeRange swapped wrong: [%v, %v)", r.Start, r.End)
		}
	})

	t.Run("contains is closed-start open-end", func(t *testing.T) {
		r := NewTimeRange(base, base.Add(time.Hour))
		if !r.Contains(base) {
			t.Error("Contains(start) = false")
		}
		if r.Contains(base.Add(time.Hour)) {
			t.Error("Contains(end) = true")
		}
	})

	t.Run("zero-length range is the sentinel", func(t *testing.T) {
		r := TimeRange{Start: base, End: base}
		if !r.IsZero() {
			t.Error("IsZero() = false for start == end")
		}
		if r.Contains(base) {
			t.Error("sentinel contains its own bound")
		}
	})

	t.Run("intersect clamps to the overlap", func(t *testing.T) {
		a := NewTimeRange(base, base.Add(2*time.Hour))
		b := NewTimeRange(base.Add(time.Hour), base.Add(3*time.Hour))
		got := a.Intersect(b)
		if !got.Start.Equal(base.Add(time.Hour)) || !got.End.Equal(base.Add(2*time.Hour)) {
			t.Errorf("Intersect() = [%v, %v)", got.Start, got.End)
		}
	})

	t.Run("disjoint intersect collapses to sentinel", func(t *testing.T) {
		a := NewTimeRange(base, base.Add(time.Hour))
		b := NewTimeRange(base.Add(2*time.Hour), base.Add(3*time.Hour))
		if got := a.Intersect(b); !got.IsZero() {
			t.Errorf("Intersect() = [%v, %v), want sentinel", got.Start, got.End)
		}
	})
}

func TestFloatEquals(t *testing.T) {
	if !FloatEquals(250.5, 250.5+5e-5, EpsilonGeneric) {
		t.Error("sub-tolerance drift reported as different")
	}
	if FloatEquals(250.5, 250.6, EpsilonGeneric) {
		t.Error("real change reported as equal")
	}
	if !FloatEquals(71.2, 71.205, EpsilonPhysio) {
		t.Error("physiological rounding drift reported as different")
	}
}

func TestSessionID(t *testing.T) {
	start := time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	t.Run("same attributes yield the same id", func(t *testing.T) {
		a := SessionID(start, end, "running", "Morning Run")
		b := SessionID(start, end, "running", "Morning Run")
		if a != b {
			t.Errorf("ids differ: %s vs %s", a, b)
		}
	})

	t.Run("any attribute change yields a new id", func(t *testing.T) {
		base := SessionID(start, end, "running", "Morning Run")
		variants := []string{
			SessionID(start.Add(time.Minute), end, "running", "Morning Run"),
			SessionID(start, end.Add(time.Minute), "running", "Morning Run"),
			SessionID(start, end, "cycling", "Morning Run"),
			SessionID(start, end, "running", "Evening Run"),
		}
		for i, v := range variants {
			if v == base {
				t.Errorf("variant %d collides with base id", i)
			}
		}
	})
}

func TestBatchAggregates(t *testing.T) {
	b := Batch{Points: []DataPoint{{Value: 10}, {Value: 2.5}}}
	if b.Count() != 2 {
		t.Errorf("Count() = %d, want 2", b.Count())
	}
	if b.Total() != 12.5 {
		t.Errorf("Total() = %v, want 12.5", b.Total())
	}
	if b.Empty() {
		t.Error("Empty() = true for populated batch")
	}
	if !(Batch{}).Empty() {
		t.Error("Empty() = false for zero batch")
	}
}
