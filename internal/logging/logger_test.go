// VitalSync - Resilient Health Metrics Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/vitalsync

package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	t.Run("json output carries structured fields", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "debug", Format: "json", Output: &buf})
		defer Init(Config{})

		Info().Str("family", "intraday").Msg("Sync started")

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output not json: %v (%q)", err, buf.String())
		}
		if entry["family"] != "intraday" {
			t.Errorf("family = %v, want intraday", entry["family"])
		}
		if entry["message"] != "Sync started" {
			t.Errorf("message = %v", entry["message"])
		}
	})

	t.Run("level filters lower severities", func(t *testing.T) {
		var buf bytes.Buffer
		Init(Config{Level: "warn", Format: "json", Output: &buf})
		defer Init(Config{})

		Debug().Msg("hidden")
		Info().Msg("hidden too")
		Warn().Msg("visible")

		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Errorf("low-severity messages leaked: %q", out)
		}
		if !strings.Contains(out, "visible") {
			t.Errorf("warn message missing: %q", out)
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"disabled", zerolog.Disabled},
		{"WARN", zerolog.WarnLevel},
		{"bogus", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger()
	SetLogger(NewTestLogger(&buf))
	defer SetLogger(prev)

	Info().Msg("redirected")
	if !strings.Contains(buf.String(), "redirected") {
		t.Errorf("message did not reach the replaced logger: %q", buf.String())
	}
}
