package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"invalid", zerolog.InfoLevel}, // Default
		{"", zerolog.InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Failed to parse log output %q: %v", buf.String(), err)
	}
	return entry
}

func TestNewWithWriter_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "warn", "test")

	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("Expected info to be filtered at warn level, got %s", buf.String())
	}

	log.Warn("kept")
	entry := decode(t, &buf)
	if entry["level"] != "warn" {
		t.Errorf("Expected level warn, got %v", entry["level"])
	}
	if entry["message"] != "kept" {
		t.Errorf("Expected message 'kept', got %v", entry["message"])
	}
	if entry["env"] != "test" {
		t.Errorf("Expected env 'test', got %v", entry["env"])
	}
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	log.WithFields(map[string]interface{}{
		"iso3":  "NGA",
		"count": 42,
	}).Module("ingest").Info("country loaded")

	entry := decode(t, &buf)
	if entry["iso3"] != "NGA" {
		t.Errorf("Expected iso3 NGA, got %v", entry["iso3"])
	}
	if entry["count"] != float64(42) {
		t.Errorf("Expected count 42, got %v", entry["count"])
	}
	if entry["module"] != "ingest" {
		t.Errorf("Expected module ingest, got %v", entry["module"])
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	log.WithError(errors.New("fetch failed")).Error("refresh failed")

	entry := decode(t, &buf)
	if entry["error"] != "fetch failed" {
		t.Errorf("Expected error 'fetch failed', got %v", entry["error"])
	}
	if entry["message"] != "refresh failed" {
		t.Errorf("Expected message 'refresh failed', got %v", entry["message"])
	}
}

func TestFormattedMethods(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "debug", "test")

	log.Infof("countries: %d", 54)
	entry := decode(t, &buf)
	if entry["message"] != "countries: 54" {
		t.Errorf("Expected formatted message, got %v", entry["message"])
	}

	buf.Reset()
	log.Warnf("unresolved: %s", "Atlantis")
	entry = decode(t, &buf)
	if entry["level"] != "warn" || entry["message"] != "unresolved: Atlantis" {
		t.Errorf("Unexpected warnf entry: %v", entry)
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.WithField("k", "v").Error("nothing happens")
}
