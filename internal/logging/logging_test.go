package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := WithProjectID(WithJobID(WithComponent(New(&buf, "info"), "runner"), "job-1"), "proj-1")
	logger.Debug("hidden")
	logger.Info("job completed", "frames", 10)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not one JSON object: %v\n%s", err, buf.String())
	}
	want := map[string]any{
		"msg":        "job completed",
		"component":  "runner",
		"job_id":     "job-1",
		"project_id": "proj-1",
		"frames":     float64(10),
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("entry[%q] = %v, want %v", k, entry[k], v)
		}
	}
	if _, ok := entry["source"]; ok {
		t.Error("source should only be added at debug level")
	}
}

func TestNew_DebugAddsSource(t *testing.T) {
	var buf bytes.Buffer
	WithRequestID(New(&buf, "debug"), "req-1").Debug("shown")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if entry["request_id"] != "req-1" {
		t.Errorf("request_id = %v", entry["request_id"])
	}
	if _, ok := entry["source"]; !ok {
		t.Error("debug logger should add source")
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", "****"},
		{"12345678", "****"},
		{"abcdefghijkl", "abcd...ijkl"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.token); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestSanitizePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		t.Skip("no home directory")
	}
	tests := []struct {
		path string
		want string
	}{
		{filepath.Join(home, "videos", "ep01.json"), filepath.Join("~", "videos", "ep01.json")},
		{home, "~"},
		{home + "x/ep01.json", home + "x/ep01.json"},
		{"/srv/ep01.json", "/srv/ep01.json"},
	}
	for _, tt := range tests {
		if got := SanitizePath(tt.path); got != tt.want {
			t.Errorf("SanitizePath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
