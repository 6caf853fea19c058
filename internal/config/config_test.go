package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		EnvConfigFile, EnvPort, EnvLogLevel, EnvDataDir, EnvHeadless, EnvUndoSteps,
		EnvMetricsPython, EnvMetricsModule, EnvJobPollInterval, EnvAutosaveInterval,
		EnvBatchConcurrency, EnvAuthToken,
	} {
		t.Setenv(k, "")
	}
}

func TestNew_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.UndoSteps() != DefaultUndoSteps {
		t.Errorf("UndoSteps() = %d, want %d", cfg.UndoSteps(), DefaultUndoSteps)
	}
	if cfg.MetricsModule() != DefaultMetricsModule {
		t.Errorf("MetricsModule() = %q", cfg.MetricsModule())
	}
	if cfg.JobPollInterval() != DefaultJobPollInterval || cfg.AutosaveInterval() != DefaultAutosaveInterval {
		t.Errorf("intervals = %v, %v", cfg.JobPollInterval(), cfg.AutosaveInterval())
	}
	if cfg.Headless() || cfg.AuthToken() != "" {
		t.Error("headless and auth should be off by default")
	}
	if filepath.Base(cfg.DBPath()) != DBFilename {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "agent.yaml")
	doc := `port: 9000
log_level: debug
data_dir: /srv/ivtc
headless: true
undo_steps: 50
job_poll_interval: 500ms
autosave_interval: 30s
batch_concurrency: 4
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	t.Setenv(EnvPort, "9100")
	t.Setenv(EnvAuthToken, "secret-token")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if cfg.Port() != 9100 {
		t.Errorf("Port() = %d, env should override the file", cfg.Port())
	}
	if cfg.LogLevel() != "debug" || cfg.DataDir() != "/srv/ivtc" || !cfg.Headless() {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.UndoSteps() != 50 || cfg.BatchConcurrency() != 4 {
		t.Errorf("UndoSteps() = %d, BatchConcurrency() = %d", cfg.UndoSteps(), cfg.BatchConcurrency())
	}
	if cfg.JobPollInterval() != 500*time.Millisecond || cfg.AutosaveInterval() != 30*time.Second {
		t.Errorf("intervals = %v, %v", cfg.JobPollInterval(), cfg.AutosaveInterval())
	}
	if cfg.AuthToken() != "secret-token" {
		t.Errorf("AuthToken() = %q", cfg.AuthToken())
	}
	if cfg.ArtifactsDir() != filepath.Join("/srv/ivtc", "artifacts") {
		t.Errorf("ArtifactsDir() = %q", cfg.ArtifactsDir())
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"port not a number", map[string]string{EnvPort: "http"}},
		{"port out of range", map[string]string{EnvPort: "70000"}},
		{"zero port", map[string]string{EnvPort: "0"}},
		{"bad headless", map[string]string{EnvHeadless: "sometimes"}},
		{"bad interval", map[string]string{EnvAutosaveInterval: "often"}},
		{"zero undo steps", map[string]string{EnvUndoSteps: "0"}},
		{"missing file", map[string]string{EnvConfigFile: "/nonexistent/agent.yaml"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := New(); err == nil {
				t.Error("New() should fail")
			}
		})
	}
}

func TestNew_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte("port: [1, 2\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	t.Setenv(EnvConfigFile, path)
	if _, err := New(); err == nil {
		t.Error("New() should reject malformed YAML")
	}
}
