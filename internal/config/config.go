// Package config provides configuration for the IVTC agent. Defaults are
// applied first, then an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPort             = 8788
	DefaultLogLevel         = "info"
	DefaultDataDir          = ".ivtc-agent"
	DefaultUndoSteps        = 200
	DefaultMetricsModule    = "ivtc_metrics"
	DefaultJobPollInterval  = 2 * time.Second
	DefaultAutosaveInterval = 2 * time.Minute
	DefaultMetricsTimeout   = 2 * time.Hour
	DefaultDoctorTimeout    = 30 * time.Second

	EnvConfigFile       = "IVTC_CONFIG_FILE"
	EnvPort             = "IVTC_PORT"
	EnvLogLevel         = "IVTC_LOG_LEVEL"
	EnvDataDir          = "IVTC_DATA_DIR"
	EnvHeadless         = "IVTC_HEADLESS"
	EnvUndoSteps        = "IVTC_UNDO_STEPS"
	EnvMetricsPython    = "IVTC_METRICS_PYTHON"
	EnvMetricsModule    = "IVTC_METRICS_MODULE"
	EnvJobPollInterval  = "IVTC_JOB_POLL_INTERVAL"
	EnvAutosaveInterval = "IVTC_AUTOSAVE_INTERVAL"
	EnvBatchConcurrency = "IVTC_BATCH_CONCURRENCY"
	EnvAuthToken        = "IVTC_AUTH_TOKEN"

	DBFilename = "ivtc-agent.db"
)

// Config defines the application configuration.
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	ArtifactsDir() string
	Headless() bool
	UndoSteps() int
	MetricsPython() string
	MetricsModule() string
	MetricsTimeout() time.Duration
	DoctorTimeout() time.Duration
	JobPollInterval() time.Duration
	AutosaveInterval() time.Duration
	BatchConcurrency() int
	AuthToken() string
}

// EnvConfig is the Config read from the file and environment.
type EnvConfig struct {
	port             int
	logLevel         string
	dataDir          string
	headless         bool
	undoSteps        int
	metricsPython    string
	metricsModule    string
	jobPollInterval  time.Duration
	autosaveInterval time.Duration
	batchConcurrency int
	authToken        string
}

// fileConfig mirrors the YAML file. Absent keys keep their defaults.
type fileConfig struct {
	Port             *int           `yaml:"port"`
	LogLevel         *string        `yaml:"log_level"`
	DataDir          *string        `yaml:"data_dir"`
	Headless         *bool          `yaml:"headless"`
	UndoSteps        *int           `yaml:"undo_steps"`
	MetricsPython    *string        `yaml:"metrics_python"`
	MetricsModule    *string        `yaml:"metrics_module"`
	JobPollInterval  *time.Duration `yaml:"job_poll_interval"`
	AutosaveInterval *time.Duration `yaml:"autosave_interval"`
	BatchConcurrency *int           `yaml:"batch_concurrency"`
	AuthToken        *string        `yaml:"auth_token"`
}

// New loads the configuration.
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:             DefaultPort,
		logLevel:         DefaultLogLevel,
		dataDir:          defaultDataDir(),
		undoSteps:        DefaultUndoSteps,
		metricsModule:    DefaultMetricsModule,
		jobPollInterval:  DefaultJobPollInterval,
		autosaveInterval: DefaultAutosaveInterval,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}

	if cfg.port < 1 || cfg.port > 65535 {
		return nil, fmt.Errorf("invalid port %d: must be between 1 and 65535", cfg.port)
	}
	if cfg.undoSteps < 1 {
		return nil, fmt.Errorf("invalid undo steps %d: must be positive", cfg.undoSteps)
	}
	return cfg, nil
}

func (c *EnvConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	set(&c.port, f.Port)
	set(&c.logLevel, f.LogLevel)
	set(&c.dataDir, f.DataDir)
	set(&c.headless, f.Headless)
	set(&c.undoSteps, f.UndoSteps)
	set(&c.metricsPython, f.MetricsPython)
	set(&c.metricsModule, f.MetricsModule)
	set(&c.jobPollInterval, f.JobPollInterval)
	set(&c.autosaveInterval, f.AutosaveInterval)
	set(&c.batchConcurrency, f.BatchConcurrency)
	set(&c.authToken, f.AuthToken)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *EnvConfig) loadEnv() error {
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.port = port
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.logLevel = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.dataDir = v
	}
	if v := os.Getenv(EnvHeadless); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.headless = b
	}
	if v := os.Getenv(EnvUndoSteps); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvUndoSteps, err)
		}
		c.undoSteps = n
	}
	if v := os.Getenv(EnvMetricsPython); v != "" {
		c.metricsPython = v
	}
	if v := os.Getenv(EnvMetricsModule); v != "" {
		c.metricsModule = v
	}
	for _, d := range []struct {
		env string
		dst *time.Duration
	}{
		{EnvJobPollInterval, &c.jobPollInterval},
		{EnvAutosaveInterval, &c.autosaveInterval},
	} {
		if v := os.Getenv(d.env); v != "" {
			dur, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", d.env, err)
			}
			*d.dst = dur
		}
	}
	if v := os.Getenv(EnvBatchConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBatchConcurrency, err)
		}
		c.batchConcurrency = n
	}
	if v := os.Getenv(EnvAuthToken); v != "" {
		c.authToken = v
	}
	return nil
}

func (c *EnvConfig) Port() int        { return c.port }
func (c *EnvConfig) LogLevel() string { return c.logLevel }
func (c *EnvConfig) DataDir() string  { return c.dataDir }
func (c *EnvConfig) Headless() bool   { return c.headless }
func (c *EnvConfig) UndoSteps() int   { return c.undoSteps }

// DBPath returns the full path to the SQLite database file.
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// ArtifactsDir is where metrics tool output is kept.
func (c *EnvConfig) ArtifactsDir() string {
	return filepath.Join(c.dataDir, "artifacts")
}

func (c *EnvConfig) MetricsPython() string { return c.metricsPython }
func (c *EnvConfig) MetricsModule() string { return c.metricsModule }

func (c *EnvConfig) MetricsTimeout() time.Duration { return DefaultMetricsTimeout }
func (c *EnvConfig) DoctorTimeout() time.Duration  { return DefaultDoctorTimeout }

func (c *EnvConfig) JobPollInterval() time.Duration  { return c.jobPollInterval }
func (c *EnvConfig) AutosaveInterval() time.Duration { return c.autosaveInterval }

// BatchConcurrency is the number of projects ivtcgen processes at once.
// Zero or less means one per CPU.
func (c *EnvConfig) BatchConcurrency() int { return c.batchConcurrency }

// AuthToken is the bearer token the API requires. Empty disables auth.
func (c *EnvConfig) AuthToken() string { return c.authToken }

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information, set at build time via ldflags.
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
