package pipelines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	maxStderrBytes = 8 * 1024 // tail of stderr kept for diagnostics
)

var ErrNoVideo = errors.New("metrics request has no video path")

// Runner executes the metrics tool as a subprocess.
type Runner interface {
	// RunDoctor executes `python -m <module> doctor --json --out <path>`
	// and returns the parsed capabilities.
	RunDoctor(ctx context.Context) (*Capabilities, error)

	// CollectMetrics runs field matching and decimation analysis over the
	// request's clip and writes one JSONL FrameRecord per frame to outPath.
	CollectMetrics(ctx context.Context, req MetricsRequest, outPath string) (RunResult, error)

	// ArtifactsDir is the base directory for tool output.
	ArtifactsDir() string
}

type Config struct {
	PythonPath     string // empty = auto-detect
	ModuleName     string // default "ivtc_metrics"
	ArtifactsBase  string
	DoctorTimeout  time.Duration
	MetricsTimeout time.Duration
	Logger         *slog.Logger
	DebugPaths     bool // log full file paths instead of sanitised ones
}

// DefaultConfig returns production defaults rooted at dataDir.
func DefaultConfig(dataDir string, logger *slog.Logger) Config {
	return Config{
		ModuleName:     "ivtc_metrics",
		ArtifactsBase:  filepath.Join(dataDir, "artifacts"),
		DoctorTimeout:  30 * time.Second,
		MetricsTimeout: 2 * time.Hour,
		Logger:         logger,
	}
}

// SubprocessRunner is the production Runner.
type SubprocessRunner struct {
	cfg    Config
	python string
}

// NewRunner resolves the Python binary and creates the artifacts directory.
func NewRunner(cfg Config) (*SubprocessRunner, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	python, err := resolvePython(cfg.PythonPath)
	if err != nil {
		return nil, fmt.Errorf("cannot locate python: %w", err)
	}

	if err := os.MkdirAll(cfg.ArtifactsBase, 0755); err != nil {
		return nil, fmt.Errorf("cannot create artifacts dir: %w", err)
	}

	cfg.Logger.Info("metrics runner initialised",
		"python", python,
		"module", cfg.ModuleName,
		"artifacts_dir", cfg.ArtifactsBase,
	)

	return &SubprocessRunner{cfg: cfg, python: python}, nil
}

func (r *SubprocessRunner) ArtifactsDir() string {
	return r.cfg.ArtifactsBase
}

// RunDoctor probes the installed VapourSynth environment.
func (r *SubprocessRunner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	outPath := filepath.Join(r.cfg.ArtifactsBase, ".doctor.json")

	ctx, cancel := context.WithTimeout(ctx, r.cfg.DoctorTimeout)
	defer cancel()

	result := r.exec(ctx, outPath, "doctor", "--json", "--out", outPath)
	if !result.IsSuccess() {
		return nil, fmt.Errorf("doctor exited %d: %s", result.ExitCode, result.StderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read doctor output: %w", err)
	}

	var caps Capabilities
	if err := json.Unmarshal(data, &caps); err != nil {
		return nil, fmt.Errorf("cannot parse doctor JSON: %w", err)
	}
	deriveCapabilities(&caps)
	caps.ProbedAt = time.Now()

	r.cfg.Logger.Info("doctor probe complete",
		"field_match", caps.HasFieldMatch,
		"decimation", caps.HasDecimation,
		"scene_change", caps.HasSceneChange,
		"deps_available", caps.Summary.Available,
		"deps_total", caps.Summary.Total,
	)

	return &caps, nil
}

func deriveCapabilities(caps *Capabilities) {
	vs := caps.VapourSynth.Available
	caps.HasFieldMatch = vs && isAvailable(caps.Plugins, "vivtc")
	caps.HasDecimation = caps.HasFieldMatch
	caps.HasSceneChange = vs && isAvailable(caps.Plugins, "scxvid")
	caps.HasFades = vs
}

// CollectMetrics runs the metrics command. A non-zero exit is reported in
// the result, not as an error.
func (r *SubprocessRunner) CollectMetrics(ctx context.Context, req MetricsRequest, outPath string) (RunResult, error) {
	args, err := metricsArgs(req, outPath)
	if err != nil {
		return RunResult{ExitCode: -1}, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.MetricsTimeout)
	defer cancel()

	return r.exec(ctx, outPath, args...), nil
}

func metricsArgs(req MetricsRequest, outPath string) ([]string, error) {
	if req.VideoPath == "" {
		return nil, ErrNoVideo
	}
	args := []string{
		"metrics",
		"--video", req.VideoPath,
		"--order", strconv.FormatInt(req.Order, 10),
	}
	if req.SourceFilter != "" {
		args = append(args, "--source-filter", req.SourceFilter)
	}
	for _, t := range req.Trims {
		args = append(args, "--trim", fmt.Sprintf("%d-%d", t[0], t[1]))
	}
	for _, p := range []struct {
		flag   string
		params map[string]any
	}{{"--vfm", req.VFM}, {"--vdecimate", req.VDecimate}} {
		if len(p.params) == 0 {
			continue
		}
		data, err := json.Marshal(p.params)
		if err != nil {
			return nil, fmt.Errorf("encode %s parameters: %w", p.flag, err)
		}
		args = append(args, p.flag, string(data))
	}
	return append(args, "--out", outPath), nil
}

// exec runs one tool command and captures the tail of its stderr.
func (r *SubprocessRunner) exec(ctx context.Context, outPath string, args ...string) RunResult {
	start := time.Now()

	if outPath != "" {
		if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
			r.cfg.Logger.Error("cannot create output dir", "error", err)
			return RunResult{ExitCode: -1, StderrTail: err.Error(), Duration: time.Since(start)}
		}
	}

	cmdArgs := append([]string{"-m", r.cfg.ModuleName}, args...)
	cmd := exec.CommandContext(ctx, r.python, cmdArgs...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = io.Writer(&limitedWriter{w: &stderrBuf, limit: maxStderrBytes})
	cmd.Stdout = io.Discard

	r.cfg.Logger.Info("executing metrics command", "command", args[0])

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}

	stderrTail := stderrBuf.String()

	if exitCode != 0 {
		r.cfg.Logger.Warn("metrics command failed",
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrTail, 512),
		)
	} else {
		r.cfg.Logger.Info("metrics command succeeded",
			"duration_ms", elapsed.Milliseconds(),
			"output", r.safePath(outPath),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		OutputPath: outPath,
		StderrTail: stderrTail,
		Duration:   elapsed,
	}
}

func (r *SubprocessRunner) safePath(path string) string {
	if r.cfg.DebugPaths {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(path)
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return filepath.Base(path)
}

func resolvePython(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured python %q not found", preferred)
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", fmt.Errorf("no python binary found on PATH (tried python3, python)")
}

func isAvailable(deps map[string]DepInfo, name string) bool {
	d, ok := deps[name]
	return ok && d.Available
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
