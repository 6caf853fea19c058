package pipelines

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestRunResult_IsSuccess(t *testing.T) {
	tests := []struct {
		exitCode int
		want     bool
	}{
		{0, true},
		{1, false},
		{-1, false},
		{127, false},
	}
	for _, tt := range tests {
		r := RunResult{ExitCode: tt.exitCode}
		if got := r.IsSuccess(); got != tt.want {
			t.Errorf("RunResult{ExitCode: %d}.IsSuccess() = %v, want %v", tt.exitCode, got, tt.want)
		}
	}
}

func TestLimitedWriter_KeepsOnlyTail(t *testing.T) {
	var buf bytes.Buffer
	lw := &limitedWriter{w: &buf, limit: 10}

	lw.Write([]byte("hello"))
	if buf.String() != "hello" {
		t.Errorf("after short write got %q, want %q", buf.String(), "hello")
	}

	lw.Write([]byte(" world of test data"))
	if got := buf.String(); got != " test data" {
		t.Errorf("after overflow got %q, want %q", got, " test data")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input  string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "...world"},
	}
	for _, tt := range tests {
		if got := truncate(tt.input, tt.maxLen); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
		}
	}
}

func TestResolvePython_PreferredNotFound(t *testing.T) {
	if _, err := resolvePython("/nonexistent/python999"); err == nil {
		t.Fatal("expected error for nonexistent python")
	}
}

func TestDeriveCapabilities(t *testing.T) {
	tests := []struct {
		name      string
		caps      Capabilities
		wantMatch bool
		wantScene bool
	}{
		{
			name: "full install",
			caps: Capabilities{
				VapourSynth: DepInfo{Available: true},
				Plugins: map[string]DepInfo{
					"vivtc":  {Available: true},
					"scxvid": {Available: true},
				},
			},
			wantMatch: true,
			wantScene: true,
		},
		{
			name: "plugins without vapoursynth",
			caps: Capabilities{
				Plugins: map[string]DepInfo{"vivtc": {Available: true}},
			},
		},
		{
			name: "missing scene detection",
			caps: Capabilities{
				VapourSynth: DepInfo{Available: true},
				Plugins: map[string]DepInfo{
					"vivtc":  {Available: true},
					"scxvid": {Available: false, Error: "not installed"},
				},
			},
			wantMatch: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			caps := tt.caps
			deriveCapabilities(&caps)
			if caps.HasFieldMatch != tt.wantMatch || caps.HasDecimation != tt.wantMatch {
				t.Errorf("HasFieldMatch = %v, HasDecimation = %v, want %v", caps.HasFieldMatch, caps.HasDecimation, tt.wantMatch)
			}
			if caps.HasSceneChange != tt.wantScene {
				t.Errorf("HasSceneChange = %v, want %v", caps.HasSceneChange, tt.wantScene)
			}
			if caps.CanCollect() != tt.wantMatch {
				t.Errorf("CanCollect() = %v, want %v", caps.CanCollect(), tt.wantMatch)
			}
		})
	}
}

func TestMetricsArgs(t *testing.T) {
	req := MetricsRequest{
		VideoPath:    "/videos/ep01.m2ts",
		SourceFilter: "bs.VideoSource",
		Trims:        [][2]int{{0, 99}, {200, 299}},
		Order:        1,
		VFM:          map[string]any{"mode": int64(1), "chroma": true},
	}
	args, err := metricsArgs(req, "/tmp/out.jsonl")
	if err != nil {
		t.Fatalf("metricsArgs() error = %v", err)
	}
	got := strings.Join(args, " ")
	want := `metrics --video /videos/ep01.m2ts --order 1 --source-filter bs.VideoSource --trim 0-99 --trim 200-299 --vfm {"chroma":true,"mode":1} --out /tmp/out.jsonl`
	if got != want {
		t.Errorf("metricsArgs() = %s\nwant %s", got, want)
	}

	if _, err := metricsArgs(MetricsRequest{}, "/tmp/out.jsonl"); !errors.Is(err, ErrNoVideo) {
		t.Errorf("metricsArgs(empty) error = %v, want ErrNoVideo", err)
	}
}

// fakeTool writes a shell script standing in for the python interpreter.
func fakeTool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not executable on windows")
	}
	path := filepath.Join(t.TempDir(), "python")
	script := "#!/bin/sh\nout=\"\"\nwhile [ $# -gt 0 ]; do\n  if [ \"$1\" = \"--out\" ]; then out=\"$2\"; fi\n  shift\ndone\n" + body
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func newTestRunner(t *testing.T, python string) *SubprocessRunner {
	t.Helper()
	cfg := DefaultConfig(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	cfg.PythonPath = python
	r, err := NewRunner(cfg)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestSubprocessRunner_CollectMetrics(t *testing.T) {
	python := fakeTool(t, "printf '{\"frame\":0,\"match\":\"c\"}\\n' > \"$out\"\necho working >&2\n")
	r := newTestRunner(t, python)

	outPath := filepath.Join(r.ArtifactsDir(), "job", "metrics.jsonl")
	result, err := r.CollectMetrics(context.Background(), MetricsRequest{VideoPath: "/videos/ep01.m2ts"}, outPath)
	if err != nil {
		t.Fatalf("CollectMetrics() error = %v", err)
	}
	if !result.IsSuccess() {
		t.Fatalf("CollectMetrics() exit = %d, stderr %q", result.ExitCode, result.StderrTail)
	}
	if !strings.Contains(result.StderrTail, "working") {
		t.Errorf("StderrTail = %q, want tool output", result.StderrTail)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "{\"frame\":0,\"match\":\"c\"}\n" {
		t.Errorf("metrics output = %q", data)
	}
}

func TestSubprocessRunner_CollectMetricsFailure(t *testing.T) {
	python := fakeTool(t, "echo 'no such plugin' >&2\nexit 3\n")
	r := newTestRunner(t, python)

	result, err := r.CollectMetrics(context.Background(), MetricsRequest{VideoPath: "/videos/ep01.m2ts"}, filepath.Join(r.ArtifactsDir(), "m.jsonl"))
	if err != nil {
		t.Fatalf("CollectMetrics() error = %v", err)
	}
	if result.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", result.ExitCode)
	}
	if !strings.Contains(result.StderrTail, "no such plugin") {
		t.Errorf("StderrTail = %q", result.StderrTail)
	}
}

func TestSubprocessRunner_RunDoctor(t *testing.T) {
	doc := `{"tool_version":"1.2.0","vapoursynth":{"available":true,"version":"R65"},"plugins":{"vivtc":{"available":true}},"summary":{"available":2,"total":3}}`
	python := fakeTool(t, "printf '%s' '"+doc+"' > \"$out\"\n")
	r := newTestRunner(t, python)

	caps, err := r.RunDoctor(context.Background())
	if err != nil {
		t.Fatalf("RunDoctor() error = %v", err)
	}
	if caps.ToolVersion != "1.2.0" || !caps.HasFieldMatch || caps.HasSceneChange {
		t.Errorf("RunDoctor() = %+v", caps)
	}
	if caps.ProbedAt.IsZero() {
		t.Error("ProbedAt should be set")
	}
}

func TestCachedDoctor_TTL(t *testing.T) {
	calls := 0
	fake := &fakeRunner{
		doctorFn: func(ctx context.Context) (*Capabilities, error) {
			calls++
			return &Capabilities{HasFieldMatch: true, ProbedAt: time.Now()}, nil
		},
	}

	doc := NewCachedDoctor(fake, nil)
	doc.ttl = 100 * time.Millisecond
	ctx := context.Background()

	caps1, err := doc.Get(ctx)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	if !caps1.HasFieldMatch {
		t.Error("expected HasFieldMatch=true")
	}

	caps2, _ := doc.Get(ctx)
	if caps2.ProbedAt != caps1.ProbedAt || calls != 1 {
		t.Errorf("expected cached result on second call, calls = %d", calls)
	}

	time.Sleep(150 * time.Millisecond)

	if _, err := doc.Get(ctx); err != nil {
		t.Fatalf("third Get (after TTL): %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls after TTL expiry, got %d", calls)
	}
}

func TestCachedDoctor_StaleOnFailure(t *testing.T) {
	fail := false
	fake := &fakeRunner{
		doctorFn: func(ctx context.Context) (*Capabilities, error) {
			if fail {
				return nil, errors.New("probe crashed")
			}
			return &Capabilities{ToolVersion: "1.0", ProbedAt: time.Now()}, nil
		},
	}
	doc := NewCachedDoctor(fake, nil)
	ctx := context.Background()

	if _, err := doc.Refresh(ctx); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	fail = true
	caps, err := doc.Refresh(ctx)
	if err != nil || caps.ToolVersion != "1.0" {
		t.Errorf("Refresh() = %+v, %v, want stale capabilities", caps, err)
	}

	doc.Invalidate()
	if doc.Peek() != nil {
		t.Error("Peek() after Invalidate should be nil")
	}
	if _, err := doc.Refresh(ctx); err == nil {
		t.Error("Refresh() with no cache should return the probe error")
	}
}

func TestSafePath(t *testing.T) {
	r := &SubprocessRunner{cfg: Config{DebugPaths: true}}
	path := "/Users/test/secret/file.json"
	if got := r.safePath(path); got != path {
		t.Errorf("debug mode: safePath(%q) = %q, want full path", path, got)
	}

	r.cfg.DebugPaths = false
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	path = filepath.Join(home, ".ivtc-agent", "artifacts", "m.jsonl")
	if got := r.safePath(path); got != "~/.ivtc-agent/artifacts/m.jsonl" {
		t.Errorf("safePath() = %q, want %q", got, "~/.ivtc-agent/artifacts/m.jsonl")
	}
}

type fakeRunner struct {
	doctorFn func(ctx context.Context) (*Capabilities, error)
}

func (f *fakeRunner) RunDoctor(ctx context.Context) (*Capabilities, error) {
	return f.doctorFn(ctx)
}

func (f *fakeRunner) CollectMetrics(ctx context.Context, req MetricsRequest, outPath string) (RunResult, error) {
	return RunResult{OutputPath: outPath}, nil
}

func (f *fakeRunner) ArtifactsDir() string {
	return "/tmp/artifacts"
}
