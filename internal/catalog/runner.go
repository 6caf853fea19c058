package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/heimdex/ivtc-agent/internal/export"
	"github.com/heimdex/ivtc-agent/internal/pipelines"
	"github.com/heimdex/ivtc-agent/internal/project"
)

// Workspace gives jobs access to open projects. session.Registry is the
// production implementation.
type Workspace interface {
	With(ctx context.Context, projectID string, fn func(p *project.Project) error) error
	Save(ctx context.Context, projectID string) error
}

// Runner polls for pending jobs and executes them one at a time.
type Runner struct {
	service      *Service
	repo         Repository
	workspace    Workspace
	pipeRunner   pipelines.Runner
	doctor       *pipelines.CachedDoctor
	logger       *slog.Logger
	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, workspace Workspace, pipeRunner pipelines.Runner, doctor *pipelines.CachedDoctor, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		workspace:    workspace,
		pipeRunner:   pipeRunner,
		doctor:       doctor,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) SetPollInterval(d time.Duration) {
	if d > 0 {
		r.pollInterval = d
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("job runner started", "poll_interval", r.pollInterval)

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("job runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("job runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("job runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// processNextJob runs the oldest pending job and reports whether there was
// one.
func (r *Runner) processNextJob(ctx context.Context) bool {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return false
	}
	if len(jobs) == 0 {
		return false
	}

	job := jobs[0]
	logger := r.logger.With("job_id", job.ID, "type", job.Type, "project_id", job.ProjectID)
	logger.Info("processing job")

	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusRunning, "")
	start := time.Now()

	var result any
	switch job.Type {
	case JobTypeMetrics:
		result, err = r.runMetrics(ctx, job)
	case JobTypeGuess:
		result, err = r.runGuess(ctx, job)
	case JobTypeExport:
		result, err = r.runExport(ctx, job)
	default:
		err = fmt.Errorf("%w: %q", ErrInvalidJobType, job.Type)
	}

	if err != nil {
		msg := err.Error()
		if errors.Is(err, context.Canceled) {
			msg = "cancelled"
		}
		// The job context may be gone; the status update must still land.
		r.repo.UpdateJobStatus(context.WithoutCancel(ctx), job.ID, JobStatusFailed, truncateStr(msg, 1024))
		logger.Warn("job failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return true
	}

	if result != nil {
		if data, err := json.Marshal(result); err == nil {
			r.repo.SetJobResult(ctx, job.ID, data)
		}
	}
	r.repo.UpdateJobProgress(ctx, job.ID, 100)
	r.repo.UpdateJobStatus(ctx, job.ID, JobStatusCompleted, "")
	logger.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
	return true
}

func decodeParams(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid job params: %w", err)
	}
	return nil
}

func metricsRequest(p *project.Project) pipelines.MetricsRequest {
	req := pipelines.MetricsRequest{
		VideoPath:    p.InputFile(),
		SourceFilter: p.SourceFilter(),
		Order:        p.VFMOrder(),
		VFM:          p.VFMParameters(),
		VDecimate:    p.VDecimateParameters(),
	}
	for _, t := range p.Trims() {
		req.Trims = append(req.Trims, [2]int{t.First, t.Last})
	}
	return req
}

// runMetrics collects metrics with the external tool and feeds them into
// the project. The output is checked against an empty project of the same
// length first so a bad file leaves the real project untouched.
func (r *Runner) runMetrics(ctx context.Context, job *Job) (any, error) {
	if r.pipeRunner == nil || r.doctor == nil {
		return nil, errors.New("metrics tool not configured")
	}
	var params MetricsParams
	if err := decodeParams(job.Params, &params); err != nil {
		return nil, err
	}

	caps, err := r.doctor.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("metrics tool probe failed: %w", err)
	}
	if !caps.CanCollect() {
		return nil, errors.New("metrics tool cannot run field matching")
	}

	var req pipelines.MetricsRequest
	var frames int
	err = r.workspace.With(ctx, job.ProjectID, func(p *project.Project) error {
		req = metricsRequest(p)
		frames = p.SourceFrameCount()
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.repo.UpdateJobProgress(ctx, job.ID, 10)

	outPath := filepath.Join(r.pipeRunner.ArtifactsDir(), job.ProjectID, job.ID+".jsonl")
	result, err := r.pipeRunner.CollectMetrics(ctx, req, outPath)
	if err != nil {
		return nil, err
	}
	if !result.IsSuccess() {
		return nil, fmt.Errorf("metrics tool exited %d: %s", result.ExitCode, truncateStr(result.StderrTail, 512))
	}
	r.repo.UpdateJobProgress(ctx, job.ID, 80)

	opts := pipelines.FeedOptions{FadesThreshold: params.FadesThreshold}
	scratch := project.New(project.Params{Frames: frames})
	if _, err := pipelines.FeedFile(ctx, outPath, scratch, opts); err != nil {
		return nil, fmt.Errorf("metrics output invalid: %w", err)
	}

	var stats pipelines.FeedStats
	err = r.workspace.With(ctx, job.ProjectID, func(p *project.Project) error {
		var err error
		if stats, err = pipelines.FeedFile(ctx, outPath, p, opts); err != nil {
			return err
		}
		p.Commit("collect metrics")
		return r.service.UpdateStats(ctx, job.ProjectID, p)
	})
	if err != nil {
		return nil, err
	}
	return stats, r.workspace.Save(ctx, job.ProjectID)
}

type guessResult struct {
	Failures        int `json:"failures"`
	DecimatedFrames int `json:"decimated_frames"`
}

func (r *Runner) runGuess(ctx context.Context, job *Job) (any, error) {
	var params GuessParams
	if err := decodeParams(job.Params, &params); err != nil {
		return nil, err
	}

	var res guessResult
	err := r.workspace.With(ctx, job.ProjectID, func(p *project.Project) error {
		opts := params.Apply(p.PatternGuessing().GuessOptions)
		if err := p.GuessProjectPatterns(opts); err != nil {
			return err
		}
		p.Commit("guess patterns")
		res.Failures = len(p.PatternGuessing().Failures())
		res.DecimatedFrames = p.DecimatedFrameCount()
		return r.service.UpdateStats(ctx, job.ProjectID, p)
	})
	if err != nil {
		return nil, err
	}
	return res, r.workspace.Save(ctx, job.ProjectID)
}

// Apply overlays the non-empty params on opts.
func (g GuessParams) Apply(opts project.GuessOptions) project.GuessOptions {
	if g.Method != "" {
		opts.Method = project.ParseGuessMethod(g.Method)
	}
	if g.MinimumLength > 0 {
		opts.MinimumLength = g.MinimumLength
	}
	if g.UsePatterns > 0 {
		opts.UsePatterns = g.UsePatterns
	}
	if g.ThirdNMatch != "" {
		opts.ThirdNMatch = project.ParseThirdNMatch(g.ThirdNMatch)
	}
	if g.Decimation != "" {
		opts.Decimation = project.ParseDropDuplicate(g.Decimation)
	}
	return opts
}

// runExport writes the requested outputs, next to the project document
// unless the params name a directory.
func (r *Runner) runExport(ctx context.Context, job *Job) (any, error) {
	var req export.ExportRequest
	if err := decodeParams(job.Params, &req); err != nil {
		return nil, err
	}
	rec, err := r.service.GetProject(ctx, job.ProjectID)
	if err != nil {
		return nil, err
	}
	if req.OutputDir == "" {
		req.OutputDir = filepath.Dir(rec.Path)
	}
	if req.Name == "" {
		req.Name = export.BaseName(rec.Path)
	}

	var resp *export.ExportResponse
	err = r.workspace.With(ctx, job.ProjectID, func(p *project.Project) error {
		var err error
		resp, err = export.WriteOutputs(p, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[len(s)-maxLen:]
}

func (r *Runner) GetActiveJobCount(ctx context.Context) int {
	jobs, err := r.repo.ListJobs(ctx, 100)
	if err != nil {
		return 0
	}
	count := 0
	for _, j := range jobs {
		if j.Status == JobStatusRunning {
			count++
		}
	}
	return count
}
