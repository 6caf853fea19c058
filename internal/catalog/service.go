package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/heimdex/ivtc-agent/internal/project"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidJobType = errors.New("invalid job type")
	ErrJobNotPending  = errors.New("job is not pending")
)

type CatalogService interface {
	RegisterProject(ctx context.Context, path string, p *project.Project) (*Project, error)
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	RemoveProject(ctx context.Context, id string) error
	UpdateStats(ctx context.Context, id string, p *project.Project) error

	CreateSnapshot(ctx context.Context, projectID, description string, p *project.Project) (*Snapshot, error)
	ListSnapshots(ctx context.Context, projectID string) ([]*Snapshot, error)
	LoadSnapshot(ctx context.Context, projectID, snapshotID string) (*project.Project, error)

	CreateJob(ctx context.Context, projectID, jobType string, params any) (*Job, error)
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	CancelJob(ctx context.Context, id string) error
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// RegisterProject records the project document at path, returning the
// existing record when the path is already known.
func (s *Service) RegisterProject(ctx context.Context, path string, p *project.Project) (*Project, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	existing, err := s.repo.GetProjectByPath(ctx, absPath)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.UpdateStats(ctx, existing.ID, p); err != nil {
			return nil, err
		}
		return s.repo.GetProject(ctx, existing.ID)
	}

	t := time.Now().UTC().Truncate(time.Second)
	rec := &Project{
		ID:              NewID(),
		Name:            strings.TrimSuffix(filepath.Base(absPath), filepath.Ext(absPath)),
		Path:            absPath,
		InputFile:       p.InputFile(),
		SourceFrames:    p.SourceFrameCount(),
		DecimatedFrames: p.DecimatedFrameCount(),
		CreatedAt:       t,
		UpdatedAt:       t,
	}
	if err := s.repo.CreateProject(ctx, rec); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("project registered", "project_id", rec.ID, "frames", rec.SourceFrames)
	}
	return rec, nil
}

func (s *Service) GetProject(ctx context.Context, id string) (*Project, error) {
	rec, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return rec, nil
}

func (s *Service) ListProjects(ctx context.Context) ([]*Project, error) {
	return s.repo.ListProjects(ctx)
}

// RemoveProject forgets the project along with its snapshots and jobs. The
// document on disk is left alone.
func (s *Service) RemoveProject(ctx context.Context, id string) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}
	return s.repo.DeleteProject(ctx, id)
}

func (s *Service) UpdateStats(ctx context.Context, id string, p *project.Project) error {
	return s.repo.UpdateProjectStats(ctx, id, p.SourceFrameCount(), p.DecimatedFrameCount())
}

// PathResolver adapts the catalog for session.Registry.
func (s *Service) PathResolver(ctx context.Context, id string) (string, error) {
	rec, err := s.GetProject(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.Path, nil
}

// CreateSnapshot stores the current state of p as a compact document.
func (s *Service) CreateSnapshot(ctx context.Context, projectID, description string, p *project.Project) (*Snapshot, error) {
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	doc, err := p.Encode(true)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if description == "" {
		description = "snapshot"
	}

	snap := &Snapshot{
		ID:          NewID(),
		ProjectID:   projectID,
		Description: description,
		Document:    doc,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.repo.CreateSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("snapshot created", "project_id", projectID, "snapshot_id", snap.ID, "bytes", len(doc))
	}
	return snap, nil
}

func (s *Service) ListSnapshots(ctx context.Context, projectID string) ([]*Snapshot, error) {
	return s.repo.ListSnapshots(ctx, projectID)
}

// LoadSnapshot decodes a snapshot of projectID into a new project.
func (s *Service) LoadSnapshot(ctx context.Context, projectID, snapshotID string) (*project.Project, error) {
	snap, err := s.repo.GetSnapshot(ctx, snapshotID)
	if err != nil {
		return nil, err
	}
	if snap == nil || snap.ProjectID != projectID {
		return nil, fmt.Errorf("snapshot %s: %w", snapshotID, ErrNotFound)
	}
	return project.Decode(snap.Document, "snapshot "+snap.ID)
}

// CreateJob queues a job for the runner. params is stored as JSON.
func (s *Service) CreateJob(ctx context.Context, projectID, jobType string, params any) (*Job, error) {
	if !jobTypes[jobType] {
		return nil, fmt.Errorf("%w: %q", ErrInvalidJobType, jobType)
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("encode job params: %w", err)
		}
		raw = data
	}

	t := time.Now().UTC().Truncate(time.Second)
	job := &Job{
		ID:        NewID(),
		Type:      jobType,
		Status:    JobStatusPending,
		ProjectID: projectID,
		Params:    raw,
		CreatedAt: t,
		UpdatedAt: t,
	}
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("job created", "job_id", job.ID, "type", jobType, "project_id", projectID)
	}
	return job, nil
}

func (s *Service) GetJob(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return job, nil
}

func (s *Service) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	return s.repo.ListJobs(ctx, limit)
}

// CancelJob cancels a job that has not started.
func (s *Service) CancelJob(ctx context.Context, id string) error {
	job, err := s.GetJob(ctx, id)
	if err != nil {
		return err
	}
	if job.Status != JobStatusPending {
		return fmt.Errorf("job %s is %s: %w", id, job.Status, ErrJobNotPending)
	}
	return s.repo.UpdateJobStatus(ctx, id, JobStatusCancelled, "")
}
