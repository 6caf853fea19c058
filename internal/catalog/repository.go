package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	GetProjectByPath(ctx context.Context, path string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProjectStats(ctx context.Context, id string, sourceFrames, decimatedFrames int) error
	DeleteProject(ctx context.Context, id string) error

	CreateSnapshot(ctx context.Context, snapshot *Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, projectID string) ([]*Snapshot, error)

	CreateJob(ctx context.Context, job *Job) error
	GetJob(ctx context.Context, id string) (*Job, error)
	ListJobs(ctx context.Context, limit int) ([]*Job, error)
	ListPendingJobs(ctx context.Context) ([]*Job, error)
	UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error
	UpdateJobProgress(ctx context.Context, id string, progress int) error
	SetJobResult(ctx context.Context, id string, result json.RawMessage) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func now() string {
	return formatTime(time.Now())
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

const projectColumns = `id, name, path, input_file, source_frames, decimated_frames, created_at, updated_at`

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Name, p.Path, p.InputFile, p.SourceFrames, p.DecimatedFrames,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	return scanProject(row)
}

func (r *SQLiteRepository) GetProjectByPath(ctx context.Context, path string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE path = ?`, path)
	return scanProject(row)
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProject returns nil, nil when there is no row.
func scanProject(row scanner) (*Project, error) {
	var p Project
	var createdAt, updatedAt string

	err := row.Scan(&p.ID, &p.Name, &p.Path, &p.InputFile, &p.SourceFrames, &p.DecimatedFrames, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY updated_at DESC, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProjectStats(ctx context.Context, id string, sourceFrames, decimatedFrames int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET source_frames = ?, decimated_frames = ?, updated_at = ? WHERE id = ?
	`, sourceFrames, decimatedFrames, now(), id)
	return err
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateSnapshot(ctx context.Context, s *Snapshot) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, project_id, description, document, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, s.Description, s.Document, formatTime(s.CreatedAt))
	return err
}

func (r *SQLiteRepository) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	var s Snapshot
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, description, document, created_at FROM snapshots WHERE id = ?
	`, id).Scan(&s.ID, &s.ProjectID, &s.Description, &s.Document, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	return &s, nil
}

// ListSnapshots returns a project's snapshots newest first, without their
// documents.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context, projectID string) ([]*Snapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, description, created_at
		FROM snapshots WHERE project_id = ? ORDER BY created_at DESC, rowid DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*Snapshot
	for rows.Next() {
		var s Snapshot
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Description, &createdAt); err != nil {
			return nil, err
		}
		s.CreatedAt = parseTime(createdAt)
		snapshots = append(snapshots, &s)
	}
	return snapshots, rows.Err()
}

const jobColumns = `id, type, status, project_id, params, progress, error, result, created_at, updated_at`

func (r *SQLiteRepository) CreateJob(ctx context.Context, j *Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO jobs (`+jobColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, j.ID, j.Type, j.Status, nullString(j.ProjectID), nullString(string(j.Params)),
		j.Progress, nullString(j.Error), nullString(string(j.Result)),
		formatTime(j.CreatedAt), formatTime(j.UpdatedAt))
	return err
}

func (r *SQLiteRepository) GetJob(ctx context.Context, id string) (*Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	return scanJob(row)
}

func scanJob(row scanner) (*Job, error) {
	var j Job
	var projectID, params, errMsg, result sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&j.ID, &j.Type, &j.Status, &projectID, &params, &j.Progress, &errMsg, &result, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	j.ProjectID = projectID.String
	if params.Valid {
		j.Params = json.RawMessage(params.String)
	}
	j.Error = errMsg.String
	if result.Valid {
		j.Result = json.RawMessage(result.String)
	}
	j.CreatedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return &j, nil
}

func (r *SQLiteRepository) ListJobs(ctx context.Context, limit int) ([]*Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC, rowid DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func (r *SQLiteRepository) ListPendingJobs(ctx context.Context) ([]*Job, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE status = 'pending' ORDER BY created_at ASC, rowid ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJobs(rows)
}

func scanJobs(rows *sql.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (r *SQLiteRepository) UpdateJobStatus(ctx context.Context, id, status, errorMsg string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, error = ?, updated_at = ? WHERE id = ?
	`, status, nullString(errorMsg), now(), id)
	return err
}

func (r *SQLiteRepository) UpdateJobProgress(ctx context.Context, id string, progress int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET progress = ?, updated_at = ? WHERE id = ?
	`, progress, now(), id)
	return err
}

func (r *SQLiteRepository) SetJobResult(ctx context.Context, id string, result json.RawMessage) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs SET result = ?, updated_at = ? WHERE id = ?
	`, nullString(string(result)), now(), id)
	return err
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
