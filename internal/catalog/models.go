package catalog

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Project is the catalog record of a project document on disk.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Path            string    `json:"path"`
	InputFile       string    `json:"input_file"`
	SourceFrames    int       `json:"source_frames"`
	DecimatedFrames int       `json:"decimated_frames"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot is a persisted checkpoint of a project document, independent
// of the in-memory undo history.
type Snapshot struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Description string    `json:"description"`
	Document    []byte    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	JobTypeMetrics = "metrics"
	JobTypeGuess   = "guess"
	JobTypeExport  = "export"

	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

var jobTypes = map[string]bool{
	JobTypeMetrics: true,
	JobTypeGuess:   true,
	JobTypeExport:  true,
}

type Job struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Status    string          `json:"status"`
	ProjectID string          `json:"project_id,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	Progress  int             `json:"progress"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// IsFinished reports whether the job has reached a terminal status.
func (j *Job) IsFinished() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed || j.Status == JobStatusCancelled
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// GuessParams are the parameters of a guess job. Empty fields fall back to
// the project's stored pattern guessing settings.
type GuessParams struct {
	Method        string `json:"method,omitempty"`
	MinimumLength int    `json:"minimum_length,omitempty"`
	UsePatterns   int    `json:"use_patterns,omitempty"`
	ThirdNMatch   string `json:"third_n_match,omitempty"`
	Decimation    string `json:"decimation,omitempty"`
}

// MetricsParams are the parameters of a metrics job.
type MetricsParams struct {
	FadesThreshold float64 `json:"fades_threshold,omitempty"`
}

// VideoExtensions are the input containers a new project may be created
// from.
var VideoExtensions = map[string]bool{
	".m2ts": true,
	".ts":   true,
	".mkv":  true,
	".mp4":  true,
	".mpg":  true,
	".vob":  true,
	".avi":  true,
	".d2v":  true,
	".dgi":  true,
}

func NewID() string {
	return uuid.NewString()
}

func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}
