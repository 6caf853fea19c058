package api

import (
	"time"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/project"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	UptimeS int64  `json:"uptime_s"`
}

type StatusResponse struct {
	State        string                 `json:"state"`
	LastError    string                 `json:"last_error,omitempty"`
	ProjectsOpen int                    `json:"projects_open"`
	JobsRunning  int                    `json:"jobs_running"`
	ActiveJob    *JobResponse           `json:"active_job,omitempty"`
	MetricsTool  *MetricsStatusResponse `json:"metrics_tool,omitempty"`
}

type MetricsStatusResponse struct {
	HasFieldMatch  bool   `json:"has_field_match"`
	HasDecimation  bool   `json:"has_decimation"`
	HasSceneChange bool   `json:"has_scene_change"`
	LastProbeAt    string `json:"last_probe_at,omitempty"`
	DepsAvail      int    `json:"deps_available"`
	DepsTotal      int    `json:"deps_total"`
}

// CreateProjectParams describes a new project document.
type CreateProjectParams struct {
	InputFile    string `json:"input_file"`
	SourceFilter string `json:"source_filter"`
	FPSNum       int64  `json:"fps_num"`
	FPSDen       int64  `json:"fps_den"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Frames       int    `json:"frames"`
}

// OpenProjectRequest opens the document at Path, or creates it when Create
// is set.
type OpenProjectRequest struct {
	Path   string               `json:"path"`
	Create *CreateProjectParams `json:"create,omitempty"`
}

type ProjectResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Path            string `json:"path"`
	InputFile       string `json:"input_file"`
	SourceFrames    int    `json:"source_frames"`
	DecimatedFrames int    `json:"decimated_frames"`
	Open            bool   `json:"open"`
	Modified        bool   `json:"modified"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type ProjectsResponse struct {
	Projects []ProjectResponse `json:"projects"`
}

// ProjectStateResponse is the editable state of an open project.
type ProjectStateResponse struct {
	ProjectResponse
	Matches      string                `json:"matches,omitempty"`
	Decimated    []int                 `json:"decimated"`
	Sections     []project.Section     `json:"sections"`
	Presets      []project.Preset      `json:"presets"`
	CustomLists  []CustomListResponse  `json:"custom_lists"`
	FreezeFrames []project.FreezeFrame `json:"freeze_frames"`
	Bookmarks    []project.Bookmark    `json:"bookmarks"`
	CombedFrames []int                 `json:"combed_frames"`
	Failures     []FailureResponse     `json:"pattern_failures"`
	History      HistoryResponse       `json:"history"`
}

type CustomListResponse struct {
	Name     string               `json:"name"`
	Preset   string               `json:"preset"`
	Position string               `json:"position"`
	Ranges   []project.FrameRange `json:"ranges"`
}

type HistoryResponse struct {
	CanUndo         bool   `json:"can_undo"`
	CanRedo         bool   `json:"can_redo"`
	UndoDescription string `json:"undo_description,omitempty"`
	RedoDescription string `json:"redo_description,omitempty"`
	Modified        bool   `json:"modified"`
}

type SetMatchRequest struct {
	Match string `json:"match"`
}

// RangeRequest names frames as "a-b", "a-", "-k" or "a".
type RangeRequest struct {
	Range   string `json:"range"`
	Pattern string `json:"pattern,omitempty"`
}

type PresetRequest struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

type SectionPresetRequest struct {
	Preset string `json:"preset"`
}

type FreezeFrameRequest struct {
	First       int `json:"first"`
	Last        int `json:"last"`
	Replacement int `json:"replacement"`
}

type CustomListRequest struct {
	Name     string `json:"name"`
	Preset   string `json:"preset"`
	Position string `json:"position"`
}

type BookmarkRequest struct {
	Frame       int    `json:"frame"`
	Description string `json:"description"`
}

type CommitRequest struct {
	Description string `json:"description"`
}

type ImportRequest struct {
	Path    string                `json:"path"`
	Options project.ImportOptions `json:"options"`
}

type FailureResponse struct {
	Start  int    `json:"start"`
	Reason string `json:"reason"`
}

type GuessResponse struct {
	Failures        []FailureResponse `json:"failures"`
	DecimatedFrames int               `json:"decimated_frames"`
}

type SnapshotRequest struct {
	Description string `json:"description"`
}

type SnapshotResponse struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

type SnapshotsResponse struct {
	Snapshots []SnapshotResponse `json:"snapshots"`
}

type CreateJobRequest struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

type JobResponse struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	ProjectID string `json:"project_id,omitempty"`
	Progress  int    `json:"progress"`
	Error     string `json:"error,omitempty"`
	Result    any    `json:"result,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type JobsResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func ProjectToResponse(p *catalog.Project) ProjectResponse {
	return ProjectResponse{
		ID:              p.ID,
		Name:            p.Name,
		Path:            p.Path,
		InputFile:       p.InputFile,
		SourceFrames:    p.SourceFrames,
		DecimatedFrames: p.DecimatedFrames,
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       p.UpdatedAt.Format(time.RFC3339),
	}
}

func HistoryToResponse(p *project.Project) HistoryResponse {
	return HistoryResponse{
		CanUndo:         p.CanUndo(),
		CanRedo:         p.CanRedo(),
		UndoDescription: p.UndoDescription(),
		RedoDescription: p.RedoDescription(),
		Modified:        p.IsModified(),
	}
}

// StateToResponse describes the open project p. rec supplies the catalog
// fields.
func StateToResponse(rec *catalog.Project, p *project.Project) ProjectStateResponse {
	resp := ProjectStateResponse{
		ProjectResponse: ProjectToResponse(rec),
		Matches:         string(p.Matches()),
		Decimated:       p.DecimatedFrames(),
		Sections:        p.Sections(),
		Presets:         p.Presets(),
		FreezeFrames:    p.FreezeFrames(),
		Bookmarks:       p.Bookmarks(),
		CombedFrames:    p.CombedFrames(),
		Failures:        FailuresToResponse(p.PatternGuessing().Failures()),
		History:         HistoryToResponse(p),
	}
	resp.Open = true
	resp.Modified = p.IsModified()
	resp.SourceFrames = p.SourceFrameCount()
	resp.DecimatedFrames = p.DecimatedFrameCount()
	for _, cl := range p.CustomLists() {
		resp.CustomLists = append(resp.CustomLists, CustomListResponse{
			Name:     cl.Name,
			Preset:   cl.Preset,
			Position: cl.Position.String(),
			Ranges:   cl.Ranges(),
		})
	}
	return resp
}

func FailuresToResponse(failures []project.Failure) []FailureResponse {
	out := make([]FailureResponse, len(failures))
	for i, f := range failures {
		out[i] = FailureResponse{Start: f.Start, Reason: f.Reason.String()}
	}
	return out
}

func SnapshotToResponse(s *catalog.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		ID:          s.ID,
		ProjectID:   s.ProjectID,
		Description: s.Description,
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
	}
}

func JobToResponse(j *catalog.Job) JobResponse {
	resp := JobResponse{
		ID:        j.ID,
		Type:      j.Type,
		Status:    j.Status,
		ProjectID: j.ProjectID,
		Progress:  j.Progress,
		Error:     j.Error,
		CreatedAt: j.CreatedAt.Format(time.RFC3339),
		UpdatedAt: j.UpdatedAt.Format(time.RFC3339),
	}
	if len(j.Result) > 0 {
		resp.Result = j.Result
	}
	return resp
}
