// Package pipelines runs the external VapourSynth metrics tool as a
// subprocess and feeds its per-frame output into a project.
package pipelines

import "time"

// Capabilities is what the installed metrics tool can measure, as reported
// by its `doctor --json` command.
type Capabilities struct {
	ToolVersion string             `json:"tool_version"`
	Python      PythonInfo         `json:"python"`
	VapourSynth DepInfo            `json:"vapoursynth"`
	Plugins     map[string]DepInfo `json:"plugins"`
	Summary     SummaryInfo        `json:"summary"`

	HasFieldMatch  bool      `json:"-"`
	HasDecimation  bool      `json:"-"`
	HasSceneChange bool      `json:"-"`
	HasFades       bool      `json:"-"`
	ProbedAt       time.Time `json:"-"`
}

// CanCollect reports whether a metrics run can produce matches and mics.
func (c *Capabilities) CanCollect() bool {
	return c != nil && c.HasFieldMatch
}

type PythonInfo struct {
	Version    string `json:"version"`
	Executable string `json:"executable"`
}

// DepInfo is the availability of a single runtime or plugin.
type DepInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Path      string `json:"path,omitempty"`
	Error     string `json:"error,omitempty"`
}

type SummaryInfo struct {
	Available int  `json:"available"`
	Total     int  `json:"total"`
	AllOK     bool `json:"all_ok"`
}

// RunResult is the outcome of one subprocess execution.
type RunResult struct {
	ExitCode   int           `json:"exit_code"`
	OutputPath string        `json:"output_path,omitempty"`
	StderrTail string        `json:"stderr_tail,omitempty"`
	Duration   time.Duration `json:"duration"`
}

func (r RunResult) IsSuccess() bool { return r.ExitCode == 0 }

// MetricsRequest describes one metrics collection run over a project's
// source clip.
type MetricsRequest struct {
	VideoPath    string
	SourceFilter string
	Trims        [][2]int
	// Order is the field order given to the field matcher, 1 for top field
	// first.
	Order int64
	// VFM and VDecimate are passed through as JSON objects.
	VFM       map[string]any
	VDecimate map[string]any
}

// FrameRecord is one line of the metrics tool's JSONL output. Absent
// fields leave the project untouched.
type FrameRecord struct {
	Frame           int      `json:"frame"`
	Match           string   `json:"match,omitempty"`
	Combed          *bool    `json:"combed,omitempty"`
	Mics            *[5]int  `json:"mics,omitempty"`
	MMetrics        *[2]int  `json:"mmetrics,omitempty"`
	VMetrics        *[2]int  `json:"vmetrics,omitempty"`
	SceneChange     *bool    `json:"scene_change,omitempty"`
	DecimateMetric  *int     `json:"decimate_metric,omitempty"`
	Drop            *bool    `json:"drop,omitempty"`
	FieldDifference *float64 `json:"field_difference,omitempty"`
}
