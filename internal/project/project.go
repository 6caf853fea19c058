// Package project implements the IVTC editing model: per-frame field
// matches, cycle-based decimation, the section partition, presets and
// overlays, pattern guessing and undo history.
//
// A Project is not safe for concurrent use. Callers serialise access; see
// package session for the locking wrapper used by the API.
package project

import (
	"maps"
)

// FormatVersion is the newest project document version understood by Read.
const FormatVersion = 3

// Defaults for settings that are not carried by every project file.
const (
	DefaultUndoSteps              = 200
	DefaultMicSearchMinimum       = 20
	DefaultCMatchSequencesMinimum = 20
	DefaultResizeFilter           = "spline16"
	DefaultDither                 = "random"
)

// Params describes the video a new project is created for.
type Params struct {
	InputFile    string
	SourceFilter string
	FPSNum       int64
	FPSDen       int64
	Width        int
	Height       int
	Frames       int
}

// Project is the complete editing state for one video.
type Project struct {
	inputFile    string
	sourceFilter string
	fpsNum       int64
	fpsDen       int64
	width        int
	height       int

	sourceFrames    int
	decimatedFrames int

	trims orderedMap[FrameRange]

	vfmInt    map[string]int64
	vfmFloat  map[string]float64
	vfmBool   map[string]bool
	vdecInt   map[string]int64
	vdecFloat map[string]float64
	vdecBool  map[string]bool

	mics            [][5]int
	mmetrics        [][2]int
	vmetrics        [][2]int
	matches         []byte
	originalMatches []byte
	decimated       []uint8 // bitmask of dropped offsets per cycle
	decimateMetrics []int

	combed    frameSet
	sections  orderedMap[Section]
	presets   map[string]string
	lists     []CustomList
	frozen    orderedMap[FreezeFrame]
	bookmarks orderedMap[Bookmark]
	fades     orderedMap[InterlacedFade]
	orphans   orderedMap[OrphanField]
	guessing  PatternGuessing

	resize Resize
	crop   Crop
	depth  Depth
	ui     UIState

	freezeFramesWanted bool

	undoStack []snapshot
	redoStack []snapshot
	undoSteps int

	modified  bool
	observers []func(modified bool)
}

func newEmpty() *Project {
	return &Project{
		vfmInt:    map[string]int64{},
		vfmFloat:  map[string]float64{},
		vfmBool:   map[string]bool{},
		vdecInt:   map[string]int64{},
		vdecFloat: map[string]float64{},
		vdecBool:  map[string]bool{},
		presets:   map[string]string{},
		guessing:  DefaultPatternGuessing(),
		resize:    Resize{Filter: DefaultResizeFilter},
		depth:     Depth{Bits: 8, Dither: DefaultDither},
		ui: UIState{
			Zoom:                   1,
			ShownFrameRates:        [5]bool{true, false, true, true, true},
			MicSearchMinimum:       DefaultMicSearchMinimum,
			CMatchSequencesMinimum: DefaultCMatchSequencesMinimum,
		},
		freezeFramesWanted: true,
		undoSteps:          DefaultUndoSteps,
	}
}

// New creates a project covering every frame of the input with a single
// trim and a single section.
func New(params Params) *Project {
	p := newEmpty()
	p.inputFile = params.InputFile
	p.sourceFilter = params.SourceFilter
	p.fpsNum = params.FPSNum
	p.fpsDen = params.FPSDen
	p.width = params.Width
	p.height = params.Height
	p.setSourceFrames(params.Frames)
	if params.Frames > 0 {
		p.trims.put(FrameRange{First: 0, Last: params.Frames - 1})
	}
	// Top field first unless the metrics say otherwise.
	p.vfmInt["order"] = 1
	p.sections.put(Section{Start: 0})
	p.resize.Width = params.Width
	p.resize.Height = params.Height
	return p
}

func (p *Project) setSourceFrames(n int) {
	p.sourceFrames = n
	p.decimatedFrames = n
	cycles := 0
	if n > 0 {
		cycles = (n-1)/5 + 1
	}
	p.decimated = make([]uint8, cycles)
}

// InputFile returns the path of the source video.
func (p *Project) InputFile() string { return p.inputFile }

// SourceFilter returns the name of the source filter used in scripts.
func (p *Project) SourceFilter() string { return p.sourceFilter }

// FrameRate returns the input frame rate as numerator and denominator.
func (p *Project) FrameRate() (int64, int64) { return p.fpsNum, p.fpsDen }

// Resolution returns the input width and height.
func (p *Project) Resolution() (int, int) { return p.width, p.height }

// Trims returns the trim ranges in ascending order.
func (p *Project) Trims() []FrameRange { return p.trims.clone() }

// AddTrim records a trim range. The frame count is not affected; trims are
// established when the project is created or loaded.
func (p *Project) AddTrim(first, last int) {
	if first > last {
		first, last = last, first
	}
	p.trims.put(FrameRange{First: first, Last: last})
	p.SetModified(true)
}

// VFMOrder returns the field order used for field matching.
func (p *Project) VFMOrder() int64 {
	if v, ok := p.vfmInt["order"]; ok {
		return v
	}
	return 1
}

// SetVFMParameter stores a field matcher parameter. Supported value types
// are int, int64, float64 and bool.
func (p *Project) SetVFMParameter(name string, value any) error {
	return setParameter(p.vfmInt, p.vfmFloat, p.vfmBool, name, value, p)
}

// SetVDecimateParameter stores a decimator parameter.
func (p *Project) SetVDecimateParameter(name string, value any) error {
	return setParameter(p.vdecInt, p.vdecFloat, p.vdecBool, name, value, p)
}

func setParameter(ints map[string]int64, floats map[string]float64, bools map[string]bool, name string, value any, p *Project) error {
	switch v := value.(type) {
	case int:
		ints[name] = int64(v)
	case int64:
		ints[name] = v
	case float64:
		floats[name] = v
	case bool:
		bools[name] = v
	default:
		return validationErrorf("parameter '%s' has unsupported type %T", name, value)
	}
	p.SetModified(true)
	return nil
}

// VFMParameters returns a copy of every stored field matcher parameter.
func (p *Project) VFMParameters() map[string]any {
	return mergeParameters(p.vfmInt, p.vfmFloat, p.vfmBool)
}

// VDecimateParameters returns a copy of every stored decimator parameter.
func (p *Project) VDecimateParameters() map[string]any {
	return mergeParameters(p.vdecInt, p.vdecFloat, p.vdecBool)
}

func mergeParameters(ints map[string]int64, floats map[string]float64, bools map[string]bool) map[string]any {
	out := make(map[string]any, len(ints)+len(floats)+len(bools))
	for k, v := range ints {
		out[k] = v
	}
	for k, v := range floats {
		out[k] = v
	}
	for k, v := range bools {
		out[k] = v
	}
	return out
}

// IsModified reports whether the project changed since it was last saved.
func (p *Project) IsModified() bool { return p.modified }

// SetModified updates the dirty flag and notifies observers when it changes.
func (p *Project) SetModified(modified bool) {
	if p.modified == modified {
		return
	}
	p.modified = modified
	for _, fn := range p.observers {
		fn(modified)
	}
}

// OnModifiedChanged registers fn to be called whenever the dirty flag flips.
func (p *Project) OnModifiedChanged(fn func(modified bool)) {
	p.observers = append(p.observers, fn)
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return map[K]V{}
	}
	return maps.Clone(m)
}
