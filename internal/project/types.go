package project

// Position is a point in the filter chain. Custom lists are tagged with one
// and frame numbers are interpreted in its coordinate space.
type Position int

const (
	PostSource Position = iota
	PostFieldMatch
	PostDecimate
)

var positionNames = []string{"post source", "post field match", "post decimate"}

func (p Position) String() string {
	if p < PostSource || p > PostDecimate {
		return "unknown"
	}
	return positionNames[p]
}

// ParsePosition returns PostSource for unrecognised names.
func ParsePosition(s string) Position {
	for i, name := range positionNames {
		if name == s {
			return Position(i)
		}
	}
	return PostSource
}

// Match symbols.
const (
	MatchP byte = 'p'
	MatchC byte = 'c'
	MatchN byte = 'n'
	MatchB byte = 'b'
	MatchU byte = 'u'
)

// IsValidMatch reports whether m is one of p, c, n, b, u.
func IsValidMatch(m byte) bool {
	return m == MatchP || m == MatchC || m == MatchN || m == MatchB || m == MatchU
}

// matchIndex maps a match symbol to its slot in a mics tuple.
func matchIndex(m byte) int {
	switch m {
	case MatchP:
		return 0
	case MatchC:
		return 1
	case MatchN:
		return 2
	case MatchB:
		return 3
	case MatchU:
		return 4
	}
	return 1
}

// dmetricIndex maps a match symbol to its slot in a DMetrics triple.
// Matches against the previous field's frame share slot 0, matches against
// the next frame share slot 2.
func dmetricIndex(m byte) int {
	switch m {
	case MatchP, MatchB:
		return 0
	case MatchN, MatchU:
		return 2
	}
	return 1
}

// FrameRange is an inclusive range of frames.
type FrameRange struct {
	First int `json:"first"`
	Last  int `json:"last"`
}

func (r FrameRange) key() int { return r.First }

// FreezeFrame replaces every frame in [First, Last] with Replacement.
type FreezeFrame struct {
	First       int `json:"first"`
	Last        int `json:"last"`
	Replacement int `json:"replacement"`
}

func (f FreezeFrame) key() int { return f.First }

// Section is one segment of the timeline partition.
type Section struct {
	Start   int      `json:"start"`
	Presets []string `json:"presets"`
}

func (s Section) key() int { return s.Start }

func (s Section) clone() Section {
	s.Presets = append([]string(nil), s.Presets...)
	return s
}

// Preset is a named block of filter code applied to sections and custom lists.
type Preset struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

// CustomList applies a preset to a set of frame ranges at a fixed position
// in the filter chain.
type CustomList struct {
	Name     string   `json:"name"`
	Preset   string   `json:"preset"`
	Position Position `json:"position"`
	ranges   orderedMap[FrameRange]
}

// Ranges returns a copy of the list's ranges in ascending order.
func (cl CustomList) Ranges() []FrameRange {
	return append([]FrameRange(nil), cl.ranges...)
}

func (cl CustomList) clone() CustomList {
	cl.ranges = cl.ranges.clone()
	return cl
}

// Bookmark marks a frame with a free-form description.
type Bookmark struct {
	Frame       int    `json:"frame"`
	Description string `json:"description"`
}

func (b Bookmark) key() int { return b.Frame }

// InterlacedFade records a frame whose fields differ noticeably.
type InterlacedFade struct {
	Frame           int     `json:"frame"`
	FieldDifference float64 `json:"field_difference"`
}

func (f InterlacedFade) key() int { return f.Frame }

// OrphanField is a section boundary frame whose match leaves one field
// without a partner.
type OrphanField struct {
	Frame     int  `json:"frame"`
	Match     byte `json:"match"`
	Decimated bool `json:"decimated"`
}

func (o OrphanField) key() int { return o.Frame }

// DecimationRange starts wherever the number of dropped frames per cycle
// changes.
type DecimationRange struct {
	Start      int
	NumDropped int
}

// DecimationPatternRange starts wherever the set of dropped offsets changes.
type DecimationPatternRange struct {
	Start          int
	DroppedOffsets []int
}

// Resize settings for the final script.
type Resize struct {
	Enabled bool   `json:"enabled"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Filter  string `json:"filter"`
}

// Crop settings for the final script.
type Crop struct {
	Enabled bool `json:"enabled"`
	Early   bool `json:"early"`
	Left    int  `json:"left"`
	Top     int  `json:"top"`
	Right   int  `json:"right"`
	Bottom  int  `json:"bottom"`
}

// Depth settings for the final script.
type Depth struct {
	Enabled      bool   `json:"enabled"`
	Bits         int    `json:"bits"`
	FloatSamples bool   `json:"float_samples"`
	Dither       string `json:"dither"`
}

// UIState is opaque display state carried by the project file.
type UIState struct {
	Zoom                   int
	LastVisitedFrame       int
	Geometry               string
	State                  string
	ShownFrameRates        [5]bool
	MicSearchMinimum       int
	CMatchSequencesMinimum int
}

// FrameRates lists the output rates selectable for display, indexed by the
// number of frames dropped per cycle.
var FrameRates = [5]int{30, 24, 18, 12, 6}

// ImportOptions selects what ImportFrom copies from another project.
type ImportOptions struct {
	Geometry    bool `json:"geometry"`
	Presets     bool `json:"presets"`
	CustomLists bool `json:"custom_lists"`
	Crop        bool `json:"crop"`
	Resize      bool `json:"resize"`
	BitDepth    bool `json:"bit_depth"`
	MicSearch   bool `json:"mic_search"`
	Zoom        bool `json:"zoom"`
}
