package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
)

// GeneratorVersion is written to the "wobbly version" key of saved projects.
const GeneratorVersion = 9

// Document keys.
const (
	keyWobblyVersion   = "wobbly version"
	keyFormatVersion   = "project format version"
	keyInputFile       = "input file"
	keyInputFrameRate  = "input frame rate"
	keyInputResolution = "input resolution"
	keyTrim            = "trim"
	keySourceFilter    = "source filter"
	keyUserInterface   = "user interface"
	keyVFMParameters   = "vfm parameters"
	keyVDecParameters  = "vdecimate parameters"
	keyMMetrics        = "mmetrics"
	keyVMetrics        = "vmetrics"
	keyMics            = "mics"
	keyMatches         = "matches"
	keyOriginalMatches = "original matches"
	keyCombedFrames    = "combed frames"
	keyDecimatedFrames = "decimated frames"
	keyDecimateMetrics = "decimate metrics"
	keySections        = "sections"
	keyInterlacedFades = "interlaced fades"
	keyPresets         = "presets"
	keyFrozenFrames    = "frozen frames"
	keyCustomLists     = "custom lists"
	keyResize          = "resize"
	keyCrop            = "crop"
	keyDepth           = "depth"
)

type paramType int

const (
	paramInt paramType = iota
	paramDouble
	paramBool
)

type paramSpec struct {
	name string
	typ  paramType
}

var vfmParams = []paramSpec{
	{"order", paramInt},
	{"cthresh", paramInt},
	{"mi", paramInt},
	{"blockx", paramInt},
	{"blocky", paramInt},
	{"y0", paramInt},
	{"y1", paramInt},
	{"micmatch", paramInt},
	{"scthresh", paramDouble},
	{"chroma", paramBool},
	{"mchroma", paramBool},
}

var vdecParams = []paramSpec{
	{"blockx", paramInt},
	{"blocky", paramInt},
	{"dupthresh", paramDouble},
	{"scthresh", paramDouble},
	{"chroma", paramBool},
}

type uiDoc struct {
	Zoom                   int              `json:"zoom"`
	LastVisitedFrame       int              `json:"last visited frame"`
	Geometry               string           `json:"geometry"`
	State                  string           `json:"state"`
	ShowFrameRates         []int            `json:"show frame rates"`
	MicSearchMinimum       int              `json:"mic search minimum"`
	CMatchSequencesMinimum int              `json:"c match sequences minimum"`
	PatternGuessing        *patternGuessDoc `json:"pattern guessing,omitempty"`
	Bookmarks              []bookmarkDoc    `json:"bookmarks,omitempty"`
}

type patternGuessDoc struct {
	Method         string       `json:"method"`
	MinimumLength  int          `json:"minimum length"`
	UseThirdNMatch string       `json:"use third n match"`
	Decimate       string       `json:"decimate"`
	UsePatterns    []string     `json:"use patterns"`
	Failures       []failureDoc `json:"failures"`
}

type failureDoc struct {
	Start  int    `json:"start"`
	Reason string `json:"reason"`
}

type bookmarkDoc struct {
	Frame       int    `json:"frame"`
	Description string `json:"description"`
}

type sectionDoc struct {
	Start   int      `json:"start"`
	Presets []string `json:"presets"`
}

type fadeDoc struct {
	Frame           int     `json:"frame"`
	FieldDifference float64 `json:"field difference"`
}

type presetDoc struct {
	Name     string `json:"name"`
	Contents string `json:"contents"`
}

type customListDoc struct {
	Name     string   `json:"name"`
	Preset   string   `json:"preset"`
	Position string   `json:"position"`
	Frames   [][2]int `json:"frames"`
}

type resizeDoc struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Filter string `json:"filter"`
}

type cropDoc struct {
	Early  bool `json:"early"`
	Left   int  `json:"left"`
	Top    int  `json:"top"`
	Right  int  `json:"right"`
	Bottom int  `json:"bottom"`
}

type depthDoc struct {
	Bits         int    `json:"bits"`
	FloatSamples bool   `json:"float samples"`
	Dither       string `json:"dither"`
}

// document is the on-disk layout, in write order.
type document struct {
	WobblyVersion   int             `json:"wobbly version"`
	FormatVersion   int             `json:"project format version"`
	InputFile       string          `json:"input file"`
	InputFrameRate  [2]int64        `json:"input frame rate"`
	InputResolution [2]int          `json:"input resolution"`
	UserInterface   uiDoc           `json:"user interface"`
	Trim            [][2]int        `json:"trim"`
	VFMParameters   map[string]any  `json:"vfm parameters"`
	VDecParameters  map[string]any  `json:"vdecimate parameters"`
	Mics            [][5]int        `json:"mics,omitempty"`
	MMetrics        [][2]int        `json:"mmetrics,omitempty"`
	VMetrics        [][2]int        `json:"vmetrics,omitempty"`
	Matches         []string        `json:"matches,omitempty"`
	OriginalMatches []string        `json:"original matches,omitempty"`
	CombedFrames    []int           `json:"combed frames,omitempty"`
	DecimatedFrames []int           `json:"decimated frames,omitempty"`
	DecimateMetrics []int           `json:"decimate metrics,omitempty"`
	Sections        []sectionDoc    `json:"sections"`
	SourceFilter    string          `json:"source filter"`
	InterlacedFades []fadeDoc       `json:"interlaced fades"`
	Presets         []presetDoc     `json:"presets"`
	FrozenFrames    [][3]int        `json:"frozen frames"`
	CustomLists     []customListDoc `json:"custom lists"`
	Resize          *resizeDoc      `json:"resize,omitempty"`
	Crop            *cropDoc        `json:"crop,omitempty"`
	Depth           *depthDoc       `json:"depth,omitempty"`
}

// Write saves the project to path and clears the dirty flag.
func (p *Project) Write(path string, compact bool) error {
	data, err := p.Encode(compact)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("couldn't write the project to file '%s': %w", path, err)
	}
	p.SetModified(false)
	return nil
}

// Encode renders the project document. Output is deterministic for a given
// project state.
func (p *Project) Encode(compact bool) ([]byte, error) {
	doc := document{
		WobblyVersion:   GeneratorVersion,
		FormatVersion:   FormatVersion,
		InputFile:       p.inputFile,
		InputFrameRate:  [2]int64{p.fpsNum, p.fpsDen},
		InputResolution: [2]int{p.width, p.height},
		UserInterface: uiDoc{
			Zoom:                   p.ui.Zoom,
			LastVisitedFrame:       p.ui.LastVisitedFrame,
			Geometry:               p.ui.Geometry,
			State:                  p.ui.State,
			ShowFrameRates:         []int{},
			MicSearchMinimum:       p.ui.MicSearchMinimum,
			CMatchSequencesMinimum: p.ui.CMatchSequencesMinimum,
		},
		Trim:            make([][2]int, 0, len(p.trims)),
		VFMParameters:   encodeParams(p.vfmInt, p.vfmFloat, p.vfmBool),
		VDecParameters:  encodeParams(p.vdecInt, p.vdecFloat, p.vdecBool),
		Mics:            p.mics,
		MMetrics:        p.mmetrics,
		VMetrics:        p.vmetrics,
		Matches:         matchStrings(p.matches),
		OriginalMatches: matchStrings(p.originalMatches),
		CombedFrames:    p.combed,
		DecimatedFrames: p.DecimatedFrames(),
		DecimateMetrics: p.decimateMetrics,
		Sections:        make([]sectionDoc, 0, len(p.sections)),
		SourceFilter:    p.sourceFilter,
		InterlacedFades: make([]fadeDoc, 0, len(p.fades)),
		Presets:         make([]presetDoc, 0, len(p.presets)),
		FrozenFrames:    make([][3]int, 0, len(p.frozen)),
		CustomLists:     make([]customListDoc, 0, len(p.lists)),
	}

	for i, rate := range FrameRates {
		if p.ui.ShownFrameRates[i] {
			doc.UserInterface.ShowFrameRates = append(doc.UserInterface.ShowFrameRates, rate)
		}
	}
	if len(p.guessing.failures) > 0 {
		pg := &patternGuessDoc{
			Method:         p.guessing.Method.String(),
			MinimumLength:  p.guessing.MinimumLength,
			UseThirdNMatch: p.guessing.ThirdNMatch.String(),
			Decimate:       p.guessing.Decimation.String(),
			UsePatterns:    []string{},
		}
		for _, cp := range candidatePatterns {
			if p.guessing.UsePatterns&cp.bit != 0 {
				name := cp.pattern
				if name == "c" {
					name = "ccccc"
				}
				pg.UsePatterns = append(pg.UsePatterns, name)
			}
		}
		for _, f := range p.guessing.failures {
			pg.Failures = append(pg.Failures, failureDoc{Start: f.Start, Reason: f.Reason.String()})
		}
		doc.UserInterface.PatternGuessing = pg
	}
	for _, b := range p.bookmarks {
		doc.UserInterface.Bookmarks = append(doc.UserInterface.Bookmarks, bookmarkDoc(b))
	}

	for _, t := range p.trims {
		doc.Trim = append(doc.Trim, [2]int{t.First, t.Last})
	}
	for _, s := range p.sections {
		doc.Sections = append(doc.Sections, sectionDoc{Start: s.Start, Presets: append([]string{}, s.Presets...)})
	}
	for _, f := range p.fades {
		doc.InterlacedFades = append(doc.InterlacedFades, fadeDoc(f))
	}
	for _, pr := range p.Presets() {
		doc.Presets = append(doc.Presets, presetDoc(pr))
	}
	for _, ff := range p.frozen {
		doc.FrozenFrames = append(doc.FrozenFrames, [3]int{ff.First, ff.Last, ff.Replacement})
	}
	for _, cl := range p.lists {
		cd := customListDoc{Name: cl.Name, Preset: cl.Preset, Position: cl.Position.String(), Frames: [][2]int{}}
		for _, r := range cl.ranges {
			cd.Frames = append(cd.Frames, [2]int{r.First, r.Last})
		}
		doc.CustomLists = append(doc.CustomLists, cd)
	}
	if p.resize.Enabled {
		doc.Resize = &resizeDoc{Width: p.resize.Width, Height: p.resize.Height, Filter: p.resize.Filter}
	}
	if p.crop.Enabled {
		c := p.crop
		doc.Crop = &cropDoc{Early: c.Early, Left: c.Left, Top: c.Top, Right: c.Right, Bottom: c.Bottom}
	}
	if p.depth.Enabled {
		doc.Depth = &depthDoc{Bits: p.depth.Bits, FloatSamples: p.depth.FloatSamples, Dither: p.depth.Dither}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if !compact {
		enc.SetIndent("", "    ")
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func matchStrings(m []byte) []string {
	if len(m) == 0 {
		return nil
	}
	out := make([]string, len(m))
	for i, c := range m {
		out[i] = string(c)
	}
	return out
}

// encodeParams writes doubles with a fractional part so they read back as
// doubles rather than integers.
func encodeParams(ints map[string]int64, floats map[string]float64, bools map[string]bool) map[string]any {
	out := make(map[string]any, len(ints)+len(floats)+len(bools))
	for k, v := range ints {
		out[k] = v
	}
	for k, v := range floats {
		s := strconv.FormatFloat(v, 'f', -1, 64)
		if !bytes.ContainsAny([]byte(s), ".eE") {
			s += ".0"
		}
		out[k] = json.Number(s)
	}
	for k, v := range bools {
		out[k] = v
	}
	return out
}

// Read loads a project file.
func Read(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("couldn't open project file '%s': %w", path, err)
	}
	return Decode(data, path)
}

// Decode parses a project document. name is used in error messages. No
// project is returned unless the whole document is valid.
func Decode(data []byte, name string) (*Project, error) {
	d := &decoder{name: name}
	p, err := d.decode(data)
	if err != nil {
		return nil, err
	}
	p.SetModified(false)
	return p, nil
}

type object map[string]json.RawMessage

type decoder struct {
	name    string
	version int
}

func (d *decoder) errorf(format string, args ...any) error {
	return validationErrorf("%s: %s", d.name, fmt.Sprintf(format, args...))
}

func (d *decoder) decode(data []byte) (*Project, error) {
	var root object
	if err := json.Unmarshal(data, &root); err != nil {
		var ute *json.UnmarshalTypeError
		if errors.As(err, &ute) {
			return nil, d.errorf("JSON document root is not an object")
		}
		return nil, d.errorf("failed to parse project file: %v", err)
	}
	if root == nil {
		return nil, d.errorf("JSON document root is not an object")
	}

	d.version = 1
	if raw, ok := root[keyFormatVersion]; ok {
		v, ok := asInt(raw)
		if !ok {
			return nil, d.errorf("JSON key '%s' must be an integer", keyFormatVersion)
		}
		d.version = v
	}
	if d.version > FormatVersion {
		return nil, d.errorf("the project's format version is %d, but this software only understands format version %d and older", d.version, FormatVersion)
	}

	p := newEmpty()

	raw, err := d.required(root, keyInputFile)
	if err != nil {
		return nil, err
	}
	if p.inputFile, err = d.str(raw, keyInputFile); err != nil {
		return nil, err
	}

	if raw, err = d.required(root, keyInputFrameRate); err != nil {
		return nil, err
	}
	var rate [2]int64
	if !asIntArray(raw, rate[:]) {
		return nil, d.errorf("JSON key '%s' must be an array of two integers", keyInputFrameRate)
	}
	p.fpsNum, p.fpsDen = rate[0], rate[1]

	if raw, err = d.required(root, keyInputResolution); err != nil {
		return nil, err
	}
	var res [2]int64
	if !asIntArray(raw, res[:]) {
		return nil, d.errorf("JSON key '%s' must be an array of two integers", keyInputResolution)
	}
	p.width, p.height = int(res[0]), int(res[1])

	if raw, err = d.required(root, keyTrim); err != nil {
		return nil, err
	}
	trims, ok := asArray(raw)
	if !ok || len(trims) < 1 {
		return nil, d.errorf("JSON key '%s' must be an array with at least one element", keyTrim)
	}
	frames := 0
	for i, t := range trims {
		var r [2]int64
		if !asIntArray(t, r[:]) {
			return nil, d.errorf("element number %d of JSON key '%s' must be an array of two integers", i, keyTrim)
		}
		if r[0] < 0 || r[0] > r[1] {
			return nil, d.errorf("element number %d of JSON key '%s' must be a pair of non-negative frame numbers, the first not greater than the second", i, keyTrim)
		}
		p.trims.put(FrameRange{First: int(r[0]), Last: int(r[1])})
		frames += int(r[1]-r[0]) + 1
	}
	p.setSourceFrames(frames)

	if raw, err = d.required(root, keySourceFilter); err != nil {
		return nil, err
	}
	if p.sourceFilter, err = d.str(raw, keySourceFilter); err != nil {
		return nil, err
	}

	steps := []func(*Project, object) error{
		d.userInterface,
		d.parameters(keyVFMParameters, vfmParams, p.vfmInt, p.vfmFloat, p.vfmBool),
		d.parameters(keyVDecParameters, vdecParams, p.vdecInt, p.vdecFloat, p.vdecBool),
		d.metrics,
		d.matches,
		d.frameLists,
		d.presets,
		d.frozenFrames,
		d.sections,
		d.customLists,
		d.outputSettings,
		d.interlacedFades,
	}
	for _, step := range steps {
		if err := step(p, root); err != nil {
			return nil, err
		}
	}
	if len(p.sections) == 0 {
		p.sections.put(Section{Start: 0})
	}
	return p, nil
}

func (d *decoder) required(o object, key string) (json.RawMessage, error) {
	raw, ok := o[key]
	if !ok {
		return nil, d.errorf("JSON key '%s' is missing", key)
	}
	return raw, nil
}

func (d *decoder) str(raw json.RawMessage, key string) (string, error) {
	s, ok := asString(raw)
	if !ok {
		return "", d.errorf("JSON key '%s' must be a string", key)
	}
	return s, nil
}

func (d *decoder) integer(raw json.RawMessage, key string) (int, error) {
	v, ok := asInt(raw)
	if !ok {
		return 0, d.errorf("JSON key '%s' must be an integer", key)
	}
	return v, nil
}

func (d *decoder) object(raw json.RawMessage, key string) (object, error) {
	o, ok := asObject(raw)
	if !ok {
		return nil, d.errorf("JSON key '%s' must be an object", key)
	}
	return o, nil
}

func (d *decoder) array(raw json.RawMessage, key string) ([]json.RawMessage, error) {
	a, ok := asArray(raw)
	if !ok {
		return nil, d.errorf("JSON key '%s' must be an array", key)
	}
	return a, nil
}

// member fetches a required typed member of an array element.
func (d *decoder) member(o object, key, parent string, index int, kind string, conv func(json.RawMessage) bool) error {
	raw, ok := o[key]
	if !ok || !conv(raw) {
		return d.errorf("element number %d of JSON key '%s' must contain the key '%s', which must be %s", index, parent, key, kind)
	}
	return nil
}

func (d *decoder) userInterface(p *Project, root object) error {
	raw, ok := root[keyUserInterface]
	if !ok {
		return nil
	}
	ui, err := d.object(raw, keyUserInterface)
	if err != nil {
		return err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"zoom", &p.ui.Zoom},
		{"last visited frame", &p.ui.LastVisitedFrame},
		{"mic search minimum", &p.ui.MicSearchMinimum},
		{"c match sequences minimum", &p.ui.CMatchSequencesMinimum},
	}
	for _, f := range ints {
		if raw, ok := ui[f.key]; ok {
			if *f.dst, err = d.integer(raw, f.key); err != nil {
				return err
			}
		}
	}
	for key, dst := range map[string]*string{"state": &p.ui.State, "geometry": &p.ui.Geometry} {
		if raw, ok := ui[key]; ok {
			if *dst, err = d.str(raw, key); err != nil {
				return err
			}
		}
	}

	if raw, ok := ui["show frame rates"]; ok {
		rates, err := d.array(raw, "show frame rates")
		if err != nil {
			return err
		}
		var shown []int
		for i, r := range rates {
			v, ok := asInt(r)
			if !ok {
				return d.errorf("element number %d of JSON key 'show frame rates' must be an integer", i)
			}
			shown = append(shown, v)
		}
		for i, rate := range FrameRates {
			p.ui.ShownFrameRates[i] = slices.Contains(shown, rate)
		}
	}

	if raw, ok := ui["pattern guessing"]; ok {
		if err := d.patternGuessing(p, raw); err != nil {
			return err
		}
	}

	if raw, ok := ui["bookmarks"]; ok {
		bookmarks, err := d.array(raw, "bookmarks")
		if err != nil {
			return err
		}
		for i, b := range bookmarks {
			o, ok := asObject(b)
			if !ok {
				return d.errorf("element number %d of JSON key 'bookmarks' must be an object", i)
			}
			var frame int
			var desc string
			if err := d.member(o, "frame", "bookmarks", i, "an integer", intInto(&frame)); err != nil {
				return err
			}
			if err := d.member(o, "description", "bookmarks", i, "a string", stringInto(&desc)); err != nil {
				return err
			}
			if err := p.AddBookmark(frame, desc); err != nil {
				return d.errorf("%v", err)
			}
		}
	}
	return nil
}

func (d *decoder) patternGuessing(p *Project, raw json.RawMessage) error {
	pg, err := d.object(raw, "pattern guessing")
	if err != nil {
		return err
	}
	g := &p.guessing
	g.Method = GuessFromMicsAndDMetrics
	g.ThirdNMatch = ThirdNMatchNever
	g.Decimation = DropFirstDuplicate

	if raw, ok := pg["method"]; ok {
		s, err := d.str(raw, "method")
		if err != nil {
			return err
		}
		g.Method = ParseGuessMethod(s)
	}
	if raw, ok := pg["minimum length"]; ok {
		if g.MinimumLength, err = d.integer(raw, "minimum length"); err != nil {
			return err
		}
	}
	if raw, ok := pg["use third n match"]; ok {
		s, err := d.str(raw, "use third n match")
		if err != nil {
			return err
		}
		g.ThirdNMatch = ParseThirdNMatch(s)
	}
	if raw, ok := pg["decimate"]; ok {
		s, err := d.str(raw, "decimate")
		if err != nil {
			return err
		}
		g.Decimation = ParseDropDuplicate(s)
	}
	if raw, ok := pg["use patterns"]; ok {
		names, err := d.array(raw, "use patterns")
		if err != nil {
			return err
		}
		bits := map[string]int{"cccnn": PatternCCCNN, "ccnnn": PatternCCNNN, "ccccc": PatternCCCCC}
		g.UsePatterns = 0
		for i, n := range names {
			s, ok := asString(n)
			if !ok {
				return d.errorf("element number %d of JSON key 'use patterns' must be a string", i)
			}
			g.UsePatterns |= bits[s]
		}
	}
	if raw, ok := pg["failures"]; ok {
		failures, err := d.array(raw, "failures")
		if err != nil {
			return err
		}
		for i, f := range failures {
			o, ok := asObject(f)
			if !ok {
				return d.errorf("element number %d of JSON key 'failures' must be an object", i)
			}
			var start int
			var reason string
			if err := d.member(o, "start", "failures", i, "an integer", intInto(&start)); err != nil {
				return err
			}
			if err := d.member(o, "reason", "failures", i, "a string", stringInto(&reason)); err != nil {
				return err
			}
			g.failures.put(Failure{Start: start, Reason: ParseFailureReason(reason)})
		}
	}
	return nil
}

func (d *decoder) parameters(key string, specs []paramSpec, ints map[string]int64, floats map[string]float64, bools map[string]bool) func(*Project, object) error {
	return func(_ *Project, root object) error {
		raw, ok := root[key]
		if !ok {
			return nil
		}
		params, err := d.object(raw, key)
		if err != nil {
			return err
		}
		for _, spec := range specs {
			raw, ok := params[spec.name]
			if !ok {
				continue
			}
			if d.version == 2 {
				var v float64
				if json.Unmarshal(raw, &v) != nil {
					return d.errorf("JSON key '%s', member of '%s', must be a number", spec.name, key)
				}
				switch spec.typ {
				case paramBool:
					bools[spec.name] = v != 0
				case paramInt:
					ints[spec.name] = int64(v)
				case paramDouble:
					floats[spec.name] = v
				}
				continue
			}

			switch {
			case spec.typ == paramBool && isBool(raw):
				var v bool
				_ = json.Unmarshal(raw, &v)
				bools[spec.name] = v
			case spec.typ == paramInt && isInteger(raw):
				var v int64
				_ = json.Unmarshal(raw, &v)
				ints[spec.name] = v
			case spec.typ == paramDouble && isDouble(raw):
				var v float64
				_ = json.Unmarshal(raw, &v)
				floats[spec.name] = v
			default:
				kind := map[paramType]string{paramBool: "boolean", paramInt: "integer", paramDouble: "double"}[spec.typ]
				return d.errorf("JSON key '%s', member of '%s', must be a %s", spec.name, key, kind)
			}
		}
		return nil
	}
}

func (d *decoder) metrics(p *Project, root object) error {
	n := p.sourceFrames
	if raw, ok := root[keyMics]; ok {
		rows, ok := asArray(raw)
		if !ok || len(rows) != n {
			return d.errorf("JSON key '%s' must be an array with exactly %d elements", keyMics, n)
		}
		p.mics = make([][5]int, n)
		for i, row := range rows {
			var v [5]int64
			if !asIntArray(row, v[:]) {
				return d.errorf("element number %d of JSON key '%s' must be an array of exactly 5 integers", i, keyMics)
			}
			for j := range v {
				p.mics[i][j] = int(v[j])
			}
		}
	}
	for _, m := range []struct {
		key string
		dst *[][2]int
	}{{keyMMetrics, &p.mmetrics}, {keyVMetrics, &p.vmetrics}} {
		raw, ok := root[m.key]
		if !ok {
			continue
		}
		rows, ok := asArray(raw)
		if !ok || len(rows) != n {
			return d.errorf("JSON key '%s' must be an array with exactly %d elements", m.key, n)
		}
		out := make([][2]int, n)
		for i, row := range rows {
			var v [2]int64
			if !asIntArray(row, v[:]) {
				return d.errorf("element number %d of JSON key '%s' must be an array of exactly 2 integers", i, m.key)
			}
			out[i] = [2]int{int(v[0]), int(v[1])}
		}
		*m.dst = out
	}
	if raw, ok := root[keyDecimateMetrics]; ok {
		rows, ok := asArray(raw)
		if !ok || len(rows) != n {
			return d.errorf("JSON key '%s' must be an array with exactly %d elements", keyDecimateMetrics, n)
		}
		p.decimateMetrics = make([]int, n)
		for i, row := range rows {
			v, ok := asInt(row)
			if !ok {
				return d.errorf("element number %d of JSON key '%s' must be an integer", i, keyDecimateMetrics)
			}
			p.decimateMetrics[i] = v
		}
	}
	return nil
}

func (d *decoder) matches(p *Project, root object) error {
	n := p.sourceFrames
	for _, m := range []struct {
		key string
		dst *[]byte
	}{{keyMatches, &p.matches}, {keyOriginalMatches, &p.originalMatches}} {
		raw, ok := root[m.key]
		if !ok {
			continue
		}
		rows, ok := asArray(raw)
		if !ok || len(rows) != n {
			return d.errorf("JSON key '%s' must be an array with exactly %d elements", m.key, n)
		}
		out := make([]byte, n)
		for i, row := range rows {
			s, ok := asString(row)
			if !ok || len(s) != 1 {
				return d.errorf("element number %d of JSON key '%s' must be a string with the length of 1", i, m.key)
			}
			if !IsValidMatch(s[0]) {
				return d.errorf("element number %d of JSON key '%s' must be one of 'p', 'c', 'n', 'b', or 'u'", i, m.key)
			}
			out[i] = s[0]
		}
		*m.dst = out
	}
	return nil
}

func (d *decoder) frameLists(p *Project, root object) error {
	n := p.sourceFrames
	for _, l := range []struct {
		key string
		add func(int) error
	}{{keyCombedFrames, p.AddCombedFrame}, {keyDecimatedFrames, p.AddDecimated}} {
		raw, ok := root[l.key]
		if !ok {
			continue
		}
		rows, ok := asArray(raw)
		if !ok || len(rows) > n {
			return d.errorf("JSON key '%s' must be an array with at most %d elements", l.key, n)
		}
		for i, row := range rows {
			v, ok := asInt(row)
			if !ok {
				return d.errorf("element number %d of JSON key '%s' must be an integer", i, l.key)
			}
			if err := l.add(v); err != nil {
				return d.errorf("%v", err)
			}
		}
	}
	return nil
}

func (d *decoder) presets(p *Project, root object) error {
	raw, ok := root[keyPresets]
	if !ok {
		return nil
	}
	presets, err := d.array(raw, keyPresets)
	if err != nil {
		return err
	}
	for i, pr := range presets {
		o, ok := asObject(pr)
		if !ok {
			return d.errorf("element number %d of JSON key '%s' must be an object", i, keyPresets)
		}
		var name, contents string
		if err := d.member(o, "name", keyPresets, i, "a string", stringInto(&name)); err != nil {
			return err
		}
		if err := d.member(o, "contents", keyPresets, i, "a string", stringInto(&contents)); err != nil {
			return err
		}
		if err := p.AddPreset(name, contents); err != nil {
			return d.errorf("%v", err)
		}
	}
	return nil
}

func (d *decoder) frozenFrames(p *Project, root object) error {
	raw, ok := root[keyFrozenFrames]
	if !ok {
		return nil
	}
	frozen, err := d.array(raw, keyFrozenFrames)
	if err != nil {
		return err
	}
	for i, f := range frozen {
		var v [3]int64
		if !asIntArray(f, v[:]) {
			return d.errorf("element number %d of JSON key '%s' must be an array of three integers", i, keyFrozenFrames)
		}
		if err := p.AddFreezeFrame(int(v[0]), int(v[1]), int(v[2])); err != nil {
			return d.errorf("%v", err)
		}
	}
	return nil
}

func (d *decoder) sections(p *Project, root object) error {
	raw, ok := root[keySections]
	if !ok {
		return nil
	}
	sections, err := d.array(raw, keySections)
	if err != nil {
		return err
	}
	for i, s := range sections {
		o, ok := asObject(s)
		if !ok {
			return d.errorf("element number %d of JSON key '%s' must be an object", i, keySections)
		}
		var section Section
		if err := d.member(o, "start", keySections, i, "an integer", intInto(&section.Start)); err != nil {
			return err
		}
		if raw, ok := o["presets"]; ok {
			names, ok := asArray(raw)
			if !ok {
				return d.errorf("JSON key 'presets', member of element number %d of JSON key '%s', must be an array", i, keySections)
			}
			for k, n := range names {
				name, ok := asString(n)
				if !ok {
					return d.errorf("element number %d of JSON key 'presets', part of element number %d of key '%s', must be a string", k, i, keySections)
				}
				section.Presets = append(section.Presets, name)
			}
		}
		if err := p.addSection(section); err != nil {
			return d.errorf("%v", err)
		}
	}
	return nil
}

func (d *decoder) customLists(p *Project, root object) error {
	raw, ok := root[keyCustomLists]
	if !ok {
		return nil
	}
	lists, err := d.array(raw, keyCustomLists)
	if err != nil {
		return err
	}
	for i, l := range lists {
		o, ok := asObject(l)
		if !ok {
			return d.errorf("element number %d of JSON key '%s' must be an object", i, keyCustomLists)
		}
		var name, preset string
		if err := d.member(o, "name", keyCustomLists, i, "a string", stringInto(&name)); err != nil {
			return err
		}
		if raw, ok := o["preset"]; ok {
			if preset, ok = asString(raw); !ok {
				return d.errorf("JSON key 'preset', member of element number %d of JSON key '%s', must be a string", i, keyCustomLists)
			}
		}

		pos := PostSource
		if d.version == 1 {
			var v int
			if err := d.member(o, "position", keyCustomLists, i, "an integer", intInto(&v)); err != nil {
				return err
			}
			pos = Position(v)
		} else {
			var s string
			if err := d.member(o, "position", keyCustomLists, i, "a string", stringInto(&s)); err != nil {
				return err
			}
			pos = ParsePosition(s)
		}

		if err := p.AddCustomList(name, preset, pos); err != nil {
			return d.errorf("%v", err)
		}
		index := len(p.lists) - 1

		raw, ok := o["frames"]
		if !ok {
			continue
		}
		frames, ok := asArray(raw)
		if !ok {
			return d.errorf("JSON key 'frames', member of element number %d of JSON key '%s', must be an array", i, keyCustomLists)
		}
		for j, f := range frames {
			var r [2]int64
			if !asIntArray(f, r[:]) {
				return d.errorf("element number %d of JSON key 'frames', member of element number %d of JSON key '%s', must be an array of two integers", j, i, keyCustomLists)
			}
			if err := p.AddCustomListRange(index, int(r[0]), int(r[1])); err != nil {
				return d.errorf("%v", err)
			}
		}
	}
	return nil
}

func (d *decoder) outputSettings(p *Project, root object) error {
	p.resize = Resize{Width: p.width, Height: p.height, Filter: DefaultResizeFilter}
	if raw, ok := root[keyResize]; ok {
		o, err := d.object(raw, keyResize)
		if err != nil {
			return err
		}
		p.resize.Enabled = true
		for _, f := range []struct {
			key, kind string
			conv      func(json.RawMessage) bool
		}{
			{"width", "an integer", intInto(&p.resize.Width)},
			{"height", "an integer", intInto(&p.resize.Height)},
			{"filter", "a string", stringInto(&p.resize.Filter)},
		} {
			if raw, ok := o[f.key]; !ok || !f.conv(raw) {
				return d.errorf("JSON key '%s' must contain the key '%s', which must be %s", keyResize, f.key, f.kind)
			}
		}
	}

	if raw, ok := root[keyCrop]; ok {
		o, err := d.object(raw, keyCrop)
		if err != nil {
			return err
		}
		p.crop.Enabled = true
		for _, f := range []struct {
			key, kind string
			conv      func(json.RawMessage) bool
		}{
			{"early", "a boolean", boolInto(&p.crop.Early)},
			{"left", "an integer", intInto(&p.crop.Left)},
			{"top", "an integer", intInto(&p.crop.Top)},
			{"right", "an integer", intInto(&p.crop.Right)},
			{"bottom", "an integer", intInto(&p.crop.Bottom)},
		} {
			if raw, ok := o[f.key]; !ok || !f.conv(raw) {
				return d.errorf("JSON key '%s' must contain the key '%s', which must be %s", keyCrop, f.key, f.kind)
			}
		}
	}

	if raw, ok := root[keyDepth]; ok {
		o, err := d.object(raw, keyDepth)
		if err != nil {
			return err
		}
		p.depth.Enabled = true
		for _, f := range []struct {
			key, kind string
			conv      func(json.RawMessage) bool
		}{
			{"bits", "an integer", intInto(&p.depth.Bits)},
			{"float samples", "a boolean", boolInto(&p.depth.FloatSamples)},
			{"dither", "a string", stringInto(&p.depth.Dither)},
		} {
			if raw, ok := o[f.key]; !ok || !f.conv(raw) {
				return d.errorf("JSON key '%s' must contain the key '%s', which must be %s", keyDepth, f.key, f.kind)
			}
		}
	}
	return nil
}

func (d *decoder) interlacedFades(p *Project, root object) error {
	raw, ok := root[keyInterlacedFades]
	if !ok {
		return nil
	}
	fades, err := d.array(raw, keyInterlacedFades)
	if err != nil {
		return err
	}
	for i, f := range fades {
		o, ok := asObject(f)
		if !ok {
			return d.errorf("element number %d of JSON key '%s' must be an object", i, keyInterlacedFades)
		}
		var fade InterlacedFade
		if err := d.member(o, "frame", keyInterlacedFades, i, "an integer", intInto(&fade.Frame)); err != nil {
			return err
		}
		if err := d.member(o, "field difference", keyInterlacedFades, i, "a number", floatInto(&fade.FieldDifference)); err != nil {
			return err
		}
		p.fades.put(fade)
	}
	return nil
}
