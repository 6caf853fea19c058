package export

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/heimdex/ivtc-agent/internal/project"
)

// Header values written at the top of every generated script.
var (
	GeneratorName    = "ivtc-agent"
	GeneratorVersion = "dev"
	GeneratorURL     = "https://github.com/heimdex/ivtc-agent"
)

// DecimationFunction selects how dropped frames are removed in the final
// script.
type DecimationFunction int

const (
	DecimationAuto DecimationFunction = iota
	DecimationDeleteFrames
	DecimationSelectEvery
)

var decimationNames = []string{"auto", "deleteframes", "selectevery"}

func (d DecimationFunction) String() string {
	if d < 0 || int(d) >= len(decimationNames) {
		return "unknown"
	}
	return decimationNames[d]
}

var ErrUnknownDecimation = errors.New("unknown decimation function")

// ParseDecimationFunction accepts the names printed by String.
func ParseDecimationFunction(s string) (DecimationFunction, error) {
	if i := slices.Index(decimationNames, strings.ToLower(s)); i >= 0 {
		return DecimationFunction(i), nil
	}
	return DecimationAuto, fmt.Errorf("%w %q", ErrUnknownDecimation, s)
}

// ScriptOptions controls GenerateScript.
type ScriptOptions struct {
	// SaveSourceNode caches the source clip as output 1 so a previewer can
	// reuse it across reloads.
	SaveSourceNode bool
	Decimation     DecimationFunction
}

// ErrNoPreset is returned when a custom list with ranges has no preset.
var ErrNoPreset = errors.New("custom list has no preset assigned")

// GenerateScript renders the final processing script for p. The output is
// identical for identical project state.
func GenerateScript(p *project.Project, opts ScriptOptions) (string, error) {
	var b strings.Builder
	crop := p.Crop()

	writeHeader(&b)
	writePresets(&b, p)
	writeSource(&b, p, opts.SaveSourceNode)
	if crop.Enabled && crop.Early {
		writeCrop(&b, crop)
	}
	writeTrim(&b, p)
	if err := writeCustomLists(&b, p, project.PostSource); err != nil {
		return "", err
	}
	writeFieldHint(&b, p)
	if err := writeCustomLists(&b, p, project.PostFieldMatch); err != nil {
		return "", err
	}
	writeSections(&b, p)
	if len(p.FreezeFrames()) > 0 {
		writeFreezeFrames(&b, p)
	}
	if p.HasDecimation() {
		writeDecimation(&b, p, opts.Decimation)
	}
	if err := writeCustomLists(&b, p, project.PostDecimate); err != nil {
		return "", err
	}
	if crop.Enabled && !crop.Early {
		writeCrop(&b, crop)
	}
	resize, depth := p.Resize(), p.BitDepth()
	if resize.Enabled || depth.Enabled {
		writeResizeAndDepth(&b, resize, depth)
	}
	b.WriteString("src.set_output()\n")
	return b.String(), nil
}

// GenerateDisplayScript renders the preview script: field matching and
// optionally freeze frames, without presets or decimation.
func GenerateDisplayScript(p *project.Project) string {
	var b strings.Builder
	writeHeader(&b)
	writeSource(&b, p, true)
	writeTrim(&b, p)
	writeFieldHint(&b, p)
	if len(p.FreezeFrames()) > 0 && p.FreezeFramesWanted() {
		writeFreezeFrames(&b, p)
	}
	b.WriteString("src.set_output()\n")
	return b.String()
}

func writeHeader(b *strings.Builder) {
	fmt.Fprintf(b, "# Generated by %s v%s\n# %s\n\n", GeneratorName, GeneratorVersion, GeneratorURL)
	b.WriteString("import vapoursynth as vs\n\nc = vs.core\n\n")
}

func writePresets(b *strings.Builder, p *project.Project) {
	for _, preset := range p.Presets() {
		if inUse, _ := p.IsPresetInUse(preset.Name); !inUse {
			continue
		}
		fmt.Fprintf(b, "def preset_%s(clip):\n", preset.Name)
		for _, line := range strings.Split(preset.Contents, "\n") {
			b.WriteString("    " + line + "\n")
		}
		b.WriteString("    return clip\n\n\n")
	}
}

// quotePath renders path as a Python raw string literal. A raw literal
// can't hold a single quote, so quotes are spliced in as separate literals.
func quotePath(path string) string {
	return "r'" + strings.ReplaceAll(path, "'", `'"'"r'`) + "'"
}

func sourceArgs(filter string) string {
	if filter == "bs.VideoSource" {
		return ", rff=True, showprogress=False"
	}
	return ""
}

func writeSource(b *strings.Builder, p *project.Project, saveNode bool) {
	src := fmt.Sprintf("src = c.%s(%s%s)\n", p.SourceFilter(), quotePath(p.InputFile()), sourceArgs(p.SourceFilter()))
	if !saveNode {
		b.WriteString(src + "\n")
		return
	}
	b.WriteString("try:\n" +
		"    src = vs.get_output(index=1)\n" +
		"    if isinstance(src, vs.VideoOutputTuple):\n" +
		"        src = src[0]\n" +
		"except KeyError:\n" +
		"    " + src +
		"    src.set_output(index=1)\n" +
		"\n")
}

func writeTrim(b *strings.Builder, p *project.Project) {
	b.WriteString("src = c.std.Splice(clips=[")
	for _, t := range p.Trims() {
		fmt.Fprintf(b, "src[%d:%d],", t.First, t.Last+1)
	}
	b.WriteString("])\n\n")
}

func writeFieldHint(b *strings.Builder, p *project.Project) {
	matches := p.Matches()
	if len(matches) == 0 {
		matches = p.OriginalMatches()
	}
	if len(matches) == 0 {
		return
	}
	fmt.Fprintf(b, "src = c.fh.FieldHint(clip=src, tff=%d, matches='%s')\n\n", p.VFMOrder(), matches)
}

func writeFreezeFrames(b *strings.Builder, p *project.Project) {
	var first, last, replacement strings.Builder
	for _, ff := range p.FreezeFrames() {
		fmt.Fprintf(&first, "%d,", ff.First)
		fmt.Fprintf(&last, "%d,", ff.Last)
		fmt.Fprintf(&replacement, "%d,", ff.Replacement)
	}
	fmt.Fprintf(b, "src = c.std.FreezeFrames(clip=src, first=[%s], last=[%s], replacement=[%s])\n\n",
		first.String(), last.String(), replacement.String())
}

// writeSections splices one clip per run of sections sharing the same
// preset list.
func writeSections(b *strings.Builder, p *project.Project) {
	var merged []project.Section
	for _, s := range p.Sections() {
		if len(merged) > 0 && slices.Equal(merged[len(merged)-1].Presets, s.Presets) {
			continue
		}
		merged = append(merged, s)
	}

	splice := "src = c.std.Splice(mismatch=True, clips=["
	for i, s := range merged {
		name := "section" + strconv.Itoa(s.Start)
		b.WriteString(name + " = src")
		for _, preset := range s.Presets {
			fmt.Fprintf(b, "\n%s = preset_%s(%s)", name, preset, name)
		}
		fmt.Fprintf(b, "[%d:", s.Start)
		if i+1 < len(merged) {
			b.WriteString(strconv.Itoa(merged[i+1].Start))
		}
		b.WriteString("]\n")
		splice += name + ","
	}
	b.WriteString(splice + "])\n\n")
}

// translate converts a Source frame for a list at pos. Range ends are walked
// back over dropped frames first so they land on a kept frame.
func translate(p *project.Project, frame int, isEnd bool, pos project.Position) int {
	if pos != project.PostDecimate {
		return frame
	}
	if isEnd {
		for p.IsDecimated(frame) {
			frame--
		}
	}
	return p.ToDecimated(frame)
}

func writeCustomLists(b *strings.Builder, p *project.Project, pos project.Position) error {
	for _, cl := range p.CustomLists() {
		ranges := cl.Ranges()
		if cl.Position != pos || len(ranges) == 0 {
			continue
		}
		if cl.Preset == "" {
			return fmt.Errorf("custom list '%s': %w", cl.Name, ErrNoPreset)
		}

		name := "cl_" + cl.Name
		fmt.Fprintf(b, "%s = preset_%s(src)\n", name, cl.Preset)

		var splice strings.Builder
		splice.WriteString("src = c.std.Splice(mismatch=True, clips=[")

		first := translate(p, ranges[0].First, false, pos)
		if ranges[0].First > 0 {
			fmt.Fprintf(&splice, "src[0:%d],", first)
		}
		fmt.Fprintf(&splice, "%s[%d:%d],", name, first, translate(p, ranges[0].Last, true, pos)+1)

		for i := 1; i < len(ranges); i++ {
			prevLast := translate(p, ranges[i-1].Last, true, pos)
			curFirst := translate(p, ranges[i].First, false, pos)
			curLast := translate(p, ranges[i].Last, true, pos)
			if curFirst-prevLast > 1 {
				fmt.Fprintf(&splice, "src[%d:%d],", prevLast+1, curFirst)
			}
			fmt.Fprintf(&splice, "%s[%d:%d],", name, curFirst, curLast+1)
		}

		lastLast := translate(p, ranges[len(ranges)-1].Last, true, pos)
		if lastLast < translate(p, p.SourceFrameCount()-1, true, pos) {
			fmt.Fprintf(&splice, "src[%d:]", lastLast+1)
		}
		splice.WriteString("])\n\n")
		b.WriteString(splice.String())
	}
	return nil
}

var rateNames = [5]string{"30", "24", "18", "12", "6"}

func writeDecimation(b *strings.Builder, p *project.Project, fn DecimationFunction) {
	n := p.SourceFrameCount()

	var del strings.Builder
	ranges := p.DecimationRanges()
	var used [5]bool
	for _, r := range ranges {
		used[r.NumDropped] = true
	}
	for i, rate := range rateNames {
		if used[i] {
			fmt.Fprintf(&del, "r%s = c.std.AssumeFPS(clip=src, fpsnum=%s000, fpsden=1001)\n", rate, rate)
		}
	}
	del.WriteString("src = c.std.Splice(mismatch=True, clips=[")
	for i, r := range ranges {
		end := n
		if i+1 < len(ranges) {
			end = ranges[i+1].Start
		}
		fmt.Fprintf(&del, "r%s[%d:%d],", rateNames[r.NumDropped], r.Start, end)
	}
	del.WriteString("])\n")
	del.WriteString("src = c.std.DeleteFrames(clip=src, frames=[")
	for _, f := range p.DecimatedFrames() {
		fmt.Fprintf(&del, "%d,", f)
	}
	del.WriteString("])\n\n")

	var sel strings.Builder
	patterns := p.DecimationPatternRanges()
	splice := "src = c.std.Splice(mismatch=True, clips=["
	for i, r := range patterns {
		end := n
		if i+1 < len(patterns) {
			end = patterns[i+1].Start
		}
		if len(r.DroppedOffsets) == 0 {
			splice += fmt.Sprintf("src[%d:%d],", r.Start, end)
			continue
		}
		// A short trailing range with every frame dropped would produce an
		// empty clip.
		if end-r.Start <= len(r.DroppedOffsets) {
			break
		}
		name := "dec" + strconv.Itoa(r.Start)
		fmt.Fprintf(&sel, "%s = c.std.SelectEvery(clip=src[%d:%d], cycle=5, offsets=[", name, r.Start, end)
		for off := 0; off < 5; off++ {
			if !slices.Contains(r.DroppedOffsets, off) {
				fmt.Fprintf(&sel, "%d,", off)
			}
		}
		sel.WriteString("])\n")
		splice += name + ","
	}
	sel.WriteString("\n" + splice + "])\n\n")

	if fn == DecimationDeleteFrames || (fn == DecimationAuto && del.Len() < sel.Len()) {
		b.WriteString(del.String())
	} else {
		b.WriteString(sel.String())
	}
}

func writeCrop(b *strings.Builder, c project.Crop) {
	fmt.Fprintf(b, "src = c.std.CropRel(clip=src, left=%d, top=%d, right=%d, bottom=%d)\n\n", c.Left, c.Top, c.Right, c.Bottom)
}

func writeResizeAndDepth(b *strings.Builder, r project.Resize, d project.Depth) {
	b.WriteString("src = c.resize.")
	if r.Enabled && r.Filter != "" {
		b.WriteString(strings.ToUpper(r.Filter[:1]) + r.Filter[1:])
	} else {
		b.WriteString("Bicubic")
	}
	b.WriteString("(clip=src")
	if r.Enabled {
		fmt.Fprintf(b, ", width=%d, height=%d", r.Width, r.Height)
	}
	if d.Enabled {
		sample := "vs.INTEGER"
		if d.FloatSamples {
			sample = "vs.FLOAT"
		}
		fmt.Fprintf(b, ", format=c.query_video_format(src.format.color_family, %s, %d, src.format.subsampling_w, src.format.subsampling_h).id", sample, d.Bits)
	}
	b.WriteString(")\n\n")
}
