package export

import (
	"fmt"
	"strings"

	"github.com/heimdex/ivtc-agent/internal/project"
)

var rateNumerators = [5]int{30000, 24000, 18000, 12000, 6000}

// GenerateTimecodesV1 renders a v1 timecode file for the decimated clip.
// 24 fps is the assumed rate; every range at another rate gets a line.
func GenerateTimecodesV1(p *project.Project) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# timecode format v1\nAssume %.12f\n", 24000/1001.0)

	ranges := p.DecimationRanges()
	for i, r := range ranges {
		num := rateNumerators[r.NumDropped]
		if num == 24000 {
			continue
		}
		end := p.SourceFrameCount()
		if i+1 < len(ranges) {
			end = ranges[i+1].Start
		}
		fmt.Fprintf(&b, "%d,%d,%.12f\n", p.ToDecimated(r.Start), p.ToDecimated(end)-1, float64(num)/1001)
	}
	return b.String()
}

// GenerateKeyframesV1 renders a v1 keyframe file with one keyframe at the
// start of every section.
func GenerateKeyframesV1(p *project.Project) string {
	var b strings.Builder
	b.WriteString("# keyframe format v1\nfps 0\n")
	for _, s := range p.Sections() {
		fmt.Fprintf(&b, "%d\n", p.ToDecimated(s.Start))
	}
	return b.String()
}

// FrameToTime formats the presentation time of a Source frame at num/den
// frames per second as HH:MM:SS.mmm.
func FrameToTime(frame int, num, den int64) string {
	if num <= 0 || den <= 0 || frame < 0 {
		return "00:00:00.000"
	}
	f := int64(frame)
	ms := (f * den * 1000 / num) % 1000
	total := f * den / num
	return fmt.Sprintf("%02d:%02d:%02d.%03d", total/3600, (total/60)%60, total%60, ms)
}
