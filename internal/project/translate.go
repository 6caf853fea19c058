package project

import "math/bits"

// SourceFrameCount returns the number of frames after trimming.
func (p *Project) SourceFrameCount() int { return p.sourceFrames }

// DecimatedFrameCount returns the number of frames left after decimation.
func (p *Project) DecimatedFrameCount() int { return p.decimatedFrames }

// FrameCount returns the frame count at a position in the filter chain.
func (p *Project) FrameCount(pos Position) int {
	if pos == PostDecimate {
		return p.decimatedFrames
	}
	return p.sourceFrames
}

// ToDecimated converts a Source frame to its Decimated index. A dropped
// frame maps to the next kept frame, except at the very end where it maps
// to the previous one. Out of range input clamps to the ends.
func (p *Project) ToDecimated(frame int) int {
	if frame < 0 {
		return 0
	}
	if frame >= p.sourceFrames {
		return p.decimatedFrames
	}

	cycle := frame / 5
	out := cycle * 5
	for i := 0; i < cycle; i++ {
		out -= bits.OnesCount8(p.decimated[i])
	}
	for off := 0; off < frame%5; off++ {
		if !p.droppedOffset(cycle, off) {
			out++
		}
	}

	if frame == p.sourceFrames-1 && p.IsDecimated(frame) {
		out--
	}
	return out
}

// ToSource converts a Decimated index back to Source space. Out of range
// input clamps to the first or last kept frame.
func (p *Project) ToSource(frame int) int {
	if frame < 0 {
		frame = 0
	}
	if frame >= p.decimatedFrames {
		frame = p.decimatedFrames - 1
	}

	for cycle := range p.decimated {
		for off := 0; off < 5; off++ {
			if p.droppedOffset(cycle, off) {
				continue
			}
			frame--
			if frame == -1 {
				return cycle*5 + off
			}
		}
	}
	return 0
}

func (p *Project) droppedOffset(cycle, offset int) bool {
	return p.decimated[cycle]&(1<<offset) != 0
}
