package project

import "math/bits"

// IsDecimated reports whether a Source frame is dropped. Out of range frames
// are never dropped.
func (p *Project) IsDecimated(frame int) bool {
	if frame < 0 || frame >= p.sourceFrames {
		return false
	}
	return p.droppedOffset(frame/5, frame%5)
}

// AddDecimated drops a frame. Dropping a fifth frame from one cycle is
// ignored.
func (p *Project) AddDecimated(frame int) error {
	if err := p.checkFrame(frame, "decimate"); err != nil {
		return err
	}
	p.addDecimated(frame)
	p.SetModified(true)
	return nil
}

func (p *Project) addDecimated(frame int) {
	cycle, bit := frame/5, uint8(1)<<(frame%5)
	if bits.OnesCount8(p.decimated[cycle]) == 4 || p.decimated[cycle]&bit != 0 {
		return
	}
	p.decimated[cycle] |= bit
	p.decimatedFrames--
}

// DeleteDecimated keeps a previously dropped frame.
func (p *Project) DeleteDecimated(frame int) error {
	if err := p.checkFrame(frame, "undecimate"); err != nil {
		return err
	}
	p.deleteDecimated(frame)
	p.SetModified(true)
	return nil
}

func (p *Project) deleteDecimated(frame int) {
	cycle, bit := frame/5, uint8(1)<<(frame%5)
	if p.decimated[cycle]&bit == 0 {
		return
	}
	p.decimated[cycle] &^= bit
	p.decimatedFrames++
}

// DecimatedInCycle returns the dropped offsets of the cycle containing frame.
func (p *Project) DecimatedInCycle(frame int) ([]int, error) {
	if err := p.checkFrame(frame, "get the decimated frames in the cycle of"); err != nil {
		return nil, err
	}
	return offsets(p.decimated[frame/5]), nil
}

// ClearDecimatedCycle keeps every frame of the cycle containing frame.
func (p *Project) ClearDecimatedCycle(frame int) error {
	if err := p.checkFrame(frame, "clear the decimated frames in the cycle of"); err != nil {
		return err
	}
	cycle := frame / 5
	p.decimatedFrames += bits.OnesCount8(p.decimated[cycle])
	p.decimated[cycle] = 0
	p.SetModified(true)
	return nil
}

// DecimatedFrames lists every dropped frame in ascending order.
func (p *Project) DecimatedFrames() []int {
	var out []int
	for cycle, mask := range p.decimated {
		for _, off := range offsets(mask) {
			out = append(out, cycle*5+off)
		}
	}
	return out
}

// HasDecimation reports whether any frame is dropped.
func (p *Project) HasDecimation() bool {
	for _, mask := range p.decimated {
		if mask != 0 {
			return true
		}
	}
	return false
}

func offsets(mask uint8) []int {
	out := make([]int, 0, bits.OnesCount8(mask))
	for off := 0; off < 5; off++ {
		if mask&(1<<off) != 0 {
			out = append(out, off)
		}
	}
	return out
}

func (p *Project) recountDecimated() {
	n := p.sourceFrames
	for _, mask := range p.decimated {
		n -= bits.OnesCount8(mask)
	}
	p.decimatedFrames = n
}

// DecimationRanges splits the timeline wherever the number of dropped
// frames per cycle changes.
func (p *Project) DecimationRanges() []DecimationRange {
	var ranges []DecimationRange
	current := -1
	for cycle, mask := range p.decimated {
		n := bits.OnesCount8(mask)
		if n != current {
			current = n
			ranges = append(ranges, DecimationRange{Start: cycle * 5, NumDropped: n})
		}
	}
	return ranges
}

// DecimationPatternRanges splits the timeline wherever the set of dropped
// offsets changes.
func (p *Project) DecimationPatternRanges() []DecimationPatternRange {
	var ranges []DecimationPatternRange
	current := -1
	for cycle, mask := range p.decimated {
		if int(mask) != current {
			current = int(mask)
			ranges = append(ranges, DecimationPatternRange{Start: cycle * 5, DroppedOffsets: offsets(mask)})
		}
	}
	return ranges
}

// DecimateMetric returns the decimator's difference metric for a frame.
func (p *Project) DecimateMetric(frame int) (int, error) {
	if err := p.checkFrame(frame, "get the decimation metric for"); err != nil {
		return 0, err
	}
	if len(p.decimateMetrics) == 0 {
		return 0, nil
	}
	return p.decimateMetrics[frame], nil
}

func (p *Project) SetDecimateMetric(frame, metric int) error {
	if err := p.checkFrame(frame, "set the decimation metric for"); err != nil {
		return err
	}
	if len(p.decimateMetrics) == 0 {
		p.decimateMetrics = make([]int, p.sourceFrames)
	}
	p.decimateMetrics[frame] = metric
	p.SetModified(true)
	return nil
}
