package project

// Mics returns the field matcher's combing metric for each of the five
// matches of a frame, indexed p, c, n, b, u.
func (p *Project) Mics(frame int) ([5]int, error) {
	if err := p.checkFrame(frame, "get the mics for"); err != nil {
		return [5]int{}, err
	}
	return p.mic(frame), nil
}

func (p *Project) mic(frame int) [5]int {
	if len(p.mics) == 0 {
		return [5]int{}
	}
	return p.mics[frame]
}

// HasMics reports whether any mics were collected.
func (p *Project) HasMics() bool { return len(p.mics) > 0 }

func (p *Project) SetMics(frame int, mics [5]int) error {
	if err := p.checkFrame(frame, "set the mics for"); err != nil {
		return err
	}
	if len(p.mics) == 0 {
		p.mics = make([][5]int, p.sourceFrames)
	}
	p.mics[frame] = mics
	p.SetModified(true)
	return nil
}

// SetMMetrics stores the match metrics of a frame's two field pairings.
func (p *Project) SetMMetrics(frame int, m [2]int) error {
	if err := p.checkFrame(frame, "set the mmetrics for"); err != nil {
		return err
	}
	if len(p.mmetrics) == 0 {
		p.mmetrics = make([][2]int, p.sourceFrames)
	}
	p.mmetrics[frame] = m
	p.SetModified(true)
	return nil
}

// SetVMetrics stores the vertical difference metrics of a frame.
func (p *Project) SetVMetrics(frame int, m [2]int) error {
	if err := p.checkFrame(frame, "set the vmetrics for"); err != nil {
		return err
	}
	if len(p.vmetrics) == 0 {
		p.vmetrics = make([][2]int, p.sourceFrames)
	}
	p.vmetrics[frame] = m
	p.SetModified(true)
	return nil
}

// HasDMetrics reports whether match and vertical metrics were collected.
func (p *Project) HasDMetrics() bool { return len(p.mmetrics) > 0 && len(p.vmetrics) > 0 }

// MMetrics returns the match metric triple for a frame: both pairings of
// the frame itself and the first pairing of the next frame.
func (p *Project) MMetrics(frame int) ([3]int, error) {
	if err := p.checkFrame(frame, "get the mmetrics for"); err != nil {
		return [3]int{}, err
	}
	return triple(p.mmetrics, frame), nil
}

// VMetrics returns the vertical metric triple for a frame.
func (p *Project) VMetrics(frame int) ([3]int, error) {
	if err := p.checkFrame(frame, "get the vmetrics for"); err != nil {
		return [3]int{}, err
	}
	return triple(p.vmetrics, frame), nil
}

func triple(m [][2]int, frame int) [3]int {
	switch {
	case len(m) == 0:
		return [3]int{}
	case frame < len(m)-1:
		return [3]int{m[frame][0], m[frame][1], m[frame+1][0]}
	default:
		return [3]int{m[frame][0], m[frame][1], m[frame][1]}
	}
}

// PreviousFrameWithMic searches backwards from start for a frame whose mic,
// relative to its neighbours, is at least minimum. It returns -1 when there
// is none.
func (p *Project) PreviousFrameWithMic(minimum, start int) (int, error) {
	if err := p.checkFrame(start, "search for mics from"); err != nil {
		return -1, err
	}
	for i := start - 1; i >= 0; i-- {
		if p.peak(i, true, p.currentMic) >= minimum {
			return i, nil
		}
	}
	return -1, nil
}

// NextFrameWithMic searches forwards from start.
func (p *Project) NextFrameWithMic(minimum, start int) (int, error) {
	if err := p.checkFrame(start, "search for mics from"); err != nil {
		return -1, err
	}
	for i := start + 1; i < p.sourceFrames; i++ {
		if p.peak(i, false, p.currentMic) >= minimum {
			return i, nil
		}
	}
	return -1, nil
}

// PreviousFrameWithDMetric searches backwards using the vertical metrics.
func (p *Project) PreviousFrameWithDMetric(minimum, start int) (int, error) {
	if err := p.checkFrame(start, "search for dmetrics from"); err != nil {
		return -1, err
	}
	for i := start - 1; i >= 0; i-- {
		if p.peak(i, true, p.currentVMetric) >= minimum {
			return i, nil
		}
	}
	return -1, nil
}

// NextFrameWithDMetric searches forwards using the vertical metrics.
func (p *Project) NextFrameWithDMetric(minimum, start int) (int, error) {
	if err := p.checkFrame(start, "search for dmetrics from"); err != nil {
		return -1, err
	}
	for i := start + 1; i < p.sourceFrames; i++ {
		if p.peak(i, false, p.currentVMetric) >= minimum {
			return i, nil
		}
	}
	return -1, nil
}

func (p *Project) currentMic(frame int) int {
	return p.mic(frame)[matchIndex(p.match(frame))]
}

func (p *Project) currentVMetric(frame int) int {
	return triple(p.vmetrics, frame)[dmetricIndex(p.match(frame))]
}

// peak returns how far a frame's metric rises above both neighbours. At the
// end of the timeline in the search direction the raw metric is used.
func (p *Project) peak(i int, backwards bool, metric func(int) int) int {
	prevIdx := max(i-1, 0)
	nextIdx := min(i+1, p.sourceFrames-1)
	curr := metric(i)
	if (backwards && i == prevIdx) || (!backwards && i == nextIdx) {
		return curr
	}
	return min(curr-metric(prevIdx), curr-metric(nextIdx))
}
