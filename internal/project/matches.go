package project

func (p *Project) checkFrame(frame int, action string) error {
	if frame < 0 || frame >= p.sourceFrames {
		return rangeErrorf("can't %s frame %d: frame number out of range", action, frame)
	}
	return nil
}

// Match returns the match of a frame, falling back to the original match
// and then to 'c' when no edit was made.
func (p *Project) Match(frame int) (byte, error) {
	if err := p.checkFrame(frame, "get the match for"); err != nil {
		return 0, err
	}
	return p.match(frame), nil
}

func (p *Project) match(frame int) byte {
	if len(p.matches) > 0 {
		return p.matches[frame]
	}
	if len(p.originalMatches) > 0 {
		return p.originalMatches[frame]
	}
	return MatchC
}

// Matches returns the edited matches, or nil when none were set.
func (p *Project) Matches() []byte { return append([]byte(nil), p.matches...) }

// OriginalMatches returns the matches produced by the metrics pass.
func (p *Project) OriginalMatches() []byte { return append([]byte(nil), p.originalMatches...) }

// HasMatches reports whether edited or original matches exist.
func (p *Project) HasMatches() bool {
	return len(p.matches) > 0 || len(p.originalMatches) > 0
}

// boundaryMatch substitutes symbols that are impossible at the first and
// last frames.
func (p *Project) boundaryMatch(frame int, m byte) byte {
	if frame == 0 {
		switch m {
		case MatchB:
			return MatchN
		case MatchP:
			return MatchU
		}
	} else if frame == p.sourceFrames-1 {
		switch m {
		case MatchN:
			return MatchB
		case MatchU:
			return MatchP
		}
	}
	return m
}

// SetMatch stores the match for a frame.
func (p *Project) SetMatch(frame int, m byte) error {
	if err := p.checkFrame(frame, "set the match for"); err != nil {
		return err
	}
	if !IsValidMatch(m) {
		return validationErrorf("can't set the match for frame %d: '%c' is not a valid match character", frame, m)
	}
	p.setMatch(frame, m)
	p.SetModified(true)
	return nil
}

func (p *Project) setMatch(frame int, m byte) {
	if len(p.matches) == 0 {
		seed := make([]byte, p.sourceFrames)
		for i := range seed {
			seed[i] = p.originalMatch(i)
		}
		p.matches = seed
	}
	p.matches[frame] = p.boundaryMatch(frame, m)
}

// SetOriginalMatch stores a match reported by the field matcher.
func (p *Project) SetOriginalMatch(frame int, m byte) error {
	if err := p.checkFrame(frame, "set the original match for"); err != nil {
		return err
	}
	if !IsValidMatch(m) {
		return validationErrorf("can't set the original match for frame %d: '%c' is not a valid match character", frame, m)
	}
	if len(p.originalMatches) == 0 {
		p.originalMatches = make([]byte, p.sourceFrames)
		for i := range p.originalMatches {
			p.originalMatches[i] = MatchC
		}
	}
	p.originalMatches[frame] = m
	p.SetModified(true)
	return nil
}

// OriginalMatch returns the field matcher's decision for a frame.
func (p *Project) OriginalMatch(frame int) (byte, error) {
	if err := p.checkFrame(frame, "get the original match for"); err != nil {
		return 0, err
	}
	if len(p.originalMatches) == 0 {
		return MatchC, nil
	}
	return p.originalMatches[frame], nil
}

func (p *Project) originalMatch(frame int) byte {
	if len(p.originalMatches) == 0 {
		return MatchC
	}
	return p.originalMatches[frame]
}

// CycleMatchCNB rotates a frame's match through c, n, b.
func (p *Project) CycleMatchCNB(frame int) error {
	if err := p.checkFrame(frame, "cycle the match for"); err != nil {
		return err
	}
	m := p.match(frame)
	for {
		switch m {
		case MatchC:
			m = MatchN
		case MatchN:
			m = MatchB
		default:
			m = MatchC
		}
		if frame == 0 && m == MatchB {
			continue
		}
		if frame == p.sourceFrames-1 && m == MatchN {
			continue
		}
		break
	}
	p.setMatch(frame, m)
	p.SetModified(true)
	return nil
}

// CycleMatch rotates a frame's match through c, n, b, p, u.
func (p *Project) CycleMatch(frame int) error {
	if err := p.checkFrame(frame, "cycle the match for"); err != nil {
		return err
	}
	m := p.match(frame)
	for {
		switch m {
		case MatchC:
			m = MatchN
		case MatchN:
			m = MatchB
		case MatchB:
			m = MatchP
		case MatchP:
			m = MatchU
		default:
			m = MatchC
		}
		if frame == 0 && (m == MatchB || m == MatchP) {
			continue
		}
		if frame == p.sourceFrames-1 && (m == MatchN || m == MatchU) {
			continue
		}
		break
	}
	p.setMatch(frame, m)
	p.SetModified(true)
	return nil
}

func (p *Project) orderedRange(start, end int, action string) (int, int, error) {
	if start > end {
		start, end = end, start
	}
	if start < 0 || end >= p.sourceFrames {
		return 0, 0, rangeErrorf("can't %s range (%d,%d): values out of range", action, start, end)
	}
	return start, end, nil
}

// ResetRangeMatches restores the original matches of [start, end], or 'c'
// where there are none.
func (p *Project) ResetRangeMatches(start, end int) error {
	start, end, err := p.orderedRange(start, end, "reset the matches for")
	if err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		p.setMatch(i, p.originalMatch(i))
	}
	p.SetModified(true)
	return nil
}

// ResetSectionMatches resets the matches of the section containing frame.
func (p *Project) ResetSectionMatches(frame int) error {
	start, end, err := p.sectionSpan(frame)
	if err != nil {
		return err
	}
	return p.ResetRangeMatches(start, end-1)
}

// SetRangeMatchesFromPattern applies a 5 character match pattern, indexed by
// frame%5, to [start, end].
func (p *Project) SetRangeMatchesFromPattern(start, end int, pattern string) error {
	start, end, err := p.orderedRange(start, end, "apply match pattern to")
	if err != nil {
		return err
	}
	if err := checkPattern(pattern, func(c byte) bool { return IsValidMatch(c) }); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		m := pattern[i%5]
		if i == 0 && (m == MatchP || m == MatchB) {
			continue
		}
		if i == p.sourceFrames-1 && (m == MatchN || m == MatchU) {
			if m == MatchN {
				p.setMatch(i, MatchB)
			}
			continue
		}
		if i == end && m == MatchN {
			m = MatchB
		}
		p.setMatch(i, m)
	}
	p.SetModified(true)
	return nil
}

// SetSectionMatchesFromPattern applies a match pattern to the section
// containing frame.
func (p *Project) SetSectionMatchesFromPattern(frame int, pattern string) error {
	start, end, err := p.sectionSpan(frame)
	if err != nil {
		return err
	}
	return p.SetRangeMatchesFromPattern(start, end-1, pattern)
}

// SetRangeDecimationFromPattern drops every frame of [start, end] whose
// frame%5 position holds 'd' and keeps the others.
func (p *Project) SetRangeDecimationFromPattern(start, end int, pattern string) error {
	start, end, err := p.orderedRange(start, end, "apply decimation pattern to")
	if err != nil {
		return err
	}
	if err := checkPattern(pattern, func(byte) bool { return true }); err != nil {
		return err
	}
	for i := start; i <= end; i++ {
		if pattern[i%5] == 'd' {
			p.addDecimated(i)
		} else {
			p.deleteDecimated(i)
		}
	}
	p.SetModified(true)
	return nil
}

// SetSectionDecimationFromPattern applies a decimation pattern to the
// section containing frame.
func (p *Project) SetSectionDecimationFromPattern(frame int, pattern string) error {
	start, end, err := p.sectionSpan(frame)
	if err != nil {
		return err
	}
	return p.SetRangeDecimationFromPattern(start, end-1, pattern)
}

func checkPattern(pattern string, valid func(byte) bool) error {
	if len(pattern) != 5 {
		return validationErrorf("pattern '%s' must be exactly 5 characters long", pattern)
	}
	for i := 0; i < len(pattern); i++ {
		if !valid(pattern[i]) {
			return validationErrorf("pattern '%s' contains the invalid character '%c'", pattern, pattern[i])
		}
	}
	return nil
}

// CMatchSequences returns runs of consecutive 'c' matches at least minimum
// frames long, keyed by their first frame.
func (p *Project) CMatchSequences(minimum int) map[int]int {
	seqs := map[int]int{}
	src := p.matches
	if len(src) == 0 {
		src = p.originalMatches
	}

	start, length := 0, 0
	for i, m := range src {
		if m == MatchC {
			if length == 0 {
				start = i
			}
			length++
			continue
		}
		if length >= minimum {
			seqs[start] = length
		}
		length = 0
	}
	if len(src) == 0 {
		length = p.sourceFrames
	}
	if length > 0 && length >= minimum {
		seqs[start] = length
	}
	return seqs
}
