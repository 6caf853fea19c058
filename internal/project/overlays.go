package project

// AddFreezeFrame replaces [first, last] with the replacement frame. Freeze
// frame ranges never overlap.
func (p *Project) AddFreezeFrame(first, last, replacement int) error {
	if first > last {
		first, last = last, first
	}
	n := p.sourceFrames
	if first < 0 || first >= n || last < 0 || last >= n || replacement < 0 || replacement >= n {
		return rangeErrorf("can't add FreezeFrame (%d,%d,%d): values out of range", first, last, replacement)
	}
	if ff, ok := overlapping(p.frozen, first, last, func(f FreezeFrame) int { return f.Last }); ok {
		return conflictErrorf("can't add FreezeFrame (%d,%d,%d): overlaps (%d,%d,%d)", first, last, replacement, ff.First, ff.Last, ff.Replacement)
	}
	p.frozen.put(FreezeFrame{First: first, Last: last, Replacement: replacement})
	p.SetModified(true)
	return nil
}

// DeleteFreezeFrame removes the freeze frame starting at first, if any.
func (p *Project) DeleteFreezeFrame(first int) {
	if p.frozen.remove(first) {
		p.SetModified(true)
	}
}

// FindFreezeFrame returns the freeze frame covering frame.
func (p *Project) FindFreezeFrame(frame int) (FreezeFrame, bool) {
	ff, ok := p.frozen.floor(frame)
	if !ok || frame > ff.Last {
		return FreezeFrame{}, false
	}
	return ff, true
}

// FreezeFrames returns every freeze frame in ascending order.
func (p *Project) FreezeFrames() []FreezeFrame { return p.frozen.clone() }

// AddBookmark marks a frame, replacing any existing description.
func (p *Project) AddBookmark(frame int, description string) error {
	if err := p.checkFrame(frame, "add a bookmark at"); err != nil {
		return err
	}
	p.bookmarks.put(Bookmark{Frame: frame, Description: description})
	p.SetModified(true)
	return nil
}

func (p *Project) DeleteBookmark(frame int) error {
	if !p.bookmarks.remove(frame) {
		return referenceErrorf("can't delete bookmark at frame %d: no such bookmark", frame)
	}
	p.SetModified(true)
	return nil
}

// Bookmarks returns every bookmark in ascending order.
func (p *Project) Bookmarks() []Bookmark { return p.bookmarks.clone() }

// FindPreviousBookmark returns the closest bookmark before frame, or frame
// itself when there is none.
func (p *Project) FindPreviousBookmark(frame int) int {
	if i := p.bookmarks.lowerBound(frame); i > 0 {
		return p.bookmarks[i-1].Frame
	}
	return frame
}

// FindNextBookmark returns the closest bookmark after frame, or frame.
func (p *Project) FindNextBookmark(frame int) int {
	if i := p.bookmarks.upperBound(frame); i < len(p.bookmarks) {
		return p.bookmarks[i].Frame
	}
	return frame
}

func (p *Project) AddCombedFrame(frame int) error {
	if err := p.checkFrame(frame, "mark as combed"); err != nil {
		return err
	}
	p.combed.add(frame)
	p.SetModified(true)
	return nil
}

func (p *Project) DeleteCombedFrame(frame int) {
	if p.combed.remove(frame) {
		p.SetModified(true)
	}
}

func (p *Project) IsCombedFrame(frame int) bool { return p.combed.has(frame) }

func (p *Project) ClearCombedFrames() {
	p.combed = nil
	p.SetModified(true)
}

// CombedFrames returns the combed frames in ascending order.
func (p *Project) CombedFrames() []int { return append([]int(nil), p.combed...) }

// FindPreviousCombedFrame returns the closest combed frame before frame, or
// frame itself.
func (p *Project) FindPreviousCombedFrame(frame int) int { return p.combed.previous(frame) }

// FindNextCombedFrame returns the closest combed frame after frame, or
// frame itself.
func (p *Project) FindNextCombedFrame(frame int) int { return p.combed.next(frame) }

// AddInterlacedFade records the field difference of a fading frame.
func (p *Project) AddInterlacedFade(frame int, fieldDifference float64) error {
	if err := p.checkFrame(frame, "add an interlaced fade at"); err != nil {
		return err
	}
	p.fades.put(InterlacedFade{Frame: frame, FieldDifference: fieldDifference})
	p.SetModified(true)
	return nil
}

func (p *Project) InterlacedFades() []InterlacedFade { return p.fades.clone() }

// UpdateOrphanFields recomputes the orphan field overlay for every section.
func (p *Project) UpdateOrphanFields() {
	p.orphans = nil
	for i, s := range p.sections {
		end := p.sourceFrames
		if i+1 < len(p.sections) {
			end = p.sections[i+1].Start
		}
		if p.match(s.Start) == MatchN {
			p.orphans.put(OrphanField{Frame: s.Start, Match: MatchN, Decimated: p.IsDecimated(s.Start)})
		}
		if last := end - 1; p.match(last) == MatchB {
			p.orphans.put(OrphanField{Frame: last, Match: MatchB, Decimated: p.IsDecimated(last)})
		}
	}
}

func (p *Project) OrphanFields() []OrphanField { return p.orphans.clone() }

// FindNextAmbiguousPatternSection returns the start of the next section that
// pattern guessing failed on, or frame.
func (p *Project) FindNextAmbiguousPatternSection(frame int) int {
	if i := p.guessing.failures.upperBound(frame); i < len(p.guessing.failures) {
		return p.guessing.failures[i].Start
	}
	return frame
}

// FindPreviousAmbiguousPatternSection returns the start of the previous
// failed section, or frame.
func (p *Project) FindPreviousAmbiguousPatternSection(frame int) int {
	if i := p.guessing.failures.lowerBound(frame); i > 0 {
		return p.guessing.failures[i-1].Start
	}
	return frame
}
