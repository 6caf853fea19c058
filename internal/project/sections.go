package project

// AddSection starts a new section at start. A section already starting there
// is left alone, presets included.
func (p *Project) AddSection(start int) error {
	return p.addSection(Section{Start: start})
}

func (p *Project) addSection(s Section) error {
	if s.Start < 0 || s.Start >= p.sourceFrames {
		return rangeErrorf("can't add section starting at %d: value out of range", s.Start)
	}
	if p.sections.has(s.Start) {
		return nil
	}
	p.sections.put(s.clone())
	p.SetModified(true)
	return nil
}

// DeleteSection merges the section starting at start into its predecessor.
// The first section can't be deleted.
func (p *Project) DeleteSection(start int) error {
	if start < 0 || start >= p.sourceFrames {
		return rangeErrorf("can't delete section starting at %d: value out of range", start)
	}
	if !p.sections.has(start) {
		return referenceErrorf("can't delete section starting at %d: no such section", start)
	}
	if start == 0 {
		return conflictErrorf("can't delete the first section")
	}
	p.sections.remove(start)
	p.SetModified(true)
	return nil
}

// FindSection returns the section a frame belongs to.
func (p *Project) FindSection(frame int) (Section, error) {
	if err := p.checkFrame(frame, "find the section of"); err != nil {
		return Section{}, err
	}
	s, _ := p.sections.floor(frame)
	return s.clone(), nil
}

// FindNextSection returns the section after the one containing frame.
// ok is false in the last section.
func (p *Project) FindNextSection(frame int) (s Section, ok bool, err error) {
	if err := p.checkFrame(frame, "find the section after"); err != nil {
		return Section{}, false, err
	}
	i := p.sections.upperBound(frame)
	if i == len(p.sections) {
		return Section{}, false, nil
	}
	return p.sections[i].clone(), true, nil
}

// SectionEnd returns one past the last frame of the section containing frame.
func (p *Project) SectionEnd(frame int) (int, error) {
	if err := p.checkFrame(frame, "find the end of the section of"); err != nil {
		return 0, err
	}
	return p.sectionEnd(frame), nil
}

func (p *Project) sectionEnd(frame int) int {
	if i := p.sections.upperBound(frame); i < len(p.sections) {
		return p.sections[i].Start
	}
	return p.sourceFrames
}

// sectionSpan returns [start, end) of the section containing frame.
func (p *Project) sectionSpan(frame int) (int, int, error) {
	s, err := p.FindSection(frame)
	if err != nil {
		return 0, 0, err
	}
	return s.Start, p.sectionEnd(frame), nil
}

// Sections returns every section in timeline order.
func (p *Project) Sections() []Section {
	out := make([]Section, len(p.sections))
	for i, s := range p.sections {
		out[i] = s.clone()
	}
	return out
}

func (p *Project) sectionAt(start int, action string) (int, error) {
	if start < 0 || start >= p.sourceFrames {
		return 0, rangeErrorf("can't %s section starting at %d: frame number out of range", action, start)
	}
	i, ok := p.sections.search(start)
	if !ok {
		return 0, referenceErrorf("can't %s section starting at %d: no such section", action, start)
	}
	return i, nil
}

// SetSectionPreset appends a preset to a section's preset list. The same
// preset may be applied more than once.
func (p *Project) SetSectionPreset(start int, preset string) error {
	i, err := p.sectionAt(start, "add preset '"+preset+"' to")
	if err != nil {
		return err
	}
	if !p.PresetExists(preset) {
		return referenceErrorf("can't add preset '%s' to section starting at %d: no such preset", preset, start)
	}
	p.sections[i].Presets = append(p.sections[i].Presets, preset)
	p.SetModified(true)
	return nil
}

// DeleteSectionPreset removes the preset at index from a section.
func (p *Project) DeleteSectionPreset(start, index int) error {
	i, err := p.sectionAt(start, "delete a preset from")
	if err != nil {
		return err
	}
	presets := p.sections[i].Presets
	if index < 0 || index >= len(presets) {
		return rangeErrorf("can't delete preset number %d from section starting at %d: index out of range", index, start)
	}
	p.sections[i].Presets = append(presets[:index:index], presets[index+1:]...)
	p.SetModified(true)
	return nil
}

// MoveSectionPresetUp swaps the preset at index with the one before it.
func (p *Project) MoveSectionPresetUp(start, index int) error {
	return p.swapSectionPresets(start, index, index-1, "move up a preset of")
}

// MoveSectionPresetDown swaps the preset at index with the one after it.
func (p *Project) MoveSectionPresetDown(start, index int) error {
	return p.swapSectionPresets(start, index, index+1, "move down a preset of")
}

func (p *Project) swapSectionPresets(start, a, b int, action string) error {
	i, err := p.sectionAt(start, action)
	if err != nil {
		return err
	}
	presets := p.sections[i].Presets
	if a < 0 || a >= len(presets) {
		return rangeErrorf("can't %s section starting at %d: preset index %d out of range", action, start, a)
	}
	if b < 0 || b >= len(presets) {
		return nil
	}
	presets[a], presets[b] = presets[b], presets[a]
	p.SetModified(true)
	return nil
}
