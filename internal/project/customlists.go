package project

// AddCustomList appends a new custom list.
func (p *Project) AddCustomList(name, preset string, pos Position) error {
	if pos < PostSource || pos > PostDecimate {
		return rangeErrorf("can't add custom list '%s' with position %d: position out of range", name, pos)
	}
	if !IsNameSafe(name) {
		return conflictErrorf("can't add custom list '%s': name is invalid. Use only letters, numbers, and the underscore character. The first character must not be a number", name)
	}
	if preset != "" && !p.PresetExists(preset) {
		return referenceErrorf("can't add custom list '%s' with preset '%s': no such preset", name, preset)
	}
	if p.CustomListExists(name) {
		return conflictErrorf("can't add custom list '%s': name is already in use", name)
	}
	p.lists = append(p.lists, CustomList{Name: name, Preset: preset, Position: pos})
	p.SetModified(true)
	return nil
}

// CustomLists returns every custom list in script order.
func (p *Project) CustomLists() []CustomList {
	out := make([]CustomList, len(p.lists))
	for i, cl := range p.lists {
		out[i] = cl.clone()
	}
	return out
}

// CustomListIndex returns the index of the named list, or -1.
func (p *Project) CustomListIndex(name string) int {
	for i, cl := range p.lists {
		if cl.Name == name {
			return i
		}
	}
	return -1
}

// CustomListExists reports whether a list with the given name exists.
func (p *Project) CustomListExists(name string) bool {
	return p.CustomListIndex(name) >= 0
}

func (p *Project) checkList(index int, action string) error {
	if index < 0 || index >= len(p.lists) {
		return rangeErrorf("can't %s custom list with index %d: index out of range", action, index)
	}
	return nil
}

// RenameCustomList renames a list.
func (p *Project) RenameCustomList(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	index := p.CustomListIndex(oldName)
	if index < 0 {
		return referenceErrorf("can't rename custom list '%s': no such list", oldName)
	}
	if p.CustomListExists(newName) {
		return conflictErrorf("can't rename custom list '%s' to '%s': new name is already in use", oldName, newName)
	}
	if !IsNameSafe(newName) {
		return conflictErrorf("can't rename custom list '%s' to '%s': new name is invalid. Use only letters, numbers, and the underscore character. The first character must not be a number", oldName, newName)
	}
	p.lists[index].Name = newName
	p.SetModified(true)
	return nil
}

// DeleteCustomList removes the named list.
func (p *Project) DeleteCustomList(name string) error {
	index := p.CustomListIndex(name)
	if index < 0 {
		return referenceErrorf("can't delete custom list with name '%s': no such list", name)
	}
	return p.DeleteCustomListAt(index)
}

// DeleteCustomListAt removes the list at index.
func (p *Project) DeleteCustomListAt(index int) error {
	if err := p.checkList(index, "delete"); err != nil {
		return err
	}
	p.lists = append(p.lists[:index:index], p.lists[index+1:]...)
	p.SetModified(true)
	return nil
}

// MoveCustomListUp moves a list one place earlier in the script.
func (p *Project) MoveCustomListUp(index int) error {
	if err := p.checkList(index, "move up"); err != nil {
		return err
	}
	if index == 0 {
		return nil
	}
	p.lists[index-1], p.lists[index] = p.lists[index], p.lists[index-1]
	p.SetModified(true)
	return nil
}

// MoveCustomListDown moves a list one place later in the script.
func (p *Project) MoveCustomListDown(index int) error {
	if err := p.checkList(index, "move down"); err != nil {
		return err
	}
	if index == len(p.lists)-1 {
		return nil
	}
	p.lists[index+1], p.lists[index] = p.lists[index], p.lists[index+1]
	p.SetModified(true)
	return nil
}

// SetCustomListPreset assigns an existing preset to a list.
func (p *Project) SetCustomListPreset(index int, preset string) error {
	if err := p.checkList(index, "assign preset '"+preset+"' to"); err != nil {
		return err
	}
	if !p.PresetExists(preset) {
		return referenceErrorf("can't assign preset '%s' to custom list '%s': no such preset", preset, p.lists[index].Name)
	}
	p.lists[index].Preset = preset
	p.SetModified(true)
	return nil
}

// SetCustomListPosition moves a list to another point in the filter chain.
func (p *Project) SetCustomListPosition(index int, pos Position) error {
	if err := p.checkList(index, "set the position of"); err != nil {
		return err
	}
	if pos < PostSource || pos > PostDecimate {
		return rangeErrorf("can't put custom list '%s' in position %d: position out of range", p.lists[index].Name, pos)
	}
	p.lists[index].Position = pos
	p.SetModified(true)
	return nil
}

// AddCustomListRange adds [first, last] to a list. Ranges of one list never
// overlap.
func (p *Project) AddCustomListRange(index, first, last int) error {
	if err := p.checkList(index, "add a new range to"); err != nil {
		return err
	}
	cl := &p.lists[index]
	if first < 0 || first >= p.sourceFrames || last < 0 || last >= p.sourceFrames {
		return rangeErrorf("can't add range (%d,%d) to custom list '%s': values out of range", first, last, cl.Name)
	}
	if first > last {
		first, last = last, first
	}
	if r, ok := overlapping(cl.ranges, first, last, func(r FrameRange) int { return r.Last }); ok {
		return conflictErrorf("can't add range (%d,%d) to custom list '%s': overlaps range (%d,%d)", first, last, cl.Name, r.First, r.Last)
	}
	cl.ranges.put(FrameRange{First: first, Last: last})
	p.SetModified(true)
	return nil
}

// DeleteCustomListRange removes the range starting at first.
func (p *Project) DeleteCustomListRange(index, first int) error {
	if err := p.checkList(index, "delete a range from"); err != nil {
		return err
	}
	if !p.lists[index].ranges.remove(first) {
		return referenceErrorf("can't delete range starting at frame %d from custom list '%s': no such range", first, p.lists[index].Name)
	}
	p.SetModified(true)
	return nil
}

// FindCustomListRange returns the range of a list containing frame.
func (p *Project) FindCustomListRange(index, frame int) (FrameRange, bool, error) {
	if err := p.checkList(index, "find a range in"); err != nil {
		return FrameRange{}, false, err
	}
	r, ok := p.lists[index].ranges.floor(frame)
	if !ok || frame > r.Last {
		return FrameRange{}, false, nil
	}
	return r, true, nil
}

// IsCustomListInUse reports whether a list would produce script output.
func (p *Project) IsCustomListInUse(index int) (bool, error) {
	if err := p.checkList(index, "check the use of"); err != nil {
		return false, err
	}
	cl := p.lists[index]
	return cl.Preset != "" && len(cl.ranges) > 0, nil
}
