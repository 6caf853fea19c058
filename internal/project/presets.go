package project

import (
	"maps"
	"slices"
)

// IsNameSafe reports whether name can be used as a preset or custom list
// identifier in a generated script.
func IsNameSafe(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		letter := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
		digit := c >= '0' && c <= '9'
		if !letter && !(digit && i > 0) {
			return false
		}
	}
	return true
}

// AddPreset creates a preset.
func (p *Project) AddPreset(name, contents string) error {
	if !IsNameSafe(name) {
		return conflictErrorf("can't add preset '%s': name is invalid. Use only letters, numbers, and the underscore character. The first character must not be a number", name)
	}
	if p.PresetExists(name) {
		return conflictErrorf("can't add preset '%s': preset name already in use", name)
	}
	p.presets[name] = contents
	p.SetModified(true)
	return nil
}

// RenamePreset renames a preset and every reference to it.
func (p *Project) RenamePreset(oldName, newName string) error {
	if oldName == newName {
		return nil
	}
	if !p.PresetExists(oldName) {
		return referenceErrorf("can't rename preset '%s' to '%s': no such preset", oldName, newName)
	}
	if !IsNameSafe(newName) {
		return conflictErrorf("can't rename preset '%s' to '%s': new name is invalid. Use only letters, numbers, and the underscore character. The first character must not be a number", oldName, newName)
	}
	if p.PresetExists(newName) {
		return conflictErrorf("can't rename preset '%s' to '%s': preset '%s' already exists", oldName, newName, newName)
	}

	p.presets[newName] = p.presets[oldName]
	delete(p.presets, oldName)
	for i := range p.sections {
		for j, name := range p.sections[i].Presets {
			if name == oldName {
				p.sections[i].Presets[j] = newName
			}
		}
	}
	for i := range p.lists {
		if p.lists[i].Preset == oldName {
			p.lists[i].Preset = newName
		}
	}
	p.SetModified(true)
	return nil
}

// DeletePreset removes a preset and every reference to it.
func (p *Project) DeletePreset(name string) error {
	if !p.PresetExists(name) {
		return referenceErrorf("can't delete preset '%s': no such preset", name)
	}
	delete(p.presets, name)
	for i := range p.sections {
		p.sections[i].Presets = slices.DeleteFunc(p.sections[i].Presets, func(s string) bool {
			return s == name
		})
	}
	for i := range p.lists {
		if p.lists[i].Preset == name {
			p.lists[i].Preset = ""
		}
	}
	p.SetModified(true)
	return nil
}

// PresetContents returns the body of a preset.
func (p *Project) PresetContents(name string) (string, error) {
	contents, ok := p.presets[name]
	if !ok {
		return "", referenceErrorf("can't retrieve the contents of preset '%s': no such preset", name)
	}
	return contents, nil
}

// SetPresetContents replaces the body of a preset.
func (p *Project) SetPresetContents(name, contents string) error {
	old, ok := p.presets[name]
	if !ok {
		return referenceErrorf("can't modify the contents of preset '%s': no such preset", name)
	}
	if old != contents {
		p.presets[name] = contents
		p.SetModified(true)
	}
	return nil
}

// PresetExists reports whether a preset is defined.
func (p *Project) PresetExists(name string) bool {
	_, ok := p.presets[name]
	return ok
}

// IsPresetInUse reports whether any section or custom list uses a preset.
func (p *Project) IsPresetInUse(name string) (bool, error) {
	if !p.PresetExists(name) {
		return false, referenceErrorf("can't check if preset '%s' is in use: no such preset", name)
	}
	return p.presetInUse(name), nil
}

func (p *Project) presetInUse(name string) bool {
	for _, s := range p.sections {
		if slices.Contains(s.Presets, name) {
			return true
		}
	}
	for _, cl := range p.lists {
		if cl.Preset == name {
			return true
		}
	}
	return false
}

// Presets returns every preset sorted by name.
func (p *Project) Presets() []Preset {
	names := slices.Sorted(maps.Keys(p.presets))
	out := make([]Preset, len(names))
	for i, name := range names {
		out[i] = Preset{Name: name, Contents: p.presets[name]}
	}
	return out
}
