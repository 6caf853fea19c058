package project

import "fmt"

const importedSuffix = "_imported"

// ImportFile reads the project at path and imports the selected settings
// from it.
func (p *Project) ImportFile(path string, opts ImportOptions) error {
	other, err := Read(path)
	if err != nil {
		return err
	}
	return p.ImportFrom(other, opts)
}

// ImportFrom copies the selected settings of other into p. Presets whose
// names are taken get "_imported" appended, and custom lists follow the
// renamed presets. other is not modified.
func (p *Project) ImportFrom(other *Project, opts ImportOptions) error {
	if opts.Geometry {
		p.SetUIState(other.ui.State)
		p.SetUIGeometry(other.ui.Geometry)
	}

	renamed := map[string]string{}
	if opts.Presets || opts.CustomLists {
		taken := map[string]bool{}
		for name := range other.presets {
			taken[name] = true
		}
		for _, preset := range other.Presets() {
			name := preset.Name
			if p.PresetExists(name) {
				for p.PresetExists(name) || taken[name] {
					name += importedSuffix
				}
				delete(taken, preset.Name)
				taken[name] = true
			}
			renamed[preset.Name] = name
			if opts.Presets {
				if err := p.AddPreset(name, preset.Contents); err != nil {
					return fmt.Errorf("import preset '%s': %w", preset.Name, err)
				}
			}
		}
	}

	if opts.CustomLists {
		for _, cl := range other.lists {
			list := cl.clone()
			if list.Preset != "" {
				list.Preset = renamed[cl.Preset]
				if !p.PresetExists(list.Preset) {
					if err := p.AddPreset(list.Preset, other.presets[cl.Preset]); err != nil {
						return fmt.Errorf("import custom list '%s': %w", cl.Name, err)
					}
				}
			}
			for p.CustomListExists(list.Name) {
				list.Name += importedSuffix
			}
			// Ranges past the end of this project's video are dropped.
			kept := list.ranges[:0]
			for _, r := range list.ranges {
				if r.Last < p.sourceFrames {
					kept = append(kept, r)
				}
			}
			list.ranges = kept
			p.lists = append(p.lists, list)
		}
	}

	if opts.Crop {
		p.SetCropEnabled(other.crop.Enabled)
		p.SetCropEarly(other.crop.Early)
		c := other.crop
		if err := p.SetCrop(c.Left, c.Top, c.Right, c.Bottom); err != nil {
			return err
		}
	}

	if opts.Resize {
		p.SetResizeEnabled(other.resize.Enabled)
		r := other.resize
		if err := p.SetResize(r.Width, r.Height, r.Filter); err != nil {
			return err
		}
	}

	if opts.BitDepth {
		p.SetBitDepthEnabled(other.depth.Enabled)
		d := other.depth
		p.SetBitDepth(d.Bits, d.FloatSamples, d.Dither)
	}

	if opts.MicSearch {
		p.SetMicSearchMinimum(other.ui.MicSearchMinimum)
	}

	if opts.Zoom {
		if err := p.SetZoom(other.ui.Zoom); err != nil {
			return err
		}
	}

	p.SetModified(true)
	return nil
}
