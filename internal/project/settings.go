package project

// Resize returns the resize settings.
func (p *Project) Resize() Resize { return p.resize }

// SetResize sets the target size and filter. Width and height must be
// positive.
func (p *Project) SetResize(width, height int, filter string) error {
	if width <= 0 || height <= 0 {
		return validationErrorf("can't resize to %dx%d: new width and height must be greater than 0", width, height)
	}
	p.resize.Width = width
	p.resize.Height = height
	p.resize.Filter = filter
	p.SetModified(true)
	return nil
}

// SetResizeEnabled toggles the resize step.
func (p *Project) SetResizeEnabled(enabled bool) {
	p.resize.Enabled = enabled
	p.SetModified(true)
}

// Crop returns the crop settings.
func (p *Project) Crop() Crop { return p.crop }

// SetCrop sets the crop margins, which must not be negative.
func (p *Project) SetCrop(left, top, right, bottom int) error {
	if left < 0 || top < 0 || right < 0 || bottom < 0 {
		return validationErrorf("can't crop (%d,%d,%d,%d): negative values not allowed", left, top, right, bottom)
	}
	p.crop.Left = left
	p.crop.Top = top
	p.crop.Right = right
	p.crop.Bottom = bottom
	p.SetModified(true)
	return nil
}

// SetCropEnabled toggles the crop step.
func (p *Project) SetCropEnabled(enabled bool) {
	p.crop.Enabled = enabled
	p.SetModified(true)
}

// SetCropEarly moves the crop step before the trim.
func (p *Project) SetCropEarly(early bool) {
	p.crop.Early = early
	p.SetModified(true)
}

// BitDepth returns the output format settings.
func (p *Project) BitDepth() Depth { return p.depth }

func (p *Project) SetBitDepth(bits int, floatSamples bool, dither string) {
	p.depth.Bits = bits
	p.depth.FloatSamples = floatSamples
	p.depth.Dither = dither
	p.SetModified(true)
}

func (p *Project) SetBitDepthEnabled(enabled bool) {
	p.depth.Enabled = enabled
	p.SetModified(true)
}

// UI returns the remembered display state.
func (p *Project) UI() UIState { return p.ui }

// SetZoom sets the preview zoom ratio, which must be at least 1.
func (p *Project) SetZoom(ratio int) error {
	if ratio < 1 {
		return validationErrorf("zoom ratio must be at least 1")
	}
	p.ui.Zoom = ratio
	p.SetModified(true)
	return nil
}

func (p *Project) SetLastVisitedFrame(frame int) {
	p.ui.LastVisitedFrame = frame
}

func (p *Project) SetUIState(state string) {
	p.ui.State = state
	p.SetModified(true)
}

func (p *Project) SetUIGeometry(geometry string) {
	p.ui.Geometry = geometry
	p.SetModified(true)
}

// SetShownFrameRates selects which output rates are highlighted. The index
// matches FrameRates.
func (p *Project) SetShownFrameRates(rates [5]bool) {
	p.ui.ShownFrameRates = rates
	p.SetModified(true)
}

func (p *Project) SetMicSearchMinimum(minimum int) {
	p.ui.MicSearchMinimum = minimum
	p.SetModified(true)
}

func (p *Project) SetCMatchSequencesMinimum(minimum int) {
	p.ui.CMatchSequencesMinimum = minimum
	p.SetModified(true)
}

// FreezeFramesWanted reports whether the display script applies freeze frames.
func (p *Project) FreezeFramesWanted() bool { return p.freezeFramesWanted }

func (p *Project) SetFreezeFramesWanted(wanted bool) {
	p.freezeFramesWanted = wanted
}
