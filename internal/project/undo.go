package project

import "maps"

// snapshot is an independent copy of the undoable part of a project.
type snapshot struct {
	description string
	matches     []byte
	decimated   []uint8
	guessing    PatternGuessing
	presets     map[string]string
	lists       []CustomList
	combed      frameSet
	frozen      orderedMap[FreezeFrame]
	sections    orderedMap[Section]
	bookmarks   orderedMap[Bookmark]
}

func (p *Project) capture(description string) snapshot {
	s := snapshot{
		description: description,
		matches:     append([]byte(nil), p.matches...),
		decimated:   append([]uint8(nil), p.decimated...),
		guessing:    p.PatternGuessing(),
		presets:     maps.Clone(p.presets),
		lists:       make([]CustomList, len(p.lists)),
		combed:      append(frameSet(nil), p.combed...),
		frozen:      p.frozen.clone(),
		sections:    make(orderedMap[Section], len(p.sections)),
		bookmarks:   p.bookmarks.clone(),
	}
	for i, cl := range p.lists {
		s.lists[i] = cl.clone()
	}
	for i, sec := range p.sections {
		s.sections[i] = sec.clone()
	}
	return s
}

// restore replaces the live stores with copies of s, so the snapshot stays
// usable for later undo and redo.
func (p *Project) restore(s snapshot) {
	p.matches = append([]byte(nil), s.matches...)
	p.decimated = append([]uint8(nil), s.decimated...)
	p.guessing = s.guessing
	p.guessing.failures = s.guessing.failures.clone()
	p.presets = cloneMap(s.presets)
	p.lists = make([]CustomList, len(s.lists))
	for i, cl := range s.lists {
		p.lists[i] = cl.clone()
	}
	p.combed = append(frameSet(nil), s.combed...)
	p.frozen = s.frozen.clone()
	p.sections = make(orderedMap[Section], len(s.sections))
	for i, sec := range s.sections {
		p.sections[i] = sec.clone()
	}
	p.bookmarks = s.bookmarks.clone()
	p.recountDecimated()
	p.SetModified(true)
}

// Commit records the current state as an undo step.
func (p *Project) Commit(description string) {
	p.undoStack = append(p.undoStack, p.capture(description))
	p.redoStack = nil
	for len(p.undoStack) > p.undoSteps {
		p.undoStack = p.undoStack[1:]
	}
}

// Undo returns to the previous committed state. The oldest step is the
// baseline and is never undone.
func (p *Project) Undo() {
	if len(p.undoStack) <= 1 {
		return
	}
	top := p.undoStack[len(p.undoStack)-1]
	p.redoStack = append(p.redoStack, top)
	p.undoStack = p.undoStack[:len(p.undoStack)-1]
	p.restore(p.undoStack[len(p.undoStack)-1])
}

// Redo reapplies the most recently undone step.
func (p *Project) Redo() {
	if len(p.redoStack) == 0 {
		return
	}
	top := p.redoStack[len(p.redoStack)-1]
	p.restore(top)
	p.undoStack = append(p.undoStack, top)
	p.redoStack = p.redoStack[:len(p.redoStack)-1]
}

func (p *Project) CanUndo() bool { return len(p.undoStack) > 1 }

func (p *Project) CanRedo() bool { return len(p.redoStack) > 0 }

// HistoryLen returns the number of committed steps, including the baseline.
func (p *Project) HistoryLen() int { return len(p.undoStack) }

// UndoDescription describes the step Undo would revert, or "".
func (p *Project) UndoDescription() string {
	if len(p.undoStack) <= 1 {
		return ""
	}
	return p.undoStack[len(p.undoStack)-1].description
}

// RedoDescription describes the step Redo would reapply, or "".
func (p *Project) RedoDescription() string {
	if len(p.redoStack) == 0 {
		return ""
	}
	return p.redoStack[len(p.redoStack)-1].description
}

func (p *Project) UndoSteps() int { return p.undoSteps }

// SetUndoSteps bounds the combined depth of the undo and redo stacks,
// discarding the oldest steps first.
func (p *Project) SetUndoSteps(steps int) {
	if steps < 0 {
		steps = 0
	}
	p.undoSteps = steps
	if steps < len(p.redoStack) {
		p.undoStack = nil
		p.redoStack = p.redoStack[len(p.redoStack)-steps:]
	}
	if excess := len(p.undoStack) + len(p.redoStack) - steps; excess > 0 {
		p.undoStack = p.undoStack[excess:]
	}
}
