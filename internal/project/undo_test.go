package project

import "testing"

func TestUndoRedo(t *testing.T) {
	p := newTestProject(t, 20)
	p.Commit("open project")

	if err := p.AddCombedFrame(5); err != nil {
		t.Fatalf("AddCombedFrame() error = %v", err)
	}
	if err := p.AddDecimated(3); err != nil {
		t.Fatalf("AddDecimated() error = %v", err)
	}
	p.Commit("mark frame 5 combed")

	if !p.CanUndo() {
		t.Fatal("CanUndo() = false after two commits")
	}
	if got := p.UndoDescription(); got != "mark frame 5 combed" {
		t.Errorf("UndoDescription() = %q", got)
	}

	p.Undo()
	if p.IsCombedFrame(5) || p.IsDecimated(3) {
		t.Error("Undo() did not restore the baseline")
	}
	if p.DecimatedFrameCount() != 20 {
		t.Errorf("DecimatedFrameCount() after undo = %d, want 20", p.DecimatedFrameCount())
	}
	if !p.CanRedo() || p.RedoDescription() != "mark frame 5 combed" {
		t.Errorf("RedoDescription() = %q, CanRedo() = %v", p.RedoDescription(), p.CanRedo())
	}

	p.Undo()
	if p.CanUndo() {
		t.Error("the baseline step should never be undone")
	}

	p.Redo()
	if !p.IsCombedFrame(5) || !p.IsDecimated(3) {
		t.Error("Redo() did not reapply the step")
	}
	if p.DecimatedFrameCount() != 19 {
		t.Errorf("DecimatedFrameCount() after redo = %d, want 19", p.DecimatedFrameCount())
	}
	if p.CanRedo() {
		t.Error("CanRedo() = true with an empty redo stack")
	}
}

func TestUndo_SnapshotsAreIndependent(t *testing.T) {
	p := newTestProject(t, 20)
	if err := p.AddPreset("deint", "clip = clip"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	if err := p.SetSectionPreset(0, "deint"); err != nil {
		t.Fatalf("SetSectionPreset() error = %v", err)
	}
	p.Commit("baseline")

	if err := p.SetSectionPreset(0, "deint"); err != nil {
		t.Fatalf("SetSectionPreset() error = %v", err)
	}
	p.Commit("apply twice")
	p.Undo()

	s, _ := p.FindSection(0)
	if len(s.Presets) != 1 {
		t.Errorf("section presets = %v, want one entry", s.Presets)
	}

	// Mutating after undo must not leak into the stored step.
	if err := p.SetSectionPreset(0, "deint"); err != nil {
		t.Fatalf("SetSectionPreset() error = %v", err)
	}
	p.Redo()
	s, _ = p.FindSection(0)
	if len(s.Presets) != 2 {
		t.Errorf("section presets after redo = %v, want two entries", s.Presets)
	}
}

func TestCommit_ClearsRedo(t *testing.T) {
	p := newTestProject(t, 20)
	p.Commit("a")
	p.Commit("b")
	p.Undo()
	p.Commit("c")

	if p.CanRedo() {
		t.Error("Commit() should clear the redo stack")
	}
	if got := p.UndoDescription(); got != "c" {
		t.Errorf("UndoDescription() = %q, want c", got)
	}
}

func TestSetUndoSteps(t *testing.T) {
	p := newTestProject(t, 20)
	for _, d := range []string{"a", "b", "c", "d"} {
		p.Commit(d)
	}
	p.Undo()

	p.SetUndoSteps(2)
	if p.UndoSteps() != 2 {
		t.Errorf("UndoSteps() = %d, want 2", p.UndoSteps())
	}
	if p.UndoDescription() != "" {
		t.Errorf("UndoDescription() = %q, want none left to undo", p.UndoDescription())
	}
	if p.RedoDescription() != "d" {
		t.Errorf("RedoDescription() = %q, want d", p.RedoDescription())
	}

	p.SetUndoSteps(0)
	if p.CanUndo() || p.CanRedo() {
		t.Error("SetUndoSteps(0) should drop every step")
	}
}
