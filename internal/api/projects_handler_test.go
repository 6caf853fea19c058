package api

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/heimdex/ivtc-agent/internal/project"
)

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject("ep01.json", 20)

	st := env.state(id)
	if !st.Open || st.Modified || st.SourceFrames != 20 || st.DecimatedFrames != 20 {
		t.Errorf("state = %+v", st.ProjectResponse)
	}
	if st.Name != "ep01" || len(st.Sections) != 1 || st.History.CanUndo {
		t.Errorf("new project state = %+v", st)
	}
	if _, err := os.Stat(env.projectPath("ep01.json")); err != nil {
		t.Fatalf("document not written: %v", err)
	}

	// Creating over an existing document is refused.
	env.expect(http.MethodPost, "/api/v1/projects", OpenProjectRequest{
		Path:   env.projectPath("ep01.json"),
		Create: &CreateProjectParams{InputFile: "x.mkv", SourceFilter: "bs.VideoSource", FPSNum: 1, FPSDen: 1, Width: 1, Height: 1, Frames: 1},
	}, http.StatusConflict)

	rr := env.expect(http.MethodPost, "/api/v1/projects", OpenProjectRequest{Path: env.projectPath("ep01.json")}, http.StatusOK)
	if got := decodeState(t, rr).ID; got != id {
		t.Errorf("reopening returned %s, want %s", got, id)
	}

	env.expect(http.MethodPut, "/api/v1/projects/"+id+"/decimated/4", nil, http.StatusOK)
	list := decodeJSONBody(t, env.expect(http.MethodGet, "/api/v1/projects", nil, http.StatusOK))
	projects := list["projects"].([]any)
	if len(projects) != 1 {
		t.Fatalf("projects = %v", projects)
	}
	first := projects[0].(map[string]any)
	if first["open"] != true || first["modified"] != true || first["decimated_frames"] != float64(19) {
		t.Errorf("listed project = %v", first)
	}

	env.expect(http.MethodPost, "/api/v1/projects/"+id+"/save", nil, http.StatusOK)
	saved, err := project.Read(env.projectPath("ep01.json"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !saved.IsDecimated(4) {
		t.Error("saved document lost the decimated frame")
	}

	env.expect(http.MethodDelete, "/api/v1/projects/"+id, nil, http.StatusNoContent)
	if env.sessions.IsOpen(id) {
		t.Fatal("project still open after close")
	}
	env.expect(http.MethodDelete, "/api/v1/projects/"+id, nil, http.StatusNotFound)

	// A closed project is reopened on demand.
	if st := env.state(id); !st.Open || st.DecimatedFrames != 19 {
		t.Errorf("reopened state = %+v", st.ProjectResponse)
	}
}

func TestCloseWithoutSaving(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject("ep01.json", 20)

	env.expect(http.MethodPut, "/api/v1/projects/"+id+"/decimated/4", nil, http.StatusOK)
	env.expect(http.MethodDelete, "/api/v1/projects/"+id+"?save=false", nil, http.StatusNoContent)

	saved, err := project.Read(env.projectPath("ep01.json"))
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if saved.IsDecimated(4) {
		t.Error("save=false should discard the edit")
	}
	env.expect(http.MethodDelete, "/api/v1/projects/"+id+"?save=maybe", nil, http.StatusBadRequest)
}

func TestOpenProject_Errors(t *testing.T) {
	env := newTestEnv(t)
	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed body", `{"path":`, http.StatusBadRequest},
		{"relative path", OpenProjectRequest{Path: "ep01.json"}, http.StatusBadRequest},
		{"missing file", OpenProjectRequest{Path: env.projectPath("missing.json")}, http.StatusNotFound},
		{"zero frames", OpenProjectRequest{
			Path:   env.projectPath("new.json"),
			Create: &CreateProjectParams{InputFile: "a.mkv", SourceFilter: "bs.VideoSource", FPSNum: 24000, FPSDen: 1001, Width: 720, Height: 480},
		}, http.StatusBadRequest},
		{"no source filter", OpenProjectRequest{
			Path:   env.projectPath("new.json"),
			Create: &CreateProjectParams{InputFile: "a.mkv", FPSNum: 24000, FPSDen: 1001, Width: 720, Height: 480, Frames: 10},
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env.t = t
			env.expect(http.MethodPost, "/api/v1/projects", tt.body, tt.want)
		})
	}

	if err := os.WriteFile(env.projectPath("broken.json"), []byte(`{"project format version": 3}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	env.t = t
	env.expect(http.MethodPost, "/api/v1/projects", OpenProjectRequest{Path: env.projectPath("broken.json")}, http.StatusBadRequest)
	env.expect(http.MethodGet, "/api/v1/projects/missing", nil, http.StatusNotFound)
}

func TestSnapshots(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject("ep01.json", 30)
	base := "/api/v1/projects/" + id

	rr := env.expect(http.MethodPost, base+"/snapshots", SnapshotRequest{Description: "before sections"}, http.StatusCreated)
	snap := decodeJSONBody(t, rr)
	if snap["description"] != "before sections" {
		t.Errorf("snapshot = %v", snap)
	}
	sid := snap["id"].(string)

	env.expect(http.MethodPost, base+"/sections/10", nil, http.StatusOK)
	env.expect(http.MethodPost, base+"/sections/20", nil, http.StatusOK)
	if n := len(env.state(id).Sections); n != 3 {
		t.Fatalf("sections = %d, want 3", n)
	}

	st := decodeState(t, env.expect(http.MethodPost, base+"/snapshots/"+sid+"/restore", nil, http.StatusOK))
	if len(st.Sections) != 1 {
		t.Errorf("restored sections = %v, want 1", st.Sections)
	}
	if !st.Modified || st.History.CanUndo {
		t.Errorf("restored history = %+v", st.History)
	}

	list := decodeJSONBody(t, env.expect(http.MethodGet, base+"/snapshots", nil, http.StatusOK))
	if snaps := list["snapshots"].([]any); len(snaps) != 1 {
		t.Errorf("snapshots = %v", snaps)
	}

	env.expect(http.MethodPost, base+"/snapshots/missing/restore", nil, http.StatusNotFound)
	env.expect(http.MethodGet, "/api/v1/projects/missing/snapshots", nil, http.StatusNotFound)
	env.expect(http.MethodPost, base+"/snapshots", nil, http.StatusCreated)
}

func TestImport(t *testing.T) {
	env := newTestEnv(t)
	id := env.createProject("ep01.json", 30)

	other := project.New(project.Params{
		InputFile: "/videos/ep02.m2ts", SourceFilter: "bs.VideoSource",
		FPSNum: 30000, FPSDen: 1001, Width: 720, Height: 480, Frames: 30,
	})
	if err := other.AddPreset("deblock", "clip = core.deblock.Deblock(clip)"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	otherPath := env.projectPath("ep02.json")
	if err := other.Write(otherPath, false); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rr := env.expect(http.MethodPost, "/api/v1/projects/"+id+"/import", ImportRequest{
		Path:    otherPath,
		Options: project.ImportOptions{Presets: true},
	}, http.StatusOK)
	if h := decodeHistory(t, rr); h.UndoDescription != "import project settings" {
		t.Errorf("history = %+v", h)
	}

	err := env.sessions.With(context.Background(), id, func(p *project.Project) error {
		if !p.PresetExists("deblock") {
			t.Error("preset was not imported")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With() error = %v", err)
	}

	env.expect(http.MethodPost, "/api/v1/projects/"+id+"/import", ImportRequest{}, http.StatusBadRequest)
	env.expect(http.MethodPost, "/api/v1/projects/"+id+"/import", ImportRequest{Path: env.projectPath("nope.json")}, http.StatusNotFound)
}
