package pipelines

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/heimdex/ivtc-agent/internal/project"
)

func newFeedProject(frames int) *project.Project {
	return project.New(project.Params{
		InputFile:    "/videos/ep01.m2ts",
		SourceFilter: "bs.VideoSource",
		FPSNum:       30000,
		FPSDen:       1001,
		Width:        720,
		Height:       480,
		Frames:       frames,
	})
}

func TestFeed(t *testing.T) {
	p := newFeedProject(10)
	stream := strings.Join([]string{
		`{"frame":0,"match":"c","mics":[10,1,20,30,40],"mmetrics":[5,6],"vmetrics":[7,8],"decimate_metric":300}`,
		`{"frame":1,"match":"c","combed":true}`,
		`{"frame":2,"match":"n","field_difference":2.5}`,
		``,
		`{"frame":3,"match":"c","drop":true,"field_difference":0.5}`,
		`{"frame":5,"match":"c","scene_change":true}`,
	}, "\n")

	stats, err := Feed(context.Background(), strings.NewReader(stream), p, FeedOptions{FadesThreshold: 1.0})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	want := FeedStats{Frames: 5, Combed: 1, SceneChanges: 1, Dropped: 1, Fades: 1}
	if stats != want {
		t.Errorf("Feed() stats = %+v, want %+v", stats, want)
	}

	if got := string(p.Matches()); got != "ccnccccccc" {
		t.Errorf("Matches() = %q", got)
	}
	if got := string(p.OriginalMatches()); got != "ccnccccccc" {
		t.Errorf("OriginalMatches() = %q", got)
	}
	mics, _ := p.Mics(0)
	if mics != [5]int{10, 1, 20, 30, 40} {
		t.Errorf("Mics(0) = %v", mics)
	}
	if metric, _ := p.DecimateMetric(0); metric != 300 {
		t.Errorf("DecimateMetric(0) = %d, want 300", metric)
	}
	if !p.IsCombedFrame(1) || !p.IsDecimated(3) {
		t.Error("combed and dropped frames should be recorded")
	}
	if s := p.Sections(); len(s) != 2 || s[1].Start != 5 {
		t.Errorf("Sections() = %v, want a section at 5", s)
	}
	fades := p.InterlacedFades()
	if len(fades) != 1 || fades[0].Frame != 2 {
		t.Errorf("InterlacedFades() = %v, want frame 2", fades)
	}
}

func TestFeed_FadesDisabled(t *testing.T) {
	p := newFeedProject(10)
	stats, err := Feed(context.Background(), strings.NewReader(`{"frame":0,"field_difference":9.0}`), p, FeedOptions{})
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if stats.Fades != 0 || len(p.InterlacedFades()) != 0 {
		t.Error("a zero threshold should not record fades")
	}
	if len(p.Matches()) != 0 {
		t.Error("a stream without matches should leave matches empty")
	}
}

func TestFeed_RerunKeepsSectionPresets(t *testing.T) {
	p := newFeedProject(20)
	if err := p.AddPreset("deint", "clip = clip"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	if err := p.AddSection(10); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if err := p.SetSectionPreset(10, "deint"); err != nil {
		t.Fatalf("SetSectionPreset() error = %v", err)
	}

	if _, err := Feed(context.Background(), strings.NewReader(`{"frame":10,"scene_change":true}`), p, FeedOptions{}); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	s, err := p.FindSection(10)
	if err != nil {
		t.Fatalf("FindSection() error = %v", err)
	}
	if s.Start != 10 || len(s.Presets) != 1 || s.Presets[0] != "deint" {
		t.Errorf("FindSection(10) = %+v, want presets [deint] kept", s)
	}
}

func TestFeed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		stream  string
		wantErr error
	}{
		{"out of order", "{\"frame\":3}\n{\"frame\":2}", ErrRecordOrder},
		{"duplicate frame", "{\"frame\":3}\n{\"frame\":3}", ErrRecordOrder},
		{"past the end", `{"frame":10,"match":"c"}`, project.ErrRange},
		{"bad match", `{"frame":1,"match":"x"}`, project.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Feed(context.Background(), strings.NewReader(tt.stream), newFeedProject(10), FeedOptions{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Feed() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	_, err := Feed(context.Background(), strings.NewReader("not json"), newFeedProject(10), FeedOptions{})
	if err == nil || !strings.Contains(err.Error(), "line 1") {
		t.Errorf("Feed() error = %v, want a line number", err)
	}
}

func TestFeed_Cancelled(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 2000; i++ {
		b.WriteString(`{"frame":` + strconv.Itoa(i) + "}\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Feed(ctx, strings.NewReader(b.String()), newFeedProject(2000), FeedOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Feed() error = %v, want context.Canceled", err)
	}
}

func TestFeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metrics.jsonl")
	if err := os.WriteFile(path, []byte(`{"frame":0,"match":"c"}`+"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	stats, err := FeedFile(context.Background(), path, newFeedProject(5), FeedOptions{})
	if err != nil || stats.Frames != 1 {
		t.Errorf("FeedFile() = %+v, %v", stats, err)
	}

	if _, err := FeedFile(context.Background(), path+".missing", newFeedProject(5), FeedOptions{}); err == nil {
		t.Error("FeedFile() should fail for a missing file")
	}
}
