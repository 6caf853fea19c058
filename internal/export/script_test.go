package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/heimdex/ivtc-agent/internal/project"
)

func newProject(t *testing.T, frames int) *project.Project {
	t.Helper()
	return project.New(project.Params{
		InputFile:    "/videos/episode01.m2ts",
		SourceFilter: "lsmas.LWLibavSource",
		FPSNum:       30000,
		FPSDen:       1001,
		Width:        720,
		Height:       480,
		Frames:       frames,
	})
}

func mustDecimate(t *testing.T, p *project.Project, frames ...int) {
	t.Helper()
	for _, f := range frames {
		if err := p.AddDecimated(f); err != nil {
			t.Fatalf("AddDecimated(%d) error = %v", f, err)
		}
	}
}

func TestGenerateDisplayScript(t *testing.T) {
	p := newProject(t, 10)

	want := "# Generated by ivtc-agent vdev\n" +
		"# https://github.com/heimdex/ivtc-agent\n" +
		"\n" +
		"import vapoursynth as vs\n" +
		"\n" +
		"c = vs.core\n" +
		"\n" +
		"try:\n" +
		"    src = vs.get_output(index=1)\n" +
		"    if isinstance(src, vs.VideoOutputTuple):\n" +
		"        src = src[0]\n" +
		"except KeyError:\n" +
		"    src = c.lsmas.LWLibavSource(r'/videos/episode01.m2ts')\n" +
		"    src.set_output(index=1)\n" +
		"\n" +
		"src = c.std.Splice(clips=[src[0:10],])\n" +
		"\n" +
		"src.set_output()\n"

	if got := GenerateDisplayScript(p); got != want {
		t.Errorf("GenerateDisplayScript() =\n%s\nwant\n%s", got, want)
	}
}

func TestGenerateDisplayScript_FreezeFramesWanted(t *testing.T) {
	p := newProject(t, 10)
	if err := p.AddFreezeFrame(2, 3, 1); err != nil {
		t.Fatalf("AddFreezeFrame() error = %v", err)
	}

	line := "src = c.std.FreezeFrames(clip=src, first=[2,], last=[3,], replacement=[1,])\n"
	if got := GenerateDisplayScript(p); !strings.Contains(got, line) {
		t.Errorf("display script missing freeze frames:\n%s", got)
	}

	p.SetFreezeFramesWanted(false)
	if got := GenerateDisplayScript(p); strings.Contains(got, "FreezeFrames") {
		t.Errorf("display script should skip freeze frames:\n%s", got)
	}
}

func TestGenerateScript_SourceWithoutCache(t *testing.T) {
	p := project.New(project.Params{
		InputFile:    "/videos/it's.m2ts",
		SourceFilter: "bs.VideoSource",
		FPSNum:       30000,
		FPSDen:       1001,
		Frames:       10,
	})

	got, err := GenerateScript(p, ScriptOptions{})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	line := "src = c.bs.VideoSource(r'/videos/it'\"'\"r's.m2ts', rff=True, showprogress=False)\n\n"
	if !strings.Contains(got, line) {
		t.Errorf("script missing source line %q:\n%s", line, got)
	}
	if strings.Contains(got, "get_output") {
		t.Error("script should not cache the source node")
	}
	if !strings.HasSuffix(got, "src = c.std.Splice(mismatch=True, clips=[section0,])\n\nsrc.set_output()\n") {
		t.Errorf("unexpected script tail:\n%s", got)
	}
}

func TestGenerateScript_SectionsMerged(t *testing.T) {
	p := newProject(t, 20)
	if err := p.AddPreset("deblock", "clip = clip.deblock.Deblock()"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	if err := p.AddPreset("unused", "clip = clip"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	for _, start := range []int{10, 15} {
		if err := p.AddSection(start); err != nil {
			t.Fatalf("AddSection(%d) error = %v", start, err)
		}
		if err := p.SetSectionPreset(start, "deblock"); err != nil {
			t.Fatalf("SetSectionPreset(%d) error = %v", start, err)
		}
	}

	got, err := GenerateScript(p, ScriptOptions{})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}

	preset := "def preset_deblock(clip):\n    clip = clip.deblock.Deblock()\n    return clip\n\n\n"
	if !strings.Contains(got, preset) {
		t.Errorf("script missing preset definition:\n%s", got)
	}
	if strings.Contains(got, "preset_unused") {
		t.Error("presets not in use should be skipped")
	}

	sections := "section0 = src[0:10]\n" +
		"section10 = src\n" +
		"section10 = preset_deblock(section10)[10:]\n" +
		"src = c.std.Splice(mismatch=True, clips=[section0,section10,])\n\n"
	if !strings.Contains(got, sections) {
		t.Errorf("script missing merged sections:\n%s", got)
	}
}

func TestGenerateScript_FieldHint(t *testing.T) {
	p := newProject(t, 10)
	if err := p.SetRangeMatchesFromPattern(0, 9, "cccnn"); err != nil {
		t.Fatalf("SetRangeMatchesFromPattern() error = %v", err)
	}

	got, err := GenerateScript(p, ScriptOptions{})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	line := "src = c.fh.FieldHint(clip=src, tff=1, matches='cccnncccnb')\n\n"
	if !strings.Contains(got, line) {
		t.Errorf("script missing FieldHint line:\n%s", got)
	}
}

func TestGenerateScript_Decimation(t *testing.T) {
	p := newProject(t, 20)
	mustDecimate(t, p, 4, 9, 14, 19)

	tests := []struct {
		name string
		fn   DecimationFunction
		want string
	}{
		{
			name: "delete frames",
			fn:   DecimationDeleteFrames,
			want: "r24 = c.std.AssumeFPS(clip=src, fpsnum=24000, fpsden=1001)\n" +
				"src = c.std.Splice(mismatch=True, clips=[r24[0:20],])\n" +
				"src = c.std.DeleteFrames(clip=src, frames=[4,9,14,19,])\n\n",
		},
		{
			name: "select every",
			fn:   DecimationSelectEvery,
			want: "dec0 = c.std.SelectEvery(clip=src[0:20], cycle=5, offsets=[0,1,2,3,])\n" +
				"\n" +
				"src = c.std.Splice(mismatch=True, clips=[dec0,])\n\n",
		},
		{
			name: "auto picks the shorter form",
			fn:   DecimationAuto,
			want: "dec0 = c.std.SelectEvery(clip=src[0:20], cycle=5, offsets=[0,1,2,3,])\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateScript(p, ScriptOptions{Decimation: tt.fn})
			if err != nil {
				t.Fatalf("GenerateScript() error = %v", err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("script missing %q:\n%s", tt.want, got)
			}
		})
	}
}

func TestGenerateScript_PostDecimateCustomList(t *testing.T) {
	p := newProject(t, 20)
	mustDecimate(t, p, 4, 9, 14, 19)
	if err := p.AddPreset("grain", "clip = clip"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	if err := p.AddCustomList("grain", "grain", project.PostDecimate); err != nil {
		t.Fatalf("AddCustomList() error = %v", err)
	}
	if err := p.AddCustomListRange(0, 5, 9); err != nil {
		t.Fatalf("AddCustomListRange() error = %v", err)
	}

	got, err := GenerateScript(p, ScriptOptions{})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	want := "cl_grain = preset_grain(src)\n" +
		"src = c.std.Splice(mismatch=True, clips=[src[0:4],cl_grain[4:8],src[8:]])\n\n"
	if !strings.Contains(got, want) {
		t.Errorf("script missing custom list splice:\n%s", got)
	}
	if strings.Index(got, "SelectEvery") > strings.Index(got, "cl_grain") {
		t.Error("post decimate lists must come after decimation")
	}
}

func TestGenerateScript_CustomListWithoutPreset(t *testing.T) {
	p := newProject(t, 20)
	if err := p.AddCustomList("orphan", "", project.PostSource); err != nil {
		t.Fatalf("AddCustomList() error = %v", err)
	}
	if err := p.AddCustomListRange(0, 1, 2); err != nil {
		t.Fatalf("AddCustomListRange() error = %v", err)
	}

	_, err := GenerateScript(p, ScriptOptions{})
	if !errors.Is(err, ErrNoPreset) {
		t.Fatalf("GenerateScript() error = %v, want ErrNoPreset", err)
	}
}

func TestGenerateScript_CropResizeDepth(t *testing.T) {
	p := newProject(t, 10)
	if err := p.SetCrop(8, 0, 8, 0); err != nil {
		t.Fatalf("SetCrop() error = %v", err)
	}
	p.SetCropEnabled(true)
	if err := p.SetResize(640, 360, "spline36"); err != nil {
		t.Fatalf("SetResize() error = %v", err)
	}
	p.SetResizeEnabled(true)
	p.SetBitDepth(10, false, "none")
	p.SetBitDepthEnabled(true)

	got, err := GenerateScript(p, ScriptOptions{})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}

	crop := "src = c.std.CropRel(clip=src, left=8, top=0, right=8, bottom=0)\n\n"
	resize := "src = c.resize.Spline36(clip=src, width=640, height=360, format=c.query_video_format(src.format.color_family, vs.INTEGER, 10, src.format.subsampling_w, src.format.subsampling_h).id)\n\n"
	if !strings.Contains(got, crop+resize+"src.set_output()\n") {
		t.Errorf("script missing late crop and resize:\n%s", got)
	}

	p.SetCropEarly(true)
	p.SetResizeEnabled(false)
	got, _ = GenerateScript(p, ScriptOptions{})
	if !strings.Contains(got, crop+"src = c.std.Splice(clips=[") {
		t.Errorf("early crop should precede the trim:\n%s", got)
	}
	if !strings.Contains(got, "src = c.resize.Bicubic(clip=src, format=") {
		t.Errorf("depth without resize should use Bicubic:\n%s", got)
	}
}

func TestGenerateScript_SurvivesSaveAndLoad(t *testing.T) {
	p := newProject(t, 40)
	mustDecimate(t, p, 4, 9, 22)
	if err := p.AddPreset("deblock", "clip = clip\nclip = clip"); err != nil {
		t.Fatalf("AddPreset() error = %v", err)
	}
	if err := p.AddSection(20); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	if err := p.SetSectionPreset(20, "deblock"); err != nil {
		t.Fatalf("SetSectionPreset() error = %v", err)
	}
	if err := p.AddFreezeFrame(30, 31, 29); err != nil {
		t.Fatalf("AddFreezeFrame() error = %v", err)
	}
	if err := p.SetMatch(12, project.MatchN); err != nil {
		t.Fatalf("SetMatch() error = %v", err)
	}

	before, err := GenerateScript(p, ScriptOptions{SaveSourceNode: true})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	tcBefore := GenerateTimecodesV1(p)

	data, err := p.Encode(false)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	loaded, err := project.Decode(data, "saved.json")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	after, err := GenerateScript(loaded, ScriptOptions{SaveSourceNode: true})
	if err != nil {
		t.Fatalf("GenerateScript() error = %v", err)
	}
	if before != after {
		t.Errorf("script changed after save and load:\n%s\n---\n%s", before, after)
	}
	if tc := GenerateTimecodesV1(loaded); tc != tcBefore {
		t.Errorf("timecodes changed after save and load:\n%s\n---\n%s", tcBefore, tc)
	}
}

func TestGenerateScript_UndoRedoRoundTrip(t *testing.T) {
	p := newProject(t, 30)
	p.Commit("open")

	mustDecimate(t, p, 4)
	p.Commit("drop 4")
	first, _ := GenerateScript(p, ScriptOptions{})

	if err := p.AddSection(10); err != nil {
		t.Fatalf("AddSection() error = %v", err)
	}
	p.Commit("section 10")
	mustDecimate(t, p, 9)
	p.Commit("drop 9")

	p.Undo()
	p.Undo()
	got, _ := GenerateScript(p, ScriptOptions{})
	if got != first {
		t.Errorf("script after undo differs:\n%s\n---\n%s", first, got)
	}

	p.Redo()
	p.Redo()
	if !p.IsDecimated(9) || len(p.Sections()) != 2 {
		t.Error("Redo() did not restore the later steps")
	}
}

func TestParseDecimationFunction(t *testing.T) {
	for _, fn := range []DecimationFunction{DecimationAuto, DecimationDeleteFrames, DecimationSelectEvery} {
		got, err := ParseDecimationFunction(fn.String())
		if err != nil || got != fn {
			t.Errorf("ParseDecimationFunction(%q) = %v, %v", fn.String(), got, err)
		}
	}
	if _, err := ParseDecimationFunction("decimate"); err == nil {
		t.Error("ParseDecimationFunction(decimate) should fail")
	}
}
