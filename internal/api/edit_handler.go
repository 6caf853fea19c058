package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/framerange"
	"github.com/heimdex/ivtc-agent/internal/project"
)

// edit wraps a mutation of an open project. Each successful request is
// committed as one undo step unless ?commit=false is given, in which case
// the client groups edits with POST /commit.
func edit(cfg ServerConfig, description string, fn func(r *http.Request, p *project.Project) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		commit := r.URL.Query().Get("commit") != "false"

		var resp HistoryResponse
		err := cfg.Sessions.With(ctx, id, func(p *project.Project) error {
			if err := fn(r, p); err != nil {
				return err
			}
			if commit {
				p.Commit(description)
			}
			resp = HistoryToResponse(p)
			return cfg.Catalog.UpdateStats(ctx, id, p)
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func writeHistory(w http.ResponseWriter, r *http.Request, cfg ServerConfig, id string) {
	var resp HistoryResponse
	err := cfg.Sessions.With(r.Context(), id, func(p *project.Project) error {
		resp = HistoryToResponse(p)
		return nil
	})
	if err != nil {
		WriteServiceError(w, cfg.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

func parseRange(spec string, n int) (framerange.Range, error) {
	rng, err := framerange.Parse(spec, n)
	if err != nil {
		return rng, fmt.Errorf("range %q: %w", spec, err)
	}
	return rng, nil
}

func setMatchHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "set match", func(r *http.Request, p *project.Project) error {
		frame, err := intParam(r, "frame")
		if err != nil {
			return err
		}
		var req SetMatchRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if len(req.Match) != 1 {
			return fmt.Errorf("%w: match must be one of p, c, n, b, u", errBadRequest)
		}
		return p.SetMatch(frame, req.Match[0])
	})
}

func cycleMatchHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "cycle match", func(r *http.Request, p *project.Project) error {
		frame, err := intParam(r, "frame")
		if err != nil {
			return err
		}
		if r.URL.Query().Get("mode") == "cnb" {
			return p.CycleMatchCNB(frame)
		}
		return p.CycleMatch(frame)
	})
}

func resetMatchesHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "reset matches", func(r *http.Request, p *project.Project) error {
		var req RangeRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		rng, err := parseRange(req.Range, p.SourceFrameCount())
		if err != nil {
			return err
		}
		return p.ResetRangeMatches(rng.First, rng.Last)
	})
}

func matchPatternHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "apply match pattern", func(r *http.Request, p *project.Project) error {
		var req RangeRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		rng, err := parseRange(req.Range, p.SourceFrameCount())
		if err != nil {
			return err
		}
		return p.SetRangeMatchesFromPattern(rng.First, rng.Last, req.Pattern)
	})
}

func addDecimatedHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "decimate frame", func(r *http.Request, p *project.Project) error {
		frame, err := intParam(r, "frame")
		if err != nil {
			return err
		}
		return p.AddDecimated(frame)
	})
}

func deleteDecimatedHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "undecimate frame", func(r *http.Request, p *project.Project) error {
		frame, err := intParam(r, "frame")
		if err != nil {
			return err
		}
		return p.DeleteDecimated(frame)
	})
}

func decimationPatternHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "apply decimation pattern", func(r *http.Request, p *project.Project) error {
		var req RangeRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		rng, err := parseRange(req.Range, p.SourceFrameCount())
		if err != nil {
			return err
		}
		return p.SetRangeDecimationFromPattern(rng.First, rng.Last, req.Pattern)
	})
}

func addSectionHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add section", func(r *http.Request, p *project.Project) error {
		start, err := intParam(r, "start")
		if err != nil {
			return err
		}
		return p.AddSection(start)
	})
}

func deleteSectionHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "delete section", func(r *http.Request, p *project.Project) error {
		start, err := intParam(r, "start")
		if err != nil {
			return err
		}
		return p.DeleteSection(start)
	})
}

func sectionPresetHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "assign section preset", func(r *http.Request, p *project.Project) error {
		start, err := intParam(r, "start")
		if err != nil {
			return err
		}
		var req SectionPresetRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return p.SetSectionPreset(start, req.Preset)
	})
}

func addPresetHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add preset", func(r *http.Request, p *project.Project) error {
		var req PresetRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return p.AddPreset(req.Name, req.Contents)
	})
}

// updatePresetHandler sets the contents of a preset. A different name in
// the body renames it first.
func updatePresetHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "edit preset", func(r *http.Request, p *project.Project) error {
		name := chi.URLParam(r, "name")
		var req PresetRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if req.Name != "" && req.Name != name {
			if err := p.RenamePreset(name, req.Name); err != nil {
				return err
			}
			name = req.Name
		}
		return p.SetPresetContents(name, req.Contents)
	})
}

func deletePresetHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "delete preset", func(r *http.Request, p *project.Project) error {
		return p.DeletePreset(chi.URLParam(r, "name"))
	})
}

func addFreezeFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add freeze frame", func(r *http.Request, p *project.Project) error {
		var req FreezeFrameRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return p.AddFreezeFrame(req.First, req.Last, req.Replacement)
	})
}

func deleteFreezeFrameHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "delete freeze frame", func(r *http.Request, p *project.Project) error {
		first, err := intParam(r, "first")
		if err != nil {
			return err
		}
		if ff, ok := p.FindFreezeFrame(first); !ok || ff.First != first {
			return fmt.Errorf("no freeze frame starts at %d: %w", first, project.ErrReference)
		}
		p.DeleteFreezeFrame(first)
		return nil
	})
}

func addCustomListHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add custom list", func(r *http.Request, p *project.Project) error {
		var req CustomListRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return p.AddCustomList(req.Name, req.Preset, project.ParsePosition(req.Position))
	})
}

func deleteCustomListHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "delete custom list", func(r *http.Request, p *project.Project) error {
		return p.DeleteCustomList(chi.URLParam(r, "name"))
	})
}

func addCustomListRangeHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add custom list range", func(r *http.Request, p *project.Project) error {
		name := chi.URLParam(r, "name")
		index := p.CustomListIndex(name)
		if index < 0 {
			return fmt.Errorf("no custom list named %q: %w", name, project.ErrReference)
		}
		var req RangeRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		rng, err := parseRange(req.Range, p.SourceFrameCount())
		if err != nil {
			return err
		}
		return p.AddCustomListRange(index, rng.First, rng.Last)
	})
}

func addBookmarkHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "add bookmark", func(r *http.Request, p *project.Project) error {
		var req BookmarkRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		return p.AddBookmark(req.Frame, req.Description)
	})
}

func deleteBookmarkHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "delete bookmark", func(r *http.Request, p *project.Project) error {
		frame, err := intParam(r, "frame")
		if err != nil {
			return err
		}
		return p.DeleteBookmark(frame)
	})
}

// guessHandler runs pattern guessing synchronously. Options absent from
// the body keep the project's stored values.
func guessHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		var params catalog.GuessParams
		if r.ContentLength != 0 {
			if err := decodeBody(r, &params); err != nil {
				WriteServiceError(w, cfg.Logger, err)
				return
			}
		}

		var resp GuessResponse
		err := cfg.Sessions.With(ctx, id, func(p *project.Project) error {
			if err := p.GuessProjectPatterns(params.Apply(p.PatternGuessing().GuessOptions)); err != nil {
				return err
			}
			p.Commit("guess patterns")
			resp.Failures = FailuresToResponse(p.PatternGuessing().Failures())
			resp.DecimatedFrames = p.DecimatedFrameCount()
			return cfg.Catalog.UpdateStats(ctx, id, p)
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func undoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyHandler(cfg, func(p *project.Project) error {
		if !p.CanUndo() {
			return fmt.Errorf("nothing to undo: %w", project.ErrConflict)
		}
		p.Undo()
		return nil
	})
}

func redoHandler(cfg ServerConfig) http.HandlerFunc {
	return historyHandler(cfg, func(p *project.Project) error {
		if !p.CanRedo() {
			return fmt.Errorf("nothing to redo: %w", project.ErrConflict)
		}
		p.Redo()
		return nil
	})
}

func historyHandler(cfg ServerConfig, fn func(p *project.Project) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		var resp HistoryResponse
		err := cfg.Sessions.With(ctx, id, func(p *project.Project) error {
			if err := fn(p); err != nil {
				return err
			}
			resp = HistoryToResponse(p)
			return cfg.Catalog.UpdateStats(ctx, id, p)
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// commitHandler records the current state as one undo step, closing a
// group of ?commit=false edits.
func commitHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CommitRequest
		if r.ContentLength != 0 {
			if err := decodeBody(r, &req); err != nil {
				WriteServiceError(w, cfg.Logger, err)
				return
			}
		}
		if strings.TrimSpace(req.Description) == "" {
			req.Description = "edit"
		}
		historyHandler(cfg, func(p *project.Project) error {
			p.Commit(req.Description)
			return nil
		})(w, r)
	}
}

// SettingsRequest changes output and UI settings. Absent fields are left
// alone.
type SettingsRequest struct {
	Crop *struct {
		Left    int  `json:"left"`
		Top     int  `json:"top"`
		Right   int  `json:"right"`
		Bottom  int  `json:"bottom"`
		Enabled bool `json:"enabled"`
		Early   bool `json:"early"`
	} `json:"crop,omitempty"`
	Resize *struct {
		Width   int    `json:"width"`
		Height  int    `json:"height"`
		Filter  string `json:"filter"`
		Enabled bool   `json:"enabled"`
	} `json:"resize,omitempty"`
	BitDepth *struct {
		Bits         int    `json:"bits"`
		FloatSamples bool   `json:"float_samples"`
		Dither       string `json:"dither"`
		Enabled      bool   `json:"enabled"`
	} `json:"bit_depth,omitempty"`
	Zoom                   *int            `json:"zoom,omitempty"`
	FreezeFramesWanted     *bool           `json:"freeze_frames_wanted,omitempty"`
	MicSearchMinimum       *int            `json:"mic_search_minimum,omitempty"`
	CMatchSequencesMinimum *int            `json:"c_match_sequences_minimum,omitempty"`
	LastVisitedFrame       *int            `json:"last_visited_frame,omitempty"`
	ShownFrameRates        *[5]bool        `json:"shown_frame_rates,omitempty"`
	VFM                    json.RawMessage `json:"vfm_parameters,omitempty"`
	VDecimate              json.RawMessage `json:"vdecimate_parameters,omitempty"`
}

func settingsHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "change settings", func(r *http.Request, p *project.Project) error {
		var req SettingsRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if c := req.Crop; c != nil {
			if err := p.SetCrop(c.Left, c.Top, c.Right, c.Bottom); err != nil {
				return err
			}
			p.SetCropEnabled(c.Enabled)
			p.SetCropEarly(c.Early)
		}
		if rs := req.Resize; rs != nil {
			if err := p.SetResize(rs.Width, rs.Height, rs.Filter); err != nil {
				return err
			}
			p.SetResizeEnabled(rs.Enabled)
		}
		if d := req.BitDepth; d != nil {
			p.SetBitDepth(d.Bits, d.FloatSamples, d.Dither)
			p.SetBitDepthEnabled(d.Enabled)
		}
		if req.Zoom != nil {
			if err := p.SetZoom(*req.Zoom); err != nil {
				return err
			}
		}
		if req.FreezeFramesWanted != nil {
			p.SetFreezeFramesWanted(*req.FreezeFramesWanted)
		}
		if req.MicSearchMinimum != nil {
			p.SetMicSearchMinimum(*req.MicSearchMinimum)
		}
		if req.CMatchSequencesMinimum != nil {
			p.SetCMatchSequencesMinimum(*req.CMatchSequencesMinimum)
		}
		if req.LastVisitedFrame != nil {
			p.SetLastVisitedFrame(*req.LastVisitedFrame)
		}
		if req.ShownFrameRates != nil {
			p.SetShownFrameRates(*req.ShownFrameRates)
		}
		if err := setParameters(req.VFM, p.SetVFMParameter); err != nil {
			return err
		}
		return setParameters(req.VDecimate, p.SetVDecimateParameter)
	})
}

// setParameters decodes a JSON object of filter parameters. Numbers
// without a fraction or exponent are integers.
func setParameters(raw json.RawMessage, set func(name string, value any) error) error {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var params map[string]any
	if err := dec.Decode(&params); err != nil {
		return fmt.Errorf("%w: parameters must be an object: %v", errBadRequest, err)
	}
	for name, v := range params {
		if n, ok := v.(json.Number); ok {
			if !strings.ContainsAny(n.String(), ".eE") {
				i, err := n.Int64()
				if err != nil {
					return fmt.Errorf("%w: parameter %q: %v", errBadRequest, name, err)
				}
				v = i
			} else {
				f, err := n.Float64()
				if err != nil {
					return fmt.Errorf("%w: parameter %q: %v", errBadRequest, name, err)
				}
				v = f
			}
		}
		if err := set(name, v); err != nil {
			return err
		}
	}
	return nil
}
