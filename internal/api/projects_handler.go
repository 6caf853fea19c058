package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/project"
	"github.com/heimdex/ivtc-agent/internal/session"
)

// openProject registers the document at req.Path in the catalog and the
// session, creating it first when req.Create is set. A project that is
// already open is returned as is.
func openProject(ctx context.Context, cfg ServerConfig, req OpenProjectRequest) (*catalog.Project, bool, error) {
	if req.Path == "" || !filepath.IsAbs(req.Path) {
		return nil, false, fmt.Errorf("%w: path must be absolute", errBadRequest)
	}
	path := filepath.Clean(req.Path)

	var p *project.Project
	created := false
	if req.Create != nil {
		c := req.Create
		if c.Frames <= 0 || c.FPSNum <= 0 || c.FPSDen <= 0 || c.Width <= 0 || c.Height <= 0 {
			return nil, false, fmt.Errorf("%w: frames, frame rate and resolution must be positive", errBadRequest)
		}
		if c.InputFile == "" || c.SourceFilter == "" {
			return nil, false, fmt.Errorf("%w: input_file and source_filter are required", errBadRequest)
		}
		if _, err := os.Stat(path); err == nil {
			return nil, false, fmt.Errorf("%s: %w", path, fs.ErrExist)
		}
		p = project.New(project.Params{
			InputFile:    c.InputFile,
			SourceFilter: c.SourceFilter,
			FPSNum:       c.FPSNum,
			FPSDen:       c.FPSDen,
			Width:        c.Width,
			Height:       c.Height,
			Frames:       c.Frames,
		})
		if err := p.Write(path, false); err != nil {
			return nil, false, err
		}
		created = true
	} else {
		existing, err := cfg.Catalog.ListProjects(ctx)
		if err != nil {
			return nil, false, err
		}
		for _, rec := range existing {
			if rec.Path == path && cfg.Sessions.IsOpen(rec.ID) {
				return rec, false, nil
			}
		}
		if p, err = project.Read(path); err != nil {
			return nil, false, err
		}
	}

	rec, err := cfg.Catalog.RegisterProject(ctx, path, p)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Sessions.Add(rec.ID, path, p); err != nil && !errors.Is(err, session.ErrAlreadyOpen) {
		return nil, false, err
	}
	return rec, created, nil
}

func openProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req OpenProjectRequest
		if err := decodeBody(r, &req); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}

		rec, created, err := openProject(r.Context(), cfg, req)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		writeProjectState(w, r, cfg, rec, statusFor(created))
	}
}

func statusFor(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func writeProjectState(w http.ResponseWriter, r *http.Request, cfg ServerConfig, rec *catalog.Project, status int) {
	var resp ProjectStateResponse
	err := cfg.Sessions.With(r.Context(), rec.ID, func(p *project.Project) error {
		resp = StateToResponse(rec, p)
		return nil
	})
	if err != nil {
		WriteServiceError(w, cfg.Logger, err)
		return
	}
	WriteJSON(w, status, resp)
}

func listProjectsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := cfg.Catalog.ListProjects(r.Context())
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		resp := ProjectsResponse{Projects: make([]ProjectResponse, len(projects))}
		for i, rec := range projects {
			resp.Projects[i] = ProjectToResponse(rec)
			if cfg.Sessions.IsOpen(rec.ID) {
				resp.Projects[i].Open = true
				cfg.Sessions.With(r.Context(), rec.ID, func(p *project.Project) error {
					resp.Projects[i].Modified = p.IsModified()
					return nil
				})
			}
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// getProjectHandler returns the full editing state, opening the project if
// needed.
func getProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := cfg.Catalog.GetProject(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		writeProjectState(w, r, cfg, rec, http.StatusOK)
	}
}

func saveProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := cfg.Sessions.Save(r.Context(), id); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		writeHistory(w, r, cfg, id)
	}
}

// closeProjectHandler closes an open project. ?save=false discards unsaved
// changes.
func closeProjectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		save := true
		if v := r.URL.Query().Get("save"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "save must be a boolean", "BAD_REQUEST")
				return
			}
			save = b
		}
		if err := cfg.Sessions.Close(r.Context(), chi.URLParam(r, "id"), save); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func importHandler(cfg ServerConfig) http.HandlerFunc {
	return edit(cfg, "import project settings", func(r *http.Request, p *project.Project) error {
		var req ImportRequest
		if err := decodeBody(r, &req); err != nil {
			return err
		}
		if req.Path == "" {
			return fmt.Errorf("%w: path is required", errBadRequest)
		}
		return p.ImportFile(req.Path, req.Options)
	})
}

func createSnapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SnapshotRequest
		if r.ContentLength != 0 {
			if err := decodeBody(r, &req); err != nil {
				WriteServiceError(w, cfg.Logger, err)
				return
			}
		}

		id := chi.URLParam(r, "id")
		var snap *catalog.Snapshot
		err := cfg.Sessions.With(r.Context(), id, func(p *project.Project) error {
			var err error
			snap, err = cfg.Catalog.CreateSnapshot(r.Context(), id, req.Description, p)
			return err
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusCreated, SnapshotToResponse(snap))
	}
}

func listSnapshotsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := cfg.Catalog.GetProject(r.Context(), id); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		snaps, err := cfg.Catalog.ListSnapshots(r.Context(), id)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		resp := SnapshotsResponse{Snapshots: make([]SnapshotResponse, len(snaps))}
		for i, s := range snaps {
			resp.Snapshots[i] = SnapshotToResponse(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

// restoreSnapshotHandler replaces the open project with a stored snapshot.
// The project's undo history starts over.
func restoreSnapshotHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		p, err := cfg.Catalog.LoadSnapshot(ctx, id, chi.URLParam(r, "sid"))
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		if err := cfg.Sessions.Replace(ctx, id, p); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		rec, err := cfg.Catalog.GetProject(ctx, id)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		err = cfg.Sessions.With(ctx, id, func(p *project.Project) error {
			return cfg.Catalog.UpdateStats(ctx, id, p)
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		writeProjectState(w, r, cfg, rec, http.StatusOK)
	}
}
