package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/ivtc-agent/internal/catalog"
)

// errBadRequest marks malformed request bodies and path parameters.
var errBadRequest = errors.New("bad request")

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(LoopbackGuard(cfg.Logger))
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler(cfg))

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.AuthToken, cfg.Logger))

			r.Get("/status", statusHandler(cfg))
			r.Get("/jobs", listJobsHandler(cfg))
			r.Get("/jobs/{jobID}", getJobHandler(cfg))
			r.Delete("/jobs/{jobID}", cancelJobHandler(cfg))

			r.Post("/projects", openProjectHandler(cfg))
			r.Get("/projects", listProjectsHandler(cfg))
			r.Route("/projects/{id}", func(r chi.Router) {
				r.Get("/", getProjectHandler(cfg))
				r.Delete("/", closeProjectHandler(cfg))
				r.Post("/save", saveProjectHandler(cfg))
				r.Post("/import", importHandler(cfg))
				r.Patch("/settings", settingsHandler(cfg))

				r.Put("/matches/{frame}", setMatchHandler(cfg))
				r.Post("/matches/{frame}/cycle", cycleMatchHandler(cfg))
				r.Post("/matches/reset", resetMatchesHandler(cfg))
				r.Post("/matches/pattern", matchPatternHandler(cfg))
				r.Put("/decimated/{frame}", addDecimatedHandler(cfg))
				r.Delete("/decimated/{frame}", deleteDecimatedHandler(cfg))
				r.Post("/decimated/pattern", decimationPatternHandler(cfg))

				r.Post("/sections/{start}", addSectionHandler(cfg))
				r.Delete("/sections/{start}", deleteSectionHandler(cfg))
				r.Post("/sections/{start}/presets", sectionPresetHandler(cfg))

				r.Post("/presets", addPresetHandler(cfg))
				r.Put("/presets/{name}", updatePresetHandler(cfg))
				r.Delete("/presets/{name}", deletePresetHandler(cfg))

				r.Post("/freeze-frames", addFreezeFrameHandler(cfg))
				r.Delete("/freeze-frames/{first}", deleteFreezeFrameHandler(cfg))

				r.Post("/custom-lists", addCustomListHandler(cfg))
				r.Delete("/custom-lists/{name}", deleteCustomListHandler(cfg))
				r.Post("/custom-lists/{name}/ranges", addCustomListRangeHandler(cfg))

				r.Post("/bookmarks", addBookmarkHandler(cfg))
				r.Delete("/bookmarks/{frame}", deleteBookmarkHandler(cfg))

				r.Post("/guess", guessHandler(cfg))
				r.Post("/undo", undoHandler(cfg))
				r.Post("/redo", redoHandler(cfg))
				r.Post("/commit", commitHandler(cfg))

				r.Get("/script", scriptHandler(cfg))
				r.Get("/display-script", displayScriptHandler(cfg))
				r.Get("/timecodes", timecodesHandler(cfg))
				r.Get("/keyframes", keyframesHandler(cfg))
				r.Post("/export", exportHandler(cfg))

				r.Post("/snapshots", createSnapshotHandler(cfg))
				r.Get("/snapshots", listSnapshotsHandler(cfg))
				r.Post("/snapshots/{sid}/restore", restoreSnapshotHandler(cfg))

				r.Post("/jobs", createJobHandler(cfg))
			})
		})
	})

	return r
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", errBadRequest, err)
	}
	return nil
}

func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, name)
	}
	return v, nil
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Version: cfg.Version,
			UptimeS: int64(time.Since(cfg.StartTime).Seconds()),
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		jobs, _ := cfg.Catalog.ListJobs(ctx, 10)

		state := "idle"
		var activeJob *JobResponse
		jobsRunning := 0
		lastError := ""

		if cfg.Runner != nil && cfg.Runner.IsPaused() {
			state = "paused"
		}
		for _, j := range jobs {
			if j.Status == catalog.JobStatusRunning {
				state = "working"
				resp := JobToResponse(j)
				activeJob = &resp
				jobsRunning++
			}
			if j.Status == catalog.JobStatusFailed && lastError == "" {
				lastError = j.Error
			}
		}
		if lastError != "" && state == "idle" {
			state = "error"
		}

		resp := StatusResponse{
			State:       state,
			LastError:   lastError,
			JobsRunning: jobsRunning,
			ActiveJob:   activeJob,
		}
		if cfg.Sessions != nil {
			resp.ProjectsOpen = len(cfg.Sessions.IDs())
		}

		// Peek keeps /status from launching the tool.
		if cfg.Doctor != nil {
			if caps := cfg.Doctor.Peek(); caps != nil {
				resp.MetricsTool = &MetricsStatusResponse{
					HasFieldMatch:  caps.HasFieldMatch,
					HasDecimation:  caps.HasDecimation,
					HasSceneChange: caps.HasSceneChange,
					LastProbeAt:    caps.ProbedAt.Format(time.RFC3339),
					DepsAvail:      caps.Summary.Available,
					DepsTotal:      caps.Summary.Total,
				}
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

func listJobsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteError(w, http.StatusBadRequest, "limit must be a positive integer", "BAD_REQUEST")
				return
			}
			limit = n
		}

		jobs, err := cfg.Catalog.ListJobs(r.Context(), limit)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		resp := JobsResponse{Jobs: make([]JobResponse, len(jobs))}
		for i, j := range jobs {
			resp.Jobs[i] = JobToResponse(j)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := cfg.Catalog.GetJob(r.Context(), chi.URLParam(r, "jobID"))
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, JobToResponse(job))
	}
}

func cancelJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Catalog.CancelJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func createJobHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateJobRequest
		if err := decodeBody(r, &req); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}

		var params any
		if len(req.Params) > 0 {
			params = req.Params
		}
		job, err := cfg.Catalog.CreateJob(r.Context(), chi.URLParam(r, "id"), req.Type, params)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusAccepted, JobToResponse(job))
	}
}
