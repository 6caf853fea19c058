package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/ivtc-agent/internal/export"
	"github.com/heimdex/ivtc-agent/internal/project"
)

// renderHandler serves one generated output as plain text.
func renderHandler(cfg ServerConfig, output string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var opts export.ScriptOptions
		q := r.URL.Query()
		if v := q.Get("decimation"); v != "" {
			fn, err := export.ParseDecimationFunction(v)
			if err != nil {
				WriteServiceError(w, cfg.Logger, err)
				return
			}
			opts.Decimation = fn
		}
		if v := q.Get("save_source_node"); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				WriteError(w, http.StatusBadRequest, "save_source_node must be a boolean", "BAD_REQUEST")
				return
			}
			opts.SaveSourceNode = b
		}

		var text string
		err := cfg.Sessions.With(r.Context(), chi.URLParam(r, "id"), func(p *project.Project) error {
			var err error
			text, err = export.Render(p, output, opts)
			return err
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(text))
	}
}

func scriptHandler(cfg ServerConfig) http.HandlerFunc {
	return renderHandler(cfg, export.OutputScript)
}

func displayScriptHandler(cfg ServerConfig) http.HandlerFunc {
	return renderHandler(cfg, export.OutputDisplayScript)
}

func timecodesHandler(cfg ServerConfig) http.HandlerFunc {
	return renderHandler(cfg, export.OutputTimecodes)
}

func keyframesHandler(cfg ServerConfig) http.HandlerFunc {
	return renderHandler(cfg, export.OutputKeyframes)
}

// exportHandler writes the requested outputs into a validated directory.
// The name defaults to the project document's base name.
func exportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")

		var req export.ExportRequest
		if err := decodeBody(r, &req); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		if err := export.ValidateOutputDir(req.OutputDir); err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}

		rec, err := cfg.Catalog.GetProject(ctx, id)
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		if req.Name == "" {
			req.Name = export.BaseName(rec.Path)
		}

		var resp *export.ExportResponse
		err = cfg.Sessions.With(ctx, id, func(p *project.Project) error {
			var err error
			resp, err = export.WriteOutputs(p, req)
			return err
		})
		if err != nil {
			WriteServiceError(w, cfg.Logger, err)
			return
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}
