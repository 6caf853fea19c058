package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/db"
	"github.com/heimdex/ivtc-agent/internal/pipelines"
	"github.com/heimdex/ivtc-agent/internal/session"
)

type testEnv struct {
	t        *testing.T
	handler  http.Handler
	catalog  *catalog.Service
	sessions *session.Registry
	dir      string
	token    string
}

func newTestEnv(t *testing.T, mutate ...func(*ServerConfig)) *testEnv {
	t.Helper()

	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "test.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	svc := catalog.NewService(catalog.NewRepository(database.Conn()), nil)
	sessions := session.NewRegistry(svc.PathResolver, 0, nil)

	cfg := ServerConfig{
		Catalog:   svc,
		Sessions:  sessions,
		Logger:    discardLogger(),
		StartTime: time.Now(),
		Version:   "test",
	}
	for _, fn := range mutate {
		fn(&cfg)
	}
	return &testEnv{
		t:        t,
		handler:  NewRouter(cfg),
		catalog:  svc,
		sessions: sessions,
		dir:      dir,
		token:    cfg.AuthToken,
	}
}

// do sends a request from a loopback address. body may be a string or a
// value to encode as JSON.
func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()

	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			e.t.Fatalf("json.Marshal() error = %v", err)
		}
		r = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, r)
	req.RemoteAddr = "127.0.0.1:50000"
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func (e *testEnv) expect(method, path string, body any, status int) *httptest.ResponseRecorder {
	e.t.Helper()
	rr := e.do(method, path, body)
	if rr.Code != status {
		e.t.Fatalf("%s %s status = %d, want %d: %s", method, path, rr.Code, status, rr.Body.String())
	}
	return rr
}

func (e *testEnv) projectPath(name string) string {
	return filepath.Join(e.dir, name)
}

// createProject creates a project of frames frames and returns its ID.
func (e *testEnv) createProject(name string, frames int) string {
	e.t.Helper()
	rr := e.expect(http.MethodPost, "/api/v1/projects", OpenProjectRequest{
		Path: e.projectPath(name),
		Create: &CreateProjectParams{
			InputFile:    "/videos/ep01.m2ts",
			SourceFilter: "bs.VideoSource",
			FPSNum:       30000,
			FPSDen:       1001,
			Width:        720,
			Height:       480,
			Frames:       frames,
		},
	}, http.StatusCreated)
	return decodeState(e.t, rr).ID
}

func (e *testEnv) state(id string) ProjectStateResponse {
	e.t.Helper()
	return decodeState(e.t, e.expect(http.MethodGet, "/api/v1/projects/"+id, nil, http.StatusOK))
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) ProjectStateResponse {
	t.Helper()
	var resp ProjectStateResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode state error = %v: %s", err, rr.Body.String())
	}
	return resp
}

func decodeHistory(t *testing.T, rr *httptest.ResponseRecorder) HistoryResponse {
	t.Helper()
	var resp HistoryResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode history error = %v: %s", err, rr.Body.String())
	}
	return resp
}

func decodeJSONBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal() error = %v: %s", err, rr.Body.String())
	}
	return body
}

type fakeDoctorRunner struct {
	caps *pipelines.Capabilities
}

func (f *fakeDoctorRunner) RunDoctor(ctx context.Context) (*pipelines.Capabilities, error) {
	if f.caps == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return f.caps, nil
}

func (f *fakeDoctorRunner) CollectMetrics(ctx context.Context, req pipelines.MetricsRequest, outPath string) (pipelines.RunResult, error) {
	return pipelines.RunResult{ExitCode: 1}, nil
}

func (f *fakeDoctorRunner) ArtifactsDir() string { return "" }

func newRemoteRequest(method, path string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "203.0.113.7:40000"
	return req
}

func serve(e *testEnv, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}
