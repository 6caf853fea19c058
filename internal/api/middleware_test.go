package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/export"
	"github.com/heimdex/ivtc-agent/internal/framerange"
	"github.com/heimdex/ivtc-agent/internal/project"
	"github.com/heimdex/ivtc-agent/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		header string
		want   int
	}{
		{"disabled", "", "", http.StatusOK},
		{"missing header", "s3cret-token", "", http.StatusUnauthorized},
		{"wrong scheme", "s3cret-token", "Basic s3cret-token", http.StatusUnauthorized},
		{"wrong token", "s3cret-token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "s3cret-token", "Bearer s3cret-token", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/status", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			AuthMiddleware(tt.token, discardLogger())(okHandler).ServeHTTP(rr, req)
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestIsLoopbackRemoteAddr(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"127.0.0.1:5000", true},
		{"127.0.0.2:5000", true},
		{"[::1]:5000", true},
		{"::1", true},
		{"192.168.1.10:5000", false},
		{"[2001:db8::1]:5000", false},
		{"localhost:5000", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := isLoopbackRemoteAddr(tt.addr); got != tt.want {
			t.Errorf("isLoopbackRemoteAddr(%q) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestLoopbackGuard(t *testing.T) {
	guard := LoopbackGuard(discardLogger())(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.5:4444"
	rr := httptest.NewRecorder()
	guard.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("non-loopback status = %d, want 403", rr.Code)
	}

	req.RemoteAddr = "127.0.0.1:4444"
	rr = httptest.NewRecorder()
	guard.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("loopback status = %d, want 200", rr.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	h := RequestIDMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value(RequestIDKey).(string)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if len(seen) != 8 {
		t.Errorf("request id = %q, want 8 characters", seen)
	}
	if got := rr.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("X-Request-ID = %q, want %q", got, seen)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	h := RecoveryMiddleware(discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if body := decodeJSONBody(t, rr); body["code"] != "INTERNAL_ERROR" {
		t.Errorf("code = %v", body["code"])
	}
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"range", fmt.Errorf("set: %w", project.ErrRange), http.StatusBadRequest, "OUT_OF_RANGE"},
		{"validation", project.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED"},
		{"bad frame range", framerange.ErrInvalidRange, http.StatusBadRequest, "INVALID_RANGE"},
		{"unsatisfiable", framerange.ErrUnsatisfiable, http.StatusBadRequest, "INVALID_RANGE"},
		{"bad body", errBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
		{"output dir", export.ErrInvalidOutputDir, http.StatusBadRequest, "BAD_REQUEST"},
		{"job type", catalog.ErrInvalidJobType, http.StatusBadRequest, "BAD_REQUEST"},
		{"conflict", project.ErrConflict, http.StatusConflict, "CONFLICT"},
		{"already open", session.ErrAlreadyOpen, http.StatusConflict, "ALREADY_OPEN"},
		{"job started", catalog.ErrJobNotPending, http.StatusConflict, "JOB_NOT_PENDING"},
		{"no preset", export.ErrNoPreset, http.StatusUnprocessableEntity, "NO_PRESET"},
		{"reference", project.ErrReference, http.StatusNotFound, "NOT_FOUND"},
		{"catalog", catalog.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"not open", session.ErrNotOpen, http.StatusNotFound, "NOT_FOUND"},
		{"missing file", fs.ErrNotExist, http.StatusNotFound, "FILE_NOT_FOUND"},
		{"file exists", fs.ErrExist, http.StatusConflict, "FILE_EXISTS"},
		{"other", errors.New("disk on fire"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := errorStatus(tt.err)
			if status != tt.want || code != tt.code {
				t.Errorf("errorStatus() = %d %s, want %d %s", status, code, tt.want, tt.code)
			}
		})
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteServiceError(rr, discardLogger(), errors.New("secret path /home/me"))

	body := decodeJSONBody(t, rr)
	if body["error"] != "internal error" {
		t.Errorf("error = %v, want a generic message", body["error"])
	}
}
