package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/ivtc-agent/internal/catalog"
	"github.com/heimdex/ivtc-agent/internal/export"
	"github.com/heimdex/ivtc-agent/internal/framerange"
	"github.com/heimdex/ivtc-agent/internal/logging"
	"github.com/heimdex/ivtc-agent/internal/project"
	"github.com/heimdex/ivtc-agent/internal/session"
)

type contextKey string

const RequestIDKey contextKey = "request_id"

// AuthMiddleware requires "Authorization: Bearer <token>". An empty token
// disables the check.
func AuthMiddleware(token string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				WriteError(w, http.StatusUnauthorized, "missing authorization header", "UNAUTHORIZED")
				return
			}
			provided, ok := strings.CutPrefix(auth, "Bearer ")
			if !ok {
				WriteError(w, http.StatusUnauthorized, "invalid authorization format", "UNAUTHORIZED")
				return
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
				logger.Warn("invalid auth token", "provided", logging.SanitizeToken(provided))
				WriteError(w, http.StatusUnauthorized, "invalid token", "UNAUTHORIZED")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoopbackGuard rejects requests whose remote address is not a loopback
// address.
func LoopbackGuard(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemoteAddr(r.RemoteAddr) {
				logger.Warn("rejected non-loopback request", "remote_addr", r.RemoteAddr)
				WriteError(w, http.StatusForbidden, "loopback access only", "FORBIDDEN")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isLoopbackRemoteAddr(addr string) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			requestID, _ := r.Context().Value(RequestIDKey).(string)
			logging.WithRequestID(logger, requestID).Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

func RecoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					requestID, _ := r.Context().Value(RequestIDKey).(string)
					logger.Error("panic recovered", "error", err, "request_id", requestID)
					WriteError(w, http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware tags each request with a short random ID, echoed in
// the X-Request-ID header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := uuid.NewString()[:8]
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func WriteError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// errorStatus maps an error from the domain packages to an HTTP status and
// error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, project.ErrRange):
		return http.StatusBadRequest, "OUT_OF_RANGE"
	case errors.Is(err, project.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, framerange.ErrInvalidRange), errors.Is(err, framerange.ErrUnsatisfiable):
		return http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, export.ErrInvalidOutputDir),
		errors.Is(err, export.ErrUnknownOutput),
		errors.Is(err, export.ErrUnknownDecimation),
		errors.Is(err, catalog.ErrInvalidJobType),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, project.ErrConflict):
		return http.StatusConflict, "CONFLICT"
	case errors.Is(err, session.ErrAlreadyOpen):
		return http.StatusConflict, "ALREADY_OPEN"
	case errors.Is(err, catalog.ErrJobNotPending):
		return http.StatusConflict, "JOB_NOT_PENDING"
	case errors.Is(err, export.ErrNoPreset):
		return http.StatusUnprocessableEntity, "NO_PRESET"
	case errors.Is(err, project.ErrReference):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, catalog.ErrNotFound), errors.Is(err, session.ErrNotOpen):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound, "FILE_NOT_FOUND"
	case errors.Is(err, fs.ErrExist):
		return http.StatusConflict, "FILE_EXISTS"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// WriteServiceError writes err with the status errorStatus picks. Internal
// errors are logged and their text is not returned.
func WriteServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		WriteError(w, status, "internal error", code)
		return
	}
	WriteError(w, status, err.Error(), code)
}
