package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers funnel errors through respondError, which maps core errors to
// HTTP status codes, logs the technical detail server-side with the
// request ID for correlation, and returns a sanitized JSON body.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/procdata/rationalizer/internal/core"
	"github.com/procdata/rationalizer/internal/ingest"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError logs the technical error and writes a JSON error body
// with a status derived from the error value.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeErrorCode(w, status, sanitizeErrorMessage(err.Error()), code)
}

// classifyError maps known core and ingest errors to an HTTP status and
// a machine-readable code. Unknown errors become a 500.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrNoFiles):
		return http.StatusBadRequest, "NO_FILES"
	case errors.Is(err, core.ErrWrongStage):
		return http.StatusConflict, "WRONG_STAGE"
	case errors.Is(err, core.ErrBusy):
		return http.StatusConflict, "BUSY"
	case errors.Is(err, core.ErrAtFirstStage), errors.Is(err, core.ErrAtLastStage):
		return http.StatusConflict, "STAGE_BOUNDARY"
	case errors.Is(err, core.ErrNotReady):
		return http.StatusConflict, "NOT_READY"
	case errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable, "SESSION_LIMIT"
	case errors.Is(err, ingest.ErrUnsupported):
		return http.StatusBadRequest, "UNSUPPORTED_FILE"
	case errors.Is(err, ingest.ErrEmptyFile):
		return http.StatusBadRequest, "EMPTY_FILE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// writeError writes a JSON error response with a generic code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorCode(w, status, message, codeForStatus(status))
}

func writeErrorCode(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	default:
		return "INTERNAL"
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// sanitizeErrorMessage strips internal detail that should not reach
// clients: file system paths and anything after an internal marker.
func sanitizeErrorMessage(message string) string {
	if i := strings.Index(message, ": open /"); i > 0 {
		return message[:i]
	}
	if len(message) > 200 {
		return message[:200]
	}
	return message
}
