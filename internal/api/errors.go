package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/localstore"
	"github.com/nerrad567/midnam-core/internal/midi"
	"github.com/nerrad567/midnam-core/internal/midnam"
	"github.com/nerrad567/midnam-core/internal/preview"
	"github.com/nerrad567/midnam-core/internal/remote"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeNotFound          = "not_found"
	ErrCodeConflict          = "conflict"
	ErrCodeInternal          = "internal_error"
	ErrCodeStoreUnavailable  = "store_unavailable"
	ErrCodeQuotaExceeded     = "quota_exceeded"
	ErrCodeMalformedDocument = "malformed_document"
	ErrCodeUnavailable       = "unavailable"
	ErrCodeTimeout           = "timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// classifyError maps a domain error to an HTTP status and error code.
func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, localstore.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, ErrCodeStoreUnavailable
	case errors.Is(err, localstore.ErrQuotaExceeded):
		return http.StatusInsufficientStorage, ErrCodeQuotaExceeded
	case errors.Is(err, midnam.ErrMalformedDocument):
		return http.StatusUnprocessableEntity, ErrCodeMalformedDocument
	case errors.Is(err, editor.ErrDeviceNotFound),
		errors.Is(err, editor.ErrSessionNotFound),
		errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, editor.ErrPathExists):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, editor.ErrInvalidRef),
		errors.Is(err, editor.ErrNoDevice),
		errors.Is(err, editor.ErrPatchOutOfRange),
		errors.Is(err, localstore.ErrInvalidPath),
		errors.Is(err, midnam.ErrNoDeviceInfo),
		errors.Is(err, midi.ErrInvalidChannel),
		errors.Is(err, midi.ErrInvalidData),
		errors.Is(err, preview.ErrInvalidCommand):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, editor.ErrPreviewDisabled),
		errors.Is(err, preview.ErrPublishFailed),
		errors.Is(err, remote.ErrUnavailable),
		errors.Is(err, remote.ErrBadResponse):
		return http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

// writeServiceError writes the response for an error returned by the
// editor or one of its collaborators. Internal errors are logged and their
// detail is not sent to the client.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classifyError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}
