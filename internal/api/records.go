package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/midnam-core/internal/localstore"
)

// documentBody is the JSON form of a document upload.
type documentBody struct {
	Document string `json:"document"`
}

// readDocument returns the document carried by the request body. JSON
// bodies use {"document": "..."}; anything else is the raw document text.
func readDocument(r *http.Request) (string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // Empty or invalid means raw text
	if mediaType == "application/json" {
		var body documentBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("invalid JSON body: %w", err)
		}
		return body.Document, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(raw), nil
}

// writeBodyError writes the response for a body that could not be read.
func writeBodyError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
			fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	writeBadRequest(w, err.Error())
}

// recordPath returns the record path from the route wildcard.
func recordPath(r *http.Request) string {
	return strings.Trim(chi.URLParam(r, "*"), "/")
}

// recordSummary is a record without its document.
type recordSummary struct {
	ID           string `json:"id"`
	Path         string `json:"path"`
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Size         int    `json:"size"`
	SavedAt      string `json:"savedAt"`
	CreatedAt    string `json:"createdAt"`
}

func summarize(rec localstore.Record) recordSummary {
	return recordSummary{
		ID:           rec.ID,
		Path:         rec.Path,
		Manufacturer: rec.Manufacturer,
		Model:        rec.Model,
		Size:         rec.Size(),
		SavedAt:      rec.SavedAt.UTC().Format(time.RFC3339),
		CreatedAt:    rec.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// handleListRecords returns every local record. Documents are omitted
// unless ?documents=true.
func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.editor.Records(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("documents") == "true" {
		writeJSON(w, http.StatusOK, map[string]any{
			"records": records,
			"count":   len(records),
		})
		return
	}

	summaries := make([]recordSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, summarize(rec))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"records": summaries,
		"count":   len(summaries),
	})
}

// handleClearRecords removes every local record.
func (s *Server) handleClearRecords(w http.ResponseWriter, r *http.Request) {
	if err := s.editor.ClearLocal(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRecordStats returns local store totals.
func (s *Server) handleRecordStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.editor.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetRecord returns one record with its document.
func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := s.editor.Record(r.Context(), recordPath(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handlePutRecord saves a document at the path. It answers 201 for a new
// record and 200 for an update.
func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	p := recordPath(r)
	if p == "" {
		writeBadRequest(w, "record path is required")
		return
	}

	document, err := readDocument(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	res, err := s.editor.SaveLocal(r.Context(), p, document)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.IsUpdate {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{
		"id":       res.ID,
		"path":     p,
		"isUpdate": res.IsUpdate,
	})
}

// handleDeleteRecord removes one record. Deleting a missing path is not an
// error: both cases answer 200 with {"path", "deleted"}.
func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	p := recordPath(r)
	removed, err := s.editor.DeleteLocal(r.Context(), p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":    p,
		"deleted": removed,
	})
}

// handleDownload serves the raw document of a record as a file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	rec, err := s.editor.Record(r.Context(), recordPath(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": path.Base(rec.Path),
	}))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	io.WriteString(w, rec.Document)
}
