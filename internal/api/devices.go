package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/midnam-core/internal/editor"
	"github.com/nerrad567/midnam-core/internal/midnam"
)

// handleNormalize returns the view model of the document in the body
// without storing it.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	document, err := readDocument(r)
	if err != nil {
		writeBodyError(w, err)
		return
	}

	view, err := midnam.Normalize(document)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := map[string]any{"view": view}
	if info, err := midnam.ExtractDeviceInfo(document); err == nil {
		resp["device"] = info
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSelectDevice loads and normalizes a device from the local store or
// the remote API: GET /device?path=&key=&file=.
func (s *Server) handleSelectDevice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref := editor.Ref{
		Path: q.Get("path"),
		Key:  q.Get("key"),
		File: q.Get("file"),
	}

	sel, err := s.editor.SelectDevice(r.Context(), ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

// handleCreateDevice builds and saves a new device document.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req editor.NewDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyError(w, err)
		return
	}

	sel, err := s.editor.CreateDevice(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sel)
}

// handleCatalog returns the remote catalog merged with local records.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat, err := s.editor.Catalog(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}
