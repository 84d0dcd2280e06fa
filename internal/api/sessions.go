package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/midnam-core/internal/editor"
)

// handleOpenSession creates an editing session. The body is optional;
// when it names a device that device is selected.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var ref *editor.Ref
	var body editor.Ref
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeBodyError(w, err)
		return
	}
	if body != (editor.Ref{}) {
		ref = &body
	}

	sess, err := s.editor.OpenSession(r.Context(), ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleGetSession returns a session.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.editor.Session(chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleCloseSession removes a session.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if !s.editor.CloseSession(chi.URLParam(r, "id")) {
		writeNotFound(w, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSessionDevice selects a device in a session.
func (s *Server) handleSessionDevice(w http.ResponseWriter, r *http.Request) {
	var ref editor.Ref
	if err := json.NewDecoder(r.Body).Decode(&ref); err != nil {
		writeBodyError(w, err)
		return
	}

	sess, err := s.editor.SelectSessionDevice(r.Context(), chi.URLParam(r, "id"), ref)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleSelectPatch selects a patch and previews it when MQTT is available.
func (s *Server) handleSelectPatch(w http.ResponseWriter, r *http.Request) {
	var ps editor.PatchSelection
	if err := json.NewDecoder(r.Body).Decode(&ps); err != nil {
		writeBodyError(w, err)
		return
	}

	sess, payload, err := s.editor.SelectPatch(r.Context(), chi.URLParam(r, "id"), ps)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": sess,
		"preview": payload,
	})
}

// handleAuditionNote plays one note on the session's device. It returns
// once the note-off has been sent.
func (s *Server) handleAuditionNote(w http.ResponseWriter, r *http.Request) {
	note, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeBadRequest(w, "note number must be an integer")
		return
	}

	if err := s.editor.AuditionNote(r.Context(), chi.URLParam(r, "id"), note); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
