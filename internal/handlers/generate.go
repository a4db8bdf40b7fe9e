// internal/handlers/generate.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/classkit/internal/generator"
)

// StartGenerationHandler starts a background generation job and returns its id.
func StartGenerationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		id, err := s.Generator.StartJob(req)
		if err != nil {
			if errors.Is(err, generator.ErrInvalidRequest) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"job_id": id})
	}
}

// GetGenerationHandler reports a job's state and, once finished, its result.
func GetGenerationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		job, err := s.Generator.Job(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

// CancelGenerationHandler cancels a pending job. Content the caller already holds is
// untouched either way.
func CancelGenerationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		job, err := s.Generator.CancelJob(id)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}
