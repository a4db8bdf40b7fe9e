// internal/handlers/session.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/classkit/internal/models"
)

type sessionSetupResponse struct {
	Key    string               `json:"key"`
	Config models.SessionConfig `json:"config"`
}

// SessionSetupHandler validates the setup screen's config and stores it for the
// presentation screen to pick up.
func SessionSetupHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg models.SessionConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		cfg = cfg.Normalize()
		if err := cfg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		key, err := s.Handoff.Save(r.Context(), cfg)
		if err != nil {
			s.Logger.WithError(err).Error("failed to store session config")
			writeError(w, http.StatusServiceUnavailable, "could not store session")
			return
		}
		s.Logger.WithField("activity", cfg.Activity).Debug("session config stored")
		writeJSON(w, http.StatusCreated, sessionSetupResponse{Key: key, Config: cfg})
	}
}

// SessionLoadHandler returns a stored config. Missing, expired or corrupt data redirects
// to setup.
func SessionLoadHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		cfg, err := s.Handoff.Load(r.Context(), key)
		if err != nil {
			s.Logger.WithError(err).WithField("key", key).Info("session data unavailable, redirecting to setup")
			redirectToSetup(w, r)
			return
		}
		writeJSON(w, http.StatusOK, cfg)
	}
}
