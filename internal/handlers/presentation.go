// internal/handlers/presentation.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/presentation"
	"github.com/sirupsen/logrus"
)

type createPresentationRequest struct {
	Key string `json:"key"`
}

type createPresentationResponse struct {
	ID    uuid.UUID             `json:"id"`
	Token string                `json:"token"`
	State presentation.Snapshot `json:"state"`
}

// CreatePresentationHandler starts a presentation from a setup key. A missing or
// unreadable key sends the client back to setup instead of failing.
func CreatePresentationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createPresentationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
			writeError(w, http.StatusBadRequest, "request body must carry a session key")
			return
		}

		cfg, err := s.Handoff.Load(r.Context(), req.Key)
		if err != nil {
			s.Logger.WithError(err).WithField("key", req.Key).Warn("session data unavailable, redirecting to setup")
			redirectToSetup(w, r)
			return
		}

		p, err := s.NewPresentation(cfg, req.Key)
		if err != nil {
			s.Logger.WithError(err).Warn("stored session config rejected, redirecting to setup")
			redirectToSetup(w, r)
			return
		}

		token, err := s.Issuer.CreatePresenterToken(p.ID)
		if err != nil {
			s.Logger.WithError(err).Error("failed to sign presenter token")
			s.Presentations.Remove(p.ID)
			s.Rooms.Delete(p.ID)
			writeError(w, http.StatusInternalServerError, "could not create presentation")
			return
		}

		writeJSON(w, http.StatusCreated, createPresentationResponse{
			ID:    p.ID,
			Token: token,
			State: p.Snapshot(),
		})
	}
}

// GetPresentationHandler returns the current state of a presentation.
func GetPresentationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathUUID(w, r, "id")
		if !ok {
			return
		}
		p, ok := s.Presentations.Get(id)
		if !ok {
			writeError(w, http.StatusNotFound, "presentation not found")
			return
		}
		writeJSON(w, http.StatusOK, p.Snapshot())
	}
}

// PresentationActionHandler applies one presenter control action and returns the
// resulting state.
func PresentationActionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.presenterOf(w, r)
		if !ok {
			return
		}

		var a Action
		if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := applyAction(p, a); err != nil {
			writeError(w, actionStatus(err), err.Error())
			return
		}

		s.Logger.WithFields(logrus.Fields{
			"presentation_id": p.ID,
			"action":          a.Type,
		}).Debug("action applied")
		writeJSON(w, http.StatusOK, p.Snapshot())
	}
}

// DeletePresentationHandler ends a presentation.
func DeletePresentationHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := s.presenterOf(w, r)
		if !ok {
			return
		}
		s.ClosePresentation(r.Context(), p.ID)
		w.WriteHeader(http.StatusNoContent)
	}
}

// presenterOf resolves the presentation in the path and checks the caller holds its
// presenter token. It writes the error response itself.
func (s *Server) presenterOf(w http.ResponseWriter, r *http.Request) (*presentation.Presentation, bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return nil, false
	}
	p, ok := s.Presentations.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "presentation not found")
		return nil, false
	}
	token := extractToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing presenter token")
		return nil, false
	}
	if !s.Issuer.IsPresenterOf(token, id) {
		writeError(w, http.StatusForbidden, "not the presenter of this presentation")
		return nil, false
	}
	return p, true
}
