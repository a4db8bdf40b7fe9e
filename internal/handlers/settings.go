// internal/handlers/settings.go
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/jason-s-yu/classkit/internal/settings"
)

// GetSettingsHandler returns the settings resolved for this request.
func GetSettingsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, settings.FromContext(r.Context()))
	}
}

// PutSettingsHandler validates new settings and persists them in a cookie.
func PutSettingsHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var next settings.Settings
		if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if err := next.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		http.SetCookie(w, settings.Cookie(next))
		writeJSON(w, http.StatusOK, next)
	}
}
