// internal/handlers/server_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jason-s-yu/classkit/internal/auth"
	"github.com/jason-s-yu/classkit/internal/generator"
	"github.com/jason-s-yu/classkit/internal/handoff"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	issuer, err := auth.NewIssuer(time.Hour)
	require.NoError(t, err)

	gen := generator.NewService(generator.NewMockGenerator(), generator.ServiceConfig{
		Timeout:  time.Second,
		Fallback: true,
	})
	s := NewServer(logger, handoff.NewMemoryStore(time.Hour, nil), gen, issuer)
	s.Clock = clockwork.NewFakeClock()
	s.OriginPatterns = []string{"*"}
	t.Cleanup(s.Shutdown)
	return s
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func choiceSession() models.SessionConfig {
	cfg := models.NewSessionConfig(models.ActivityThisOrThat)
	cfg.Title = "Warm-up"
	cfg.Items = []models.Item{
		{Text: "Breakfast", Options: []string{"tea", "coffee"}},
		{Text: "Holidays", Options: []string{"beach", "mountains"}},
	}
	return cfg
}

// pendingReaps counts presentations waiting to be discarded for having no screens.
func pendingReaps(s *Server) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reapers)
}

// startPresentation runs setup and creation through the HTTP surface.
func startPresentation(t *testing.T, h http.Handler, cfg models.SessionConfig) createPresentationResponse {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/session/setup", cfg, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	setup := decodeBody[sessionSetupResponse](t, w)

	w = doJSON(t, h, http.MethodPost, "/presentations", createPresentationRequest{Key: setup.Key}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[createPresentationResponse](t, w)
}
