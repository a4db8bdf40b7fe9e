// internal/handlers/server.go
package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/auth"
	"github.com/jason-s-yu/classkit/internal/generator"
	"github.com/jason-s-yu/classkit/internal/handoff"
	"github.com/jason-s-yu/classkit/internal/middleware"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jason-s-yu/classkit/internal/presentation"
	"github.com/jason-s-yu/classkit/internal/room"
	"github.com/jason-s-yu/classkit/internal/settings"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Server holds the in-memory state of running presentations and the backends the
// handlers talk to.
type Server struct {
	Logger        *logrus.Logger
	Presentations *presentation.Store
	Rooms         *room.Store
	Handoff       handoff.Store
	Generator     *generator.Service
	Issuer        *auth.Issuer
	Clock         clockwork.Clock

	// Settings are the defaults applied when a request carries no settings cookie.
	Settings settings.Settings
	// OriginPatterns are passed to websocket.Accept.
	OriginPatterns []string
	// IdleTimeout is how long a presentation may go without a connected screen before it is
	// closed. Zero disables it.
	IdleTimeout time.Duration

	mu sync.Mutex
	// handoffKeys remembers which setup key each presentation was built from. A key is
	// destroyed with the last presentation built from it.
	handoffKeys map[uuid.UUID]string
	reapers     map[uuid.UUID]*idleReaper
}

// idleReaper is the pending close of a presentation nobody is watching.
type idleReaper struct {
	timer clockwork.Timer
}

// NewServer wires a server with in-memory presentation and room stores.
func NewServer(logger *logrus.Logger, hs handoff.Store, gen *generator.Service, issuer *auth.Issuer) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{
		Logger:        logger,
		Presentations: presentation.NewStore(),
		Rooms:         room.NewStore(),
		Handoff:       hs,
		Generator:     gen,
		Issuer:        issuer,
		Clock:         clockwork.NewRealClock(),
		Settings:      settings.Settings{Theme: settings.ThemeLight},
		handoffKeys:   make(map[uuid.UUID]string),
		reapers:       make(map[uuid.UUID]*idleReaper),
	}
}

// NewPresentation builds a presentation from cfg, registers it and connects its event
// stream to the presentation's room.
func (s *Server) NewPresentation(cfg models.SessionConfig, handoffKey string) (*presentation.Presentation, error) {
	p, err := presentation.New(cfg, s.Clock)
	if err != nil {
		return nil, err
	}

	rm := s.Rooms.GetOrCreate(p.ID)
	p.BroadcastFn = func(ev presentation.Event) {
		rm.BroadcastAll(presentation.EventBytes(ev))
	}
	rm.OnEmpty = func(id uuid.UUID) {
		s.Logger.WithField("presentation_id", id).Debug("no screens connected")
		s.scheduleReap(id)
	}
	p.OnTimerExpire = func() {
		s.Logger.WithField("presentation_id", p.ID).Debug("slide timer expired")
	}

	s.Presentations.Add(p)
	if handoffKey != "" {
		s.mu.Lock()
		s.handoffKeys[p.ID] = handoffKey
		s.mu.Unlock()
	}
	s.scheduleReap(p.ID)

	s.Logger.WithFields(logrus.Fields{
		"presentation_id": p.ID,
		"activity":        p.Config.Activity,
		"slides":          len(p.Sequence()),
	}).Info("presentation created")
	return p, nil
}

// ClosePresentation removes a presentation and disconnects its screens. The setup key it was
// built from is destroyed unless another running presentation was built from it too.
func (s *Server) ClosePresentation(ctx context.Context, id uuid.UUID) bool {
	if !s.Presentations.Remove(id) {
		return false
	}
	s.cancelReap(id)
	if rm, ok := s.Rooms.Get(id); ok {
		rm.BroadcastAll(presentation.EventBytes(presentation.Event{Type: presentation.EventClosed}))
	}
	s.Rooms.Delete(id)

	s.mu.Lock()
	key, ok := s.handoffKeys[id]
	delete(s.handoffKeys, id)
	for _, other := range s.handoffKeys {
		if other == key {
			ok = false
			break
		}
	}
	s.mu.Unlock()
	if ok {
		if err := s.Handoff.Delete(ctx, key); err != nil {
			s.Logger.WithError(err).Warn("failed to delete handoff key")
		}
	}

	s.Logger.WithField("presentation_id", id).Info("presentation closed")
	return true
}

// scheduleReap arranges for the presentation to be closed after IdleTimeout unless a screen
// joins first. A pending reap is left as is.
func (s *Server) scheduleReap(id uuid.UUID) {
	if s.IdleTimeout <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pending := s.reapers[id]; pending {
		return
	}
	r := &idleReaper{}
	r.timer = s.Clock.AfterFunc(s.IdleTimeout, func() { s.reap(id, r) })
	s.reapers[id] = r
}

func (s *Server) cancelReap(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reapers[id]; ok {
		r.timer.Stop()
		delete(s.reapers, id)
	}
}

func (s *Server) reap(id uuid.UUID, r *idleReaper) {
	s.mu.Lock()
	if s.reapers[id] != r {
		s.mu.Unlock()
		return
	}
	delete(s.reapers, id)
	s.mu.Unlock()

	if rm, ok := s.Rooms.Get(id); ok && rm.Len() > 0 {
		return
	}
	if s.ClosePresentation(context.Background(), id) {
		s.Logger.WithFields(logrus.Fields{
			"presentation_id": id,
			"idle_timeout":    s.IdleTimeout,
		}).Info("idle presentation discarded")
	}
}

// Shutdown closes every presentation and background job.
func (s *Server) Shutdown() {
	s.mu.Lock()
	for id, r := range s.reapers {
		r.timer.Stop()
		delete(s.reapers, id)
	}
	s.mu.Unlock()
	s.Presentations.CloseAll()
	if s.Generator != nil {
		s.Generator.Close()
	}
}

// Routes returns the HTTP surface wrapped in the logging and settings middleware.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", PingHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /session/setup", SessionSetupHandler(s))
	mux.HandleFunc("GET /session/{key}", SessionLoadHandler(s))

	mux.HandleFunc("POST /presentations", CreatePresentationHandler(s))
	mux.HandleFunc("GET /presentations/{id}", GetPresentationHandler(s))
	mux.HandleFunc("POST /presentations/{id}/actions", PresentationActionHandler(s))
	mux.HandleFunc("DELETE /presentations/{id}", DeletePresentationHandler(s))
	mux.HandleFunc("GET /presentations/ws/{id}", PresentationWSHandler(s))

	mux.HandleFunc("POST /generate", StartGenerationHandler(s))
	mux.HandleFunc("GET /generate/{id}", GetGenerationHandler(s))
	mux.HandleFunc("DELETE /generate/{id}", CancelGenerationHandler(s))

	mux.HandleFunc("GET /settings", GetSettingsHandler(s))
	mux.HandleFunc("PUT /settings", PutSettingsHandler(s))

	var h http.Handler = mux
	h = settings.Middleware(s.Settings)(h)
	h = middleware.LogMiddleware(s.Logger)(h)
	return h
}
