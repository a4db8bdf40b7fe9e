// internal/handlers/presentation_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/middleware"
	"github.com/jason-s-yu/classkit/internal/presentation"
	"github.com/jason-s-yu/classkit/internal/room"
	"github.com/jason-s-yu/classkit/internal/settings"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol every screen must speak.
const Subprotocol = "presentation"

// settingsMessage is the first frame a screen receives.
type settingsMessage struct {
	Type     string            `json:"type"`
	Settings settings.Settings `json:"settings"`
}

// PresentationWSHandler upgrades a screen's connection. The first frame carries the
// application settings, the second the full presentation state. A valid ?token= marks the
// connection as the presenter; everyone else is a viewer that only receives updates.
func PresentationWSHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: s.OriginPatterns,
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the presentation subprotocol")
			return
		}

		id, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			c.Close(PresentationNotFoundError, "invalid presentation id")
			return
		}
		p, ok := s.Presentations.Get(id)
		if !ok {
			c.Close(PresentationNotFoundError, "presentation does not exist")
			return
		}

		isPresenter := false
		if token := r.URL.Query().Get("token"); token != "" {
			if !s.Issuer.IsPresenterOf(token, id) {
				c.Close(InvalidTokenError, "invalid presenter token")
				return
			}
			isPresenter = true
		}

		readCtx, cancelRead := context.WithCancel(r.Context())
		defer cancelRead()

		// The room closes OutChan when it drops the connection; the write pump still delivers
		// whatever was queued before that and then ends the socket itself.
		conn := room.NewConnection(isPresenter, nil)
		conn.WriteJSON(settingsMessage{Type: "settings", Settings: settings.FromContext(r.Context())})
		snap := p.Snapshot()
		conn.Write(presentation.EventBytes(presentation.Event{Type: presentation.EventSyncState, Seq: snap.Seq, State: &snap}))

		rm := s.Rooms.GetOrCreate(id)
		if err := rm.AddConnection(conn); err != nil {
			s.Logger.WithError(err).Warn("failed to join room")
			c.Close(websocket.StatusInternalError, "could not join presentation")
			return
		}
		s.cancelReap(id)
		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path, isPresenter)

		pump := &wsPump{
			c:          c,
			conn:       conn,
			readCtx:    readCtx,
			cancelRead: cancelRead,
			closeCode: func() (websocket.StatusCode, string) {
				if _, ok := s.Presentations.Get(id); !ok {
					return PresentationClosedError, "presentation closed"
				}
				return websocket.StatusGoingAway, "disconnected"
			},
			logger: s.Logger,
		}
		pumpDone := make(chan struct{})
		go func() {
			defer close(pumpDone)
			pump.run()
		}()
		readErr := readPresentationMessages(readCtx, c, p, conn, s.Logger)
		if pump.closedByServer.Load() {
			readErr = nil
		}
		cancelRead()

		rm.RemoveConnection(conn.ID)
		<-pumpDone
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, readErr)

		if pump.closedByServer.Load() {
			return
		}
		if _, ok := s.Presentations.Get(id); !ok {
			c.Close(PresentationClosedError, "presentation closed")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPresentationMessages reads control actions until the socket closes or ctx is done.
// Replies are queued on the connection, never written directly. It returns the read
// error only when it was not an ordinary closure.
func readPresentationMessages(ctx context.Context, c *websocket.Conn, p *presentation.Presentation, conn *room.Connection, logger *logrus.Logger) error {
	log := logger.WithFields(logrus.Fields{
		"presentation_id": p.ID,
		"connection_id":   conn.ID,
	})
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if msgType != websocket.MessageText {
			log.Warnf("ignoring non-text message type %d", msgType)
			continue
		}

		var a Action
		if err := json.Unmarshal(data, &a); err != nil {
			conn.WriteError("Invalid JSON format.")
			continue
		}

		if !conn.IsPresenter && !a.viewerAllowed() {
			conn.WriteError("only the presenter can control the presentation")
			continue
		}
		if a.Type == ActionPing {
			conn.WriteJSON(map[string]string{"type": "pong"})
			continue
		}

		if err := applyAction(p, a); err != nil {
			log.WithError(err).Debugf("action %q rejected", a.Type)
			conn.WriteError(err.Error())
		}
	}
}

// wsPump drains a connection's OutChan onto the socket and keeps it alive with periodic
// pings. When the room closes OutChan while the screen is still reading, the pump ends the
// socket with the code closeCode picks.
type wsPump struct {
	c          *websocket.Conn
	conn       *room.Connection
	readCtx    context.Context
	cancelRead context.CancelFunc
	closeCode  func() (websocket.StatusCode, string)
	logger     *logrus.Logger

	closedByServer atomic.Bool
}

func (wp *wsPump) run() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-wp.conn.OutChan:
			if !ok {
				if wp.readCtx.Err() == nil {
					wp.closedByServer.Store(true)
					code, reason := wp.closeCode()
					wp.c.Close(code, reason)
				}
				return
			}
			writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := wp.c.Write(writeCtx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				if wp.readCtx.Err() == nil {
					wp.logger.Warnf("failed to write to websocket for connection %v: %v", wp.conn.ID, err)
				}
				wp.cancelRead()
				wp.drain()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(wp.readCtx, 15*time.Second)
			err := wp.c.Ping(pingCtx)
			cancel()
			if err != nil {
				if wp.readCtx.Err() == nil {
					wp.logger.Warnf("failed to ping connection %v: %v, assuming disconnect", wp.conn.ID, err)
				}
				wp.cancelRead()
				wp.drain()
				return
			}
		}
	}
}

// drain discards queued messages until the room closes OutChan.
func (wp *wsPump) drain() {
	for range wp.conn.OutChan {
	}
}
