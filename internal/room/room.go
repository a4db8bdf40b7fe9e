// internal/room/room.go
package room

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateConnection is returned when a connection id is already registered.
var ErrDuplicateConnection = errors.New("connection already in room")

// Room is the set of live screens watching one presentation.
type Room struct {
	ID uuid.UUID // the presentation id

	connections map[uuid.UUID]*Connection

	// OnEmpty is called after the last connection leaves, e.g.
	//   r.OnEmpty = func(id uuid.UUID) { store.Delete(id) }
	OnEmpty func(id uuid.UUID)

	mu sync.Mutex
}

// Connection is a single screen's presence in the room.
type Connection struct {
	ID          uuid.UUID
	IsPresenter bool
	OutChan     chan []byte
	Cancel      func()

	mu     sync.Mutex
	closed bool
}

// NewConnection returns a connection with a buffered outgoing channel.
func NewConnection(isPresenter bool, cancel func()) *Connection {
	id, _ := uuid.NewRandom()
	return &Connection{
		ID:          id,
		IsPresenter: isPresenter,
		OutChan:     make(chan []byte, 32),
		Cancel:      cancel,
	}
}

// Write pushes a message onto the OutChan without blocking. A full channel drops it, and
// writes after close are ignored.
func (c *Connection) Write(msg []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.OutChan <- msg:
	default:
		logrus.WithField("connection_id", c.ID).Warn("outgoing channel full, dropped message")
	}
}

// close closes the outgoing channel, which stops the write pump, and cancels the context.
func (c *Connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.OutChan)
	c.mu.Unlock()

	if c.Cancel != nil {
		c.Cancel()
	}
}

// WriteJSON marshals v and writes it.
func (c *Connection) WriteJSON(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		logrus.WithError(err).Warn("failed to marshal outgoing message")
		return
	}
	c.Write(b)
}

// WriteError is a convenience to send an error frame.
func (c *Connection) WriteError(msg string) {
	c.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}

func New(id uuid.UUID) *Room {
	return &Room{
		ID:          id,
		connections: make(map[uuid.UUID]*Connection),
	}
}

// AddConnection registers a connection and tells everyone the new audience size.
func (r *Room) AddConnection(conn *Connection) error {
	r.mu.Lock()
	if _, exists := r.connections[conn.ID]; exists {
		r.mu.Unlock()
		return ErrDuplicateConnection
	}
	r.connections[conn.ID] = conn
	msg := r.audiencePayloadLocked()
	r.mu.Unlock()

	logrus.WithFields(logrus.Fields{"room_id": r.ID, "connection_id": conn.ID, "presenter": conn.IsPresenter}).Debug("connection joined")
	r.BroadcastAll(msg)
	return nil
}

// RemoveConnection drops a connection, closes its channel and cancels its context.
// If the room becomes empty, OnEmpty is called.
func (r *Room) RemoveConnection(id uuid.UUID) {
	r.mu.Lock()
	conn, ok := r.connections[id]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.connections, id)
	isEmpty := len(r.connections) == 0
	onEmpty := r.OnEmpty
	msg := r.audiencePayloadLocked()
	r.mu.Unlock()

	conn.close()
	logrus.WithFields(logrus.Fields{"room_id": r.ID, "connection_id": id}).Debug("connection left")

	if isEmpty {
		if onEmpty != nil {
			onEmpty(r.ID)
		}
		return
	}
	r.BroadcastAll(msg)
}

// BroadcastAll writes msg to every connection.
func (r *Room) BroadcastAll(msg []byte) {
	for _, c := range r.Connections() {
		c.Write(msg)
	}
}

// Connections returns a snapshot of the current connections.
func (r *Room) Connections() []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Connection, 0, len(r.connections))
	for _, c := range r.connections {
		out = append(out, c)
	}
	return out
}

func (r *Room) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// CloseAll removes every connection without calling OnEmpty.
func (r *Room) CloseAll() {
	r.mu.Lock()
	conns := r.connections
	r.connections = make(map[uuid.UUID]*Connection)
	r.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// audiencePayloadLocked assumes lock is held.
func (r *Room) audiencePayloadLocked() []byte {
	viewers := 0
	for _, c := range r.connections {
		if !c.IsPresenter {
			viewers++
		}
	}
	b, _ := json.Marshal(map[string]any{
		"type":        "audience",
		"connections": len(r.connections),
		"viewers":     viewers,
	})
	return b
}
