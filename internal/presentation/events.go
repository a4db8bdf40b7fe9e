// internal/presentation/events.go
package presentation

import (
	"github.com/jason-s-yu/classkit/internal/tally"
	"github.com/jason-s-yu/classkit/internal/timer"
)

// EventType is an enum-like type for broadcasting presentation changes.
type EventType string

const (
	EventSlideChanged EventType = "slide_changed"       // carries the full state
	EventTimerUpdate  EventType = "timer_update"        // one timer ticked or was controlled
	EventTimerExpired EventType = "timer_expired"       // a running timer reached zero
	EventTallyUpdate  EventType = "tally_update"        // carries the tally only
	EventRestarted    EventType = "restarted"           // carries the full state
	EventSyncState    EventType = "sync_state"          // sent privately on connect
	EventClosed       EventType = "presentation_closed" // the presentation was torn down
)

// TimerEvent identifies which timer an event is about.
type TimerEvent struct {
	Name string `json:"name"`
	timer.State
}

// Event holds data about a change that is broadcast to every connected screen.
//
// Seq increases with every state change of one presentation. A screen that has applied an
// event or a snapshot with a given seq ignores anything older.
type Event struct {
	Type  EventType       `json:"type"`
	Seq   uint64          `json:"seq,omitempty"`
	Timer *TimerEvent     `json:"timer,omitempty"`
	Tally *tally.Snapshot `json:"tally,omitempty"`
	State *Snapshot       `json:"state,omitempty"`
}
