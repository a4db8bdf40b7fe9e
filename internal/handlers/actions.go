// internal/handlers/actions.go
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jason-s-yu/classkit/internal/presentation"
)

// ActionType names a control message sent by a screen, over HTTP or the websocket.
type ActionType string

const (
	ActionNext       ActionType = "next"
	ActionPrevious   ActionType = "previous"
	ActionRestart    ActionType = "restart"
	ActionTimerStart ActionType = "timer_start"
	ActionTimerPause ActionType = "timer_pause"
	ActionTimerReset ActionType = "timer_reset"
	ActionInput      ActionType = "input"
	ActionVote       ActionType = "vote"
	ActionUnvote     ActionType = "unvote"
	ActionTallyReset ActionType = "tally_reset"
	ActionPing       ActionType = "ping"
)

// ErrUnknownAction is returned for an action type outside the vocabulary above.
var ErrUnknownAction = errors.New("unknown action")

// Action is a control message. Key names the tally option for vote and unvote.
type Action struct {
	Type ActionType `json:"type"`
	Key  string     `json:"key,omitempty"`
}

// viewerAllowed reports whether a non-presenter screen may send the action.
func (a Action) viewerAllowed() bool {
	return a.Type == ActionPing || a.Type == ActionInput
}

// applyAction routes one action to the presentation.
func applyAction(p *presentation.Presentation, a Action) error {
	switch a.Type {
	case ActionNext:
		p.Next()
	case ActionPrevious:
		p.Previous()
	case ActionRestart:
		p.Restart()
	case ActionTimerStart:
		p.StartTimer()
	case ActionTimerPause:
		p.PauseTimer()
	case ActionTimerReset:
		p.ResetTimer()
	case ActionInput:
		p.NotifyInput()
	case ActionVote:
		return p.Vote(a.Key)
	case ActionUnvote:
		return p.Unvote(a.Key)
	case ActionTallyReset:
		return p.ResetTally()
	case ActionPing:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, a.Type)
	}
	return nil
}

// actionStatus maps an applyAction error to an HTTP status.
func actionStatus(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAction), errors.Is(err, presentation.ErrUnknownOption):
		return http.StatusBadRequest
	case errors.Is(err, presentation.ErrNotTallySlide):
		return http.StatusConflict
	case errors.Is(err, presentation.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}
