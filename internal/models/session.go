// internal/models/session.go
package models

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrInvalidConfig is returned when a session configuration cannot drive a presentation.
	ErrInvalidConfig = errors.New("invalid session config")
	// ErrInvalidItem is returned when a content item does not match its activity's shape.
	ErrInvalidItem = errors.New("invalid content item")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DefaultThinkingSeconds is the length of the automatic thinking countdown.
const DefaultThinkingSeconds = 30

// SessionConfig is the frozen set of parameters chosen on the setup screen. It is created
// once per session and only read afterwards; use Clone before handing it to another owner.
type SessionConfig struct {
	Activity Activity        `json:"activity" validate:"required,oneof=four_three_two discussion_cards agree_disagree this_or_that"`
	Title    string          `json:"title,omitempty" validate:"max=200"`
	Level    Level           `json:"level,omitempty" validate:"omitempty,oneof=A1 A2 B1 B2 C1 C2"`
	Mode     InteractionMode `json:"mode,omitempty" validate:"omitempty,oneof=pairs groups"`
	Items    []Item          `json:"items,omitempty" validate:"max=50,dive"`

	// RoundMinutes holds one duration per round of a round-based activity (e.g. 4, 3, 2).
	RoundMinutes      []int `json:"roundMinutes,omitempty" validate:"max=10,dive,min=1,max=60"`
	CardSeconds       int   `json:"cardSeconds" validate:"min=0,max=3600"`
	ThinkingSeconds   int   `json:"thinkingSeconds" validate:"min=0,max=600"`
	DiscussionSeconds int   `json:"discussionSeconds" validate:"min=0,max=3600"`

	TimerEnabled    bool             `json:"timerEnabled"`
	FeedbackEnabled bool             `json:"feedbackEnabled"`
	AllowBack       bool             `json:"allowBack"`
	TimerStart      TimerStartPolicy `json:"timerStart,omitempty" validate:"omitempty,oneof=manual on_enter on_first_input"`
}

// NewSessionConfig returns a config for the activity with the setup screen's defaults.
func NewSessionConfig(activity Activity) SessionConfig {
	cfg := SessionConfig{
		Activity:        activity,
		Mode:            ModePairs,
		ThinkingSeconds: DefaultThinkingSeconds,
		TimerEnabled:    true,
		TimerStart:      TimerStartManual,
	}
	switch activity.Family() {
	case FamilyRound:
		cfg.RoundMinutes = []int{4, 3, 2}
	case FamilyCard:
		cfg.CardSeconds = 60
	case FamilyPoll:
		cfg.DiscussionSeconds = 120
	case FamilyChoice:
		cfg.AllowBack = true
	}
	return cfg
}

// Normalize fills in missing defaults, clamps negative durations to zero and trims item text.
// Timers never see a negative duration because of this step.
func (c SessionConfig) Normalize() SessionConfig {
	out := c.Clone()
	if out.Mode == "" {
		out.Mode = ModePairs
	}
	if out.TimerStart == "" {
		out.TimerStart = TimerStartManual
	}
	if out.ThinkingSeconds <= 0 {
		out.ThinkingSeconds = DefaultThinkingSeconds
	}
	out.CardSeconds = max(out.CardSeconds, 0)
	out.DiscussionSeconds = max(out.DiscussionSeconds, 0)
	for i, m := range out.RoundMinutes {
		out.RoundMinutes[i] = max(m, 0)
	}
	for i, it := range out.Items {
		out.Items[i] = it.Normalize()
	}
	if out.Activity.Family() == FamilyChoice {
		out.AllowBack = true
	}
	return out
}

// Validate reports whether the config can be expanded into a slide sequence.
// A round-based session needs at least one round, every other activity at least one item.
func (c SessionConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	switch c.Activity.Family() {
	case FamilyRound:
		if len(c.RoundMinutes) == 0 {
			return fmt.Errorf("%w: at least one round is required", ErrInvalidConfig)
		}
	default:
		if len(c.Items) == 0 {
			return fmt.Errorf("%w: at least one item is required", ErrInvalidConfig)
		}
	}

	for i, it := range c.Items {
		if err := ValidateItem(c.Activity, it); err != nil {
			return fmt.Errorf("%w: item %d: %v", ErrInvalidConfig, i, err)
		}
	}
	return nil
}

// RoundSeconds returns the duration of round i in seconds, or 0 if i is out of range.
func (c SessionConfig) RoundSeconds(i int) int {
	if i < 0 || i >= len(c.RoundMinutes) {
		return 0
	}
	return c.RoundMinutes[i] * 60
}

// Clone returns a deep copy so the caller can never alias the receiver's slices.
func (c SessionConfig) Clone() SessionConfig {
	out := c
	if c.RoundMinutes != nil {
		out.RoundMinutes = append([]int(nil), c.RoundMinutes...)
	}
	if c.Items != nil {
		out.Items = make([]Item, len(c.Items))
		for i, it := range c.Items {
			out.Items[i] = Item{
				Text:      it.Text,
				Options:   append([]string(nil), it.Options...),
				FollowUps: append([]string(nil), it.FollowUps...),
			}
		}
	}
	return out
}
