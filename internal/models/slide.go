// internal/models/slide.go
package models

import (
	"encoding/json"
	"fmt"
)

// SlideType tags one discrete screen of a presentation flow.
type SlideType string

const (
	SlideInstructions SlideType = "instructions"
	SlideThinking     SlideType = "thinking"
	SlideGetReady     SlideType = "get-ready"
	SlideRound        SlideType = "round"
	SlideSwitch       SlideType = "switch"
	SlideCardHidden   SlideType = "card-hidden"
	SlideCardRevealed SlideType = "card-revealed"
	SlideFeedback     SlideType = "feedback"
	SlideTally        SlideType = "tally"
	SlidePairing      SlideType = "pairing"
	SlideDiscussion   SlideType = "discussion"
	SlideReflection   SlideType = "reflection"
	SlideExit         SlideType = "exit"
)

// NoIndex marks a slide that does not refer to a round, card or statement.
const NoIndex = -1

// Slide is an immutable entry of a slide sequence. Index refers to the round, card or
// statement the slide belongs to, or NoIndex.
type Slide struct {
	Type  SlideType
	Index int
}

// NewSlide returns an untagged slide.
func NewSlide(t SlideType) Slide {
	return Slide{Type: t, Index: NoIndex}
}

// NewIndexedSlide returns a slide tagged with a round, card or statement index.
func NewIndexedSlide(t SlideType, index int) Slide {
	return Slide{Type: t, Index: index}
}

// HasIndex reports whether the slide is tagged.
func (s Slide) HasIndex() bool {
	return s.Index >= 0
}

func (s Slide) String() string {
	if s.HasIndex() {
		return fmt.Sprintf("%s(%d)", s.Type, s.Index)
	}
	return string(s.Type)
}

type slideJSON struct {
	Type  SlideType `json:"type"`
	Index *int      `json:"index,omitempty"`
}

// MarshalJSON omits the index of untagged slides.
func (s Slide) MarshalJSON() ([]byte, error) {
	out := slideJSON{Type: s.Type}
	if s.HasIndex() {
		idx := s.Index
		out.Index = &idx
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores NoIndex for slides without an index.
func (s *Slide) UnmarshalJSON(data []byte) error {
	var in slideJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Type = in.Type
	s.Index = NoIndex
	if in.Index != nil {
		s.Index = *in.Index
	}
	return nil
}
