// internal/presentation/sequence.go
package presentation

import (
	"github.com/jason-s-yu/classkit/internal/models"
)

// Expander produces the activity-specific middle of a slide sequence.
// Implementations must not mutate the config.
type Expander func(cfg models.SessionConfig) []models.Slide

// expanders holds one strategy per activity family.
var expanders = map[models.Family]Expander{
	models.FamilyRound:  expandRounds,
	models.FamilyCard:   expandCards,
	models.FamilyPoll:   expandPoll,
	models.FamilyChoice: expandChoices,
}

// BuildSequence expands a session config into its ordered slides. The result always starts
// with instructions, carries a reflection slide iff feedback is enabled, and ends in exactly
// one exit slide. It is a pure function of cfg.
func BuildSequence(cfg models.SessionConfig) []models.Slide {
	seq := []models.Slide{models.NewSlide(models.SlideInstructions)}
	if expand, ok := expanders[cfg.Activity.Family()]; ok {
		seq = append(seq, expand(cfg)...)
	}
	if cfg.FeedbackEnabled {
		seq = append(seq, models.NewSlide(models.SlideReflection))
	}
	return append(seq, models.NewSlide(models.SlideExit))
}

// expandRounds: thinking, get-ready, then each round followed by a switch unless it is the last.
func expandRounds(cfg models.SessionConfig) []models.Slide {
	n := len(cfg.RoundMinutes)
	out := make([]models.Slide, 0, 2+2*n)
	out = append(out, models.NewSlide(models.SlideThinking), models.NewSlide(models.SlideGetReady))
	for i := 0; i < n; i++ {
		out = append(out, models.NewIndexedSlide(models.SlideRound, i))
		if i < n-1 {
			out = append(out, models.NewIndexedSlide(models.SlideSwitch, i))
		}
	}
	return out
}

func expandCards(cfg models.SessionConfig) []models.Slide {
	out := make([]models.Slide, 0, 3*len(cfg.Items))
	for i := range cfg.Items {
		out = append(out,
			models.NewIndexedSlide(models.SlideCardHidden, i),
			models.NewIndexedSlide(models.SlideCardRevealed, i),
		)
		if cfg.FeedbackEnabled {
			out = append(out, models.NewIndexedSlide(models.SlideFeedback, i))
		}
	}
	return out
}

// expandPoll repeats the thinking/tally/pairing/discussion block once per statement.
func expandPoll(cfg models.SessionConfig) []models.Slide {
	out := make([]models.Slide, 0, 4*len(cfg.Items))
	for i := range cfg.Items {
		out = append(out,
			models.NewIndexedSlide(models.SlideThinking, i),
			models.NewIndexedSlide(models.SlideTally, i),
			models.NewIndexedSlide(models.SlidePairing, i),
			models.NewIndexedSlide(models.SlideDiscussion, i),
		)
	}
	return out
}

func expandChoices(cfg models.SessionConfig) []models.Slide {
	out := make([]models.Slide, 0, len(cfg.Items))
	for i := range cfg.Items {
		out = append(out, models.NewIndexedSlide(models.SlideTally, i))
	}
	return out
}
