// internal/presentation/snapshot.go
package presentation

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jason-s-yu/classkit/internal/tally"
	"github.com/jason-s-yu/classkit/internal/timer"
)

// Snapshot is the client-facing state of a presentation.
type Snapshot struct {
	ID         uuid.UUID               `json:"id"`
	Seq        uint64                  `json:"seq"`
	Activity   models.Activity         `json:"activity"`
	Title      string                  `json:"title,omitempty"`
	Mode       models.InteractionMode  `json:"mode,omitempty"`
	Index      int                     `json:"index"`
	Total      int                     `json:"total"`
	Slide      models.Slide            `json:"slide"`
	Item       *models.Item            `json:"item,omitempty"`
	Timer      timer.State             `json:"timer"`
	Thinking   timer.State             `json:"thinkingTimer"`
	Tally      *tally.Snapshot         `json:"tally,omitempty"`
	TimerStart models.TimerStartPolicy `json:"timerStart"`
	CanGoBack  bool                    `json:"canGoBack"`
	CanGoNext  bool                    `json:"canGoNext"`
	Finished   bool                    `json:"finished"`
}

// Snapshot returns the current state for a newly connected screen.
func (p *Presentation) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.snapshotLocked()
}

// snapshotLocked assumes lock is held.
func (p *Presentation) snapshotLocked() *Snapshot {
	slide := p.sequence[p.index]
	last := len(p.sequence) - 1
	snap := &Snapshot{
		ID:         p.ID,
		Seq:        p.seq,
		Activity:   p.Config.Activity,
		Title:      p.Config.Title,
		Mode:       p.Config.Mode,
		Index:      p.index,
		Total:      len(p.sequence),
		Slide:      slide,
		Item:       p.itemLocked(slide),
		Timer:      p.timer.State(),
		Thinking:   p.thinking.State(),
		TimerStart: p.Config.TimerStart,
		CanGoBack:  p.Config.AllowBack && p.index > 0,
		CanGoNext:  p.index < last,
		Finished:   slide.Type == models.SlideExit,
	}
	if slide.Type == models.SlideTally {
		t := p.tally.Snapshot()
		snap.Tally = &t
	}
	return snap
}

// itemLocked returns the content a slide shows. Round slides are indexed by round, so a
// round-based session shows its first item (the talk topic) throughout.
func (p *Presentation) itemLocked(slide models.Slide) *models.Item {
	items := p.Config.Items
	if p.Config.Activity.Family() == models.FamilyRound {
		if len(items) == 0 {
			return nil
		}
		it := items[0]
		return &it
	}
	if !slide.HasIndex() || slide.Index >= len(items) {
		return nil
	}
	it := items[slide.Index]
	return &it
}
