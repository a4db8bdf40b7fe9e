// internal/presentation/presentation.go
package presentation

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jason-s-yu/classkit/internal/tally"
	"github.com/jason-s-yu/classkit/internal/timer"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNotTallySlide is returned when a vote arrives while the current slide has no tally.
	ErrNotTallySlide = errors.New("current slide does not accept votes")
	// ErrUnknownOption is returned for a vote on a key the current tally does not have.
	ErrUnknownOption = errors.New("unknown tally option")
	// ErrClosed is returned by operations on a presentation that has been torn down.
	ErrClosed = errors.New("presentation closed")
)

// Timer names carried by timer events.
const (
	TimerMain     = "main"
	TimerThinking = "thinking"
)

// Tally keys of the statement-polling activity.
const (
	OptionAgree    = "agree"
	OptionDisagree = "disagree"
)

// Presentation drives one running session: the current slide, the slide timer, the automatic
// thinking countdown and the live tally. All methods are safe for concurrent use.
type Presentation struct {
	ID        uuid.UUID
	Config    models.SessionConfig // frozen at creation
	CreatedAt time.Time

	mu        sync.Mutex
	sequence  []models.Slide
	index     int
	inputSeen bool // an input event arrived on the current slide
	closed    bool

	timer    *timer.Timer
	thinking *timer.Timer
	tally    *tally.Tally

	// seq numbers state changes in the order they happened under mu.
	seq uint64

	// emitMu serializes BroadcastFn; lastSent is the newest seq handed to it.
	emitMu   sync.Mutex
	lastSent uint64

	// BroadcastFn receives every event, one at a time and in seq order, without the
	// presentation lock held. It may read the presentation but must not drive it (Next,
	// StartTimer, Vote and so on), since those emit events themselves. If nil, events are
	// dropped.
	BroadcastFn func(ev Event)

	// OnTimerExpire is an optional side effect (e.g. a completion chime) run when the slide
	// timer expires. A panic inside it is recovered and never interrupts the flow.
	OnTimerExpire func()

	logger *logrus.Entry
}

// New builds a presentation positioned on its first slide. The config is normalized and
// validated; the caller keeps ownership of its own copy.
func New(cfg models.SessionConfig, clock clockwork.Clock) (*Presentation, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	id, _ := uuid.NewRandom()
	p := &Presentation{
		ID:        id,
		Config:    cfg,
		CreatedAt: clock.Now(),
		sequence:  BuildSequence(cfg),
		timer:     timer.New(clock),
		thinking:  timer.New(clock),
		tally:     tally.New(),
		logger:    logrus.WithField("presentation_id", id),
	}

	p.timer.OnExpire = func() { p.handleExpire(TimerMain, p.timer) }
	p.thinking.OnExpire = func() { p.handleExpire(TimerThinking, p.thinking) }
	p.timer.OnTick = func(st timer.State) { p.onTick(TimerMain, p.timer, st) }
	p.thinking.OnTick = func(st timer.State) { p.onTick(TimerThinking, p.thinking, st) }

	p.mu.Lock()
	p.enterLocked()
	p.mu.Unlock()

	return p, nil
}

// Next advances one slide. At the last slide it is a no-op and returns false.
func (p *Presentation) Next() bool {
	p.mu.Lock()
	if p.closed || p.index >= len(p.sequence)-1 {
		p.mu.Unlock()
		return false
	}
	p.index++
	p.enterLocked()
	ev := p.stateEventLocked(EventSlideChanged)
	p.mu.Unlock()

	p.fireEvent(ev)
	return true
}

// Previous steps back one slide with the same entry side effects as Next. It only works
// when the config allows back navigation and the current slide is not the first.
func (p *Presentation) Previous() bool {
	p.mu.Lock()
	if p.closed || !p.Config.AllowBack || p.index == 0 {
		p.mu.Unlock()
		return false
	}
	p.index--
	p.enterLocked()
	ev := p.stateEventLocked(EventSlideChanged)
	p.mu.Unlock()

	p.fireEvent(ev)
	return true
}

// Restart rebuilds the sequence from the config and returns to the first slide with the
// tally emptied and both timers zeroed and paused.
func (p *Presentation) Restart() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.sequence = BuildSequence(p.Config)
	p.index = 0
	p.tally.Reset()
	p.timer.Reset(0)
	p.thinking.Reset(0)
	p.enterLocked()
	ev := p.stateEventLocked(EventRestarted)
	p.mu.Unlock()

	p.logger.Info("presentation restarted")
	p.fireEvent(ev)
}

// StartTimer starts the slide timer. It does nothing when there is no time left.
func (p *Presentation) StartTimer() {
	p.controlTimer(func() { p.timer.Start() })
}

func (p *Presentation) PauseTimer() {
	p.controlTimer(func() { p.timer.Pause() })
}

// ResetTimer puts the slide timer back to the current slide's configured duration, paused.
func (p *Presentation) ResetTimer() {
	p.controlTimer(func() {
		d, _ := p.slideDurationLocked(p.sequence[p.index])
		p.timer.Reset(d)
	})
}

// controlTimer applies op to the slide timer under the lock and emits the new timer state
// if op changed it.
func (p *Presentation) controlTimer(op func()) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	before := p.timer.State()
	op()
	after := p.timer.State()
	if after == before {
		p.mu.Unlock()
		return
	}
	ev := p.timerEventLocked(TimerMain, after)
	p.mu.Unlock()

	p.fireEvent(ev)
}

// NotifyInput records user input on the current slide. Under the on_first_input policy the
// first input starts the slide timer; it reports whether it did.
func (p *Presentation) NotifyInput() bool {
	p.mu.Lock()
	if p.closed || p.inputSeen {
		p.mu.Unlock()
		return false
	}
	p.inputSeen = true
	if p.Config.TimerStart != models.TimerStartOnFirstInput {
		p.mu.Unlock()
		return false
	}
	if _, timed := p.slideDurationLocked(p.sequence[p.index]); !timed {
		p.mu.Unlock()
		return false
	}
	st := p.timer.State()
	if st.Running || st.SecondsRemaining == 0 {
		p.mu.Unlock()
		return false
	}
	p.timer.Start()
	ev := p.timerEventLocked(TimerMain, p.timer.State())
	p.mu.Unlock()

	p.fireEvent(ev)
	return true
}

// Vote adds one vote for key on the current tally slide.
func (p *Presentation) Vote(key string) error {
	return p.changeTally(key, p.tally.Increment)
}

// Unvote removes one vote for key, never going below zero.
func (p *Presentation) Unvote(key string) error {
	return p.changeTally(key, p.tally.Decrement)
}

// ResetTally zeroes the counts of the current tally slide.
func (p *Presentation) ResetTally() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.sequence[p.index].Type != models.SlideTally {
		p.mu.Unlock()
		return ErrNotTallySlide
	}
	p.tally.Clear()
	ev := p.tallyEventLocked()
	p.mu.Unlock()

	p.fireEvent(ev)
	return nil
}

func (p *Presentation) changeTally(key string, apply func(string) bool) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.sequence[p.index].Type != models.SlideTally {
		p.mu.Unlock()
		return ErrNotTallySlide
	}
	if !apply(key) {
		p.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrUnknownOption, key)
	}
	ev := p.tallyEventLocked()
	p.mu.Unlock()

	p.fireEvent(ev)
	return nil
}

// Close cancels both timers and detaches from them. Later operations are no-ops.
func (p *Presentation) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.timer.Cancel()
	p.thinking.Cancel()
	p.mu.Unlock()

	p.logger.Debug("presentation closed")
}

// Sequence returns a copy of the slide sequence.
func (p *Presentation) Sequence() []models.Slide {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Slide(nil), p.sequence...)
}

// Index returns the position of the current slide.
func (p *Presentation) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.index
}

// Current returns the current slide.
func (p *Presentation) Current() models.Slide {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sequence[p.index]
}

func (p *Presentation) TimerState() timer.State    { return p.timer.State() }
func (p *Presentation) ThinkingState() timer.State { return p.thinking.State() }
func (p *Presentation) Tally() tally.Snapshot      { return p.tally.Snapshot() }

// enterLocked applies the side effects of arriving on the current slide.
// Assumes lock is held.
func (p *Presentation) enterLocked() {
	slide := p.sequence[p.index]
	p.inputSeen = false

	if slide.Type == models.SlideThinking {
		p.thinking.Reset(p.Config.ThinkingSeconds)
		p.thinking.Start()
	} else {
		p.thinking.Reset(0)
	}

	if d, timed := p.slideDurationLocked(slide); timed {
		p.timer.Reset(d)
		if p.Config.TimerStart == models.TimerStartOnEnter {
			p.timer.Start()
		}
	} else {
		p.timer.Reset(0)
	}

	if slide.Type == models.SlideTally {
		p.tally.Reset(p.tallyKeysLocked(slide)...)
	}

	p.logger.WithFields(logrus.Fields{
		"slide": slide.String(),
		"index": p.index,
	}).Debug("entered slide")
}

// slideDurationLocked returns the slide timer duration for a slide and whether the slide is
// timed at all.
func (p *Presentation) slideDurationLocked(slide models.Slide) (int, bool) {
	switch slide.Type {
	case models.SlideRound:
		return p.Config.RoundSeconds(slide.Index), true
	case models.SlideCardRevealed:
		if p.Config.TimerEnabled && p.Config.CardSeconds > 0 {
			return p.Config.CardSeconds, true
		}
	case models.SlideDiscussion:
		if p.Config.DiscussionSeconds > 0 {
			return p.Config.DiscussionSeconds, true
		}
	}
	return 0, false
}

func (p *Presentation) tallyKeysLocked(slide models.Slide) []string {
	switch p.Config.Activity.Family() {
	case models.FamilyPoll:
		return []string{OptionAgree, OptionDisagree}
	case models.FamilyChoice:
		if slide.HasIndex() && slide.Index < len(p.Config.Items) {
			return p.Config.Items[slide.Index].Options
		}
	}
	return nil
}

// onTick runs on the timer's goroutine after a countdown step. A step already overtaken by a
// transition or control (the live state differs) is dropped.
func (p *Presentation) onTick(name string, t *timer.Timer, st timer.State) {
	p.mu.Lock()
	if p.closed || t.State() != st {
		p.mu.Unlock()
		return
	}
	ev := p.timerEventLocked(name, st)
	p.mu.Unlock()

	p.fireEvent(ev)
}

// handleExpire runs on the timer's goroutine before the final onTick.
func (p *Presentation) handleExpire(name string, t *timer.Timer) {
	p.mu.Lock()
	if p.closed || t.State() != (timer.State{}) {
		p.mu.Unlock()
		return
	}
	ev := p.stampLocked(Event{Type: EventTimerExpired, Timer: &TimerEvent{Name: name}})
	p.mu.Unlock()

	p.logger.WithField("timer", name).Debug("timer expired")
	p.fireEvent(ev)
	if name == TimerMain && p.OnTimerExpire != nil {
		p.OnTimerExpire()
	}
}

// stampLocked gives ev the next sequence number. Assumes lock is held.
func (p *Presentation) stampLocked(ev Event) Event {
	p.seq++
	ev.Seq = p.seq
	return ev
}

func (p *Presentation) stateEventLocked(typ EventType) Event {
	ev := p.stampLocked(Event{Type: typ})
	ev.State = p.snapshotLocked()
	return ev
}

func (p *Presentation) timerEventLocked(name string, st timer.State) Event {
	return p.stampLocked(Event{Type: EventTimerUpdate, Timer: &TimerEvent{Name: name, State: st}})
}

func (p *Presentation) tallyEventLocked() Event {
	snap := p.tally.Snapshot()
	return p.stampLocked(Event{Type: EventTallyUpdate, Tally: &snap})
}

// fireEvent hands ev to BroadcastFn unless a newer event already went out. It must be
// called without the presentation lock.
func (p *Presentation) fireEvent(ev Event) {
	p.emitMu.Lock()
	defer p.emitMu.Unlock()
	if ev.Seq != 0 && ev.Seq <= p.lastSent {
		return
	}
	p.lastSent = max(p.lastSent, ev.Seq)
	if p.BroadcastFn != nil {
		p.BroadcastFn(ev)
	}
}
