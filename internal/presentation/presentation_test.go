// internal/presentation/presentation_test.go
package presentation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/classkit/internal/models"
	"github.com/jason-s-yu/classkit/internal/timer"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) all() []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return append([]Event(nil), mb.events...)
}

func (mb *mockBroadcaster) clear() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = nil
}

func (mb *mockBroadcaster) ofType(t EventType) []Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	var out []Event
	for _, ev := range mb.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (mb *mockBroadcaster) last() *Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.events) == 0 {
		return nil
	}
	return &mb.events[len(mb.events)-1]
}

// setupTestPresentation builds a presentation on a fake clock with a mock broadcaster.
func setupTestPresentation(t *testing.T, cfg models.SessionConfig) (*Presentation, *clockwork.FakeClock, *mockBroadcaster) {
	t.Helper()
	fc := clockwork.NewFakeClock()
	p, err := New(cfg, fc)
	require.NoError(t, err)
	mb := &mockBroadcaster{}
	p.BroadcastFn = mb.broadcastFn
	t.Cleanup(p.Close)
	return p, fc, mb
}

func roundsConfig(feedback bool) models.SessionConfig {
	cfg := models.NewSessionConfig(models.ActivityFourThreeTwo)
	cfg.FeedbackEnabled = feedback
	cfg.Items = []models.Item{{Text: "Talk about your favourite holiday."}}
	return cfg
}

func pollConfig() models.SessionConfig {
	cfg := models.NewSessionConfig(models.ActivityAgreeDisagree)
	cfg.Items = []models.Item{{Text: "Homework should be banned."}}
	return cfg
}

func choiceConfig() models.SessionConfig {
	cfg := models.NewSessionConfig(models.ActivityThisOrThat)
	cfg.Items = []models.Item{
		{Text: "Breakfast", Options: []string{"tea", "coffee"}},
		{Text: "Holidays", Options: []string{"beach", "mountains"}},
	}
	return cfg
}

// advanceTo calls Next until the current slide is want.
func advanceTo(t *testing.T, p *Presentation, want models.Slide) {
	t.Helper()
	for p.Current() != want {
		require.True(t, p.Next(), "reached the end without finding %s", want)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := models.NewSessionConfig(models.ActivityFourThreeTwo)
	cfg.RoundMinutes = nil
	_, err := New(cfg, clockwork.NewFakeClock())
	require.ErrorIs(t, err, models.ErrInvalidConfig)

	cfg = models.NewSessionConfig(models.ActivityDiscussionCards)
	_, err = New(cfg, clockwork.NewFakeClock())
	require.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestPresentation_InitialState(t *testing.T) {
	p, _, _ := setupTestPresentation(t, roundsConfig(true))

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, models.NewSlide(models.SlideInstructions), p.Current())
	assert.Equal(t, timer.State{}, p.TimerState())
	assert.Len(t, p.Sequence(), 10)
}

func TestPresentation_NextReachesExitThenNoop(t *testing.T) {
	p, _, mb := setupTestPresentation(t, roundsConfig(true))
	n := len(p.Sequence())

	for i := 0; i < n-1; i++ {
		require.True(t, p.Next())
	}
	assert.Equal(t, models.SlideExit, p.Current().Type)
	assert.True(t, p.Snapshot().Finished)
	assert.Len(t, mb.ofType(EventSlideChanged), n-1)

	assert.False(t, p.Next())
	assert.Equal(t, n-1, p.Index())
	assert.Len(t, mb.ofType(EventSlideChanged), n-1, "no event for a no-op next")
}

func TestPresentation_EnteringRoundResetsTimerPaused(t *testing.T) {
	p, _, _ := setupTestPresentation(t, roundsConfig(false))

	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 0))
	assert.Equal(t, timer.State{SecondsRemaining: 240, Running: false}, p.TimerState())

	advanceTo(t, p, models.NewIndexedSlide(models.SlideSwitch, 0))
	assert.Equal(t, timer.State{}, p.TimerState(), "non-timed slides zero the timer")

	require.True(t, p.Next())
	require.Equal(t, models.NewIndexedSlide(models.SlideRound, 1), p.Current())
	assert.Equal(t, timer.State{SecondsRemaining: 180, Running: false}, p.TimerState())
}

func TestPresentation_ThinkingAutoStarts(t *testing.T) {
	p, fc, mb := setupTestPresentation(t, roundsConfig(false))

	require.True(t, p.Next())
	require.Equal(t, models.SlideThinking, p.Current().Type)
	assert.Equal(t, timer.State{SecondsRemaining: models.DefaultThinkingSeconds, Running: true}, p.ThinkingState())
	assert.False(t, p.TimerState().Running, "slide timer stays untouched")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, fc.BlockUntilContext(ctx, 1))
	fc.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return p.ThinkingState().SecondsRemaining == models.DefaultThinkingSeconds-1
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		for _, ev := range mb.ofType(EventTimerUpdate) {
			if ev.Timer.Name == TimerThinking && ev.Timer.SecondsRemaining == models.DefaultThinkingSeconds-1 {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	// Leaving the slide stops the thinking countdown.
	require.True(t, p.Next())
	assert.Equal(t, timer.State{}, p.ThinkingState())
}

func TestPresentation_TimerControls(t *testing.T) {
	p, _, mb := setupTestPresentation(t, roundsConfig(false))
	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 2))
	mb.clear()

	p.StartTimer()
	assert.True(t, p.TimerState().Running)
	p.PauseTimer()
	assert.False(t, p.TimerState().Running)

	p.StartTimer()
	p.ResetTimer()
	assert.Equal(t, timer.State{SecondsRemaining: 120, Running: false}, p.TimerState())

	updates := mb.ofType(EventTimerUpdate)
	require.NotEmpty(t, updates)
	assert.Equal(t, TimerMain, updates[0].Timer.Name)
	assert.True(t, updates[0].Timer.Running)
}

func TestPresentation_TimerExpiryEmitsOnceAndSwallowsChimePanic(t *testing.T) {
	cfg := roundsConfig(false)
	cfg.RoundMinutes = []int{1}
	p, fc, mb := setupTestPresentation(t, cfg)
	p.OnTimerExpire = func() { panic("audio device unavailable") }

	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 0))
	p.StartTimer()

	for i := 0; i < 60; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err := fc.BlockUntilContext(ctx, 1)
		cancel()
		require.NoError(t, err)
		fc.Advance(time.Second)
	}

	assert.Eventually(t, func() bool {
		return len(mb.ofType(EventTimerExpired)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, timer.State{SecondsRemaining: 0, Running: false}, p.TimerState())

	// The flow keeps working after the failed chime.
	assert.True(t, p.Next())
	assert.Len(t, mb.ofType(EventTimerExpired), 1)
}

func TestPresentation_CardTimerRespectsToggle(t *testing.T) {
	cfg := models.NewSessionConfig(models.ActivityDiscussionCards)
	cfg.Items = []models.Item{{Text: "What makes a good friend?"}}
	cfg.CardSeconds = 90

	p, _, _ := setupTestPresentation(t, cfg)
	advanceTo(t, p, models.NewIndexedSlide(models.SlideCardRevealed, 0))
	assert.Equal(t, timer.State{SecondsRemaining: 90}, p.TimerState())
	assert.Equal(t, "What makes a good friend?", p.Snapshot().Item.Text)

	cfg.TimerEnabled = false
	p2, _, _ := setupTestPresentation(t, cfg)
	advanceTo(t, p2, models.NewIndexedSlide(models.SlideCardRevealed, 0))
	assert.Equal(t, timer.State{}, p2.TimerState())
}

func TestPresentation_DiscussionTimer(t *testing.T) {
	p, _, _ := setupTestPresentation(t, pollConfig())
	advanceTo(t, p, models.NewIndexedSlide(models.SlideDiscussion, 0))
	assert.Equal(t, timer.State{SecondsRemaining: 120}, p.TimerState())
}

func TestPresentation_StartPolicyOnEnter(t *testing.T) {
	cfg := roundsConfig(false)
	cfg.TimerStart = models.TimerStartOnEnter
	p, _, _ := setupTestPresentation(t, cfg)

	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 0))
	assert.Equal(t, timer.State{SecondsRemaining: 240, Running: true}, p.TimerState())
}

func TestPresentation_StartPolicyOnFirstInput(t *testing.T) {
	cfg := roundsConfig(false)
	cfg.TimerStart = models.TimerStartOnFirstInput
	p, _, _ := setupTestPresentation(t, cfg)

	// Input on an untimed slide does nothing.
	assert.False(t, p.NotifyInput())

	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 0))
	assert.False(t, p.TimerState().Running)
	assert.True(t, p.NotifyInput())
	assert.True(t, p.TimerState().Running)

	// Only the first input of a slide counts.
	p.PauseTimer()
	assert.False(t, p.NotifyInput())
	assert.False(t, p.TimerState().Running)

	// Entering the next timed slide re-arms the policy.
	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 1))
	assert.True(t, p.NotifyInput())
}

func TestPresentation_ManualPolicyIgnoresInput(t *testing.T) {
	p, _, _ := setupTestPresentation(t, roundsConfig(false))
	advanceTo(t, p, models.NewIndexedSlide(models.SlideRound, 0))
	assert.False(t, p.NotifyInput())
	assert.False(t, p.TimerState().Running)
}

func TestPresentation_PollTally(t *testing.T) {
	p, _, mb := setupTestPresentation(t, pollConfig())

	require.ErrorIs(t, p.Vote(OptionAgree), ErrNotTallySlide)

	advanceTo(t, p, models.NewIndexedSlide(models.SlideTally, 0))
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Vote(OptionAgree))
	}
	require.NoError(t, p.Vote(OptionDisagree))
	require.ErrorIs(t, p.Vote("maybe"), ErrUnknownOption)

	snap := p.Tally()
	assert.Equal(t, 4, snap.Total)
	assert.Equal(t, 75, snap.Options[0].Percentage)
	assert.Equal(t, 25, snap.Options[1].Percentage)

	last := mb.last()
	require.NotNil(t, last)
	assert.Equal(t, EventTallyUpdate, last.Type)
	assert.Equal(t, 4, last.Tally.Total)

	require.NoError(t, p.Unvote(OptionDisagree))
	require.NoError(t, p.Unvote(OptionDisagree))
	assert.Equal(t, 3, p.Tally().Total)

	require.NoError(t, p.ResetTally())
	assert.Equal(t, 0, p.Tally().Total)
}

func TestPresentation_ChoiceUsesItemOptionsAndAllowsBack(t *testing.T) {
	p, _, _ := setupTestPresentation(t, choiceConfig())
	require.True(t, p.Config.AllowBack)

	require.True(t, p.Next())
	require.NoError(t, p.Vote("coffee"))
	assert.ErrorIs(t, p.Vote("beach"), ErrUnknownOption)

	require.True(t, p.Next())
	require.NoError(t, p.Vote("beach"))
	snap := p.Snapshot()
	require.NotNil(t, snap.Tally)
	assert.Equal(t, "beach", snap.Tally.Options[0].Key)
	assert.True(t, snap.CanGoBack)

	require.True(t, p.Previous())
	assert.Equal(t, models.NewIndexedSlide(models.SlideTally, 0), p.Current())
	assert.Equal(t, []string{"tea", "coffee"}, []string{p.Tally().Options[0].Key, p.Tally().Options[1].Key})
}

func TestPresentation_PreviousRequiresAllowBack(t *testing.T) {
	p, _, _ := setupTestPresentation(t, roundsConfig(false))
	require.True(t, p.Next())
	assert.False(t, p.Previous())
	assert.Equal(t, 1, p.Index())
}

func TestPresentation_PreviousAtStartIsNoop(t *testing.T) {
	p, _, _ := setupTestPresentation(t, choiceConfig())
	assert.False(t, p.Previous())
	assert.Equal(t, 0, p.Index())
}

func TestPresentation_PreviousReappliesRoundTimer(t *testing.T) {
	cfg := roundsConfig(false)
	cfg.AllowBack = true
	p, _, _ := setupTestPresentation(t, cfg)

	advanceTo(t, p, models.NewIndexedSlide(models.SlideSwitch, 0))
	require.True(t, p.Previous())
	assert.Equal(t, models.NewIndexedSlide(models.SlideRound, 0), p.Current())
	assert.Equal(t, timer.State{SecondsRemaining: 240}, p.TimerState())
}

func TestPresentation_Restart(t *testing.T) {
	p, _, mb := setupTestPresentation(t, pollConfig())
	advanceTo(t, p, models.NewIndexedSlide(models.SlideTally, 0))
	require.NoError(t, p.Vote(OptionAgree))
	advanceTo(t, p, models.NewIndexedSlide(models.SlideDiscussion, 0))
	p.StartTimer()

	p.Restart()

	assert.Equal(t, 0, p.Index())
	assert.Equal(t, timer.State{}, p.TimerState())
	assert.Equal(t, timer.State{}, p.ThinkingState())
	assert.Equal(t, 0, p.Tally().Total)
	assert.Empty(t, p.Tally().Options)

	last := mb.last()
	require.NotNil(t, last)
	assert.Equal(t, EventRestarted, last.Type)
	require.NotNil(t, last.State)
	assert.Equal(t, 0, last.State.Index)
}

func TestPresentation_CloseStopsEverything(t *testing.T) {
	p, _, _ := setupTestPresentation(t, roundsConfig(false))
	require.True(t, p.Next())
	p.Close()

	assert.False(t, p.ThinkingState().Running)
	assert.False(t, p.Next())
	assert.ErrorIs(t, p.Vote(OptionAgree), ErrClosed)
	assert.NotPanics(t, p.Close)
}

func TestEventBytes(t *testing.T) {
	b := EventBytes(Event{Type: EventTimerUpdate, Timer: &TimerEvent{Name: TimerMain, State: timer.State{SecondsRemaining: 5, Running: true}}})
	assert.JSONEq(t, `{"type":"timer_update","timer":{"name":"main","secondsRemaining":5,"running":true}}`, string(b))
}

func TestStore(t *testing.T) {
	s := NewStore()
	p, err := New(roundsConfig(false), clockwork.NewFakeClock())
	require.NoError(t, err)

	s.Add(p)
	got, ok := s.Get(p.ID)
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, 1, s.Len())

	assert.True(t, s.Remove(p.ID))
	assert.False(t, s.Remove(p.ID))
	_, ok = s.Get(p.ID)
	assert.False(t, ok)
	assert.False(t, p.Next(), "removed presentations are closed")
}

func TestPresentation_TickOvertakenBySlideChangeIsDropped(t *testing.T) {
	p, _, mb := setupTestPresentation(t, roundsConfig(false))
	require.True(t, p.Next())
	require.Equal(t, models.SlideThinking, p.Current().Type)

	// A thinking tick computed just before the presenter moves on reaches the presentation
	// only after the move.
	require.True(t, p.Next())
	p.onTick(TimerThinking, p.thinking, timer.State{SecondsRemaining: 29, Running: true})

	last := mb.last()
	require.NotNil(t, last)
	assert.Equal(t, EventSlideChanged, last.Type)
	assert.Equal(t, timer.State{}, last.State.Thinking)
	assert.Empty(t, mb.ofType(EventTimerUpdate))
}

func TestPresentation_LateEventIsNotBroadcast(t *testing.T) {
	p, _, mb := setupTestPresentation(t, roundsConfig(false))
	require.True(t, p.Next())

	p.mu.Lock()
	late := p.timerEventLocked(TimerThinking, p.thinking.State())
	p.mu.Unlock()

	require.True(t, p.Next())
	p.fireEvent(late)

	events := mb.all()
	require.Len(t, events, 2)
	assert.Equal(t, EventSlideChanged, events[1].Type)
	var prev uint64
	for _, ev := range events {
		assert.Greater(t, ev.Seq, prev)
		prev = ev.Seq
	}
	assert.Equal(t, prev, p.Snapshot().Seq)
	assert.Equal(t, prev, events[1].State.Seq)
}

func TestPresentation_BroadcastFnMayReadState(t *testing.T) {
	rounds, _, _ := setupTestPresentation(t, roundsConfig(false))
	choice, _, _ := setupTestPresentation(t, choiceConfig())
	var mu sync.Mutex
	reads := 0
	read := func(p *Presentation) func(Event) {
		return func(Event) {
			_ = p.Index()
			_ = p.Snapshot()
			mu.Lock()
			reads++
			mu.Unlock()
		}
	}
	rounds.BroadcastFn = read(rounds)
	choice.BroadcastFn = read(choice)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for rounds.Current() != models.NewIndexedSlide(models.SlideRound, 0) && rounds.Next() {
		}
		rounds.StartTimer()
		rounds.PauseTimer()
		rounds.StartTimer()
		rounds.ResetTimer()
		rounds.Restart()

		choice.Next()
		_ = choice.Vote("tea")
		_ = choice.Unvote("tea")
		_ = choice.ResetTally()
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("a broadcast that reads state blocked the presentation")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.NotZero(t, reads)
	assert.Equal(t, models.NewIndexedSlide(models.SlideRound, 0), rounds.Current())
}

func TestPresentation_ControlsWithoutEffectEmitNothing(t *testing.T) {
	p, _, mb := setupTestPresentation(t, roundsConfig(false))
	p.StartTimer() // instructions have no time to count
	p.PauseTimer()
	p.ResetTimer()
	assert.Empty(t, mb.all())
}
