// internal/timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// State is the observable part of a countdown.
type State struct {
	SecondsRemaining int  `json:"secondsRemaining"`
	Running          bool `json:"running"`
}

// Timer is a one-second-resolution countdown. It is independent of any view: screens
// subscribe to its State and drive it through Start, Pause, Reset and Cancel.
//
// At most one tick callback is pending per Timer. Every operation that stops the countdown
// bumps a generation counter so that a callback already in flight is ignored.
type Timer struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	remaining int
	running   bool
	pending   clockwork.Timer
	gen       uint64

	listeners map[int]func(State)
	nextSubID int

	// OnExpire runs once each time a running countdown reaches zero. It is called without
	// the timer lock held; a panic inside it is recovered and logged.
	OnExpire func()

	// OnTick receives the state after each countdown step, including the final one. Unlike
	// subscribers it is not called for Start, Pause or Reset, so an owner that drives the
	// timer under its own lock can take that lock inside OnTick.
	OnTick func(State)
}

// New returns a stopped timer at zero. A nil clock means the real wall clock.
func New(clock clockwork.Clock) *Timer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Timer{
		clock:     clock,
		listeners: make(map[int]func(State)),
	}
}

// Start resumes the countdown. It does nothing if the timer is already running or has
// nothing left to count; callers must Reset an expired timer first.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.running || t.remaining == 0 {
		t.mu.Unlock()
		return
	}
	t.running = true
	t.scheduleLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.notify(st)
}

// Pause stops the countdown and keeps the remaining seconds.
func (t *Timer) Pause() {
	t.mu.Lock()
	if !t.running {
		t.mu.Unlock()
		return
	}
	t.running = false
	t.stopPendingLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.notify(st)
}

// Reset sets the remaining seconds and leaves the timer paused. Negative values become zero.
func (t *Timer) Reset(seconds int) {
	t.mu.Lock()
	t.remaining = max(seconds, 0)
	t.running = false
	t.stopPendingLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.notify(st)
}

// Cancel drops any pending tick and stops the countdown without notifying subscribers.
// Used when the owner of the timer goes away.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running = false
	t.stopPendingLocked()
}

// Tick advances the countdown by one second. The scheduled callback calls it once per
// second while running; calling it directly is how tests step the timer.
func (t *Timer) Tick() {
	t.mu.Lock()
	changed, expired := t.tickLocked()
	st := t.stateLocked()
	onExpire, onTick := t.OnExpire, t.OnTick
	t.mu.Unlock()

	t.finishTick(changed, expired, st, onExpire, onTick)
}

// State returns a snapshot of the countdown.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

// Subscribe registers fn to receive every state change. The returned func unsubscribes.
func (t *Timer) Subscribe(fn func(State)) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.listeners[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// fire is the body of the scheduled callback. Assumes nothing is locked.
func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.running {
		// stale callback from before a Pause/Reset
		t.mu.Unlock()
		return
	}
	t.pending = nil
	changed, expired := t.tickLocked()
	st := t.stateLocked()
	onExpire, onTick := t.OnExpire, t.OnTick
	t.mu.Unlock()

	t.finishTick(changed, expired, st, onExpire, onTick)
}

// tickLocked decrements the countdown and reschedules or expires it. Assumes lock is held.
func (t *Timer) tickLocked() (changed, expired bool) {
	if !t.running || t.remaining == 0 {
		return false, false
	}
	t.remaining--
	if t.remaining == 0 {
		t.running = false
		t.stopPendingLocked()
		return true, true
	}
	t.scheduleLocked()
	return true, false
}

func (t *Timer) finishTick(changed, expired bool, st State, onExpire func(), onTick func(State)) {
	if !changed {
		return
	}
	if expired && onExpire != nil {
		runExpireHook(onExpire)
	}
	if onTick != nil {
		onTick(st)
	}
	t.notify(st)
}

// scheduleLocked replaces any pending callback with a fresh one-second callback.
// Assumes lock is held.
func (t *Timer) scheduleLocked() {
	t.stopPendingLocked()
	gen := t.gen
	t.pending = t.clock.AfterFunc(time.Second, func() {
		t.fire(gen)
	})
}

// stopPendingLocked cancels the pending callback and invalidates any in flight.
// Assumes lock is held.
func (t *Timer) stopPendingLocked() {
	t.gen++
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) stateLocked() State {
	return State{SecondsRemaining: t.remaining, Running: t.running}
}

func (t *Timer) notify(st State) {
	t.mu.Lock()
	fns := make([]func(State), 0, len(t.listeners))
	for _, fn := range t.listeners {
		fns = append(fns, fn)
	}
	t.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

// runExpireHook swallows panics from expiry side effects such as a completion chime.
func runExpireHook(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Warn("timer expiry hook failed")
		}
	}()
	fn()
}
