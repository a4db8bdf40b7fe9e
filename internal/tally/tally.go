// internal/tally/tally.go
package tally

import (
	"math"
	"sync"
)

// Tally counts votes per option key. Counts never go below zero.
type Tally struct {
	mu     sync.Mutex
	keys   []string
	counts map[string]int
}

// New returns a tally with every key at zero.
func New(keys ...string) *Tally {
	t := &Tally{}
	t.Reset(keys...)
	return t
}

// Reset replaces the option keys and zeroes every count.
func (t *Tally) Reset(keys ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.keys = t.keys[:0]
	t.counts = make(map[string]int, len(keys))
	for _, k := range keys {
		if _, dup := t.counts[k]; dup {
			continue
		}
		t.keys = append(t.keys, k)
		t.counts[k] = 0
	}
}

// Clear zeroes every count but keeps the keys.
func (t *Tally) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.counts {
		t.counts[k] = 0
	}
}

// Increment adds one vote for key. Unknown keys are ignored and reported false.
func (t *Tally) Increment(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.counts[key]; !ok {
		return false
	}
	t.counts[key]++
	return true
}

// Decrement removes one vote for key, floored at zero.
func (t *Tally) Decrement(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.counts[key]
	if !ok {
		return false
	}
	t.counts[key] = max(n-1, 0)
	return true
}

func (t *Tally) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[key]
}

func (t *Tally) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

// Percentage is round(100*count/total), or 0 when there are no votes.
func (t *Tally) Percentage(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return percentage(t.counts[key], t.totalLocked())
}

// Keys returns the option keys in the order they were given to Reset.
func (t *Tally) Keys() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.keys...)
}

// Counts returns a copy of the current counts.
func (t *Tally) Counts() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

// OptionResult is one row of a Snapshot.
type OptionResult struct {
	Key        string `json:"key"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Snapshot is the client-facing view of a tally.
type Snapshot struct {
	Options []OptionResult `json:"options"`
	Total   int            `json:"total"`
}

func (t *Tally) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	total := t.totalLocked()
	snap := Snapshot{Options: make([]OptionResult, 0, len(t.keys)), Total: total}
	for _, k := range t.keys {
		snap.Options = append(snap.Options, OptionResult{
			Key:        k,
			Count:      t.counts[k],
			Percentage: percentage(t.counts[k], total),
		})
	}
	return snap
}

func (t *Tally) totalLocked() int {
	sum := 0
	for _, n := range t.counts {
		sum += n
	}
	return sum
}

func percentage(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
