// Package mock provides test doubles for the session package: a manually
// advanced [Clock] and a [Recorder] that remembers every credited session.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/MrWong99/parla/internal/progress"
	"github.com/MrWong99/parla/internal/session"
)

// Clock is a fake session.Clock. Timers fire synchronously from
// [Clock.Advance], in deadline order.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *Clock
	deadline time.Time
	fn       func()
	stopped  bool
	fired    bool
}

// NewClock returns a Clock reading start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now implements session.Clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc implements session.Clock.
func (c *Clock) AfterFunc(d time.Duration, f func()) session.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop implements session.Timer.
func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing every timer that falls due.
// Timers scheduled by fired callbacks also fire if they fall due within d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.deadline.After(target) {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
		next := due[0]
		next.fired = true
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.mu.Unlock()

		next.fn()
	}
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

var _ session.Clock = (*Clock)(nil)

// RecordCall records a single RecordSession invocation.
type RecordCall struct {
	Phrases int
	Seconds int
	Mode    string
}

// Recorder is a mock session.Recorder.
type Recorder struct {
	mu sync.Mutex

	// Err, when set, is returned from every call.
	Err error

	// Calls records every RecordSession call in order.
	Calls []RecordCall
}

// RecordSession implements session.Recorder. The returned progress reflects
// only this call.
func (r *Recorder) RecordSession(_ context.Context, phrases, seconds int, mode string) (progress.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls = append(r.Calls, RecordCall{Phrases: phrases, Seconds: seconds, Mode: mode})
	if r.Err != nil {
		return progress.UserProgress{}, r.Err
	}
	p := progress.Default()
	p.TotalPhrases = phrases
	p.TotalSeconds = seconds
	p.XP = phrases*progress.XPPerPhrase + seconds*progress.XPPerSecond
	p.Level = progress.LevelFor(p.XP)
	return p, nil
}

// CallCount returns the number of RecordSession calls. Thread-safe.
func (r *Recorder) CallCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Calls)
}

// LastCall returns the most recent call and whether there was one.
func (r *Recorder) LastCall() (RecordCall, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Calls) == 0 {
		return RecordCall{}, false
	}
	return r.Calls[len(r.Calls)-1], true
}

var _ session.Recorder = (*Recorder)(nil)
