// Package fakeclock provides a manually advanced util.Clock for deterministic timer tests.
//
// Callbacks registered with AfterFunc run synchronously inside Advance, in deadline
// order (ties broken by registration order). A callback may register new timers;
// those fire within the same Advance call if their deadline is reached.
package fakeclock

import (
	"sort"
	"sync"
	"time"

	"github.com/penwyp/go-fullsnack/internal/util"
)

// Clock is a fake util.Clock
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int64
	timers []*timer
}

type timer struct {
	clock   *Clock
	when    time.Time
	seq     int64
	f       func()
	stopped bool
}

// New creates a fake clock starting at start
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the fake current time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// AfterFunc schedules f to run when the clock is advanced past d
func (c *Clock) AfterFunc(d time.Duration, f func()) util.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &timer{clock: c, when: c.now.Add(d), seq: c.seq, f: f}
	c.timers = append(c.timers, t)
	return t
}

// Stop cancels the timer if it has not fired
func (t *timer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.stopped {
		return false
	}
	t.stopped = true
	t.clock.remove(t)
	return true
}

// remove must be called with mu held
func (c *Clock) remove(t *timer) {
	for i, candidate := range c.timers {
		if candidate == t {
			c.timers = append(c.timers[:i], c.timers[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, firing every timer that comes due
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.stopped = true
		c.remove(next)
		c.now = next.when
		c.mu.Unlock()

		next.f()
	}
}

// nextDue must be called with mu held
func (c *Clock) nextDue(target time.Time) *timer {
	if len(c.timers) == 0 {
		return nil
	}
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].when.Equal(c.timers[j].when) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].when.Before(c.timers[j].when)
	})
	if c.timers[0].when.After(target) {
		return nil
	}
	return c.timers[0]
}

// Pending returns the number of timers that have not fired or been stopped
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}
