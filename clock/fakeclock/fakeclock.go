package fakeclock

import (
	"sort"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-session/clock"
)

var _ clock.Clock = (*Clock)(nil)

// Clock is a manually advanced clock. Timers fire synchronously from Advance.
type Clock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending map[int]*timer
	armed   int
	stopped int
}

type timer struct {
	c      *Clock
	id     int
	at     time.Time
	delay  time.Duration
	f      func()
	active bool
}

// New creates a fake clock set to now.
func New(now time.Time) *Clock {
	return &Clock{
		now:     now,
		pending: make(map[int]*timer),
	}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	c.armed++
	t := &timer{c: c, id: c.seq, at: c.now.Add(d), delay: d, f: f, active: true}
	c.pending[t.id] = t
	return t
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()

	if !t.active {
		return false
	}
	t.active = false
	t.c.stopped++
	delete(t.c.pending, t.id)
	return true
}

// Advance moves the clock forward, firing every timer that falls due in
// deadline order. Timers armed by callbacks are honoured within the window.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		next := c.nextLocked()
		if next == nil || next.at.After(target) {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.at
		next.active = false
		delete(c.pending, next.id)
		c.mu.Unlock()

		next.f()
	}
}

func (c *Clock) nextLocked() *timer {
	timers := make([]*timer, 0, len(c.pending))
	for _, t := range c.pending {
		timers = append(timers, t)
	}
	if len(timers) == 0 {
		return nil
	}
	sort.Slice(timers, func(i, j int) bool {
		if timers[i].at.Equal(timers[j].at) {
			return timers[i].id < timers[j].id
		}
		return timers[i].at.Before(timers[j].at)
	})
	return timers[0]
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Armed returns how many timers have been created.
func (c *Clock) Armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Stopped returns how many timers were cancelled before firing.
func (c *Clock) Stopped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Delays returns the requested delay of every pending timer, shortest first.
func (c *Clock) Delays() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	delays := make([]time.Duration, 0, len(c.pending))
	for _, t := range c.pending {
		delays = append(delays, t.delay)
	}
	sort.Slice(delays, func(i, j int) bool { return delays[i] < delays[j] })
	return delays
}
