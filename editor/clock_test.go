package editor

import (
	"sort"
	"sync"
	"time"
)

// manualClock fires callbacks only when advanced.
type manualClock struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*manualTimer
	order   int
}

type manualTimer struct {
	c       *manualClock
	at      time.Duration
	order   int
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order++
	t := &manualTimer{c: c, at: c.now + d, order: c.order, f: f}
	c.pending = append(c.pending, t)
	return t
}

// Advance moves time forward by d, running every callback that falls due,
// including ones scheduled by earlier callbacks.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		sort.SliceStable(c.pending, func(i, j int) bool {
			if c.pending[i].at != c.pending[j].at {
				return c.pending[i].at < c.pending[j].at
			}
			return c.pending[i].order < c.pending[j].order
		})
		if len(c.pending) == 0 || c.pending[0].at > target {
			c.now = target
			c.mu.Unlock()
			return
		}
		t := c.pending[0]
		c.pending = c.pending[1:]
		c.now = t.at
		stopped := t.stopped
		c.mu.Unlock()

		if !stopped {
			t.f()
		}
	}
}

// Pending reports the number of scheduled callbacks.
func (c *manualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
