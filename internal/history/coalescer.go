package history

import (
	"sync"
	"time"
)

const DefaultDebounce = 100 * time.Millisecond

// Timer is the cancellable handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Coalescer collapses bursts of dirty signals into one call. Each Signal
// re-arms a single pending task; the task runs fn once the interval has
// elapsed without a new signal.
type Coalescer struct {
	delay time.Duration
	fn    func()
	after AfterFunc

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	dirty  bool
	closed bool
}

// NewCoalescer creates a coalescer that runs fn delay after the last signal.
// A nil after uses the runtime timer.
func NewCoalescer(delay time.Duration, fn func(), after AfterFunc) *Coalescer {
	if after == nil {
		after = realAfterFunc
	}
	return &Coalescer{delay: delay, fn: fn, after: after}
}

// Signal marks the queue dirty and re-arms the task.
func (c *Coalescer) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.gen++
	gen := c.gen
	c.timer = c.after(c.delay, func() { c.fire(gen) })
}

// Pending reports whether a signal is waiting to be flushed.
func (c *Coalescer) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Flush runs the task now if a signal is pending.
func (c *Coalescer) Flush() {
	c.mu.Lock()
	if !c.dirty || c.closed {
		c.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.dirty = false
	c.mu.Unlock()

	c.fn()
}

// Take drops any pending signal and reports whether there was one, leaving
// the caller to do the task's work itself. Callers that already hold a lock
// the task needs use it in place of Flush.
func (c *Coalescer) Take() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.dirty && !c.closed
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.dirty = false
	return pending
}

// Cancel drops any pending signal without running the task.
func (c *Coalescer) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
	c.dirty = false
}

// Close cancels the pending task and ignores further signals.
func (c *Coalescer) Close() {
	c.Cancel()
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *Coalescer) fire(gen uint64) {
	c.mu.Lock()
	// A later Signal, Flush or Cancel superseded this timer.
	if gen != c.gen || !c.dirty || c.closed {
		c.mu.Unlock()
		return
	}
	c.dirty = false
	c.timer = nil
	c.mu.Unlock()

	c.fn()
}
