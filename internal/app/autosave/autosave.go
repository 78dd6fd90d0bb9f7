// Package autosave coalesces a stream of edits into one trailing
// write per quiet window.
package autosave

import (
	"sync"
	"time"
)

// DefaultDelay matches the editor's one-second save window.
const DefaultDelay = time.Second

// Flush receives the content that survived the debounce window.
type Flush func(content string)

// Coordinator is a trailing-edge debouncer for one editing session.
// Each Edit cancels and replaces the pending timer, so only the last
// edit in a quiet window reaches the flush function. A flush in
// flight does not block further edits; those open the next window.
// Coordinators are per-session values, never shared between sessions.
type Coordinator struct {
	delay time.Duration
	flush Flush

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	closed  bool
}

// New returns a coordinator that calls flush after delay of
// quiescence. A non-positive delay falls back to DefaultDelay.
func New(delay time.Duration, flush Flush) *Coordinator {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Coordinator{delay: delay, flush: flush}
}

// Edit records a new content snapshot and restarts the quiet window.
func (c *Coordinator) Edit(content string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pending = content
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, c.fire)
}

func (c *Coordinator) fire() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	content := c.pending
	c.timer = nil
	c.mu.Unlock()

	// Outside the lock so a slow flush never delays incoming edits.
	c.flush(content)
}

// Flush forces the pending write out immediately, if any.
func (c *Coordinator) Flush() {
	c.mu.Lock()
	if c.closed || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer.Stop()
	c.timer = nil
	content := c.pending
	c.mu.Unlock()

	c.flush(content)
}

// Close cancels any pending write. No flush fires after Close
// returns, so a torn-down session cannot produce a stray save.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
