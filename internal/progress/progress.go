// Package progress renders a single-line terminal counter for the
// download phase. The unit is attempts, not bytes: one tick per task that
// finished, failed, or was skipped.
package progress

import (
	"fmt"
	"io"
	"sync"
)

type Counter struct {
	mu    sync.Mutex
	out   io.Writer
	total int
	done  int
}

func NewCounter(out io.Writer) *Counter {
	return &Counter{out: out}
}

// Start resets the counter and draws the initial line.
func (c *Counter) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total = total
	c.done = 0
	c.draw()
}

// Advance ticks the counter by one attempted task.
func (c *Counter) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.done++
	c.draw()
}

// Finish terminates the progress line.
func (c *Counter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.total > 0 {
		fmt.Fprintln(c.out)
	}
}

// draw redraws in place with a carriage return. Callers hold the lock.
func (c *Counter) draw() {
	if c.total == 0 {
		return
	}
	fmt.Fprintf(c.out, "\rDownloading %d/%d", c.done, c.total)
}
