// Package debounce provides a trailing-window call coalescer. N Schedule
// calls within less than one quiet window of each other collapse into a
// single invocation of the flush callback, which receives the concatenation
// of every payload scheduled since the previous flush, in first-appearance
// order.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet window applied when none is configured.
const DefaultWindow = 450 * time.Millisecond

// Debouncer coalesces bursts of Schedule calls into one trailing flush.
// Safe for concurrent use: flush handlers and event listeners may schedule
// from different goroutines.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	buf     []T
	timer   *time.Timer
	gen     uint64
	stopped bool
	flushFn func([]T)
}

// New creates a Debouncer with the given quiet window. window <= 0 selects
// DefaultWindow. flushFn is invoked outside the internal lock, so it may
// call Schedule again.
func New[T any](window time.Duration, flushFn func([]T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{window: window, flushFn: flushFn}
}

// Schedule appends items to the accumulating buffer and restarts the quiet
// window. Calling with no items still arms the window: an empty flush is a
// valid notification (a change marker with nothing resolved). After Stop,
// Schedule is a no-op.
func (d *Debouncer[T]) Schedule(items ...T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	d.buf = append(d.buf, items...)

	// Each arm gets a generation number so a timer that already fired
	// concurrently with a restart cannot deliver a stale flush.
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// Pending reports whether a flush is currently armed.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending timer and discards the buffer without invoking
// the callback. Safe to call with nothing pending, and safe to call twice.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.buf = nil
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	buf := d.buf
	d.buf = nil
	d.timer = nil
	d.mu.Unlock()

	d.flushFn(buf)
}
