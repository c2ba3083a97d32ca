package watch

import (
	"log/slog"
	"sync"
	"time"
)

// Debouncer coalesces rapid events into a single trailing-edge callback.
// Each Trigger cancels the pending timer and schedules a new one; a
// generation counter guards against a superseded timer that had already
// fired before it could be stopped.
type Debouncer struct {
	interval time.Duration
	callback func(path string)

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	last     time.Time
	lastPath string
	stopped  bool
}

// NewDebouncer creates a debouncer that waits for interval of quiet before
// firing callback with the path of the last event.
func NewDebouncer(interval time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		interval: interval,
		callback: callback,
	}
}

// Trigger records an event for the given path. If no further events arrive
// within the debounce interval, the callback fires with the last path seen.
func (d *Debouncer) Trigger(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.gen++
	d.last = time.Now()
	d.lastPath = path

	if d.timer != nil {
		d.timer.Stop()
	}

	gen := d.gen
	d.timer = time.AfterFunc(d.interval, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("debouncer callback panicked", slog.Any("error", r))
		}
	}()

	d.mu.Lock()
	if d.stopped || gen != d.gen || time.Since(d.last) < d.interval {
		d.mu.Unlock()
		return
	}

	d.timer = nil
	p := d.lastPath
	d.mu.Unlock()

	d.callback(p)
}

// Pending reports whether a callback is scheduled but has not fired yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}

// LastTrigger returns the time of the most recent Trigger call.
func (d *Debouncer) LastTrigger() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.last
}

// Stop cancels any pending debounced callback. Later Trigger calls are
// ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
