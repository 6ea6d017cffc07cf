package watcher

import (
	"sync"
	"time"
)

// Debouncer delays a callback until events for the same path settle.
// Rapid Adds for one path coalesce into a single callback. After Stop,
// new Adds are ignored and Stop waits for callbacks already running.
type Debouncer struct {
	delay    time.Duration
	callback func(path string)

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	running sync.WaitGroup
}

// NewDebouncer creates a new Debouncer with the specified delay and callback.
func NewDebouncer(delay time.Duration, callback func(path string)) *Debouncer {
	return &Debouncer{
		delay:    delay,
		pending:  make(map[string]*time.Timer),
		callback: callback,
	}
}

// Add schedules path for processing after the debounce delay,
// restarting the delay if path is already pending.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, exists := d.pending[path]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A newer Add may have replaced this timer
		if d.stopped || d.pending[path] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.pending, path)
		d.running.Add(1)
		d.mu.Unlock()

		defer d.running.Done()
		if d.callback != nil {
			d.callback(path)
		}
	})
	d.pending[path] = timer
}

// Cancel removes a pending path. It is a no-op if path is not pending.
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, exists := d.pending[path]; exists {
		timer.Stop()
		delete(d.pending, path)
	}
}

// Stop cancels every pending path, rejects further Adds and waits for
// callbacks that already started.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	for path, timer := range d.pending {
		timer.Stop()
		delete(d.pending, path)
	}
	d.mu.Unlock()

	d.running.Wait()
}

// PendingCount returns the number of paths waiting for their delay to expire.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// IsPending returns true if path is waiting for its delay to expire.
func (d *Debouncer) IsPending(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.pending[path]
	return exists
}

// Delay returns the configured debounce delay.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}
