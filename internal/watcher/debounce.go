package watcher

import (
	"sync"
	"time"
)

// Op is the kind of change seen on an import file.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
)

// Event is a single change to a file in the import directory.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Debouncer collapses bursts of events for one path into a single emission
// after the path has been quiet for the window. It is safe for concurrent use.
type Debouncer struct {
	window time.Duration
	emit   func(Event)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending map[string]Event
	stopped bool
}

// NewDebouncer creates a Debouncer that emits the latest event of a path
// once no further event has arrived for window.
func NewDebouncer(window time.Duration, emit func(Event)) *Debouncer {
	return &Debouncer{
		window:  window,
		emit:    emit,
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]Event),
	}
}

// Feed records e and restarts the quiet window of its path.
func (d *Debouncer) Feed(e Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending[e.Path] = e

	if t, ok := d.timers[e.Path]; ok {
		t.Reset(d.window)
		return
	}
	path := e.Path
	d.timers[path] = time.AfterFunc(d.window, func() { d.fire(path) })
}

func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	ev, ok := d.pending[path]
	delete(d.timers, path)
	delete(d.pending, path)
	d.mu.Unlock()

	if ok {
		d.emit(ev)
	}
}

// Pending returns the number of paths waiting for their window to close.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels the timers and emits every pending event at once.
// Feed is a no-op afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	var flush []Event
	for path, t := range d.timers {
		t.Stop()
		if ev, ok := d.pending[path]; ok {
			flush = append(flush, ev)
		}
	}
	d.timers = nil
	d.pending = nil
	d.mu.Unlock()

	// emit may call back into the watcher; keep it outside the lock.
	for _, ev := range flush {
		d.emit(ev)
	}
}
