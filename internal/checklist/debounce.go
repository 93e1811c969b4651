package checklist

import (
	"sync"
	"time"
)

// debouncer coalesces rapid schedules on the same key into one callback,
// fired after the window elapses with no superseding schedule. Each key keeps
// its own timer; Close cancels everything and guarantees no callback runs
// afterwards.
type debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	pending map[string]*pendingCall
	closed  bool
}

type pendingCall struct {
	timer *time.Timer
	fn    func()
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, pending: map[string]*pendingCall{}}
}

// Schedule replaces any pending callback for key and restarts its window.
// Intermediate callbacks are never fired; only the last one survives.
func (d *debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	p := &pendingCall{fn: fn}
	p.timer = time.AfterFunc(d.window, func() { d.fire(key, p) })
	d.pending[key] = p
}

func (d *debouncer) fire(key string, p *pendingCall) {
	d.mu.Lock()
	if d.closed || d.pending[key] != p {
		// Superseded or torn down between timer expiry and now.
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()
	p.fn()
}

// Flush runs the pending callback for key immediately (blur semantics).
func (d *debouncer) Flush(key string) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	closed := d.closed
	d.mu.Unlock()
	if ok && !closed {
		p.fn()
	}
}

// FlushAll runs every pending callback immediately, in no particular order.
func (d *debouncer) FlushAll() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	calls := make([]*pendingCall, 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
		calls = append(calls, p)
	}
	d.mu.Unlock()
	for _, p := range calls {
		p.fn()
	}
}

// Close cancels all pending work. No callback fires after Close returns.
func (d *debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	for key, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, key)
	}
}
