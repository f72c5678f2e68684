package storage

import (
	"sync"
	"time"

	"StoreFront/pkg/clock"
)

// Debouncer coalesces a burst of triggers into one invocation of the most
// recently supplied function once the quiet window elapses. A rapid
// sequence of store mutations therefore persists only the final state.
type Debouncer struct {
	clk   clock.Clock
	delay time.Duration

	mu      sync.Mutex
	timer   clock.Timer
	pending func()
	stopped bool
}

func NewDebouncer(clk clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clk: clk, delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = fn

	if d.timer == nil {
		d.timer = d.clk.AfterFunc(d.delay, d.fire)
		return
	}
	d.timer.Reset(d.delay)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Flush runs any pending invocation immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	fn := d.pending
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Stop drops any pending invocation and refuses further triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
