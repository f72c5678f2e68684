package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock. Advance fires due timers on the
// calling goroutine, in deadline order, outside the internal lock.
type Fake struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func NewFake(start time.Time) *Fake { return &Fake{now: start} }

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := &fakeTimer{clock: f, when: f.now.Add(d), fn: fn, active: true}
	f.timers = append(f.timers, t)
	return t
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	due := f.takeDue(f.now)
	f.mu.Unlock()

	for _, t := range due {
		t.fn()
	}
}

// takeDue removes fired and stopped timers from the schedule and
// returns the fired ones sorted by deadline. Caller holds f.mu.
func (f *Fake) takeDue(deadline time.Time) []*fakeTimer {
	var due []*fakeTimer
	rest := f.timers[:0]
	for _, t := range f.timers {
		switch {
		case !t.active:
		case !t.when.After(deadline):
			t.active = false
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	f.timers = rest

	sort.SliceStable(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
	return due
}

func (f *Fake) schedule(t *fakeTimer) {
	for _, x := range f.timers {
		if x == t {
			return
		}
	}
	f.timers = append(f.timers, t)
}

type fakeTimer struct {
	clock  *Fake
	when   time.Time
	fn     func()
	active bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.active
	t.active = false
	return was
}

func (t *fakeTimer) Reset(d time.Duration) bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	was := t.active
	t.active = true
	t.when = t.clock.now.Add(d)
	t.clock.schedule(t)
	return was
}
