package clock

import (
	"slices"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Tickers and timers created from
// it fire only inside [Fake.Advance], in chronological order. Like the real
// implementations, each channel buffers at most one pending tick and a timer
// that is stopped or reset never delivers a stale value.
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	now     time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	f      *Fake
	ch     chan time.Time
	next   time.Time
	period time.Duration // zero for timers
	active bool
}

// NewFake returns a Fake clock starting at now.
func NewFake(now time.Time) *Fake {
	f := &Fake{now: now}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker returns a ticker that fires every d of fake time.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}
	return fakeTicker{f.add(d, d)}
}

// NewTimer returns a timer that fires once after d of fake time.
func (f *Fake) NewTimer(d time.Duration) Timer {
	return f.add(d, 0)
}

func (f *Fake) add(d, period time.Duration) *fakeWaiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{
		f:      f,
		ch:     make(chan time.Time, 1),
		next:   f.now.Add(d),
		period: period,
		active: true,
	}
	f.waiters = append(f.waiters, w)
	f.cond.Broadcast()
	return w
}

// Advance moves the clock forward by d, firing every ticker and timer that
// comes due on the way.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	target := f.now.Add(d)
	for {
		w := f.nextDue(target)
		if w == nil {
			break
		}
		f.now = w.next
		select {
		case w.ch <- f.now:
		default:
		}
		if w.period > 0 {
			w.next = w.next.Add(w.period)
		} else {
			w.active = false
			f.cond.Broadcast()
		}
	}
	f.now = target
}

// BlockUntil blocks until at least n tickers or timers are armed.
func (f *Fake) BlockUntil(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.activeLocked() < n {
		f.cond.Wait()
	}
}

// Armed returns the number of tickers and timers currently armed.
func (f *Fake) Armed() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked()
}

func (f *Fake) activeLocked() int {
	var n int
	for _, w := range f.waiters {
		if w.active {
			n++
		}
	}
	return n
}

func (f *Fake) nextDue(target time.Time) *fakeWaiter {
	var due *fakeWaiter
	for _, w := range f.waiters {
		if !w.active || w.next.After(target) {
			continue
		}
		if due == nil || w.next.Before(due.next) {
			due = w
		}
	}
	return due
}

func (f *Fake) remove(w *fakeWaiter) {
	f.waiters = slices.DeleteFunc(f.waiters, func(x *fakeWaiter) bool { return x == w })
	f.cond.Broadcast()
}

// fakeTicker adapts a waiter to the Ticker interface.
type fakeTicker struct{ *fakeWaiter }

func (t fakeTicker) Stop() { t.fakeWaiter.Stop() }

func (w *fakeWaiter) C() <-chan time.Time { return w.ch }

func (w *fakeWaiter) Stop() bool {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	wasActive := w.active
	w.active = false
	w.drain()
	if w.period > 0 {
		w.f.remove(w)
	} else {
		w.f.cond.Broadcast()
	}
	return wasActive
}

func (w *fakeWaiter) Reset(d time.Duration) bool {
	w.f.mu.Lock()
	defer w.f.mu.Unlock()
	wasActive := w.active
	w.drain()
	w.next = w.f.now.Add(d)
	w.active = true
	w.f.cond.Broadcast()
	return wasActive
}

func (w *fakeWaiter) drain() {
	select {
	case <-w.ch:
	default:
	}
}
