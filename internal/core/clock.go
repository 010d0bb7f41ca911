package core

import (
	"sync"
	"time"
)

// Clock provides time operations that can be mocked for testing.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
	NewTimer(d time.Duration) *Timer
	NewTicker(d time.Duration) *Ticker
}

// Timer fires once on C. Stop reports whether the call disarmed it.
type Timer struct {
	C    <-chan time.Time
	stop func() bool
}

func (t *Timer) Stop() bool { return t.stop() }

// Ticker delivers ticks on C, dropping ticks the reader is too slow for.
type Ticker struct {
	C    <-chan time.Time
	stop func()
}

func (t *Ticker) Stop() { t.stop() }

// RealClock uses the standard time package.
type RealClock struct{}

func (RealClock) Now() time.Time                   { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

func (RealClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stop: t.Stop}
}

func (RealClock) NewTicker(d time.Duration) *Ticker {
	t := time.NewTicker(d)
	return &Ticker{C: t.C, stop: t.Stop}
}

// FakeClock is a test clock that can be manually advanced. Timers and
// tickers fire during Advance once their deadline is reached.
// It is safe for concurrent use.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	current time.Time
	waiters []*fakeWaiter
}

type fakeWaiter struct {
	deadline time.Time
	interval time.Duration
	ch       chan time.Time
	stopped  bool
}

func NewFakeClock(start time.Time) *FakeClock {
	f := &FakeClock{current: start}
	f.changed = sync.NewCond(&f.mu)
	return f
}

func (f *FakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *FakeClock) Since(t time.Time) time.Duration {
	return f.Now().Sub(t)
}

func (f *FakeClock) NewTimer(d time.Duration) *Timer {
	w := f.register(d, 0)
	return &Timer{C: w.ch, stop: func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		if w.stopped || !f.waiting(w) {
			return false
		}
		w.stopped = true
		f.changed.Broadcast()
		return true
	}}
}

func (f *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("core: non-positive interval for NewTicker")
	}
	w := f.register(d, d)
	return &Ticker{C: w.ch, stop: func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		w.stopped = true
		f.changed.Broadcast()
	}}
}

func (f *FakeClock) register(d, interval time.Duration) *fakeWaiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	w := &fakeWaiter{deadline: f.current.Add(d), interval: interval, ch: make(chan time.Time, 1)}
	if d <= 0 {
		w.ch <- f.current
		return w
	}
	f.waiters = append(f.waiters, w)
	f.changed.Broadcast()
	return w
}

func (f *FakeClock) waiting(w *fakeWaiter) bool {
	for _, p := range f.waiters {
		if p == w {
			return true
		}
	}
	return false
}

// Advance moves the clock forward and fires every timer and ticker whose
// deadline has been reached.
func (f *FakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)

	remaining := f.waiters[:0]
	for _, w := range f.waiters {
		if w.stopped {
			continue
		}
		if w.deadline.After(f.current) {
			remaining = append(remaining, w)
			continue
		}
		select {
		case w.ch <- f.current:
		default:
		}
		if w.interval > 0 {
			for !w.deadline.After(f.current) {
				w.deadline = w.deadline.Add(w.interval)
			}
			remaining = append(remaining, w)
		}
	}
	f.waiters = remaining
	f.changed.Broadcast()
}

func (f *FakeClock) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// WaitForTimers blocks until at least n timers or tickers are pending.
// Tests use it to avoid advancing before the code under test has armed
// its timers.
func (f *FakeClock) WaitForTimers(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for f.pendingLocked() < n {
		f.changed.Wait()
	}
}

// Pending returns the number of armed timers and tickers.
func (f *FakeClock) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked()
}

func (f *FakeClock) pendingLocked() int {
	n := 0
	for _, w := range f.waiters {
		if !w.stopped {
			n++
		}
	}
	return n
}
