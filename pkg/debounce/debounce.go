// Package debounce coalesces bursts of events into a single call.
//
// A [Debouncer] is a two-state machine:
//
//	Idle --Trigger--> Pending(token) --Trigger--> Pending(token') --quiet--> Idle + fire
//
// Every Trigger stops the pending timer, bumps the token and schedules a
// new one. A timer that fires with a stale token does nothing, so a Stop
// that loses the race against an already-running timer is harmless. Only
// the value of the last Trigger reaches the callback.
//
// Timers come from an injected [Scheduler]; tests use [Manual] and never
// sleep.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the quiet window used when none is given.
const DefaultWait = 250 * time.Millisecond

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer, false if it had already fired or been stopped.
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// System schedules with the runtime timer.
type System struct{}

// AfterFunc wraps [time.AfterFunc].
func (System) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// State is the debouncer's state.
type State int

const (
	Idle State = iota
	Pending
)

func (s State) String() string {
	if s == Pending {
		return "pending"
	}
	return "idle"
}

// Debouncer delivers the last value of a burst to fn after a quiet window.
// The callback runs on the scheduler's goroutine, never while the
// debouncer's lock is held.
type Debouncer[T any] struct {
	mu    sync.Mutex
	sched Scheduler
	wait  time.Duration
	fn    func(T)

	state State
	token uint64
	timer Timer
	last  T
}

// New returns an idle debouncer. A nil scheduler means [System]; a
// non-positive wait means [DefaultWait].
func New[T any](wait time.Duration, sched Scheduler, fn func(T)) *Debouncer[T] {
	if sched == nil {
		sched = System{}
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer[T]{sched: sched, wait: wait, fn: fn}
}

// Trigger records v and restarts the quiet window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.token++
	token := d.token
	d.state = Pending
	d.last = v
	d.timer = d.sched.AfterFunc(d.wait, func() { d.fire(token) })
}

func (d *Debouncer[T]) fire(token uint64) {
	d.mu.Lock()
	if d.state != Pending || token != d.token {
		d.mu.Unlock()
		return
	}
	v := d.last
	d.reset()
	d.mu.Unlock()

	d.fn(v)
}

// Cancel drops the pending value, if any. It reports whether something was
// pending.
func (d *Debouncer[T]) Cancel() bool {
	return d.CancelIf(func(T) bool { return true })
}

// CancelIf drops the pending value only when match accepts it.
func (d *Debouncer[T]) CancelIf(match func(T) bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != Pending || !match(d.last) {
		return false
	}
	d.timer.Stop()
	d.token++
	d.reset()
	return true
}

// Flush runs the pending callback now instead of waiting. It reports
// whether anything was pending.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.state != Pending {
		d.mu.Unlock()
		return false
	}
	d.timer.Stop()
	d.token++
	v := d.last
	d.reset()
	d.mu.Unlock()

	d.fn(v)
	return true
}

// State returns the current state and, when pending, the value that will be
// delivered.
func (d *Debouncer[T]) State() (State, T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state, d.last
}

func (d *Debouncer[T]) reset() {
	var zero T
	d.state = Idle
	d.timer = nil
	d.last = zero
}
