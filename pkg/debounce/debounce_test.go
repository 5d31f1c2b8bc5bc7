package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []int
}

func (r *recorder) record(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, v)
}

func (r *recorder) got() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.calls...)
}

func TestBurstFiresOnceWithLastValue(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(250*time.Millisecond, clock, rec.record)

	for _, w := range []int{800, 900, 1000, 1100} {
		d.Trigger(w)
		clock.Advance(100 * time.Millisecond)
	}
	if calls := rec.got(); len(calls) != 0 {
		t.Fatalf("fired during burst: %v", calls)
	}
	if s, v := d.State(); s != Pending || v != 1100 {
		t.Fatalf("state = %v/%v, want pending/1100", s, v)
	}

	clock.Advance(150 * time.Millisecond)
	calls := rec.got()
	if len(calls) != 1 || calls[0] != 1100 {
		t.Fatalf("calls = %v, want [1100]", calls)
	}
	if s, _ := d.State(); s != Idle {
		t.Errorf("state after fire = %v, want idle", s)
	}
	if clock.Pending() != 0 {
		t.Errorf("%d timers left scheduled", clock.Pending())
	}
}

func TestSeparateBurstsFireSeparately(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(DefaultWait, clock, rec.record)

	d.Trigger(1)
	clock.Advance(DefaultWait)
	d.Trigger(2)
	clock.Advance(DefaultWait)

	calls := rec.got()
	if len(calls) != 2 || calls[0] != 1 || calls[1] != 2 {
		t.Errorf("calls = %v, want [1 2]", calls)
	}
}

func TestStaleTimerIgnored(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(DefaultWait, clock, rec.record)

	d.Trigger(1)
	// Simulate a timer whose Stop lost the race: fire the first token after
	// a newer trigger.
	d.Trigger(2)
	d.fire(1)
	if calls := rec.got(); len(calls) != 0 {
		t.Fatalf("stale token fired: %v", calls)
	}
	clock.Advance(DefaultWait)
	if calls := rec.got(); len(calls) != 1 || calls[0] != 2 {
		t.Errorf("calls = %v, want [2]", calls)
	}
}

func TestCancel(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(DefaultWait, clock, rec.record)

	if d.Cancel() {
		t.Error("Cancel on idle debouncer reported pending")
	}
	d.Trigger(5)
	if !d.Cancel() {
		t.Error("Cancel did not report the pending value")
	}
	clock.Advance(time.Second)
	if calls := rec.got(); len(calls) != 0 {
		t.Errorf("cancelled value fired: %v", calls)
	}
}

func TestCancelIf(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(DefaultWait, clock, rec.record)

	d.Trigger(800)
	if d.CancelIf(func(v int) bool { return v == 900 }) {
		t.Error("CancelIf cancelled a non-matching value")
	}
	if !d.CancelIf(func(v int) bool { return v == 800 }) {
		t.Error("CancelIf kept a matching value")
	}
	clock.Advance(time.Second)
	if calls := rec.got(); len(calls) != 0 {
		t.Errorf("calls = %v, want none", calls)
	}
}

func TestFlush(t *testing.T) {
	clock := &Manual{}
	var rec recorder
	d := New(DefaultWait, clock, rec.record)

	if d.Flush() {
		t.Error("Flush on idle debouncer reported pending")
	}
	d.Trigger(3)
	if !d.Flush() {
		t.Fatal("Flush did not run the pending value")
	}
	clock.Advance(time.Second)
	if calls := rec.got(); len(calls) != 1 || calls[0] != 3 {
		t.Errorf("calls = %v, want [3] exactly once", calls)
	}
}

func TestSystemScheduler(t *testing.T) {
	done := make(chan int, 1)
	d := New(5*time.Millisecond, nil, func(v int) { done <- v })
	d.Trigger(1)
	d.Trigger(2)
	select {
	case v := <-done:
		if v != 2 {
			t.Errorf("got %d, want 2", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("debouncer never fired")
	}
}
