package checklist

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	d := newDebouncer(30 * time.Millisecond)
	defer d.Close()

	var fired atomic.Int32
	var last atomic.Value
	for _, v := range []string{"a", "ab", "abc"} {
		v := v
		d.Schedule("k", func() {
			fired.Add(1)
			last.Store(v)
		})
	}

	time.Sleep(120 * time.Millisecond)
	if got := fired.Load(); got != 1 {
		t.Fatalf("expected exactly one callback, got %d", got)
	}
	if got := last.Load(); got != "abc" {
		t.Fatalf("expected last value, got %v", got)
	}
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)
	defer d.Close()

	var a, b atomic.Int32
	d.Schedule("a", func() { a.Add(1) })
	d.Schedule("b", func() { b.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Fatalf("expected one callback per key, got a=%d b=%d", a.Load(), b.Load())
	}
}

func TestDebouncerFlushRunsImmediately(t *testing.T) {
	d := newDebouncer(time.Hour)
	defer d.Close()

	var fired atomic.Int32
	d.Schedule("k", func() { fired.Add(1) })
	d.Flush("k")
	if fired.Load() != 1 {
		t.Fatalf("flush should run the pending callback synchronously")
	}
	// Flushing again is a no-op.
	d.Flush("k")
	if fired.Load() != 1 {
		t.Fatalf("second flush must not re-run")
	}
}

func TestDebouncerCloseCancels(t *testing.T) {
	d := newDebouncer(20 * time.Millisecond)

	var fired atomic.Int32
	d.Schedule("k", func() { fired.Add(1) })
	d.Close()

	time.Sleep(80 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("callback fired after Close")
	}
	// Scheduling after Close is ignored.
	d.Schedule("k", func() { fired.Add(1) })
	d.FlushAll()
	time.Sleep(50 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatalf("callback fired after Close via re-schedule")
	}
}
