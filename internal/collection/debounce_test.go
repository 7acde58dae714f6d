package collection

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncer_RunsLastOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var last, runs int32
	for i := int32(1); i <= 5; i++ {
		i := i
		d.Trigger(func() {
			atomic.AddInt32(&runs, 1)
			atomic.StoreInt32(&last, i)
		})
	}
	time.Sleep(80 * time.Millisecond)

	if got := atomic.LoadInt32(&runs); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}
	if got := atomic.LoadInt32(&last); got != 5 {
		t.Fatalf("last = %d, want 5", got)
	}
	if d.Pending() {
		t.Fatalf("still pending after firing")
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var runs int32
	d.Trigger(func() { atomic.AddInt32(&runs, 1) })

	if !d.Cancel() {
		t.Fatalf("Cancel reported nothing pending")
	}
	if d.Cancel() {
		t.Fatalf("second Cancel reported a pending call")
	}
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&runs) != 0 {
		t.Fatalf("cancelled function ran")
	}
}
