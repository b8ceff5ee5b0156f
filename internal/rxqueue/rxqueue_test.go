package rxqueue

import (
	"testing"

	"github.com/actlab/hilcosim/internal/wire"
)

func mkArrival(stepID uint64, arrivalNs int64) Arrival {
	return Arrival{ArrivalNs: arrivalNs, Message: wire.TelemetryMessage{StepID: stepID}}
}

func TestPushPopFIFO(t *testing.T) {
	q := New(4)
	q.Push(mkArrival(1, 10))
	q.Push(mkArrival(2, 20))
	q.Push(mkArrival(3, 30))
	for _, want := range []uint64{1, 2, 3} {
		got, ok := q.TryPop()
		if !ok {
			t.Fatalf("expected an arrival for step %d", want)
		}
		if got.Message.StepID != want {
			t.Fatalf("got step %d, want %d", got.Message.StepID, want)
		}
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := New(2)
	if _, ok := q.TryPop(); ok {
		t.Fatalf("expected empty queue to report no arrival")
	}
}

// TestOverflowDropsOldest verifies capacity is never exceeded, and
// under overflow the oldest entries are the ones dropped.
func TestOverflowDropsOldest(t *testing.T) {
	q := New(3)
	for i := uint64(1); i <= 10; i++ {
		q.Push(mkArrival(i, int64(i)))
		if q.Len() > q.Cap() {
			t.Fatalf("queue exceeded capacity: len=%d cap=%d", q.Len(), q.Cap())
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected len 3 after overflow, got %d", q.Len())
	}
	// Oldest surviving entries should be steps 8, 9, 10 (7 were dropped).
	for _, want := range []uint64{8, 9, 10} {
		got, ok := q.TryPop()
		if !ok || got.Message.StepID != want {
			t.Fatalf("got %+v ok=%v, want step %d", got, ok, want)
		}
	}
	if q.Dropped() != 7 {
		t.Fatalf("expected 7 drops, got %d", q.Dropped())
	}
}

// TestBurstConsumerSlower simulates a reader 10x faster than the
// consumer, and checks the bound still holds.
func TestBurstConsumerSlower(t *testing.T) {
	q := New(16)
	const produced = 1000
	for i := uint64(0); i < produced; i++ {
		q.Push(mkArrival(i, int64(i)))
		if i%10 == 0 {
			q.TryPop() // consumer drains occasionally, much slower than producer
		}
		if q.Len() > q.Cap() {
			t.Fatalf("capacity exceeded: len=%d cap=%d", q.Len(), q.Cap())
		}
	}
}

func TestNewDefaultsCapacity(t *testing.T) {
	q := New(0)
	if q.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity %d, got %d", DefaultCapacity, q.Cap())
	}
}
