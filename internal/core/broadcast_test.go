package core

import "testing"

func TestBroadcastSetCompletesAfterAllAck(t *testing.T) {
	done := false
	b := Begin([]uint32{1, 2, 3}, func() { done = true })

	b.Ack(1)
	if done {
		t.Fatal("onDone fired before all pipes acked")
	}
	b.Ack(2)
	if done {
		t.Fatal("onDone fired before all pipes acked")
	}
	b.Ack(3)
	if !done {
		t.Fatal("onDone did not fire once all pipes acked")
	}
}

func TestBroadcastSetDropCountsTowardCompletion(t *testing.T) {
	done := false
	b := Begin([]uint32{1, 2}, func() { done = true })

	b.Drop(1)
	b.Ack(2)
	if !done {
		t.Fatal("onDone did not fire after mixed ack/drop completion")
	}
}

func TestBroadcastSetEmptyFiresImmediately(t *testing.T) {
	done := false
	Begin(nil, func() { done = true })
	if !done {
		t.Fatal("onDone did not fire immediately for an empty pending set")
	}
}

func TestBroadcastSetIgnoresUnknownPipe(t *testing.T) {
	calls := 0
	b := Begin([]uint32{1}, func() { calls++ })
	b.Ack(99) // not part of the set
	if calls != 0 {
		t.Fatal("onDone fired for an unrelated pipe id")
	}
	b.Ack(1)
	if calls != 1 {
		t.Fatalf("onDone fired %d times, want 1", calls)
	}
}

func TestBroadcastSetPending(t *testing.T) {
	b := Begin([]uint32{1, 2}, func() {})
	if !b.Pending(1) {
		t.Fatal("expected pipe 1 to be pending")
	}
	b.Ack(1)
	if b.Pending(1) {
		t.Fatal("expected pipe 1 to no longer be pending after Ack")
	}
}
