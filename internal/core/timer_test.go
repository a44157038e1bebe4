package core

import (
	"testing"
	"time"
)

func TestTimerWheelPopExpiredOrdering(t *testing.T) {
	w := newTimerWheel()
	base := time.Now()

	w.schedule(timerSendDeadline, base.Add(30*time.Millisecond), 1, 0, 0)
	w.schedule(timerRecvDeadline, base.Add(10*time.Millisecond), 2, 0, 0)
	w.schedule(timerReconnect, base.Add(20*time.Millisecond), 3, 0, 0)

	fired := w.popExpired(base.Add(25 * time.Millisecond))
	if len(fired) != 2 {
		t.Fatalf("popExpired returned %d entries, want 2", len(fired))
	}
	if fired[0].socketID != 2 || fired[1].socketID != 3 {
		t.Fatalf("popExpired out of order: got socketIDs %d, %d", fired[0].socketID, fired[1].socketID)
	}
}

func TestTimerWheelCancelSkipsEntry(t *testing.T) {
	w := newTimerWheel()
	base := time.Now()

	e := w.schedule(timerSendDeadline, base.Add(time.Millisecond), 1, 0, 0)
	w.schedule(timerRecvDeadline, base.Add(2*time.Millisecond), 2, 0, 0)
	w.cancel(e)

	fired := w.popExpired(base.Add(5 * time.Millisecond))
	if len(fired) != 1 || fired[0].socketID != 2 {
		t.Fatalf("expected only socketID 2 to fire, got %+v", fired)
	}
}

func TestTimerWheelEmptyAfterAllFired(t *testing.T) {
	w := newTimerWheel()
	base := time.Now()
	w.schedule(timerLinger, base, 1, 0, 0)

	if w.empty() {
		t.Fatal("timer wheel reported empty before popping the scheduled entry")
	}
	w.popExpired(base)
	if !w.empty() {
		t.Fatal("timer wheel did not report empty after its only entry fired")
	}
}

func TestTimerWheelPeekDeadlineSkipsCanceled(t *testing.T) {
	w := newTimerWheel()
	base := time.Now()

	e := w.schedule(timerSendDeadline, base, 1, 0, 0)
	w.schedule(timerRecvDeadline, base.Add(time.Second), 2, 0, 0)
	w.cancel(e)

	d, ok := w.peekDeadline()
	if !ok {
		t.Fatal("peekDeadline reported no deadline")
	}
	if !d.Equal(base.Add(time.Second)) {
		t.Fatalf("peekDeadline = %v, want %v", d, base.Add(time.Second))
	}
}
