package core

import (
	"time"

	"github.com/Workiva/go-datastructures/queue"
)

// timerKind distinguishes what a fired timer should do; the reactor
// switches on this after popping the minimum off the heap.
type timerKind int

const (
	timerReconnect timerKind = iota
	timerSendDeadline
	timerRecvDeadline
	timerSurveyDeadline
	timerReqResend
	timerLinger
)

// timerEntry is one scheduled deadline. It implements
// queue.Item so the whole set can live in a
// github.com/Workiva/go-datastructures/queue.PriorityQueue, which gives us
// the O(log n) insert / O(1) min-peek the reactor's timer wheel needs
// (spec.md §5) without hand-rolling a heap.
type timerEntry struct {
	deadline time.Time
	seq      uint64 // insertion order, breaks exact-deadline ties
	kind     timerKind
	socketID uint32
	endpoint uint32
	pipeID   uint32
	canceled bool
}

// Compare implements queue.Item: earliest deadline first, ties broken by
// insertion order.
func (t *timerEntry) Compare(other queue.Item) int {
	o := other.(*timerEntry)
	switch {
	case t.deadline.Before(o.deadline):
		return -1
	case t.deadline.After(o.deadline):
		return 1
	case t.seq < o.seq:
		return -1
	case t.seq > o.seq:
		return 1
	default:
		return 0
	}
}

// timerWheel is a thin wrapper that adds cancellation-by-reference (the
// underlying PriorityQueue only supports pop-the-min) and a monotonic
// sequence counter for tie-breaking.
type timerWheel struct {
	pq     *queue.PriorityQueue
	seq    uint64
	active int // count of non-canceled entries, for quick emptiness checks
}

func newTimerWheel() *timerWheel {
	return &timerWheel{pq: queue.NewPriorityQueue(16, false)}
}

// schedule inserts a new timer and returns a handle that can later be
// passed to cancel. The handle is the *timerEntry pointer itself;
// cancellation just flips a flag the reactor checks when the entry is
// eventually popped, which is simpler and cheaper than a remove-from-heap.
func (w *timerWheel) schedule(kind timerKind, deadline time.Time, socketID, endpoint, pipeID uint32) *timerEntry {
	w.seq++
	e := &timerEntry{deadline: deadline, seq: w.seq, kind: kind, socketID: socketID, endpoint: endpoint, pipeID: pipeID}
	_ = w.pq.Put(e)
	w.active++
	return e
}

func (w *timerWheel) cancel(e *timerEntry) {
	if e == nil || e.canceled {
		return
	}
	e.canceled = true
	w.active--
}

// peekDeadline returns the next live deadline, skipping (and discarding)
// any canceled entries at the head, and whether one exists at all.
func (w *timerWheel) peekDeadline() (time.Time, bool) {
	for {
		items := w.pq.Peek()
		if items == nil {
			return time.Time{}, false
		}
		e := items.(*timerEntry)
		if e.canceled {
			_, _ = w.pq.Get(1)
			continue
		}
		return e.deadline, true
	}
}

// popExpired removes and returns every live timer whose deadline is <= now.
func (w *timerWheel) popExpired(now time.Time) []*timerEntry {
	var fired []*timerEntry
	for {
		items := w.pq.Peek()
		if items == nil {
			break
		}
		e := items.(*timerEntry)
		if e.canceled {
			_, _ = w.pq.Get(1)
			continue
		}
		if e.deadline.After(now) {
			break
		}
		_, _ = w.pq.Get(1)
		w.active--
		fired = append(fired, e)
	}
	return fired
}

func (w *timerWheel) empty() bool { return w.active == 0 }
