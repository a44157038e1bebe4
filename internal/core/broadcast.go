package core

// BroadcastSet tracks one in-flight broadcast send (PUB.send, BUS.send,
// SURVEYOR.send): the set of pipes the message was offered to at dispatch
// time, so the protocol can tell when every one of them has either
// finished sending or dropped out, per spec.md §4.3's broadcast semantics.
// A protocol owns at most one BroadcastSet per pending Send — it has no
// notion of pipes beyond the ids it was given.
type BroadcastSet struct {
	outstanding map[uint32]struct{}
	onDone      func()
}

// Begin records pending as the pipes a broadcast was offered to and
// returns the set; a pipe skipped at dispatch time (it signaled blocked,
// i.e. CanSend was already false) should not be included — it stays
// eligible for the next broadcast instead. onDone fires once every pipe in
// pending has been acknowledged via Ack or Drop, including immediately, in
// the same call, if pending is empty.
func Begin(pending []uint32, onDone func()) *BroadcastSet {
	b := &BroadcastSet{outstanding: make(map[uint32]struct{}, len(pending)), onDone: onDone}
	for _, id := range pending {
		b.outstanding[id] = struct{}{}
	}
	if len(b.outstanding) == 0 {
		onDone()
	}
	return b
}

// Ack marks pipeID as having finished sending this round's message.
func (b *BroadcastSet) Ack(pipeID uint32) {
	b.complete(pipeID)
}

// Drop removes pipeID from the outstanding set because it died or was
// closed mid-broadcast; per spec.md it still counts toward completion.
func (b *BroadcastSet) Drop(pipeID uint32) {
	b.complete(pipeID)
}

func (b *BroadcastSet) complete(pipeID uint32) {
	if _, ok := b.outstanding[pipeID]; !ok {
		return
	}
	delete(b.outstanding, pipeID)
	if len(b.outstanding) == 0 {
		b.onDone()
	}
}

// Pending reports whether pipeID is still part of this round.
func (b *BroadcastSet) Pending(pipeID uint32) bool {
	_, ok := b.outstanding[pipeID]
	return ok
}
