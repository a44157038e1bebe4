package core

// FairQueue is the priority list shared machinery every protocol builds
// its dispatch on: an ordered set of pipes with an active bit (reflects
// remote writability/readability) and a visible bit (admitted by the
// protocol). Next() rotates cyclically among eligible pipes so repeated
// calls round-robin fairly across them — load-balance on the send side,
// fair-queue on the receive side, same data structure either way.
type FairQueue struct {
	order []uint32
	pipes map[uint32]*Pipe
	pos   int
}

// NewFairQueue returns an empty queue.
func NewFairQueue() *FairQueue {
	return &FairQueue{pipes: map[uint32]*Pipe{}}
}

// Add admits a pipe at the end of the rotation. Whether it is eligible for
// a given Next call is decided by the predicate the caller passes there
// (typically the pipe's own CanSend bit).
func (q *FairQueue) Add(p *Pipe) {
	if _, ok := q.pipes[p.ID]; ok {
		return
	}
	q.pipes[p.ID] = p
	q.order = append(q.order, p.ID)
}

// Remove drops a pipe from the set entirely, e.g. when it dies.
func (q *FairQueue) Remove(id uint32) {
	if _, ok := q.pipes[id]; !ok {
		return
	}
	delete(q.pipes, id)
	for i, pid := range q.order {
		if pid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	if q.pos >= len(q.order) {
		q.pos = 0
	}
}

// Len reports how many pipes (active or not) are currently admitted.
func (q *FairQueue) Len() int { return len(q.order) }

// Next returns the next eligible pipe in round-robin order, advancing the
// internal cursor so the next call after a successful use moves on to a
// different pipe. Eligibility is whatever the caller's eligible predicate
// says (the pipe's CanSend or CanRecv bit, say) — Next does not look at
// those bits itself, so the rotation logic stays independent of direction.
func (q *FairQueue) Next(eligible func(*Pipe) bool) *Pipe {
	n := len(q.order)
	if n == 0 {
		return nil
	}
	for i := 0; i < n; i++ {
		idx := (q.pos + i) % n
		p := q.pipes[q.order[idx]]
		if p != nil && eligible(p) {
			q.pos = (idx + 1) % n
			return p
		}
	}
	return nil
}

// Each calls fn for every currently-admitted pipe, in the order they were
// added, independent of the Next() cursor; used by broadcast sends that
// need to visit every pipe rather than pick one.
func (q *FairQueue) Each(fn func(*Pipe)) {
	for _, id := range q.order {
		if p, ok := q.pipes[id]; ok {
			fn(p)
		}
	}
}
