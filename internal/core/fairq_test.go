package core

import "testing"

func pipeWith(id uint32, canSend bool) *Pipe {
	return &Pipe{ID: id, CanSend: canSend}
}

func TestFairQueueRoundRobin(t *testing.T) {
	q := NewFairQueue()
	q.Add(pipeWith(1, true))
	q.Add(pipeWith(2, true))
	q.Add(pipeWith(3, true))

	eligible := func(p *Pipe) bool { return p.CanSend }

	var order []uint32
	for i := 0; i < 6; i++ {
		p := q.Next(eligible)
		if p == nil {
			t.Fatalf("Next returned nil on iteration %d", i)
		}
		order = append(order, p.ID)
	}
	want := []uint32{1, 2, 3, 1, 2, 3}
	for i, id := range want {
		if order[i] != id {
			t.Fatalf("order[%d] = %d, want %d (full: %v)", i, order[i], id, order)
		}
	}
}

func TestFairQueueSkipsIneligible(t *testing.T) {
	q := NewFairQueue()
	q.Add(pipeWith(1, false))
	q.Add(pipeWith(2, true))

	p := q.Next(func(p *Pipe) bool { return p.CanSend })
	if p == nil || p.ID != 2 {
		t.Fatalf("expected pipe 2, got %v", p)
	}
}

func TestFairQueueEmptyReturnsNil(t *testing.T) {
	q := NewFairQueue()
	if p := q.Next(func(*Pipe) bool { return true }); p != nil {
		t.Fatalf("expected nil from empty queue, got %v", p)
	}
}

func TestFairQueueRemove(t *testing.T) {
	q := NewFairQueue()
	q.Add(pipeWith(1, true))
	q.Add(pipeWith(2, true))
	q.Remove(1)

	if q.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", q.Len())
	}
	p := q.Next(func(*Pipe) bool { return true })
	if p == nil || p.ID != 2 {
		t.Fatalf("expected pipe 2 to remain, got %v", p)
	}
}

func TestFairQueueEachVisitsAll(t *testing.T) {
	q := NewFairQueue()
	q.Add(pipeWith(1, true))
	q.Add(pipeWith(2, true))
	q.Add(pipeWith(3, true))

	seen := map[uint32]bool{}
	q.Each(func(p *Pipe) { seen[p.ID] = true })
	for _, id := range []uint32{1, 2, 3} {
		if !seen[id] {
			t.Fatalf("Each did not visit pipe %d", id)
		}
	}
}
