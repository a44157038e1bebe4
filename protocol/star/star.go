// Package star implements STAR, an additive pattern alongside BUS: like
// BUS, every pipe can send to and receive from every other, but a STAR
// node also automatically rebroadcasts anything it receives to its other
// peers, so a star topology's hub relays between spokes without the
// application having to resend explicitly.
package star

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	pipes map[uint32]*core.Pipe
	fq    *core.FairQueue

	raw bool

	pendingRecv *core.RecvOp
	queued      []*core.Message

	pendingSend *core.BroadcastSet
	pendingOp   *core.SendOp

	relaying map[uint32]*core.BroadcastSet // in-flight auto-relays, keyed by origin pipe
}

// New returns a fresh STAR protocol instance.
func New() core.Protocol {
	return &protocol{pipes: map[uint32]*core.Pipe{}, fq: core.NewFairQueue(), relaying: map[uint32]*core.BroadcastSet{}}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoStar, Peer: wire.ProtoStar, SelfName: "star", PeerName: "star"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.pipes[pipe.ID] = pipe
	p.fq.Add(pipe)
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	delete(p.pipes, pipe.ID)
	p.fq.Remove(pipe.ID)
	if p.pendingSend != nil {
		p.pendingSend.Drop(pipe.ID)
	}
	for _, rb := range p.relaying {
		rb.Drop(pipe.ID)
	}
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	p.relay(pipe.ID, msg)
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
	} else {
		p.queued = append(p.queued, msg.Clone())
	}
	pipe.ResumeRecv()
}

// relay rebroadcasts msg to every pipe other than the one it arrived on.
func (p *protocol) relay(originID uint32, msg *core.Message) {
	var targets []uint32
	p.fq.Each(func(pipe *core.Pipe) {
		if pipe.ID == originID || !pipe.CanSend {
			return
		}
		targets = append(targets, pipe.ID)
		pipe.Send(0, msg.Header, msg.Body)
	})
	if len(targets) == 0 {
		return
	}
	p.relaying[originID] = core.Begin(targets, func() {
		delete(p.relaying, originID)
	})
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		p.pendingSend.Ack(pipe.ID)
	}
	for _, rb := range p.relaying {
		rb.Ack(pipe.ID)
	}
}

// origin reports the pipe an explicit Send should exclude when raw mode
// is on and the outgoing Message is tagged with one, mirroring bus's
// Device-facing exclusion rule. Cooked-mode sends are untagged, so every
// pipe stays a target.
func (p *protocol) origin(op *core.SendOp) uint32 {
	if !p.raw {
		return 0
	}
	return op.Msg.PipeID()
}

func (p *protocol) Send(op *core.SendOp) {
	origin := p.origin(op)
	var targets []uint32
	p.fq.Each(func(pipe *core.Pipe) {
		if pipe.ID == origin || !pipe.CanSend {
			return
		}
		targets = append(targets, pipe.ID)
		pipe.Send(0, op.Msg.Header, op.Msg.Body)
	})
	p.pendingOp = op
	p.pendingSend = core.Begin(targets, func() {
		done := p.pendingOp
		p.pendingOp = nil
		p.pendingSend = nil
		if done != nil {
			done.Complete(nil)
		}
	})
}

func (p *protocol) Recv(op *core.RecvOp) {
	if len(p.queued) > 0 {
		msg := p.queued[0]
		p.queued = p.queued[1:]
		op.Complete(msg, nil)
		return
	}
	p.pendingRecv = op
}

func (p *protocol) PendingCanceled(op interface{}) {
	switch v := op.(type) {
	case *core.SendOp:
		if p.pendingOp == v {
			p.pendingOp = nil
		}
	case *core.RecvOp:
		p.pendingRecv = nil
	}
}

// SetOption accepts core.OptionRaw, same as bus: in raw mode, an
// explicit Send excludes whatever pipe the outgoing Message is tagged
// as having arrived on. The automatic relay every received message
// triggers already excludes its origin pipe regardless of this option.
func (p *protocol) SetOption(name string, value interface{}) error {
	if name == core.OptionRaw {
		raw, ok := value.(bool)
		if !ok {
			return core.ErrBadValue
		}
		p.raw = raw
		return nil
	}
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	if name == core.OptionRaw {
		return p.raw, nil
	}
	return nil, core.ErrBadOption
}
