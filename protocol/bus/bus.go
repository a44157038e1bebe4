// Package bus implements the BUS scalability protocol: every pipe gets
// every message sent except, in device/raw forwarding, the pipe a message
// arrived from.
package bus

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	pipes map[uint32]*core.Pipe
	fq    *core.FairQueue // recv side: fair-queue delivery across pipes

	raw bool

	pendingRecv *core.RecvOp
	queued      []*core.Message

	pendingSend *core.BroadcastSet
	pendingOp   *core.SendOp
}

// New returns a fresh BUS protocol instance.
func New() core.Protocol {
	return &protocol{pipes: map[uint32]*core.Pipe{}, fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoBus, Peer: wire.ProtoBus, SelfName: "bus", PeerName: "bus"}
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
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
	} else {
		p.queued = append(p.queued, msg)
	}
	pipe.ResumeRecv()
}

// origin reports the pipe a message should be excluded from when
// rebroadcasting it, if raw mode is on and the message is tagged with
// one. Cooked-mode sends are never tagged, so origin is 0 (no pipe has
// id 0) and every pipe is a target, same as before raw mode existed.
func (p *protocol) origin(op *core.SendOp) uint32 {
	if !p.raw {
		return 0
	}
	return op.Msg.PipeID()
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		p.pendingSend.Ack(pipe.ID)
	}
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

// SetOption accepts core.OptionRaw: in raw mode, Send excludes whatever
// pipe the outgoing Message is tagged as having arrived on, letting a
// Device relay a BUS message back out to every peer except the one it
// came from.
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
