// Package pub implements the send half of PUB/SUB: broadcast to every
// active pipe, no header manipulation, receive unsupported.
package pub

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	fq *core.FairQueue

	pendingSend *core.BroadcastSet
	pendingOp   *core.SendOp
}

// New returns a fresh PUB protocol instance.
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoPub, Peer: wire.ProtoSub, SelfName: "pub", PeerName: "sub"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
	if p.pendingSend != nil {
		p.pendingSend.Drop(pipe.ID)
	}
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	// PUB never reads; a peer that sends upstream gets ignored, the read
	// loop is still drained so the pipe doesn't stall.
	pipe.ResumeRecv()
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		p.pendingSend.Ack(pipe.ID)
	}
}

func (p *protocol) Send(op *core.SendOp) {
	var targets []uint32
	p.fq.Each(func(pipe *core.Pipe) {
		if pipe.CanSend {
			targets = append(targets, pipe.ID)
			pipe.Send(0, op.Msg.Header, op.Msg.Body)
		}
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
	op.Complete(nil, core.ErrProtoOp)
}

func (p *protocol) PendingCanceled(op interface{}) {
	if v, ok := op.(*core.SendOp); ok && p.pendingOp == v {
		p.pendingOp = nil
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	return nil, core.ErrBadOption
}
