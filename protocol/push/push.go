// Package push implements the send half of the PIPELINE pattern:
// load-balanced send across active pipes, receive unsupported.
package push

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	fq *core.FairQueue

	pendingSend *core.SendOp
}

// New returns a fresh PUSH protocol instance.
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoPush, Peer: wire.ProtoPull, SelfName: "push", PeerName: "pull"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	if p.pendingSend != nil {
		p.trySend()
	}
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	pipe.ResumeRecv()
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		op := p.pendingSend
		p.pendingSend = nil
		op.Complete(nil)
	}
	// A pipe that just finished is back at the end of the cycle via
	// FairQueue's own rotation; nothing more to do here.
}

func (p *protocol) Send(op *core.SendOp) {
	p.pendingSend = op
	p.trySend()
}

func (p *protocol) trySend() {
	pipe := p.fq.Next(func(pipe *core.Pipe) bool { return pipe.CanSend })
	if pipe == nil {
		return
	}
	op := p.pendingSend
	pipe.Send(0, op.Msg.Header, op.Msg.Body)
}

func (p *protocol) Recv(op *core.RecvOp) {
	op.Complete(nil, core.ErrProtoOp)
}

func (p *protocol) PendingCanceled(op interface{}) {
	if v, ok := op.(*core.SendOp); ok && p.pendingSend == v {
		p.pendingSend = nil
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	return nil, core.ErrBadOption
}
