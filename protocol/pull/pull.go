// Package pull implements the receive half of the PIPELINE pattern:
// fair-queued receive across active pipes, send unsupported.
package pull

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	fq *core.FairQueue

	pendingRecv *core.RecvOp
	queued      []*core.Message
}

// New returns a fresh PULL protocol instance.
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoPull, Peer: wire.ProtoPush, SelfName: "pull", PeerName: "push"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	pipe.ResumeRecv()
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
		return
	}
	p.queued = append(p.queued, msg)
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {}

func (p *protocol) Send(op *core.SendOp) {
	op.Complete(core.ErrProtoOp)
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
	if _, ok := op.(*core.RecvOp); ok {
		p.pendingRecv = nil
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	return nil, core.ErrBadOption
}
