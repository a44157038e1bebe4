// Package pair implements the PAIR scalability protocol: exactly one peer
// pipe at a time, full duplex, no header manipulation.
package pair

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	pipe *core.Pipe

	pendingSend *core.SendOp
	pendingRecv *core.RecvOp
	queued      []*core.Message
}

// New returns a fresh PAIR protocol instance for a new socket.
func New() core.Protocol {
	return &protocol{}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoPair, Peer: wire.ProtoPair, SelfName: "pair", PeerName: "pair"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	if p.pipe != nil {
		return false
	}
	p.pipe = pipe
	pipe.CanRecv = true
	if p.pendingSend != nil {
		p.trySend()
	}
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	if p.pipe == pipe {
		p.pipe = nil
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

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		op := p.pendingSend
		p.pendingSend = nil
		op.Complete(nil)
	}
}

func (p *protocol) Send(op *core.SendOp) {
	p.pendingSend = op
	p.trySend()
}

func (p *protocol) trySend() {
	if p.pendingSend == nil || p.pipe == nil || !p.pipe.CanSend {
		return
	}
	op := p.pendingSend
	p.pipe.Send(0, op.Msg.Header, op.Msg.Body)
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
	switch op.(type) {
	case *core.SendOp:
		p.pendingSend = nil
	case *core.RecvOp:
		p.pendingRecv = nil
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	return nil, core.ErrBadOption
}
