// Package sub implements the receive half of PUB/SUB: fair-queued receive
// filtered by a set of subscribed body prefixes, send unsupported.
package sub

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	fq *core.FairQueue

	subs [][]byte

	pendingRecv *core.RecvOp
	queued      []*core.Message
}

// New returns a fresh SUB protocol instance with no subscriptions — until
// subscribe is called at least once, recv never returns anything, per
// spec.md's "empty subscription set receives nothing".
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoSub, Peer: wire.ProtoPub, SelfName: "sub", PeerName: "pub"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
}

func (p *protocol) matches(body []byte) bool {
	for _, prefix := range p.subs {
		if len(prefix) == 0 {
			return true
		}
		if len(body) >= len(prefix) && string(body[:len(prefix)]) == string(prefix) {
			return true
		}
	}
	return false
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	pipe.ResumeRecv()
	if !p.matches(msg.Body) {
		return
	}
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

// Option names this protocol recognizes via Session.SetOption/GetOption.
const (
	OptionSubscribe   = "subscribe"
	OptionUnsubscribe = "unsubscribe"
)

func (p *protocol) SetOption(name string, value interface{}) error {
	prefix, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			prefix = []byte(s)
		} else {
			return core.ErrBadValue
		}
	}
	switch name {
	case OptionSubscribe:
		p.subs = append(p.subs, prefix)
		return nil
	case OptionUnsubscribe:
		for i, s := range p.subs {
			if string(s) == string(prefix) {
				p.subs = append(p.subs[:i], p.subs[i+1:]...)
				return nil
			}
		}
		return core.ErrInvalidArgument
	default:
		return core.ErrBadOption
	}
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	if name == OptionSubscribe {
		out := make([][]byte, len(p.subs))
		copy(out, p.subs)
		return out, nil
	}
	return nil, core.ErrBadOption
}
