// Package respondent implements the RESPONDENT half of SURVEY: like REP,
// recv captures a backtrace and send requires it and routes directly to
// the captured pipe, but delivery is driven by broadcast surveys rather
// than point-to-point requests.
package respondent

import (
	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

type protocol struct {
	pipes map[uint32]*core.Pipe

	pendingRecv *core.RecvOp
	queued      []*core.Message

	sendOp *core.SendOp
}

// New returns a fresh RESPONDENT protocol instance.
func New() core.Protocol {
	return &protocol{pipes: map[uint32]*core.Pipe{}}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoRespondent, Peer: wire.ProtoSurveyor, SelfName: "respondent", PeerName: "surveyor"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.pipes[pipe.ID] = pipe
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	delete(p.pipes, pipe.ID)
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	frames, rest, ok := core.PopBacktrace(msg.Body)
	if !ok {
		pipe.Kill(core.ErrMalformedBacktrace)
		return
	}
	pipe.ResumeRecv()
	msg.Body = rest
	msg.Header = core.CaptureBacktrace(pipe.ID, frames)
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
		return
	}
	p.queued = append(p.queued, msg)
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.sendOp != nil {
		op := p.sendOp
		p.sendOp = nil
		op.Complete(nil)
	}
}

func (p *protocol) Send(op *core.SendOp) {
	if op.Msg.Header == nil {
		op.Complete(core.ErrNoBacktrace)
		return
	}
	pipeID, wireFrames, ok := core.SplitBacktrace(op.Msg.Header)
	if !ok {
		op.Complete(core.ErrNoBacktrace)
		return
	}
	pipe, ok := p.pipes[pipeID]
	if !ok || !pipe.CanSend {
		op.Complete(core.ErrNotConnected)
		return
	}
	body := append(append([]byte(nil), wireFrames...), op.Msg.Body...)
	p.sendOp = op
	pipe.Send(0, nil, body)
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
		if p.sendOp == v {
			p.sendOp = nil
		}
	case *core.RecvOp:
		if p.pendingRecv == v {
			p.pendingRecv = nil
		}
	}
}

// SetOption accepts core.OptionRaw as a no-op: RESPONDENT never mints its
// own correlation id, so its receive/send behavior is already the "raw"
// backtrace-transparent shape a device leg needs, in both modes.
func (p *protocol) SetOption(name string, value interface{}) error {
	if name == core.OptionRaw {
		if _, ok := value.(bool); !ok {
			return core.ErrBadValue
		}
		return nil
	}
	return core.ErrBadOption
}

func (p *protocol) GetOption(name string) (interface{}, error) {
	if name == core.OptionRaw {
		return true, nil
	}
	return nil, core.ErrBadOption
}
