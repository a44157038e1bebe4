// Package surveyor implements the SURVEYOR half of SURVEY: each send
// allocates a survey id and broadcasts it, opening a collection window
// after which further replies are silently dropped.
//
// Setting core.OptionRaw switches a socket into the raw device-forwarding
// variant spec.md §4.3.7 describes: Send requires a backtrace header
// from the caller instead of minting a survey id, broadcasts it
// unmodified, and opens no collection window (a device hop doesn't own
// the survey's deadline, only the originating cooked SURVEYOR does);
// Recv pops whatever backtrace frames each reply carries instead of
// matching a single outstanding id.
package surveyor

import (
	"time"

	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

// OptionSurveyDeadline sets how long SURVEYOR.recv keeps accepting
// replies to the most recent survey after Send returns. Only meaningful
// in cooked mode.
const OptionSurveyDeadline = "survey-deadline"

const defaultDeadline = time.Second

type protocol struct {
	fq *core.FairQueue

	raw bool

	nextID uint32

	pendingSend *core.SendOp
	pendingOp   *core.BroadcastSet

	outstandingID uint32 // cooked: the survey id accepting replies; raw: nonzero means "send outstanding"
	deadline      time.Duration
	armed         bool // NextDeadline returns deadline once per Send, then clears

	pendingRecv *core.RecvOp
	queued      []*core.Message
}

// New returns a fresh SURVEYOR protocol instance.
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue(), deadline: defaultDeadline}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoSurveyor, Peer: wire.ProtoRespondent, SelfName: "surveyor", PeerName: "respondent"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
	if p.pendingOp != nil {
		p.pendingOp.Drop(pipe.ID)
	}
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	if p.raw {
		p.handleRawRecv(pipe, msg)
		return
	}
	pipe.ResumeRecv()
	if len(msg.Body) < 4 || p.outstandingID == 0 {
		return
	}
	if core.DecodeID(msg.Body[:4]) != p.outstandingID {
		return // late or foreign reply, silently dropped per spec.md §4.3.6
	}
	msg.Body = msg.Body[4:]
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
		return
	}
	p.queued = append(p.queued, msg)
}

// handleRawRecv pops the backtrace frames a reply carries instead of
// matching a single survey id, so a raw SURVEYOR leg can forward each
// reply's backtrace on through a Device unchanged.
func (p *protocol) handleRawRecv(pipe *core.Pipe, msg *core.Message) {
	frames, rest, ok := core.PopBacktrace(msg.Body)
	if !ok {
		pipe.Kill(core.ErrMalformedBacktrace)
		return
	}
	pipe.ResumeRecv()
	if p.outstandingID == 0 {
		return
	}
	msg.Header = frames
	msg.Body = rest
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(msg, nil)
		return
	}
	p.queued = append(p.queued, msg)
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingOp != nil {
		p.pendingOp.Ack(pipe.ID)
	}
}

func (p *protocol) Send(op *core.SendOp) {
	var header []byte
	if p.raw {
		if op.Msg.Header == nil {
			op.Complete(core.ErrNoBacktrace)
			return
		}
		p.outstandingID = 1 // sentinel: "a raw send is outstanding"
		header = op.Msg.Header
	} else {
		p.nextID++
		p.outstandingID = p.nextID
		header = core.EncodeCorrelationID(p.outstandingID)
	}
	p.queued = nil

	var targets []uint32
	p.fq.Each(func(pipe *core.Pipe) {
		if pipe.CanSend {
			targets = append(targets, pipe.ID)
			pipe.Send(0, header, op.Msg.Body)
		}
	})
	p.pendingSend = op
	p.pendingOp = core.Begin(targets, func() {
		done := p.pendingSend
		p.pendingSend = nil
		if done != nil {
			done.Complete(nil)
		}
	})
	p.armed = !p.raw
}

// NextDeadline implements core.DeadlineScheduler: the reactor calls this
// right after Send returns and arms a timerSurveyDeadline for the result.
// Never armed in raw mode — a device hop doesn't own the survey's
// collection window, only the originating cooked SURVEYOR does.
func (p *protocol) NextDeadline() time.Duration {
	if p.raw || !p.armed {
		return 0
	}
	p.armed = false
	return p.deadline
}

// OnDeadline implements core.DeadlineAware: the survey's collection
// window has closed.
func (p *protocol) OnDeadline() {
	p.outstandingID = 0
	p.queued = nil
	if p.pendingRecv != nil {
		op := p.pendingRecv
		p.pendingRecv = nil
		op.Complete(nil, core.ErrTimeout)
	}
}

func (p *protocol) Recv(op *core.RecvOp) {
	if len(p.queued) > 0 {
		msg := p.queued[0]
		p.queued = p.queued[1:]
		op.Complete(msg, nil)
		return
	}
	if !p.raw && p.outstandingID == 0 {
		op.Complete(nil, core.ErrNotConnected)
		return
	}
	p.pendingRecv = op
}

func (p *protocol) PendingCanceled(op interface{}) {
	switch v := op.(type) {
	case *core.SendOp:
		if p.pendingSend == v {
			p.pendingSend = nil
		}
	case *core.RecvOp:
		if p.pendingRecv == v {
			p.pendingRecv = nil
		}
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	switch name {
	case OptionSurveyDeadline:
		d, ok := value.(time.Duration)
		if !ok {
			return core.ErrBadValue
		}
		p.deadline = d
		return nil
	case core.OptionRaw:
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
	switch name {
	case OptionSurveyDeadline:
		return p.deadline, nil
	case core.OptionRaw:
		return p.raw, nil
	}
	return nil, core.ErrBadOption
}
