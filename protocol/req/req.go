// Package req implements the REQ half of REQ/REP: each send allocates a
// correlation id and load-balances over active pipes; recv accepts only
// the reply matching the currently outstanding id.
//
// Setting core.OptionRaw switches a socket into the raw device-forwarding
// variant spec.md §4.3.7 describes: Send no longer mints a correlation id
// of its own — it requires the caller (a Device) to hand back a backtrace
// header captured from some other socket's receive, and transmits it
// verbatim ahead of the body. Recv, symmetrically, pops whatever
// backtrace frames a reply carries instead of matching a single
// outstanding id, so a chain of raw REQ/REP device hops can extend and
// unwind the same backtrace a cooked REQ/REP pair would use directly.
package req

import (
	"time"

	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/internal/wire"
)

// OptionResendInterval sets how often an unanswered request is
// retransmitted on the next available pipe; zero (the default) disables
// resend entirely. Only meaningful in cooked mode.
const OptionResendInterval = "req-resend-interval"

type protocol struct {
	fq *core.FairQueue

	raw bool

	nextID uint32

	pendingSend   *core.SendOp
	outstandingID uint32 // cooked: the correlation id awaiting a reply; raw: nonzero means "send outstanding"
	body          []byte // retained for dispatch and, in cooked mode, resend
	header        []byte

	pendingRecv *core.RecvOp

	// resend configures the interval at which an unanswered request is
	// retransmitted on the next available pipe; zero disables resend.
	resend time.Duration
	armed  bool // NextDeadline returns resend once per arming, then clears
}

// New returns a fresh REQ protocol instance.
func New() core.Protocol {
	return &protocol{fq: core.NewFairQueue()}
}

func (p *protocol) Info() core.Info {
	return core.Info{Self: wire.ProtoReq, Peer: wire.ProtoRep, SelfName: "req", PeerName: "rep"}
}

func (p *protocol) OpenPipe(pipe *core.Pipe) bool {
	p.fq.Add(pipe)
	if p.pendingSend != nil {
		p.dispatch()
	}
	return true
}

func (p *protocol) ClosePipe(pipe *core.Pipe) {
	p.fq.Remove(pipe.ID)
}

func (p *protocol) HandleRecv(pipe *core.Pipe, msg *core.Message) {
	if p.raw {
		p.handleRawRecv(pipe, msg)
		return
	}
	pipe.ResumeRecv()
	if len(msg.Body) < 4 {
		return
	}
	if p.pendingRecv == nil || p.outstandingID == 0 {
		return
	}
	if core.DecodeID(msg.Body[:4]) != p.outstandingID {
		return
	}
	msg.Body = msg.Body[4:]
	op := p.pendingRecv
	p.pendingRecv = nil
	p.outstandingID = 0
	op.Complete(msg, nil)
}

// handleRawRecv pops the backtrace frames a reply carries instead of
// matching a single correlation id, the way rep/respondent already do on
// their receive side, so a raw REQ leg can forward that backtrace on
// through a Device unchanged.
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
		p.outstandingID = 0
		op.Complete(msg, nil)
	}
}

func (p *protocol) HandleSendDone(pipe *core.Pipe) {
	if p.pendingSend != nil {
		op := p.pendingSend
		p.pendingSend = nil
		op.Complete(nil)
	}
}

func (p *protocol) Send(op *core.SendOp) {
	if p.raw {
		if op.Msg.Header == nil {
			op.Complete(core.ErrNoBacktrace)
			return
		}
		p.outstandingID = 1 // sentinel: "a raw send is outstanding"
		p.header = op.Msg.Header
		p.body = op.Msg.Body
		p.pendingSend = op
		p.dispatch()
		return
	}
	p.nextID++
	p.outstandingID = p.nextID
	p.header = core.EncodeCorrelationID(p.outstandingID)
	p.body = append([]byte(nil), op.Msg.Body...)
	p.pendingSend = op
	p.dispatch()
	p.armed = p.resend > 0
}

// dispatch retransmits the retained header/body to the next available
// pipe in the fair queue's rotation, whether this is the original send
// or a resend after the reply didn't arrive in time.
func (p *protocol) dispatch() {
	pipe := p.fq.Next(func(pipe *core.Pipe) bool { return pipe.CanSend })
	if pipe == nil {
		return
	}
	pipe.Send(0, p.header, p.body)
}

// NextDeadline implements core.DeadlineScheduler: armed once right after
// Send (and again after every resend, as long as a reply is still
// outstanding and resend is configured). Never armed in raw mode — a
// device hop doesn't own a retry policy for the request it's forwarding.
func (p *protocol) NextDeadline() time.Duration {
	if p.raw || !p.armed {
		return 0
	}
	p.armed = false
	return p.resend
}

// OnDeadline implements core.DeadlineAware: the outstanding request
// hasn't been answered within the resend interval, so retransmit it on
// the next available pipe and rearm.
func (p *protocol) OnDeadline() {
	if p.raw || p.outstandingID == 0 || p.resend <= 0 {
		return
	}
	p.dispatch()
	p.armed = true
}

func (p *protocol) Recv(op *core.RecvOp) {
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
			p.outstandingID = 0
		}
	}
}

func (p *protocol) SetOption(name string, value interface{}) error {
	switch name {
	case OptionResendInterval:
		d, ok := value.(time.Duration)
		if !ok {
			return core.ErrBadValue
		}
		p.resend = d
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
	case OptionResendInterval:
		return p.resend, nil
	case core.OptionRaw:
		return p.raw, nil
	}
	return nil, core.ErrBadOption
}
