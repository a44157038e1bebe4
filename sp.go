// Package sp implements the nanomsg scalability protocols: brokerless
// messaging patterns (PAIR, BUS, REQ/REP, PUB/SUB, PIPELINE, SURVEY, and
// the additive STAR) layered over pluggable transports. A Socket is the
// only type most callers touch; it wraps a protocol instance registered
// with a Session's reactor.
package sp

import (
	"time"

	"github.com/spsock/sp/internal/core"
	"github.com/spsock/sp/protocol/bus"
	"github.com/spsock/sp/protocol/pair"
	"github.com/spsock/sp/protocol/pub"
	"github.com/spsock/sp/protocol/pull"
	"github.com/spsock/sp/protocol/push"
	"github.com/spsock/sp/protocol/rep"
	"github.com/spsock/sp/protocol/req"
	"github.com/spsock/sp/protocol/respondent"
	"github.com/spsock/sp/protocol/star"
	"github.com/spsock/sp/protocol/sub"
	"github.com/spsock/sp/protocol/surveyor"

	_ "github.com/spsock/sp/transport/inproc"
	_ "github.com/spsock/sp/transport/ipc"
	_ "github.com/spsock/sp/transport/tcp"
)

// Message is the unit exchanged over a Socket. Header is protocol-owned
// (correlation ids, backtrace frames) and is nil for ordinary messages;
// REP and RESPONDENT sockets must echo back the Header of the Message
// they Recv'd when they Send their reply.
//
// originPipe records which pipe a Message arrived on. Device relies on
// it surviving an unmodified Recv-then-Send round trip: a raw-mode BUS
// or STAR socket reads it back off the Message it's asked to Send to
// exclude that pipe from the rebroadcast, per core.OptionRaw.
type Message struct {
	Header []byte
	Body   []byte

	originPipe uint32
}

func toCore(m *Message) *core.Message {
	return core.NewMessage(m.Header, m.Body, m.originPipe)
}

func fromCore(m *core.Message) *Message {
	if m == nil {
		return nil
	}
	return &Message{Header: m.Header, Body: m.Body, originPipe: m.PipeID()}
}

// Socket is a single scalability-protocol endpoint. It is safe for
// concurrent use by multiple goroutines, same as a mangos Socket: every
// method round-trips through the owning Session's single reactor
// goroutine, so callers never see torn state.
type Socket struct {
	session *core.Session
	id      uint32
}

func newSocket(session *core.Session, proto core.Protocol) *Socket {
	return &Socket{session: session, id: session.OpenSocket(proto)}
}

// Send transmits msg, blocking until the protocol accepts it or the
// socket's send timeout elapses.
func (s *Socket) Send(msg *Message) error {
	return s.session.Send(s.id, toCore(msg), s.deadline(core.OptionSendTimeout))
}

// Recv blocks until a message arrives or the socket's recv timeout
// elapses.
func (s *Socket) Recv() (*Message, error) {
	m, err := s.session.Recv(s.id, s.deadline(core.OptionRecvTimeout))
	return fromCore(m), err
}

func (s *Socket) deadline(option string) time.Time {
	v, err := s.session.GetOption(s.id, option)
	if err != nil {
		return time.Time{}
	}
	d, ok := v.(time.Duration)
	if !ok || d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// Dial adds a connect-side endpoint, e.g. "tcp://127.0.0.1:5555" or
// "ipc:///tmp/example.sock", and returns its endpoint id.
func (s *Socket) Dial(address string) (uint32, error) {
	return s.session.Dial(s.id, address)
}

// Listen adds a bind-side endpoint and returns its endpoint id.
func (s *Socket) Listen(address string) (uint32, error) {
	return s.session.Listen(s.id, address)
}

// CloseEndpoint tears down one endpoint previously returned by Dial or
// Listen.
func (s *Socket) CloseEndpoint(endpointID uint32) error {
	return s.session.CloseEndpoint(s.id, endpointID)
}

// SetOption applies a socket- or protocol-level option by name; see the
// Option constants and each protocol subpackage's Option* constants.
func (s *Socket) SetOption(name string, value interface{}) error {
	return s.session.SetOption(s.id, name, value)
}

// GetOption reads back a socket- or protocol-level option by name.
func (s *Socket) GetOption(name string) (interface{}, error) {
	return s.session.GetOption(s.id, name)
}

// Close tears down the socket: every endpoint, every pipe, and any
// pending Send/Recv.
func (s *Socket) Close() error {
	return s.session.CloseSocket(s.id)
}

// Re-export the socket-level option names so callers don't need to
// import internal/core.
const (
	OptionSendTimeout       = core.OptionSendTimeout
	OptionRecvTimeout       = core.OptionRecvTimeout
	OptionRecvMaxSize       = core.OptionRecvMaxSize
	OptionReconnectInterval = core.OptionReconnectInterval
	OptionTCPNoDelay        = core.OptionTCPNoDelay
	OptionRaw               = core.OptionRaw
)

// NewPairSocket opens a PAIR socket on the process-default Session.
func NewPairSocket() *Socket { return newSocket(core.Default(), pair.New()) }

// NewBusSocket opens a BUS socket on the process-default Session.
func NewBusSocket() *Socket { return newSocket(core.Default(), bus.New()) }

// NewStarSocket opens a STAR socket on the process-default Session.
func NewStarSocket() *Socket { return newSocket(core.Default(), star.New()) }

// NewPubSocket opens a PUB socket on the process-default Session.
func NewPubSocket() *Socket { return newSocket(core.Default(), pub.New()) }

// NewSubSocket opens a SUB socket on the process-default Session.
func NewSubSocket() *Socket { return newSocket(core.Default(), sub.New()) }

// NewPushSocket opens a PUSH socket on the process-default Session.
func NewPushSocket() *Socket { return newSocket(core.Default(), push.New()) }

// NewPullSocket opens a PULL socket on the process-default Session.
func NewPullSocket() *Socket { return newSocket(core.Default(), pull.New()) }

// NewReqSocket opens a REQ socket on the process-default Session.
func NewReqSocket() *Socket { return newSocket(core.Default(), req.New()) }

// NewRepSocket opens a REP socket on the process-default Session.
func NewRepSocket() *Socket { return newSocket(core.Default(), rep.New()) }

// NewSurveyorSocket opens a SURVEYOR socket on the process-default
// Session.
func NewSurveyorSocket() *Socket { return newSocket(core.Default(), surveyor.New()) }

// NewRespondentSocket opens a RESPONDENT socket on the process-default
// Session.
func NewRespondentSocket() *Socket { return newSocket(core.Default(), respondent.New()) }
