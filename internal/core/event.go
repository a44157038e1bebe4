package core

import "github.com/spsock/sp/transport"

type eventKind int

const (
	evHandshakeDone eventKind = iota
	evHandshakeError
	evRecv
	evRecvError
	evSendDone
	evSendError
	evAccepted  // a Listener accepted a new Conn
	evDialed    // a Dialer produced a Conn (or failed)
	evListenErr // a Listener's Accept loop died

	evSendComplete // a protocol finished resolving a pending user Send
	evRecvComplete // a protocol finished resolving a pending user Recv
)

// event is the single type flowing through the reactor's shared channel.
// Every background goroutine in the session (pipe send/recv loops,
// listener accept loops, dialer connect attempts) only ever posts events
// here; the reactor goroutine is the only reader and the only mutator of
// socket/endpoint/pipe state.
type event struct {
	kind eventKind

	pipeID     uint32
	endpointID uint32
	socketID   uint32

	msg       *Message
	err       error
	token     uint64
	peerProto uint16
	conn      transport.Conn
}
