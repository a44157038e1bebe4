package core

import "time"

type reqKind int

const (
	reqRegisterSocket reqKind = iota
	reqSend
	reqRecv
	reqDial
	reqListen
	reqCloseEndpoint
	reqSetOption
	reqGetOption
	reqCloseSocket
)

// request is the single type the façade posts on the session's shared
// request channel, per spec.md §5 ("the reactor has one request channel
// shared by all façades of the session"). Each request carries its own
// one-shot reply channel rather than reusing a persistent per-socket
// channel, so that a concurrently-pending Send and Recv on the same
// socket (independent per spec.md invariant 1) never race for the same
// reply slot.
type request struct {
	kind     reqKind
	socketID uint32

	msg      *Message
	deadline time.Time

	address string

	optName  string
	optValue interface{}

	registerSocket *socket

	reply chan reply
}

type reply struct {
	err      error
	msg      *Message
	optValue interface{}
	endpoint uint32
}
