package core

import "time"

// Info describes a protocol's identity and expected peer, echoed back to
// callers that want to introspect a socket (and used by the handshake to
// populate Pipe.LocalProto).
type Info struct {
	Self     uint16
	Peer     uint16
	SelfName string
	PeerName string
}

// Protocol is the pattern-specific state machine that a concrete package
// (protocol/pair, protocol/req, ...) implements. The Socket backend owns
// exactly one Protocol instance and is the only thing that calls into it;
// all calls happen on the reactor goroutine, so implementations need no
// internal locking of their own.
type Protocol interface {
	Info() Info

	// OpenPipe is called once a Pipe has completed its handshake. It
	// returns whether the protocol admits the pipe to its active set
	// (PAIR rejects a second simultaneous peer this way); a rejected pipe
	// is torn down by the reactor without a matching ClosePipe call.
	OpenPipe(p *Pipe) bool
	// ClosePipe is called when a previously-opened Pipe dies; the
	// protocol must drop it from any priority list/broadcast set and
	// fail or adjust any bookkeeping that referenced it.
	ClosePipe(p *Pipe)

	// HandleRecv delivers a message a Pipe received. The protocol
	// decides whether to queue it against a pending Recv, filter it
	// (SUB), correlate it (REQ/SURVEYOR), or drop it.
	HandleRecv(p *Pipe, msg *Message)
	// HandleSendDone notifies the protocol that a Pipe finished sending
	// the message most recently handed to it, so broadcast/load-balance
	// bookkeeping can advance.
	HandleSendDone(p *Pipe)

	// Send attempts to satisfy a pending user Send. It must call
	// op.Complete(nil) or op.Complete(err) itself (possibly
	// asynchronously, once a Pipe finishes its write) — or leave it
	// pending if no eligible Pipe exists yet.
	Send(op *SendOp)
	// Recv attempts to satisfy a pending user Recv, analogous to Send.
	Recv(op *RecvOp)

	// PendingCanceled is called when a previously outstanding Send or
	// Recv op is canceled (deadline, socket close) so the protocol can
	// drop any reference it kept to it (REQ's retained resend copy,
	// SURVEYOR's in-flight recv accounting).
	PendingCanceled(op interface{})

	SetOption(name string, value interface{}) error
	GetOption(name string) (interface{}, error)
}

// SendOp represents one pending user Send call. Protocols that can satisfy
// it immediately call Complete; otherwise they retain op (if they need to,
// e.g. REQ's resend timer) until a Pipe becomes writable.
type SendOp struct {
	Msg      *Message
	Deadline time.Time
	done     chan error
}

// Complete resolves the pending Send with err (nil on success). It is
// safe to call at most once.
func (op *SendOp) Complete(err error) {
	op.done <- err
}

// RecvOp represents one pending user Recv call.
type RecvOp struct {
	Deadline time.Time
	result   chan recvResult
}

type recvResult struct {
	msg *Message
	err error
}

// Complete resolves the pending Recv with msg (nil on error) and err.
func (op *RecvOp) Complete(msg *Message, err error) {
	op.result <- recvResult{msg: msg, err: err}
}
