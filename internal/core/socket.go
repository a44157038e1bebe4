package core

import "time"

// SocketOptions holds the option set spec.md §3 attaches to a socket:
// generic send/recv timeout and recv-max-size plus the reconnect interval
// and tcp-no-delay flags that transports/endpoints read when they latch.
// Protocol-specific options (subscriptions, survey deadline, req resend
// interval) live inside each Protocol implementation instead, since only
// that protocol knows how to interpret them.
type SocketOptions struct {
	SendTimeout       time.Duration
	RecvTimeout       time.Duration
	RecvMaxSize       int64
	ReconnectInterval time.Duration
	TCPNoDelay        bool
}

// DefaultSocketOptions collects the option defaults into a single
// struct literal rather than scattering magic numbers across the
// codebase.
func DefaultSocketOptions() SocketOptions {
	return SocketOptions{
		SendTimeout:       0, // no deadline
		RecvTimeout:       0,
		RecvMaxSize:       1024 * 1024,
		ReconnectInterval: 100 * time.Millisecond,
		TCPNoDelay:        true,
	}
}

// socket is the reactor-owned backend for one user-visible Socket handle:
// its protocol instance, its endpoints and pipes, its options, and its at
// most one pending Send and one pending Recv (independent per spec.md
// invariant 1).
type socket struct {
	id      uint32
	proto   Protocol
	opts    SocketOptions
	reactor *Reactor

	endpoints map[uint32]*Endpoint
	pipes     map[uint32]*Pipe

	pendingSend *pendingOp
	pendingRecv *pendingOp

	closed bool
}

// pendingOp tracks one in-flight user Send or Recv: the op itself (one of
// *SendOp/*RecvOp, type-asserted by the reactor when it needs to resolve
// or cancel it) and its deadline timer handle.
type pendingOp struct {
	sendOp  *SendOp
	recvOp  *RecvOp
	timer   *timerEntry
	replyCh chan reply
}

func newSocket(id uint32, proto Protocol, opts SocketOptions, r *Reactor) *socket {
	return &socket{
		id:        id,
		proto:     proto,
		opts:      opts,
		reactor:   r,
		endpoints: map[uint32]*Endpoint{},
		pipes:     map[uint32]*Pipe{},
	}
}
