package sp

import (
	"errors"
	"sync"

	"github.com/spsock/sp/internal/core"
)

// Device pairs two sockets and shuttles messages between them until
// either side errors, the way nanomsg's nn_device chains brokerless
// topologies into multi-hop ones. Device blocks until forwarding stops
// and returns the error that stopped it.
//
// Device forwards a Message, header and all, from one socket's Recv to
// the other's Send. A direction whose source protocol doesn't support
// Recv, or whose destination doesn't support Send (e.g. a PUSH socket
// has nothing to forward out of, a PULL socket has nothing to forward
// into), is simply never attempted rather than treated as a device
// failure — this is what lets PUSH-PULL, PUB-SUB and one-way
// PAIR-style chains share one Device implementation with full duplex
// PAIR-PAIR and BUS-BUS/STAR devices.
//
// Chaining REQ/REP or SURVEYOR/RESPONDENT through a Device requires
// both legs to be switched into raw mode first (SetOption(OptionRaw,
// true) on each of s1 and s2): a cooked REQ or SURVEYOR mints and
// consumes its own correlation id, which only makes sense for the
// socket that originates a request or survey, not for a relay in the
// middle of a chain. In raw mode, Recv pops the backtrace a message
// carries instead of matching it against an id, and Send requires the
// caller to hand that backtrace straight back as the Message's Header
// — which is exactly what forwarding msg unmodified, as Device already
// does, achieves. REP and RESPONDENT need no such switch: they never
// mint a correlation id of their own, so they forward transparently in
// both modes. BUS and STAR work the same way for the one case a device
// actually changes their behavior — in raw mode, Send excludes the pipe
// a forwarded Message is tagged as having arrived on, so a two-hop BUS
// chain doesn't echo a message straight back out the leg it just came
// in on.
func Device(s1, s2 *Socket) error {
	errc := make(chan error, 2)
	var once sync.Once
	stop := make(chan struct{})

	forward := func(from, to *Socket) {
		for {
			select {
			case <-stop:
				return
			default:
			}
			msg, err := from.Recv()
			if errors.Is(err, core.ErrProtoOp) {
				return // this socket never produces messages to forward
			}
			if err != nil {
				once.Do(func() { close(stop) })
				errc <- err
				return
			}
			if err := to.Send(msg); err != nil {
				if errors.Is(err, core.ErrProtoOp) {
					return // destination never accepts sends; nothing more to do
				}
				once.Do(func() { close(stop) })
				errc <- err
				return
			}
		}
	}

	go forward(s1, s2)
	go forward(s2, s1)
	return <-errc
}
