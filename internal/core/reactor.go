package core

import (
	"fmt"
	"time"

	"github.com/spsock/sp/internal/log"
	"github.com/spsock/sp/internal/reconnect"
	"github.com/spsock/sp/transport"
)

// Reactor is the single-threaded event loop described in spec.md §4.4. One
// Reactor backs one Session; every socket/endpoint/pipe/timer created
// through that Session is owned and mutated exclusively by the Reactor's
// own goroutine. Everything else (façade calls, pipe I/O, listener
// accepts, dialer connects) communicates with it only by posting onto
// requests or events.
type Reactor struct {
	log log.T

	requests chan request
	events   chan event

	sockets map[uint32]*socket
	timers  *timerWheel

	nextPipeID     uint32
	nextEndpointID uint32

	quit chan struct{}
	done chan struct{}
}

// NewReactor constructs a Reactor and starts its goroutine. Callers get it
// back already running; Stop shuts it down.
func NewReactor(logger log.T) *Reactor {
	r := &Reactor{
		log:      logger,
		requests: make(chan request, 64),
		events:   make(chan event, 256),
		sockets:  map[uint32]*socket{},
		timers:   newTimerWheel(),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.run()
	return r
}

// Stop requests the reactor goroutine to exit and waits for it to do so.
// All sockets/pipes/endpoints are torn down as part of the shutdown.
func (r *Reactor) Stop() {
	close(r.quit)
	<-r.done
}

// Submit posts a request and blocks for its reply. It is the one function
// every façade operation (Socket.Send, Socket.Dial, ...) funnels through.
func (r *Reactor) Submit(req request) reply {
	req.reply = make(chan reply, 1)
	select {
	case r.requests <- req:
	case <-r.done:
		return reply{err: ErrClosed}
	}
	select {
	case rep := <-req.reply:
		return rep
	case <-r.done:
		return reply{err: ErrClosed}
	}
}

func (r *Reactor) run() {
	defer close(r.done)
	for {
		var timerC <-chan time.Time
		var timer *time.Timer
		if d, ok := r.timers.peekDeadline(); ok {
			wait := time.Until(d)
			if wait < 0 {
				wait = 0
			}
			timer = time.NewTimer(wait)
			timerC = timer.C
		}

		select {
		case <-r.quit:
			if timer != nil {
				timer.Stop()
			}
			r.shutdown()
			return

		case <-timerC:
			r.fireTimers(time.Now())

		case ev := <-r.events:
			if timer != nil {
				timer.Stop()
			}
			r.handleEvent(ev)
			r.drainEvents()

		case req := <-r.requests:
			if timer != nil {
				timer.Stop()
			}
			r.handleRequest(req)
			r.drainRequests()
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// drainEvents and drainRequests process any further work already queued
// so one reactor iteration makes as much progress as is available without
// re-entering select every single time, while still bounding the work per
// spec.md §4.4 ("bounded per iteration to preserve fairness").
const maxDrainPerIteration = 64

func (r *Reactor) drainEvents() {
	for i := 0; i < maxDrainPerIteration; i++ {
		select {
		case ev := <-r.events:
			r.handleEvent(ev)
		default:
			return
		}
	}
}

func (r *Reactor) drainRequests() {
	for i := 0; i < maxDrainPerIteration; i++ {
		select {
		case req := <-r.requests:
			r.handleRequest(req)
		default:
			return
		}
	}
}

func (r *Reactor) shutdown() {
	for _, s := range r.sockets {
		r.closeSocketLocked(s)
	}
}

// --- timers -----------------------------------------------------------

func (r *Reactor) fireTimers(now time.Time) {
	for _, t := range r.timers.popExpired(now) {
		r.fireTimer(t)
	}
}

func (r *Reactor) fireTimer(t *timerEntry) {
	s, ok := r.sockets[t.socketID]
	if !ok {
		return
	}
	switch t.kind {
	case timerReconnect:
		r.retryDial(s, t.endpoint)
	case timerSendDeadline:
		r.timeoutSend(s)
	case timerRecvDeadline:
		r.timeoutRecv(s)
	case timerSurveyDeadline, timerReqResend:
		// Protocol-owned deadline: the protocol itself decides what to do
		// (SURVEYOR clears its outstanding survey id and fails a pending
		// recv with timeout; REQ retransmits the outstanding request on
		// the next available pipe). If the protocol wants another
		// deadline after handling this one (REQ's periodic resend), file
		// it under the same timer kind so it keeps firing until the
		// protocol stops arming it.
		if hook, ok := s.proto.(DeadlineAware); ok {
			hook.OnDeadline()
		}
		if sched, ok := s.proto.(DeadlineScheduler); ok {
			if d := sched.NextDeadline(); d > 0 {
				r.timers.schedule(t.kind, time.Now().Add(d), s.id, 0, 0)
			}
		}
	case timerLinger:
		// Linger expiry on a closing socket: nothing left to wait for.
	}
}

// DeadlineScheduler is implemented by protocols whose Send needs a
// protocol-level deadline distinct from the socket's generic send
// timeout (SURVEYOR's survey collection window). Right after Send
// returns, the reactor asks for one and arms it if non-zero, without the
// protocol package needing access to the timer wheel itself.
type DeadlineScheduler interface {
	NextDeadline() time.Duration
}

// DeadlineAware is implemented by protocols that need to react when a
// DeadlineScheduler-armed timer fires.
type DeadlineAware interface {
	OnDeadline()
}

// deadlineKindOf picks which timer-wheel category a DeadlineScheduler's
// deadline belongs to, purely so fireTimer's dispatch (and any future
// per-kind accounting) can tell REQ's periodic resend apart from
// SURVEYOR's one-shot collection window.
func (r *Reactor) deadlineKindOf(s *socket) timerKind {
	if s.proto.Info().SelfName == "req" {
		return timerReqResend
	}
	return timerSurveyDeadline
}

// timeoutSend fires when a Send's deadline elapses before any protocol
// completion. It answers the façade directly and unblocks the forwarder
// goroutine spawned in handleSend so it doesn't leak; that goroutine's own
// later completeSend call becomes a no-op since pendingSend is already nil.
func (r *Reactor) timeoutSend(s *socket) {
	if s.pendingSend == nil {
		return
	}
	op := s.pendingSend
	s.pendingSend = nil
	s.proto.PendingCanceled(op.sendOp)
	op.sendOp.Complete(ErrTimeout)
	op.replyCh <- reply{err: ErrTimeout}
}

func (r *Reactor) timeoutRecv(s *socket) {
	if s.pendingRecv == nil {
		return
	}
	op := s.pendingRecv
	s.pendingRecv = nil
	s.proto.PendingCanceled(op.recvOp)
	op.recvOp.Complete(nil, ErrTimeout)
	op.replyCh <- reply{err: ErrTimeout}
}

// --- events -------------------------------------------------------------

func (r *Reactor) handleEvent(ev event) {
	switch ev.kind {
	case evAccepted:
		r.onAccepted(ev)
	case evDialed:
		r.onDialed(ev)
	case evListenErr:
		r.onListenErr(ev)
	case evHandshakeDone:
		r.onHandshakeDone(ev)
	case evHandshakeError:
		r.onPipeError(ev.pipeID, ev.err)
	case evRecv:
		r.onRecv(ev)
	case evRecvError:
		r.onPipeError(ev.pipeID, ev.err)
	case evSendDone:
		r.onSendDone(ev)
	case evSendError:
		r.onPipeError(ev.pipeID, ev.err)
	case evSendComplete:
		r.completeSend(ev.socketID, ev.err)
	case evRecvComplete:
		r.completeRecv(ev.socketID, ev.msg, ev.err)
	}
}

// completeSend clears socket.pendingSend and answers the façade's Submit
// call when the protocol resolves a Send, synchronously or later. A send
// deadline (timeoutSend) or a socket close (closeSocketLocked) may clear
// and answer it first; whichever happens first wins and the later one is
// a no-op (pendingSend is nil by then).
func (r *Reactor) completeSend(socketID uint32, err error) {
	s, ok := r.sockets[socketID]
	if !ok || s.pendingSend == nil {
		return
	}
	pending := s.pendingSend
	s.pendingSend = nil
	if pending.timer != nil {
		r.timers.cancel(pending.timer)
	}
	pending.replyCh <- reply{err: err}
}

func (r *Reactor) completeRecv(socketID uint32, msg *Message, err error) {
	s, ok := r.sockets[socketID]
	if !ok || s.pendingRecv == nil {
		return
	}
	pending := s.pendingRecv
	s.pendingRecv = nil
	if pending.timer != nil {
		r.timers.cancel(pending.timer)
	}
	pending.replyCh <- reply{err: err, msg: msg}
}

func (r *Reactor) findPipeOwner(pipeID uint32) (*socket, *Pipe, bool) {
	for _, s := range r.sockets {
		if p, ok := s.pipes[pipeID]; ok {
			return s, p, true
		}
	}
	return nil, nil, false
}

func (r *Reactor) onHandshakeDone(ev event) {
	s, p, ok := r.findPipeOwner(ev.pipeID)
	if !ok {
		return
	}
	p.PeerProto = ev.peerProto
	p.activate()
	if !s.proto.OpenPipe(p) {
		p.die()
		delete(s.pipes, p.ID)
		return
	}
	p.Visible = true
	if ep, ok := s.endpoints[p.EndpointID]; ok && ep.backoff != nil {
		ep.backoff.Reset()
	}
}

func (r *Reactor) onPipeError(pipeID uint32, _ error) {
	s, p, ok := r.findPipeOwner(pipeID)
	if !ok {
		return
	}
	r.killPipe(s, p)
}

func (r *Reactor) killPipe(s *socket, p *Pipe) {
	wasVisible := p.Visible
	p.die()
	delete(s.pipes, p.ID)
	if wasVisible {
		s.proto.ClosePipe(p)
	}
	ep, ok := s.endpoints[p.EndpointID]
	if !ok {
		return
	}
	ep.pipeID = 0
	if ep.Kind == EndpointDial && !ep.closed {
		r.armReconnect(s, ep)
	}
}

func (r *Reactor) armReconnect(s *socket, ep *Endpoint) {
	if ep.backoff == nil {
		ep.backoff = reconnect.NewSchedule(s.opts.ReconnectInterval)
	}
	delay := ep.backoff.Next()
	ep.reconnTime = r.timers.schedule(timerReconnect, time.Now().Add(delay), s.id, ep.ID, 0)
}

func (r *Reactor) retryDial(s *socket, endpointID uint32) {
	ep, ok := s.endpoints[endpointID]
	if !ok || ep.closed {
		return
	}
	go func() {
		conn, err := ep.dialer.Dial()
		r.postEvent(event{kind: evDialed, endpointID: endpointID, conn: conn, err: err})
	}()
}

func (r *Reactor) onRecv(ev event) {
	s, p, ok := r.findPipeOwner(ev.pipeID)
	if !ok {
		return
	}
	ev.msg.pipeID = p.ID
	s.proto.HandleRecv(p, ev.msg)
}

func (r *Reactor) onSendDone(ev event) {
	s, p, ok := r.findPipeOwner(ev.pipeID)
	if !ok {
		return
	}
	p.State = PipeActive
	p.CanSend = true
	s.proto.HandleSendDone(p)
}

func (r *Reactor) onAccepted(ev event) {
	s, ep := r.findEndpoint(ev.endpointID)
	if s == nil {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	r.spawnPipe(s, ep, ev.conn)
	// Keep accepting: one listener serves many pipes over its lifetime.
	r.acceptNext(s, ep)
}

func (r *Reactor) onDialed(ev event) {
	s, ep := r.findEndpoint(ev.endpointID)
	if s == nil {
		if ev.conn != nil {
			_ = ev.conn.Close()
		}
		return
	}
	if ev.err != nil {
		r.armReconnect(s, ep)
		return
	}
	r.spawnPipe(s, ep, ev.conn)
}

func (r *Reactor) onListenErr(ev event) {
	s, ep := r.findEndpoint(ev.endpointID)
	if s == nil || ep.closed {
		return
	}
	r.log.Warnf("listener %s failed: %v", ep.Address, ev.err)
}

func (r *Reactor) findEndpoint(id uint32) (*socket, *Endpoint) {
	for _, s := range r.sockets {
		if ep, ok := s.endpoints[id]; ok {
			return s, ep
		}
	}
	return nil, nil
}

func (r *Reactor) spawnPipe(s *socket, ep *Endpoint, conn transport.Conn) {
	r.nextPipeID++
	p := newPipe(r.nextPipeID, ep.ID, s.id, conn, s.proto.Info().Self, s.opts.RecvMaxSize, r.events)
	s.pipes[p.ID] = p
	ep.pipeID = p.ID
	p.start()
}

func (r *Reactor) postEvent(ev event) {
	select {
	case r.events <- ev:
	case <-r.done:
	}
}

func (r *Reactor) acceptNext(s *socket, ep *Endpoint) {
	go func() {
		conn, err := ep.listener.Accept()
		if err != nil {
			r.postEvent(event{kind: evListenErr, endpointID: ep.ID, err: err})
			return
		}
		r.postEvent(event{kind: evAccepted, endpointID: ep.ID, conn: conn})
	}()
}

// --- requests -----------------------------------------------------------

func (r *Reactor) handleRequest(req request) {
	if req.kind == reqRegisterSocket {
		r.sockets[req.socketID] = req.registerSocket
		req.reply <- reply{}
		return
	}
	s, ok := r.sockets[req.socketID]
	if !ok {
		req.reply <- reply{err: ErrClosed}
		return
	}
	if s.closed && req.kind != reqCloseSocket {
		req.reply <- reply{err: ErrClosed}
		return
	}
	switch req.kind {
	case reqSend:
		r.handleSend(s, req)
	case reqRecv:
		r.handleRecv(s, req)
	case reqDial:
		r.handleDial(s, req)
	case reqListen:
		r.handleListen(s, req)
	case reqCloseEndpoint:
		r.handleCloseEndpoint(s, req)
	case reqSetOption:
		r.handleSetOption(s, req)
	case reqGetOption:
		r.handleGetOption(s, req)
	case reqCloseSocket:
		r.closeSocketLocked(s)
		req.reply <- reply{}
	default:
		req.reply <- reply{err: fmt.Errorf("%w: unknown request", ErrInvalidArgument)}
	}
}

// handleSend registers a pending Send and asks the protocol to satisfy it.
// Whether the protocol completes it synchronously (a pipe was immediately
// writable) or later from a pipe's sendLoop, the forwarder goroutine below
// reports the result back as an event so only the reactor goroutine ever
// touches s.pendingSend — never the requesting façade goroutine directly.
func (r *Reactor) handleSend(s *socket, req request) {
	if s.pendingSend != nil {
		req.reply <- reply{err: ErrPendingOp}
		return
	}
	op := &SendOp{Msg: req.msg, Deadline: req.deadline, done: make(chan error, 1)}
	pending := &pendingOp{sendOp: op, replyCh: req.reply}
	s.pendingSend = pending
	if !req.deadline.IsZero() {
		pending.timer = r.timers.schedule(timerSendDeadline, req.deadline, s.id, 0, 0)
	}
	s.proto.Send(op)
	if sched, ok := s.proto.(DeadlineScheduler); ok {
		if d := sched.NextDeadline(); d > 0 {
			r.timers.schedule(r.deadlineKindOf(s), time.Now().Add(d), s.id, 0, 0)
		}
	}
	socketID := s.id
	go func() {
		err := <-op.done
		r.postEvent(event{kind: evSendComplete, socketID: socketID, err: err})
	}()
}

func (r *Reactor) handleRecv(s *socket, req request) {
	if s.pendingRecv != nil {
		req.reply <- reply{err: ErrPendingOp}
		return
	}
	op := &RecvOp{Deadline: req.deadline, result: make(chan recvResult, 1)}
	pending := &pendingOp{recvOp: op, replyCh: req.reply}
	s.pendingRecv = pending
	if !req.deadline.IsZero() {
		pending.timer = r.timers.schedule(timerRecvDeadline, req.deadline, s.id, 0, 0)
	}
	s.proto.Recv(op)
	socketID := s.id
	go func() {
		res := <-op.result
		r.postEvent(event{kind: evRecvComplete, socketID: socketID, msg: res.msg, err: res.err})
	}()
}

func (r *Reactor) handleDial(s *socket, req request) {
	scheme, address, err := parseURL(req.address)
	if err != nil {
		req.reply <- reply{err: err}
		return
	}
	tr, ok := transport.Lookup(scheme)
	if !ok {
		req.reply <- reply{err: fmt.Errorf("%w: unknown scheme %q", ErrInvalidArgument, scheme)}
		return
	}
	dialer, err := tr.NewDialer(address, transport.Options{NoDelay: s.opts.TCPNoDelay})
	if err != nil {
		req.reply <- reply{err: err}
		return
	}
	r.nextEndpointID++
	ep := &Endpoint{ID: r.nextEndpointID, Kind: EndpointDial, Scheme: scheme, Address: address, dialer: dialer}
	s.endpoints[ep.ID] = ep
	go func() {
		conn, err := dialer.Dial()
		r.postEvent(event{kind: evDialed, endpointID: ep.ID, conn: conn, err: err})
	}()
	req.reply <- reply{endpoint: ep.ID}
}

func (r *Reactor) handleListen(s *socket, req request) {
	scheme, address, err := parseURL(req.address)
	if err != nil {
		req.reply <- reply{err: err}
		return
	}
	tr, ok := transport.Lookup(scheme)
	if !ok {
		req.reply <- reply{err: fmt.Errorf("%w: unknown scheme %q", ErrInvalidArgument, scheme)}
		return
	}
	listener, err := tr.NewListener(address, transport.Options{NoDelay: s.opts.TCPNoDelay})
	if err != nil {
		req.reply <- reply{err: err}
		return
	}
	r.nextEndpointID++
	ep := &Endpoint{ID: r.nextEndpointID, Kind: EndpointListen, Scheme: scheme, Address: address, listener: listener}
	s.endpoints[ep.ID] = ep
	r.acceptNext(s, ep)
	req.reply <- reply{endpoint: ep.ID}
}

func (r *Reactor) handleCloseEndpoint(s *socket, req request) {
	ep, ok := s.endpoints[endpointIDFromOptValue(req)]
	if !ok {
		req.reply <- reply{err: ErrInvalidArgument}
		return
	}
	ep.closed = true
	if ep.reconnTime != nil {
		r.timers.cancel(ep.reconnTime)
	}
	if ep.listener != nil {
		_ = ep.listener.Close()
	}
	if ep.pipeID != 0 {
		if p, ok := s.pipes[ep.pipeID]; ok {
			r.killPipe(s, p)
		}
	}
	delete(s.endpoints, ep.ID)
	req.reply <- reply{}
}

func endpointIDFromOptValue(req request) uint32 {
	if v, ok := req.optValue.(uint32); ok {
		return v
	}
	return 0
}

func (r *Reactor) handleSetOption(s *socket, req request) {
	switch req.optName {
	case OptionSendTimeout:
		d, ok := req.optValue.(time.Duration)
		if !ok {
			req.reply <- reply{err: ErrBadValue}
			return
		}
		s.opts.SendTimeout = d
	case OptionRecvTimeout:
		d, ok := req.optValue.(time.Duration)
		if !ok {
			req.reply <- reply{err: ErrBadValue}
			return
		}
		s.opts.RecvTimeout = d
	case OptionRecvMaxSize:
		n, ok := req.optValue.(int64)
		if !ok {
			req.reply <- reply{err: ErrBadValue}
			return
		}
		s.opts.RecvMaxSize = n
	case OptionReconnectInterval:
		d, ok := req.optValue.(time.Duration)
		if !ok {
			req.reply <- reply{err: ErrBadValue}
			return
		}
		s.opts.ReconnectInterval = d
	case OptionTCPNoDelay:
		b, ok := req.optValue.(bool)
		if !ok {
			req.reply <- reply{err: ErrBadValue}
			return
		}
		s.opts.TCPNoDelay = b
	default:
		if err := s.proto.SetOption(req.optName, req.optValue); err != nil {
			req.reply <- reply{err: err}
			return
		}
	}
	req.reply <- reply{}
}

func (r *Reactor) handleGetOption(s *socket, req request) {
	switch req.optName {
	case OptionSendTimeout:
		req.reply <- reply{optValue: s.opts.SendTimeout}
	case OptionRecvTimeout:
		req.reply <- reply{optValue: s.opts.RecvTimeout}
	case OptionRecvMaxSize:
		req.reply <- reply{optValue: s.opts.RecvMaxSize}
	case OptionReconnectInterval:
		req.reply <- reply{optValue: s.opts.ReconnectInterval}
	case OptionTCPNoDelay:
		req.reply <- reply{optValue: s.opts.TCPNoDelay}
	default:
		v, err := s.proto.GetOption(req.optName)
		req.reply <- reply{optValue: v, err: err}
	}
}

func (r *Reactor) closeSocketLocked(s *socket) {
	if s.closed {
		return
	}
	s.closed = true
	for _, ep := range s.endpoints {
		ep.closed = true
		if ep.reconnTime != nil {
			r.timers.cancel(ep.reconnTime)
		}
		if ep.listener != nil {
			_ = ep.listener.Close()
		}
	}
	for _, p := range s.pipes {
		r.killPipe(s, p)
	}
	if s.pendingSend != nil {
		op := s.pendingSend
		s.pendingSend = nil
		op.sendOp.Complete(ErrClosed)
		op.replyCh <- reply{err: ErrClosed}
	}
	if s.pendingRecv != nil {
		op := s.pendingRecv
		s.pendingRecv = nil
		op.recvOp.Complete(nil, ErrClosed)
		op.replyCh <- reply{err: ErrClosed}
	}
	delete(r.sockets, s.id)
}
