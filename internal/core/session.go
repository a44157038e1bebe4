package core

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/spsock/sp/internal/log"
)

// Session is the only piece of process-wide state a program using this
// module needs to touch indirectly: it owns one reactor goroutine and the
// monotonic ID generator that numbers every socket, endpoint and pipe it
// creates, so IDs never collide across sockets sharing the session.
//
// Most callers never construct a Session directly — the root package's
// socket constructors (NewPairSocket, NewReqSocket, ...) use a
// process-default one, created lazily the first time it's needed, mirroring how a single-process nanomsg program never thinks
// about its own event loop either.
//
// Session's exported methods are the only way anything outside this
// package talks to a socket: they take and return plain Go values,
// building a request/reply pair internally and round-tripping it through
// the reactor, so protocol/* packages and the façade never need to know
// request and reply exist.
type Session struct {
	reactor *Reactor
	log     log.T

	nextSocketID uint32 // atomic

	mu     sync.Mutex
	closed bool
}

// NewSession starts a Session's reactor goroutine. Callers should Close it
// when done; a process that never closes its session simply leaks one
// goroutine at exit, same as never closing a socket in mangos.
func NewSession(logger log.T) *Session {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Session{
		reactor: NewReactor(logger.WithContext("session")),
		log:     logger,
	}
}

// Close stops the session's reactor, tearing down every socket, endpoint
// and pipe it still owns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.reactor.Stop()
}

func (s *Session) nextID() uint32 {
	return atomic.AddUint32(&s.nextSocketID, 1)
}

// OpenSocket registers a new Protocol instance with the session and
// returns the backend id the rest of Session's methods address it by.
func (s *Session) OpenSocket(proto Protocol) uint32 {
	id := s.nextID()
	sock := newSocket(id, proto, DefaultSocketOptions(), s.reactor)
	s.reactor.Submit(request{kind: reqRegisterSocket, socketID: id, registerSocket: sock})
	return id
}

// Send blocks until msg is handed to the protocol and, depending on the
// pattern, written to a pipe — or until deadline passes (zero deadline
// means no timeout).
func (s *Session) Send(socketID uint32, msg *Message, deadline time.Time) error {
	rep := s.reactor.Submit(request{kind: reqSend, socketID: socketID, msg: msg, deadline: deadline})
	return rep.err
}

// Recv blocks until the protocol delivers a message or deadline passes.
func (s *Session) Recv(socketID uint32, deadline time.Time) (*Message, error) {
	rep := s.reactor.Submit(request{kind: reqRecv, socketID: socketID, deadline: deadline})
	return rep.msg, rep.err
}

// Dial adds a connect-side endpoint and returns its id.
func (s *Session) Dial(socketID uint32, address string) (uint32, error) {
	rep := s.reactor.Submit(request{kind: reqDial, socketID: socketID, address: address})
	return rep.endpoint, rep.err
}

// Listen adds a bind-side endpoint and returns its id.
func (s *Session) Listen(socketID uint32, address string) (uint32, error) {
	rep := s.reactor.Submit(request{kind: reqListen, socketID: socketID, address: address})
	return rep.endpoint, rep.err
}

// CloseEndpoint tears down one previously-Dialed or previously-Listened
// endpoint, including whatever pipe it currently owns.
func (s *Session) CloseEndpoint(socketID, endpointID uint32) error {
	rep := s.reactor.Submit(request{kind: reqCloseEndpoint, socketID: socketID, optValue: endpointID})
	return rep.err
}

// SetOption applies a socket- or protocol-level option by name.
func (s *Session) SetOption(socketID uint32, name string, value interface{}) error {
	rep := s.reactor.Submit(request{kind: reqSetOption, socketID: socketID, optName: name, optValue: value})
	return rep.err
}

// GetOption reads back a socket- or protocol-level option by name.
func (s *Session) GetOption(socketID uint32, name string) (interface{}, error) {
	rep := s.reactor.Submit(request{kind: reqGetOption, socketID: socketID, optName: name})
	return rep.optValue, rep.err
}

// CloseSocket tears the whole socket down: every endpoint, every pipe, and
// any pending Send/Recv (which fail with ErrClosed).
func (s *Session) CloseSocket(socketID uint32) error {
	rep := s.reactor.Submit(request{kind: reqCloseSocket, socketID: socketID})
	return rep.err
}

var defaultSession struct {
	once sync.Once
	s    *Session
}

// Default returns the process-wide lazily-created Session that the
// root package's socket constructors (sp.NewPairSocket, sp.NewReqSocket, ...) use
// when a caller doesn't manage its own Session explicitly.
func Default() *Session {
	defaultSession.once.Do(func() {
		defaultSession.s = NewSession(log.NewNop())
	})
	return defaultSession.s
}
