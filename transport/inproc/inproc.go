// Package inproc implements the "inproc://name" transport scheme: an
// in-process rendezvous that hands connecting and listening sides a
// net.Pipe()-backed connection without touching a real socket. It exists
// for fast, deterministic tests of the reactor/protocol plane and for
// same-process pipelines that don't need real IPC.
package inproc

import (
	"fmt"
	"net"
	"sync"

	"github.com/spsock/sp/transport"
)

func init() {
	transport.Register(inprocTransport{})
}

type inprocTransport struct{}

func (inprocTransport) Scheme() string { return "inproc" }

func (inprocTransport) NewDialer(address string, _ transport.Options) (transport.Dialer, error) {
	return &dialer{name: address}, nil
}

func (inprocTransport) NewListener(address string, _ transport.Options) (transport.Listener, error) {
	return registry.bind(address)
}

var registry = newHub()

type hub struct {
	mu        sync.Mutex
	listeners map[string]*listener
}

func newHub() *hub { return &hub{listeners: map[string]*listener{}} }

func (h *hub) bind(name string) (*listener, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := h.listeners[name]; dup {
		return nil, fmt.Errorf("inproc: address %q already bound", name)
	}
	l := &listener{name: name, hub: h, conns: make(chan net.Conn), closed: make(chan struct{})}
	h.listeners[name] = l
	return l, nil
}

func (h *hub) find(name string) (*listener, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.listeners[name]
	return l, ok
}

func (h *hub) unbind(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.listeners, name)
}

type dialer struct{ name string }

func (d *dialer) Address() string { return "inproc://" + d.name }

func (d *dialer) Dial() (transport.Conn, error) {
	l, ok := registry.find(d.name)
	if !ok {
		return nil, fmt.Errorf("inproc: no listener bound at %q", d.name)
	}
	client, server := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.closed:
		return nil, fmt.Errorf("inproc: listener %q closed", d.name)
	}
}

type listener struct {
	name   string
	hub    *hub
	conns  chan net.Conn
	closed chan struct{}
	once   sync.Once
}

func (l *listener) Address() string { return "inproc://" + l.name }

func (l *listener) Accept() (transport.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.closed:
		return nil, fmt.Errorf("inproc: listener %q closed", l.name)
	}
}

func (l *listener) Close() error {
	l.once.Do(func() {
		close(l.closed)
		l.hub.unbind(l.name)
	})
	return nil
}
