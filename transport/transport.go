// Package transport defines the pluggable byte-stream transport interface
// that the reactor drives, and the registry that maps a URL scheme
// ("tcp", "ipc", "inproc") to an implementation. Concrete transports live
// in sibling packages (transport/tcp, transport/ipc, transport/inproc) and
// register themselves from an init func, the way mangos's
// transport/all does.
package transport

import (
	"io"
	"net"
	"sync"
)

// Options carries the transport-relevant socket options down from the
// core socket to a Dialer/Listener at construction time. Fields are read
// once per Dial/Listen call; later SetOption calls on the socket do not
// retroactively change an endpoint already under way, matching mangos's
// behavior of latching dial/listen options at connect time.
type Options struct {
	NoDelay bool
}

// Conn is the byte-stream abstraction a Pipe wraps. Transports hand back
// a net.Conn today (tcp, ipc, and inproc's in-memory net.Pipe all satisfy
// it); the narrower interface keeps the reactor from depending on *net.TCPConn
// or *net.UnixConn specifically.
type Conn interface {
	io.ReadWriteCloser
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// Dialer produces outbound byte streams for one logical connect-side
// endpoint. Dial is called again by the reactor's reconnect timer after
// each failure or disconnection; the Dialer itself is stateless between
// calls beyond the address it was constructed with.
type Dialer interface {
	Dial() (Conn, error)
	// Address is the URL this dialer was constructed for, for logging.
	Address() string
}

// Listener accepts inbound byte streams for one logical bind-side
// endpoint. Accept blocks until a connection arrives or the listener is
// closed; the reactor runs it in its own goroutine and funnels results
// back over a channel, never calling Accept from the reactor goroutine
// itself.
type Listener interface {
	Accept() (Conn, error)
	Close() error
	Address() string
}

// Transport is the per-scheme factory. NewDialer/NewListener receive the
// address with the "scheme://" prefix already stripped.
type Transport interface {
	Scheme() string
	NewDialer(address string, opts Options) (Dialer, error)
	NewListener(address string, opts Options) (Listener, error)
}

var (
	mu       sync.RWMutex
	registry = map[string]Transport{}
)

// Register adds a Transport to the global scheme registry. Called from
// each transport package's init().
func Register(t Transport) {
	mu.Lock()
	defer mu.Unlock()
	registry[t.Scheme()] = t
}

// Lookup returns the Transport registered for scheme, if any.
func Lookup(scheme string) (Transport, bool) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := registry[scheme]
	return t, ok
}
