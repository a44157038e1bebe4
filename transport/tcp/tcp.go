// Package tcp implements the "tcp://host:port" transport scheme.
package tcp

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/spsock/sp/transport"
)

func init() {
	transport.Register(tcpTransport{})
}

type tcpTransport struct{}

func (tcpTransport) Scheme() string { return "tcp" }

func (tcpTransport) NewDialer(address string, opts transport.Options) (transport.Dialer, error) {
	if address == "" {
		return nil, fmt.Errorf("tcp: empty address")
	}
	return &dialer{addr: address, opts: opts}, nil
}

func (tcpTransport) NewListener(address string, opts transport.Options) (transport.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", address)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln.(*net.TCPListener), addr: address, opts: opts}, nil
}

type dialer struct {
	addr string
	opts transport.Options
}

func (d *dialer) Address() string { return "tcp://" + d.addr }

func (d *dialer) Dial() (transport.Conn, error) {
	nd := net.Dialer{Timeout: 10 * time.Second}
	c, err := nd.Dial("tcp", d.addr)
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok && d.opts.NoDelay {
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}

type listener struct {
	ln   *net.TCPListener
	addr string
	opts transport.Options
}

func (l *listener) Address() string { return "tcp://" + l.addr }

func (l *listener) Close() error { return l.ln.Close() }

func (l *listener) Accept() (transport.Conn, error) {
	c, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	if tc, ok := c.(*net.TCPConn); ok && l.opts.NoDelay {
		_ = tc.SetNoDelay(true)
	}
	return c, nil
}
