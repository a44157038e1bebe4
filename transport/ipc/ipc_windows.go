//go:build windows

package ipc

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/Microsoft/go-winio"
	"github.com/spsock/sp/transport"
)

// pipeName turns the "ipc://" address the caller gave us into a Windows
// named-pipe path. Callers may already pass `\\.\pipe\foo`; a bare path
// segment is mapped under the default pipe namespace, matching what the
// teacher's common/channel does for its named-pipe IPC channel.
func pipeName(address string) string {
	if strings.HasPrefix(address, `\\`) {
		return address
	}
	return `\\.\pipe\` + strings.TrimPrefix(address, "/")
}

type dialer struct {
	name string
}

func newDialer(address string, _ transport.Options) (transport.Dialer, error) {
	if address == "" {
		return nil, fmt.Errorf("ipc: empty address")
	}
	return &dialer{name: pipeName(address)}, nil
}

func (d *dialer) Address() string { return "ipc://" + d.name }

func (d *dialer) Dial() (transport.Conn, error) {
	timeout := 10 * time.Second
	return winio.DialPipe(d.name, &timeout)
}

type listener struct {
	ln   net.Listener
	name string
}

func newListener(address string, _ transport.Options) (transport.Listener, error) {
	if address == "" {
		return nil, fmt.Errorf("ipc: empty address")
	}
	name := pipeName(address)
	ln, err := winio.ListenPipe(name, &winio.PipeConfig{})
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln, name: name}, nil
}

func (l *listener) Address() string { return "ipc://" + l.name }

func (l *listener) Accept() (transport.Conn, error) {
	return l.ln.Accept()
}

func (l *listener) Close() error { return l.ln.Close() }
