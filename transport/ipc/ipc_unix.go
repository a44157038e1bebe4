//go:build unix

package ipc

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/nightlyone/lockfile"
	"github.com/spsock/sp/transport"
)

type dialer struct {
	path string
}

func newDialer(address string, _ transport.Options) (transport.Dialer, error) {
	if address == "" {
		return nil, fmt.Errorf("ipc: empty address")
	}
	return &dialer{path: address}, nil
}

func (d *dialer) Address() string { return "ipc://" + d.path }

func (d *dialer) Dial() (transport.Conn, error) {
	return net.DialTimeout("unix", d.path, 10*time.Second)
}

type listener struct {
	ln   *net.UnixListener
	path string
	lock lockfile.Lockfile
}

func newListener(address string, _ transport.Options) (transport.Listener, error) {
	if address == "" {
		return nil, fmt.Errorf("ipc: empty address")
	}

	// A lockfile beside the socket path lets us tell "another live
	// listener already owns this path" apart from "a prior listener
	// crashed and left the socket file behind". Only the latter gets the
	// socket file unlinked out from under it.
	lock, lockErr := lockfile.New(address + ".lock")
	if lockErr == nil {
		if err := lock.TryLock(); err != nil {
			if _, statErr := os.Stat(address); statErr == nil {
				return nil, fmt.Errorf("ipc: address %s already in use: %w", address, err)
			}
		}
	}

	if _, err := os.Stat(address); err == nil {
		_ = os.Remove(address)
	}

	addr, err := net.ResolveUnixAddr("unix", address)
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}
	return &listener{ln: ln, path: address, lock: lock}, nil
}

func (l *listener) Address() string { return "ipc://" + l.path }

func (l *listener) Accept() (transport.Conn, error) {
	return l.ln.AcceptUnix()
}

func (l *listener) Close() error {
	err := l.ln.Close()
	_ = l.lock.Unlock()
	_ = os.Remove(l.path)
	return err
}
