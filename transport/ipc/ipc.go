// Package ipc implements the "ipc://path" transport scheme: a Unix-domain
// socket on Unix, a named pipe on Windows.
package ipc

import (
	"github.com/spsock/sp/transport"
)

func init() {
	transport.Register(ipcTransport{})
}

type ipcTransport struct{}

func (ipcTransport) Scheme() string { return "ipc" }

func (ipcTransport) NewDialer(address string, opts transport.Options) (transport.Dialer, error) {
	return newDialer(address, opts)
}

func (ipcTransport) NewListener(address string, opts transport.Options) (transport.Listener, error) {
	return newListener(address, opts)
}
