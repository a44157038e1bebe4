//go:build !unix

package tcp

import "syscall"

// reuseAddrControl is a no-op on platforms where we don't special-case the
// SO_REUSEADDR dance (notably Windows, where the default semantics already
// differ enough that forcing it on is more surprising than helpful).
func reuseAddrControl(_, _ string, _ syscall.RawConn) error {
	return nil
}
