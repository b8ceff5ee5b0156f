//go:build !unix

package session

import "syscall"

// reuseAddrControl is a no-op on non-unix platforms.
func reuseAddrControl(_, _ string, _ syscall.RawConn) error { return nil }
