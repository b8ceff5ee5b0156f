// Package session manages the single long-lived TCP connection that
// couples the Simulator and the Hardware: the Simulator dials, the
// Hardware binds/accepts exactly one peer then stops listening. Both
// sides disable Nagle.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors, one per failure class, so callers can classify
// without string matching.
var (
	ErrConnect = errors.New("session: connect")
	ErrBind    = errors.New("session: bind")
	ErrAccept  = errors.New("session: accept")
)

// Dial connects to the Hardware peer at addr ("host:port") with
// blocking semantics and disables Nagle on the resulting connection.
func Dial(addr string) (net.Conn, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	if err := disableNagle(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnect, err)
	}
	return conn, nil
}

// AcceptOne binds addr, sets address-reuse, listens, accepts exactly
// one peer, disables Nagle on it, and closes the listener. The listen
// backlog is the kernel default, not 1; only the accept count is
// limited to one. The connection's lifetime is the rest of the process: no
// re-accept ever happens. If onListening is non-nil, it is invoked
// with the bound address once the listener is up but before the
// (blocking) Accept call, so callers can advertise the bound port
// (e.g. via mDNS) while waiting for the peer.
func AcceptOne(addr string, onListening func(net.Addr)) (net.Conn, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBind, err)
	}
	if onListening != nil {
		onListening(ln.Addr())
	}
	conn, err := ln.Accept()
	closeErr := ln.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAccept, err)
	}
	if closeErr != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: closing listener: %v", ErrAccept, closeErr)
	}
	if err := disableNagle(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrAccept, err)
	}
	return conn, nil
}

func disableNagle(conn net.Conn) error {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // non-TCP conn (e.g. in tests); nothing to disable
	}
	return tcp.SetNoDelay(true)
}
