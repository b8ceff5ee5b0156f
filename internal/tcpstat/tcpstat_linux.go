//go:build linux

// Package tcpstat periodically samples the kernel's TCP_INFO for the
// session socket as an independent cross-check of the measured
// matched-step RTT.
package tcpstat

import (
	"errors"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Sample is one kernel TCP_INFO reading, fields of direct interest to
// this runtime's RTT cross-check.
type Sample struct {
	RTT         time.Duration
	RTTVar      time.Duration
	Retransmits uint32
}

// ErrUnsupported is returned when conn is not a *net.TCPConn.
var ErrUnsupported = errors.New("tcpstat: not a TCP connection")

// Read fetches one TCP_INFO sample for conn via getsockopt(TCP_INFO).
func Read(conn net.Conn) (Sample, error) {
	tcp, ok := conn.(*net.TCPConn)
	if !ok {
		return Sample{}, ErrUnsupported
	}
	raw, err := tcp.SyscallConn()
	if err != nil {
		return Sample{}, err
	}
	var info *unix.TCPInfo
	var sysErr error
	if err := raw.Control(func(fd uintptr) {
		info, sysErr = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	}); err != nil {
		return Sample{}, err
	}
	if sysErr != nil {
		return Sample{}, sysErr
	}
	return Sample{
		RTT:         time.Duration(info.Rtt) * time.Microsecond,
		RTTVar:      time.Duration(info.Rttvar) * time.Microsecond,
		Retransmits: uint32(info.Total_retrans),
	}, nil
}

// Sampler periodically reads TCP_INFO and reports it via report, until
// stop is closed. interval <= 0 disables sampling entirely.
func Sampler(conn net.Conn, interval time.Duration, report func(Sample), stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if s, err := Read(conn); err == nil {
				report(s)
			}
		}
	}
}
