// Package discovery advertises the Hardware peer's host:port over
// mDNS so operators can find a running instance without hardcoding an
// address. It carries no simulation-flavor semantics: the TXT record
// names only the process's run id and build metadata.
package discovery

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/grandcat/zeroconf"
)

const serviceType = "_hilcosim._tcp"

// Advertisement wraps the registered zeroconf service and its teardown.
type Advertisement struct {
	svc  *zeroconf.Server
	done chan struct{}
}

// Start registers instanceName (or "hilcosim-<hostname>" if empty) at
// port on the local network, with runID and version in its TXT record.
// Callers that don't want mDNS should simply not call this.
func Start(ctx context.Context, instanceName string, port int, runID, version string) (*Advertisement, error) {
	if instanceName == "" {
		host, _ := os.Hostname()
		instanceName = fmt.Sprintf("hilcosim-%s", host)
	}
	meta := []string{"run_id=" + runID, "version=" + version}
	svc, err := zeroconf.Register(instanceName, serviceType, "local.", port, meta, nil)
	if err != nil {
		return nil, fmt.Errorf("discovery: register: %w", err)
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		svc.Shutdown()
	}()
	return &Advertisement{svc: svc, done: done}, nil
}

// Stop tears down the advertisement and blocks briefly for the
// shutdown packet to go out.
func (a *Advertisement) Stop() {
	if a == nil {
		return
	}
	close(a.done)
	a.svc.Shutdown()
	time.Sleep(50 * time.Millisecond)
}
