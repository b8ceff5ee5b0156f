// Package runid generates a short, sortable, per-process identifier
// used to tag log lines and mDNS TXT records so operators can
// correlate a Simulator and Hardware run across separate processes.
package runid

import "github.com/rs/xid"

// New returns a fresh run identifier.
func New() string { return xid.New().String() }
