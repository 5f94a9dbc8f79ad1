// Package network holds the operator-controlled network mode. In corporate
// mode upstreams are assumed to be unreliable (filtering proxies, TLS
// interception) and stale cached data is preferred over errors.
package network

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	Direct    = "direct"
	Corporate = "corporate"
)

// Mode is a concurrency-safe network mode flag. The zero value is Direct.
type Mode struct {
	corporate atomic.Bool
}

// NewMode returns a Mode initialized from a configured name.
func NewMode(name string) (*Mode, error) {
	m := &Mode{}
	if err := m.Set(name); err != nil {
		return nil, err
	}
	return m, nil
}

// Set switches the mode. Empty means Direct.
func (m *Mode) Set(name string) error {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", Direct:
		m.corporate.Store(false)
	case Corporate:
		m.corporate.Store(true)
	default:
		return fmt.Errorf("unknown network mode %q (want %q or %q)", name, Direct, Corporate)
	}
	return nil
}

// Degraded reports whether corporate mode is active.
func (m *Mode) Degraded() bool { return m.corporate.Load() }

func (m *Mode) String() string {
	if m.Degraded() {
		return Corporate
	}
	return Direct
}
