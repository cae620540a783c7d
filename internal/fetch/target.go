// Package fetch retrieves raw call-tree documents from the monitored
// application over HTTP.
package fetch

import "sync"

// Target holds the monitored host:port address. The address can be
// changed at any time (web form, MCP tool, config reload); the poll
// loop re-reads it at the start of every cycle, so a change takes
// effect on the next cycle, never mid-cycle.
type Target struct {
	mu      sync.RWMutex
	address string
}

// NewTarget creates a target for the given address.
func NewTarget(address string) *Target {
	return &Target{address: address}
}

// Address returns the current monitored address.
func (t *Target) Address() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.address
}

// Set replaces the monitored address.
func (t *Target) Set(address string) {
	t.mu.Lock()
	t.address = address
	t.mu.Unlock()
}
