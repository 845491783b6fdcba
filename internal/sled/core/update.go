package core

import "github.com/sled-run/sleddbg/internal/sled/errs"

// Update is the host's per-frame pump (spec §4.6). It requires networking
// to be active and rejects concurrent re-entry with errs.ErrRecursiveUpdate
// (spec §8 "Update re-entrancy").
func (c *Core) Update() error {
	if !c.updateGuard.TryAcquire(1) {
		return errs.ErrRecursiveUpdate
	}
	defer c.updateGuard.Release(1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connState == Disconnected && !c.transport.Connected() {
		// Disconnected-but-never-started is indistinguishable from
		// disconnected-after-drop without an explicit "networking active"
		// flag; networkingStarted is set once StartNetworking has started
		// the transport and cleared only by StopNetworking, so reaching here
		// with it unset is the only case spec §4.6 calls an error.
		if !c.networkingStarted {
			return errs.ErrNotNetworking
		}
	}
	return c.pumpOnce()
}
