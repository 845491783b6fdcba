package core

import (
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/errs"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

// BreakpointReached runs the four-phase synchronous exchange of spec §4.6
// "Breakpoint orchestration". It is plugin-invoked, synchronously, from the
// interpreter's own thread (the line hook) and blocks the calling goroutine
// until the IDE sends BreakpointContinue or the connection is lost.
//
// clientBreakpointEnd is called exactly once per entry (spec §8), on every
// return path including the early-disconnect ones.
func (c *Core) BreakpointReached(params plugin.BreakpointParams) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended := false
	endOnce := func() {
		if ended {
			return
		}
		ended = true
		c.forEachPlugin(func(p plugin.Capability) { p.ClientBreakpointEnd(params) })
	}
	defer endOnce()

	if c.connState != Connected {
		return errs.ErrNoClientConnected
	}

	slog.Info("sled_breakpoint_hit", "plugin_id", params.PluginIDThatHit, "line", params.LineNumber, "file", params.RelativeFile, "component", "core")

	// Phase 1: Begin.
	if err := c.pumpPhase(scmp.TypeBreakpointBegin); err != nil {
		return err
	}
	c.forEachPlugin(func(p plugin.Capability) { p.ClientBreakpointBegin(params) })

	// Phase 2: Sync. Between Begin and Sync the IDE may issue arbitrary
	// lookups/updates, which dispatch() already routes to the owning
	// plugin inline as they arrive during pumpPhase's draining loop.
	if err := c.pumpPhase(scmp.TypeBreakpointSync); err != nil {
		return err
	}

	// Phase 3: End.
	if err := c.pumpPhase(scmp.TypeBreakpointEnd); err != nil {
		return err
	}

	// Phase 4: Continue — pump until a debug-mode change arrives.
	c.awaitingDebugModeMsg = true
	for c.awaitingDebugModeMsg {
		if c.connState != Connected {
			return errs.ErrNoClientConnected
		}
		if err := c.pumpOnce(); err != nil {
			return err
		}
	}
	c.sendCore(scmp.Empty{Code: scmp.TypeBreakpointContinue})
	return nil
}

// pumpPhase sends the phase-start message then pumps until the IDE echoes
// the same type code back (spec §4.6: "send X; pump until IDE sends X").
func (c *Core) pumpPhase(phase scmp.TypeCode) error {
	c.sendCore(scmp.Empty{Code: phase})
	c.lastBreakpointPhaseType = 0
	for c.lastBreakpointPhaseType != phase {
		if c.connState != Connected {
			return errs.ErrNoClientConnected
		}
		if err := c.pumpOnce(); err != nil {
			return err
		}
	}
	return nil
}
