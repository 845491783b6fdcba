package core

import (
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/buffer"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

// dispatch routes one complete, framed message (spec §4.6 "Message
// dispatch"). Caller holds c.mu.
func (c *Core) dispatch(raw []byte) {
	base := scmp.DecodeBase(raw, c.order)
	payload := raw[scmp.BaseWireSize:]

	if base.PluginID == scmp.CorePluginID {
		c.dispatchCore(base.Type, payload)
		return
	}

	c.pluginsMu.Lock()
	p, ok := c.plugins[base.PluginID]
	if !ok {
		if solo, found := c.soloPlugin(); found {
			p, ok = solo, true
		}
	}
	c.pluginsMu.Unlock()

	if !ok {
		slog.Warn("sled_message_for_unknown_plugin", "plugin_id", base.PluginID, "type", base.Type, "component", "core")
		return
	}
	if err := p.ClientMessage(base.Type, payload); err != nil {
		slog.Warn("sled_plugin_message_failed", "plugin_id", base.PluginID, "type", base.Type, "error", err, "component", "core")
	}
}

func (c *Core) dispatchCore(t scmp.TypeCode, payload []byte) {
	switch {
	case t.IsDebug():
		mode := debugModeFromType(t)
		c.mode = mode
		c.forEachPlugin(func(p plugin.Capability) { p.ClientDebugModeChanged(mode) })
		if c.awaitingDebugModeMsg {
			c.awaitingDebugModeMsg = false
		}
	case t == scmp.TypeHeartbeat:
		c.sendCore(scmp.Empty{Code: scmp.TypeHeartbeat})
	case t == scmp.TypeProtocolDebugMark:
		c.sendCore(scmp.Empty{Code: scmp.TypeProtocolDebugMark})
	case t == scmp.TypeReady:
		c.awaitingClientReady = false
	case t == scmp.TypeDevCmd:
		if c.devCmdHandler != nil {
			r := buffer.NewReader(payload, c.order)
			c.devCmdHandler(scmp.UnpackDevCmd(r).Payload)
		}
	case t.IsBreakpoint():
		// BreakpointBegin/Sync/End replies are consumed directly by the
		// phase-specific pump loops in breakpoint.go, which inspect
		// c.lastBreakpointPhaseType instead of acting here.
		c.lastBreakpointPhaseType = t
	default:
		slog.Warn("sled_unhandled_core_message", "type", t, "component", "core")
	}
}

func debugModeFromType(t scmp.TypeCode) plugin.DebugMode {
	switch t {
	case scmp.TypeDebugStart:
		return plugin.ModeNormal
	case scmp.TypeDebugStepInto:
		return plugin.ModeStepInto
	case scmp.TypeDebugStepOver:
		return plugin.ModeStepOver
	case scmp.TypeDebugStepOut:
		return plugin.ModeStepOut
	case scmp.TypeDebugStop:
		return plugin.ModeStop
	default:
		return plugin.ModeNormal
	}
}
