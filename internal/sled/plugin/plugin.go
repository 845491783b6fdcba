// Package plugin defines the narrow capability interface the Debugger Core
// calls on every registered language plugin (spec §4.7). A single Go
// interface is the direct equivalent of the spec's "vtable struct
// initialized at registration" design note (spec §9): no virtual-inheritance
// hierarchy is needed because exactly one plugin (Lua) exists today, and the
// core dispatches to any future plugin purely by its declared PluginID.
package plugin

import "github.com/sled-run/sleddbg/internal/sled/scmp"

// DebugMode mirrors spec §3's debugger mode enum.
type DebugMode int

const (
	ModeNormal DebugMode = iota
	ModeStepInto
	ModeStepOver
	ModeStepOut
	ModeStop
)

func (m DebugMode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeStepInto:
		return "step_into"
	case ModeStepOver:
		return "step_over"
	case ModeStepOut:
		return "step_out"
	case ModeStop:
		return "stop"
	default:
		return "unknown"
	}
}

// BreakpointParams is passed to ClientBreakpointBegin/End, naming which
// plugin's hook fired and where (spec §4.7).
type BreakpointParams struct {
	PluginIDThatHit scmp.PluginID
	LineNumber      int32
	RelativeFile    string
}

// Capability is the set of lifecycle hooks the core invokes on a registered
// plugin. Implementations must never unwind (panic) across these methods —
// spec §9: "the hook must never unwind because the interpreter's own error
// handler may longjmp through frames the library does not control."
type Capability interface {
	// ID is this plugin's wire-stable 16-bit identifier. 0 is reserved for
	// the Debugger Core itself and must never be returned here.
	ID() scmp.PluginID
	Name() string
	Version() (major, minor, revision uint16)

	// Shutdown releases any resources the plugin owns. Idempotent.
	Shutdown()

	// ClientConnected is called once per successful handshake, after the
	// core has replayed its script cache to the IDE.
	ClientConnected()
	// ClientDisconnected is called whenever the connection is lost,
	// including mid-breakpoint-loop.
	ClientDisconnected()
	// ClientMessage delivers one complete message addressed to this
	// plugin's id: its type code and the wire bytes following the envelope.
	ClientMessage(msgType scmp.TypeCode, payload []byte) error
	// ClientBreakpointBegin/End bracket a breakpoint loop; the plugin whose
	// hook triggered the loop is expected to emit its scoped variable/
	// call-stack dumps during Begin.
	ClientBreakpointBegin(params BreakpointParams)
	ClientBreakpointEnd(params BreakpointParams)
	// ClientDebugModeChanged notifies every plugin of a new debugger mode.
	ClientDebugModeChanged(mode DebugMode)
}

// Sender is the narrow slice of the Debugger Core a plugin needs to push
// its own messages to the connected IDE, attributed to its own plugin id
// (spec §5: outbound framing is the core's responsibility; the plugin only
// supplies bodies).
type Sender interface {
	SendPlugin(id scmp.PluginID, body scmp.Message) error
}
