// Package luaplugin implements the Lua language plugin of spec §4.8-§4.14:
// the sole, built-in implementation of internal/sled/plugin.Capability for
// Lua 5.1/5.2 interpreters, backed by pkg/luahost.
package luaplugin

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sled-run/sleddbg/internal/sled/alloc"
	"github.com/sled-run/sleddbg/internal/sled/buffer"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

// Host is the slice of the Debugger Core a Lua plugin instance needs:
// sending its own messages, and reporting a breakpoint hit to run the
// four-phase breakpoint loop (spec §4.6, §4.9).
type Host interface {
	plugin.Sender
	BreakpointReached(params plugin.BreakpointParams) error
}

const (
	versionMajor    = 1
	versionMinor    = 0
	versionRevision = 0
)

// Plugin is the Lua language plugin. One instance serves every Lua state
// registered against it (spec §4.8).
type Plugin struct {
	id   scmp.PluginID
	name string
	cfg  Config
	host Host

	mu    sync.Mutex // guards everything below (spec §5 "owned by the plugin")
	order binary.ByteOrder

	reg         *registry
	breakpoints *breakpointList
	filters     *filterSet
	vars        *varEngine
	prof        *profiler
	mem         *memTracer
	edits       *editQueue
	step        stepState
	active      *registeredState

	lua51 bool
}

// New constructs the Lua plugin into buf, sized exactly as
// RequiredMemory(cfg) reports (spec §4.1, mirroring core.New's two-phase
// construction). host is typically the *core.Core the plugin will be
// registered against via core.AddPlugin.
func New(id scmp.PluginID, name string, cfg Config, host Host, lua51 bool, buf []byte) (*Plugin, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	required, err := RequiredMemory(cfg)
	if err != nil {
		return nil, err
	}
	if uintptr(len(buf)) < required {
		return nil, fmt.Errorf("luaplugin: buffer too small: need %d bytes, have %d", required, len(buf))
	}

	arena := alloc.NewArena(buf)
	stateSlots, err := alloc.AllocSlice[registeredState](arena, cfg.MaxLuaStates)
	if err != nil {
		return nil, err
	}
	stateUsed, err := alloc.AllocSlice[bool](arena, cfg.MaxLuaStates)
	if err != nil {
		return nil, err
	}
	bpEntries, err := alloc.AllocSlice[Breakpoint](arena, cfg.MaxBreakpoints)
	if err != nil {
		return nil, err
	}
	patterns, err := alloc.AllocSlice[namePattern](arena, cfg.MaxNumVarFilters)
	if err != nil {
		return nil, err
	}
	profFuncs, err := alloc.AllocSlice[profileFunc](arena, cfg.MaxProfileFunctions)
	if err != nil {
		return nil, err
	}
	profStack, err := alloc.AllocSlice[callFrame](arena, cfg.MaxProfileCallStackDepth)
	if err != nil {
		return nil, err
	}
	memEntries, err := alloc.AllocSlice[scmp.MemoryTraceEntry](arena, cfg.MaxMemTraces)
	if err != nil {
		return nil, err
	}
	editSlots, err := alloc.AllocSlice[string](arena, cfg.MaxEditAndContinues)
	if err != nil {
		return nil, err
	}
	editUsed, err := alloc.AllocSlice[bool](arena, cfg.MaxEditAndContinues)
	if err != nil {
		return nil, err
	}

	p := &Plugin{
		id:          id,
		name:        name,
		cfg:         cfg,
		host:        host,
		order:       binary.LittleEndian, // spec §6.1: plugin inherits the core's negotiated order
		reg:         newRegistry(cfg, stateSlots, stateUsed),
		breakpoints: newBreakpointList(bpEntries),
		filters:     newFilterSet(cfg, patterns),
		prof:        newProfiler(profFuncs, profStack),
		mem:         newMemTracer(memEntries, host, id),
		edits:       newEditQueue(cfg, editSlots, editUsed, host, id),
		lua51:       lua51,
	}
	p.vars = newVarEngine(cfg, p.filters, host, id)
	return p, nil
}

// --- plugin.Capability ---

func (p *Plugin) ID() scmp.PluginID { return p.id }
func (p *Plugin) Name() string      { return p.name }
func (p *Plugin) Version() (uint16, uint16, uint16) {
	return versionMajor, versionMinor, versionRevision
}

func (p *Plugin) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reg.each(func(st *registeredState) {
		if st.lineHookInstalled || st.callHookInstalled {
			st.L.ClearHook()
		}
	})
}

func (p *Plugin) ClientConnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reg.each(func(st *registeredState) {
		_ = p.host.SendPlugin(p.id, scmp.LuaStateInfo{ID: st.id, Name: st.name})
	})
}

func (p *Plugin) ClientDisconnected() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prof.setRunning(false)
}

// ClientBreakpointBegin runs the profiler's and memory tracer's
// pre-breakpoint steps, then dumps the scoped variable snapshot (globals,
// plus the top frame's locals, upvalues and environment) the IDE expects at
// the top of a breakpoint loop (spec §4.7, §4.10, §4.12, §4.13). It sends
// no call-stack records.
func (p *Plugin) ClientBreakpointBegin(params plugin.BreakpointParams) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.prof.preBreakpoint()
	p.mem.flushBreakpoint()

	st, ok := p.currentState()
	if !ok {
		return
	}
	ar, ok := st.L.GetStack(0)
	if !ok {
		return
	}
	p.vars.enumerateGlobals(st.L)
	p.vars.enumerateLocals(st.L, ar, 0)
	if st.L.PushFunction(0) {
		p.vars.enumerateUpvalues(st.L, -1)
		p.vars.enumerateEnv(st.L, -1, p.lua51)
		st.L.Pop(1)
	}
}

func (p *Plugin) ClientBreakpointEnd(params plugin.BreakpointParams) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prof.postBreakpoint()

	st, ok := p.currentState()
	if ok {
		p.edits.applyOnResume(st.L, func(text string) {
			_ = p.host.SendPlugin(p.id, scmp.TTY{Text: text})
		})
	}
}

// TTYf sends a formatted string to the IDE's TTY pane (original
// Extras/extras.cpp's "custom text to the debugger console" helper).
func (p *Plugin) TTYf(format string, args ...any) error {
	return p.host.SendPlugin(p.id, scmp.TTY{Text: fmt.Sprintf(format, args...)})
}

func (p *Plugin) ClientDebugModeChanged(mode plugin.DebugMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step.mode = mode
	p.reg.each(func(st *registeredState) { p.reconcileHooksFor(st) })
}

// ClientMessage handles Lua-plugin-addressed wire messages (spec §6.3
// codes 200+): breakpoint set/clear, var filters, profiler toggles, edit-
// and-continue enqueue, and variable lookups/updates.
func (p *Plugin) ClientMessage(msgType scmp.TypeCode, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	r := buffer.NewReader(payload, p.order)
	switch msgType {
	case scmp.TypeBreakpointSet:
		bp := scmp.UnpackBreakpointSet(r)
		if bp.Remove {
			p.breakpoints.remove(bp.RelativePath, bp.Line)
		} else if err := p.breakpoints.add(Breakpoint{
			Path: bp.RelativePath, Line: bp.Line, Condition: bp.Condition, FiresWhenTrue: bp.FiresWhenTrue,
		}); err != nil {
			return err
		}
		p.reg.each(func(st *registeredState) { p.reconcileHooksFor(st) })
	case scmp.TypeEditAndContinue:
		return p.edits.enqueue(scmp.UnpackEditAndContinue(r).RelativePath)
	case scmp.TypeVarFilterStateType:
		f := scmp.UnpackVarFilterStateType(r)
		p.filters.setTypeMask(VarScope(f.Scope), f.TypeMask)
	case scmp.TypeVarFilterName:
		f := scmp.UnpackVarFilterName(r)
		p.filters.addPattern(VarScope(f.Scope), f.Pattern)
	case scmp.TypeProfileInfoToggle:
		p.prof.setRunning(!p.prof.running)
	case scmp.TypeProfileInfoClear:
		p.prof.clear()
	case scmp.TypeVarLookUp:
		req := scmp.UnpackVarLookUp(r)
		st, ok := p.currentState()
		if !ok {
			return fmt.Errorf("luaplugin: var lookup with no active state")
		}
		p.vars.lookup(st.L, req, p.rootPusher(st))
	case scmp.TypeVarUpdate:
		req := scmp.UnpackVarUpdate(r)
		st, ok := p.currentState()
		if !ok {
			return fmt.Errorf("luaplugin: var update with no active state")
		}
		return p.vars.update(st.L, req, p.rootPusher(st), p.rootSetter(st))
	case scmp.TypeFunctionInfo:
		req := scmp.UnpackFunctionInfo(r)
		file, line, found := p.prof.findByTag(req.Tag)
		if !found {
			return nil
		}
		return p.host.SendPlugin(p.id, scmp.FunctionInfo{Tag: req.Tag, ScriptPath: file, DefinedLine: line})
	default:
		slog.Warn("sled_lua_plugin_unhandled_message", "type", msgType, "component", "luaplugin")
	}
	return nil
}
