package luaplugin

import (
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

// RegisterState installs the libsledluaplugin self-table against L and
// adds it to the registry (spec §4.8). The host calls this once per
// interpreter state it wants debuggable.
func (p *Plugin) RegisterState(name string, L luahost.Interpreter) (int32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id, err := p.reg.register(name, L)
	if err != nil {
		return 0, err
	}
	st, _ := p.reg.get(id)
	p.reconcileHooksFor(st)
	return id, nil
}

// UnregisterState tears a state's hooks down and drops it.
func (p *Plugin) UnregisterState(id int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.active != nil && p.active.id == id {
		p.active = nil
	}
	return p.reg.unregister(id)
}

// currentState is the state whose hook is executing, or the sole
// registered state if only one exists — mirroring soloPlugin's fallback
// in the core (spec §4.6.4's analogous convenience rule).
func (p *Plugin) currentState() (*registeredState, bool) {
	if p.active != nil {
		return p.active, true
	}
	return p.reg.solo()
}

// reconcileHooksFor applies spec §4.8's reactive hook-mask rule to one
// state.
func (p *Plugin) reconcileHooksFor(st *registeredState) {
	wantLine := !p.breakpoints.isEmpty() || p.step.mode != plugin.ModeNormal
	wantCallReturn := p.prof.running
	capturedID := st.id
	st.reconcileHooks(wantLine, wantCallReturn, func(event luahost.HookEvent, ar luahost.ActivationRecord) {
		p.onHook(capturedID, event, ar)
	})
}

// onHook is the interpreter-thread callback. It runs synchronously inside
// the script's own execution and must never panic (spec §9).
func (p *Plugin) onHook(stateID int32, event luahost.HookEvent, ar luahost.ActivationRecord) {
	p.mu.Lock()
	st, ok := p.reg.get(stateID)
	if !ok {
		p.mu.Unlock()
		return
	}
	p.active = st

	switch event {
	case luahost.HookCall:
		p.prof.enter(ar.Name, chopPath(p.cfg, ar.Source), ar.CurrentLine)
		p.mu.Unlock()
		return
	case luahost.HookReturn:
		p.prof.leave()
		p.mu.Unlock()
		return
	}

	// Line event: run the breakpoint decision tree of spec §4.9.
	path := chopPath(p.cfg, ar.Source)
	depth := st.L.StackDepth()

	stop := false
	if p.step.shouldStopUnconditionally() {
		stop = true
	} else if p.step.shouldStopForStep(depth) {
		stop = true
	} else if bp, found := p.breakpoints.find(path, ar.CurrentLine); found {
		ok, err := evaluateCondition(st.L, ar, 0, bp, p.cfg.EvaluateInFunctionEnv)
		if err != nil {
			slog.Warn("sled_breakpoint_condition_error", "path", path, "line", ar.CurrentLine, "error", err, "component", "luaplugin")
		} else {
			stop = ok
		}
	}

	if !stop {
		p.mu.Unlock()
		return
	}

	p.step.depthAtLastStop = depth
	p.mu.Unlock()

	if err := p.host.BreakpointReached(plugin.BreakpointParams{
		PluginIDThatHit: p.id,
		LineNumber:      ar.CurrentLine,
		RelativeFile:    path,
	}); err != nil {
		slog.Warn("sled_breakpoint_reached_failed", "error", err, "component", "luaplugin")
	}
}

// rootPusher returns a closure that pushes a VarLookUp/VarUpdate root
// value onto st's stack for the given scope, used by varEngine (spec
// §4.10).
func (p *Plugin) rootPusher(st *registeredState) func(scope uint8, root string) bool {
	return func(scope uint8, root string) bool {
		switch VarScope(scope) {
		case ScopeGlobal:
			st.L.GetGlobal(root)
			return true
		case ScopeLocal:
			ar, ok := st.L.GetStack(0)
			if !ok {
				return false
			}
			for i := 1; ; i++ {
				name, ok := st.L.GetLocal(ar, 0, i)
				if !ok {
					return false
				}
				if name == root {
					return true
				}
				st.L.Pop(1)
			}
		case ScopeUpvalue:
			if !st.L.PushFunction(0) {
				return false
			}
			for i := 1; ; i++ {
				name, ok := st.L.GetUpvalue(-1, i)
				if !ok {
					st.L.Pop(1) // drop the function, nothing found
					return false
				}
				if name == root {
					st.L.Remove(-2) // drop the function, keep the upvalue value
					return true
				}
				st.L.Pop(1)
			}
		case ScopeEnv:
			if !st.L.PushFunction(0) {
				return false
			}
			if p.lua51 {
				st.L.GetFEnv(-1)
				st.L.Remove(-2)
				return true
			}
			for i := 1; ; i++ {
				name, ok := st.L.GetUpvalue(-1, i)
				if !ok {
					st.L.Pop(1)
					return false
				}
				if name == "_ENV" {
					st.L.Remove(-2)
					return true
				}
				st.L.Pop(1)
			}
		default:
			return false
		}
	}
}

// rootSetter returns a closure that performs a direct root-level write for
// an empty-chain VarUpdate (spec §4.10's bTable==false branch): a bare
// global, local, or upvalue with no table to walk into. Globals go through
// SetGlobal; locals/upvalues are looked up by name at the current frame
// (mirroring rootPusher's own by-name walk) and written with SetLocal/
// SetUpvalue, which address by index rather than name.
func (p *Plugin) rootSetter(st *registeredState) func(scope uint8, root string, newType uint8, newValue string) bool {
	return func(scope uint8, root string, newType uint8, newValue string) bool {
		switch VarScope(scope) {
		case ScopeGlobal:
			pushWireValue(st.L, newType, newValue)
			st.L.SetGlobal(root)
			return true
		case ScopeLocal:
			ar, ok := st.L.GetStack(0)
			if !ok {
				return false
			}
			idx := -1
			for i := 1; ; i++ {
				name, ok := st.L.GetLocal(ar, 0, i)
				if !ok {
					break
				}
				st.L.Pop(1)
				if name == root {
					idx = i
					break
				}
			}
			if idx < 0 {
				return false
			}
			pushWireValue(st.L, newType, newValue)
			_, ok = st.L.SetLocal(ar, 0, idx)
			return ok
		case ScopeUpvalue:
			if !st.L.PushFunction(0) {
				return false
			}
			funcIdx := st.L.Top()
			idx := -1
			for i := 1; ; i++ {
				name, ok := st.L.GetUpvalue(funcIdx, i)
				if !ok {
					break
				}
				st.L.Pop(1)
				if name == root {
					idx = i
					break
				}
			}
			if idx < 0 {
				st.L.Remove(funcIdx)
				return false
			}
			pushWireValue(st.L, newType, newValue)
			_, ok := st.L.SetUpvalue(funcIdx, idx)
			st.L.Remove(funcIdx)
			return ok
		default:
			return false
		}
	}
}
