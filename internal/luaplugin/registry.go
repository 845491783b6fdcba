package luaplugin

import (
	"fmt"
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/errs"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

// libsledluapluginGlobal is the name of the self-table installed into every
// registered state, mirroring the original's libsledluaplugin userdata
// table. It exists solely so evaluateCondition can call a breakpoint
// condition function as a method (`libsledluaplugin:bp_func(...)`, spec
// §4.9) the way the original generates and invokes it.
//
// The original's companion libsleddebugger table — which exposes assert/
// tty/errorhandler as C functions callable from Lua (spec §4.8) — is not
// installed: doing so requires exposing a Go function as a callable Lua C
// function, a capability luahost.Interpreter does not provide (it has no
// lua_pushcfunction/lua_register equivalent). That surface is out of scope
// for this port; see DESIGN.md.
const libsledluapluginGlobal = "libsledluaplugin"

// registeredState is one interpreter registered against the plugin (spec
// §4.8: "A global table ... is installed into each registered interpreter
// state").
type registeredState struct {
	id   int32
	name string
	L    luahost.Interpreter

	lineHookInstalled bool
	callHookInstalled bool
}

// registry owns the fixed-capacity set of registered Lua states. It is
// guarded by the plugin's own mutex (spec §5: "owned by the plugin and
// guarded by the plugin mutex"), so its methods assume the caller already
// holds it.
//
// slots/used is the same "never move an occupied slot" discipline as
// stringset.Set: a slot's index doubles as its state ID, and other code
// (Plugin.active) holds *registeredState pointers into slots across calls,
// so unregister must never shift or reallocate the backing array.
type registry struct {
	cfg   Config
	slots []registeredState
	used  []bool
	order []int32 // insertion order, for deterministic LuaState enumeration
}

func newRegistry(cfg Config, slots []registeredState, used []bool) *registry {
	if len(slots) != len(used) {
		panic(fmt.Sprintf("luaplugin: registry slots/used length mismatch: %d vs %d", len(slots), len(used)))
	}
	return &registry{cfg: cfg, slots: slots, used: used}
}

func (r *registry) count() int {
	n := 0
	for _, u := range r.used {
		if u {
			n++
		}
	}
	return n
}

// register installs the libsledluaplugin self-table into L and returns
// its assigned state ID. Registering the same *underlying state* twice
// against a different plugin instance is rejected upstream by inspecting
// the instance pointer (spec §4.8); in this Go port that check collapses
// to "this interpreter value is already registered here".
func (r *registry) register(name string, L luahost.Interpreter) (int32, error) {
	if r.count() >= len(r.slots) {
		return 0, errs.ErrOverLuaStateLimit
	}
	for i, used := range r.used {
		if !used {
			continue
		}
		if r.slots[i].L == L {
			return 0, errs.ErrLuaStateAlreadyRegist
		}
		if r.slots[i].name == name {
			return 0, errs.ErrDuplicateLuaState
		}
	}
	if len(name) > r.cfg.MaxLuaStateNameLen {
		return 0, fmt.Errorf("luaplugin: state name %q exceeds max_lua_state_name_len", name)
	}

	idx := -1
	for i, used := range r.used {
		if !used {
			idx = i
			break
		}
	}

	L.NewTable()
	L.SetGlobal(libsledluapluginGlobal)

	id := int32(idx)
	r.slots[idx] = registeredState{id: id, name: name, L: L}
	r.used[idx] = true
	r.order = append(r.order, id)
	slog.Info("sled_lua_state_registered", "id", id, "name", name, "component", "luaplugin")
	return id, nil
}

func (r *registry) unregister(id int32) bool {
	if id < 0 || int(id) >= len(r.used) || !r.used[id] {
		return false
	}
	st := &r.slots[id]
	if st.lineHookInstalled || st.callHookInstalled {
		st.L.ClearHook()
	}
	r.used[id] = false
	r.slots[id] = registeredState{}
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

func (r *registry) get(id int32) (*registeredState, bool) {
	if id < 0 || int(id) >= len(r.used) || !r.used[id] {
		return nil, false
	}
	return &r.slots[id], true
}

func (r *registry) each(fn func(*registeredState)) {
	for _, id := range r.order {
		if st, ok := r.get(id); ok {
			fn(st)
		}
	}
}

func (r *registry) len() int { return len(r.order) }

// solo returns the single registered state when exactly one is registered,
// for Plugin.currentState's "infer the state if there's only one" fallback
// (spec §4.8).
func (r *registry) solo() (*registeredState, bool) {
	if len(r.order) != 1 {
		return nil, false
	}
	return r.get(r.order[0])
}

// reconcileHooks adjusts a state's installed hook mask to the reactive
// rule of spec §4.8:
//
//	line hook   iff breakpoints_nonempty or mode != Normal
//	call/return iff profiler_running
//
// There is no pending assert/error break state, so nothing else installs
// the line hook.
//
// Both may coexist; SetHook installs a single callback whose mask is the
// union, so reconciliation always re-issues SetHook with the combined
// flags rather than toggling each independently.
func (st *registeredState) reconcileHooks(wantLine, wantCallReturn bool, fn luahost.HookFunc) {
	if wantLine == st.lineHookInstalled && wantCallReturn == st.callHookInstalled {
		return
	}
	if !wantLine && !wantCallReturn {
		st.L.ClearHook()
	} else {
		st.L.SetHook(fn, wantLine, wantCallReturn, wantCallReturn)
	}
	st.lineHookInstalled = wantLine
	st.callHookInstalled = wantCallReturn
}
