// Package luahost adapts github.com/aarzilli/golua's cgo binding of the
// real Lua 5.1 C API into the narrow Interpreter surface the Lua plugin
// needs (spec §6.4). Apart from the example host binary, which opens the
// golua state it hands to New, it is the only package in this module that
// imports golua directly — everything in internal/luaplugin programs
// against the Interpreter interface so it stays host-agnostic.
package luahost

import (
	"log/slog"

	lua "github.com/aarzilli/golua/lua"
)

// ValueType mirrors Lua's lua_type ordinals (LUA_TNIL=0 .. LUA_TUSERDATA/THREAD).
type ValueType int

const (
	TypeNil ValueType = iota
	TypeBoolean
	TypeLightUserdata
	TypeNumber
	TypeString
	TypeTable
	TypeFunction
	TypeUserdata
	TypeThread
)

// HookEvent is the reason SetHook's callback fired.
type HookEvent int

const (
	HookLine HookEvent = iota
	HookCall
	HookReturn
	HookTailCall
)

// ActivationRecord is the subset of Lua's lua_Debug the breakpoint engine
// and variable introspection need: current line, source, and function tag.
type ActivationRecord struct {
	CurrentLine int32
	Source      string // "@path/to/script.lua" or "=[C]" etc, spec §4.9
	Name        string
	What        string // "Lua", "C", "main", "tail"
}

// HookFunc is invoked synchronously on the interpreter's own thread.
type HookFunc func(event HookEvent, ar ActivationRecord)

// Interpreter is the capability spec §6.4 requires hosts to provide. A
// *State implements it against a real *lua.State; tests substitute a
// fake.
type Interpreter interface {
	// Stack shape.
	Push()
	Pop(n int)
	Top() int
	SetTop(idx int)
	Type(idx int) ValueType
	Remove(idx int)

	// Typed reads (leaf-value encoding, spec §4.10).
	ToNumber(idx int) float64
	ToInteger(idx int) int64
	ToString(idx int) string
	ToBoolean(idx int) bool
	ToPointer(idx int) uintptr

	// Typed pushes.
	PushNumber(v float64)
	PushInteger(v int64)
	PushString(v string)
	PushBoolean(v bool)
	PushNil()

	// Tables.
	NewTable()
	RawGet(tableIdx int)
	RawSet(tableIdx int)
	GetTable(tableIdx int) // honors __index
	SetTable(tableIdx int) // honors __newindex
	GetGlobal(name string)
	SetGlobal(name string)
	Next(tableIdx int) bool

	// Activation records and locals/upvalues (spec §4.9, §4.10).
	GetStack(level int) (ActivationRecord, bool)
	// PushFunction pushes the function running at level onto the stack
	// (lua_getinfo's "f" option), so callers can then enumerate its
	// upvalues or environment.
	PushFunction(level int) bool
	GetLocal(ar ActivationRecord, level, n int) (name string, ok bool)
	SetLocal(ar ActivationRecord, level, n int) (name string, ok bool)
	GetUpvalue(funcIdx, n int) (name string, ok bool)
	SetUpvalue(funcIdx, n int) (name string, ok bool)
	GetFEnv(funcIdx int) // Lua 5.1 getfenv; pushes env table
	SetFEnv(funcIdx int) // Lua 5.1 setfenv; pops env table

	// Hooks, loading, calling.
	SetHook(fn HookFunc, wantLine, wantCall, wantReturn bool)
	ClearHook()
	LoadString(chunk, chunkName string) error
	Call(nargs, nresults int) error
	PCall(nargs, nresults int) error

	// StackDepth is the number of activation records currently on the
	// call stack, used by step-over/step-out (spec §4.9).
	StackDepth() int
}

// State adapts a *lua.State to Interpreter.
type State struct {
	L *lua.State
}

// New wraps an already-constructed, already-opened golua state.
func New(L *lua.State) *State { return &State{L: L} }

func (s *State) Push()           { s.L.PushNil() } // placeholder push used by callers that immediately overwrite
func (s *State) Pop(n int)       { s.L.Pop(n) }
func (s *State) Top() int        { return s.L.GetTop() }
func (s *State) SetTop(idx int)  { s.L.SetTop(idx) }
func (s *State) Remove(idx int)  { s.L.Remove(idx) }

func (s *State) Type(idx int) ValueType {
	switch s.L.Type(idx) {
	case lua.LUA_TNIL:
		return TypeNil
	case lua.LUA_TBOOLEAN:
		return TypeBoolean
	case lua.LUA_TLIGHTUSERDATA:
		return TypeLightUserdata
	case lua.LUA_TNUMBER:
		return TypeNumber
	case lua.LUA_TSTRING:
		return TypeString
	case lua.LUA_TTABLE:
		return TypeTable
	case lua.LUA_TFUNCTION:
		return TypeFunction
	case lua.LUA_TUSERDATA:
		return TypeUserdata
	case lua.LUA_TTHREAD:
		return TypeThread
	default:
		return TypeNil
	}
}

func (s *State) ToNumber(idx int) float64  { return s.L.ToNumber(idx) }
func (s *State) ToInteger(idx int) int64   { return int64(s.L.ToInteger(idx)) }
func (s *State) ToString(idx int) string   { return s.L.ToString(idx) }
func (s *State) ToBoolean(idx int) bool    { return s.L.ToBoolean(idx) }
func (s *State) ToPointer(idx int) uintptr { return uintptr(s.L.ToPointer(idx)) }

func (s *State) PushNumber(v float64)  { s.L.PushNumber(v) }
func (s *State) PushInteger(v int64)   { s.L.PushInteger(v) }
func (s *State) PushString(v string)   { s.L.PushString(v) }
func (s *State) PushBoolean(v bool)    { s.L.PushBoolean(v) }
func (s *State) PushNil()              { s.L.PushNil() }

func (s *State) NewTable()           { s.L.NewTable() }
func (s *State) RawGet(tableIdx int) { s.L.RawGet(tableIdx) }
func (s *State) RawSet(tableIdx int) { s.L.RawSet(tableIdx) }
func (s *State) GetTable(tableIdx int) { s.L.GetTable(tableIdx) }
func (s *State) SetTable(tableIdx int) { s.L.SetTable(tableIdx) }
func (s *State) GetGlobal(name string) { s.L.GetGlobal(name) }
func (s *State) SetGlobal(name string) { s.L.SetGlobal(name) }
func (s *State) Next(tableIdx int) bool { return s.L.Next(tableIdx) != 0 }

func (s *State) StackDepth() int {
	depth := 0
	for {
		var dbg lua.Debug
		if s.L.GetStack(depth, &dbg) == 0 {
			return depth
		}
		depth++
	}
}

func (s *State) GetStack(level int) (ActivationRecord, bool) {
	var dbg lua.Debug
	if s.L.GetStack(level, &dbg) == 0 {
		return ActivationRecord{}, false
	}
	s.L.GetInfo("Slnu", &dbg)
	return ActivationRecord{
		CurrentLine: int32(dbg.CurrentLine),
		Source:      dbg.Source,
		Name:        dbg.Name,
		What:        dbg.What,
	}, true
}

func (s *State) PushFunction(level int) bool {
	var dbg lua.Debug
	if s.L.GetStack(level, &dbg) == 0 {
		return false
	}
	s.L.GetInfo("f", &dbg)
	return true
}

func (s *State) GetLocal(ar ActivationRecord, level, n int) (string, bool) {
	var dbg lua.Debug
	if s.L.GetStack(level, &dbg) == 0 {
		return "", false
	}
	name := s.L.GetLocal(&dbg, n)
	return name, name != ""
}

func (s *State) SetLocal(ar ActivationRecord, level, n int) (string, bool) {
	var dbg lua.Debug
	if s.L.GetStack(level, &dbg) == 0 {
		return "", false
	}
	name := s.L.SetLocal(&dbg, n)
	return name, name != ""
}

func (s *State) GetUpvalue(funcIdx, n int) (string, bool) {
	name := s.L.GetUpvalue(funcIdx, n)
	return name, name != ""
}

func (s *State) SetUpvalue(funcIdx, n int) (string, bool) {
	name := s.L.SetUpvalue(funcIdx, n)
	return name, name != ""
}

func (s *State) GetFEnv(funcIdx int) { s.L.GetFEnv(funcIdx) }
func (s *State) SetFEnv(funcIdx int) { s.L.SetFEnv(funcIdx) }

// SetHook installs (or, if all three flags are false, removes) the debug
// hook, translating the boolean mask into golua's bitmask form.
func (s *State) SetHook(fn HookFunc, wantLine, wantCall, wantReturn bool) {
	if !wantLine && !wantCall && !wantReturn {
		s.ClearHook()
		return
	}
	mask := 0
	if wantLine {
		mask |= lua.LUA_MASKLINE
	}
	if wantCall {
		mask |= lua.LUA_MASKCALL
	}
	if wantReturn {
		mask |= lua.LUA_MASKRET
	}
	s.L.SetHook(func(L *lua.State, dbg *lua.Debug) {
		// A Go panic must not unwind through the interpreter's C frames.
		defer func() {
			if r := recover(); r != nil {
				slog.Error("sled_lua_hook_panic", "panic", r, "component", "luahost")
			}
		}()
		var event HookEvent
		switch dbg.Event {
		case lua.LUA_HOOKLINE:
			event = HookLine
		case lua.LUA_HOOKCALL:
			event = HookCall
		case lua.LUA_HOOKRET, lua.LUA_HOOKTAILRET:
			event = HookReturn
		}
		L.GetInfo("nSl", dbg)
		fn(event, ActivationRecord{CurrentLine: int32(dbg.CurrentLine), Source: dbg.Source, Name: dbg.Name, What: dbg.What})
	}, mask, 0)
}

func (s *State) ClearHook() { s.L.SetHook(nil, 0, 0) }

func (s *State) LoadString(chunk, chunkName string) error {
	return s.L.LoadString(chunk)
}

func (s *State) Call(nargs, nresults int) error {
	return s.L.Call(nargs, nresults)
}

func (s *State) PCall(nargs, nresults int) error {
	return s.L.Call(nargs, nresults)
}
