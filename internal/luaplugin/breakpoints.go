package luaplugin

import (
	"fmt"
	"strings"

	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

// Breakpoint is one entry in the fixed-capacity breakpoint list (spec §4.9).
type Breakpoint struct {
	Path          string
	Hash          int32
	Line          int32
	Condition     string
	FiresWhenTrue bool
}

// breakpointList is a fixed-capacity slice keyed by (hash, line,
// path-equality) lookup (spec §4.4, §4.9). entries is typically carved
// from an alloc.Arena (spec §9); add/remove never grow it past cap.
type breakpointList struct {
	entries []Breakpoint
}

func newBreakpointList(entries []Breakpoint) *breakpointList {
	return &breakpointList{entries: entries[:0]}
}

func (bl *breakpointList) add(bp Breakpoint) error {
	if len(bl.entries) >= cap(bl.entries) {
		return fmt.Errorf("luaplugin: breakpoint list full (cap %d)", cap(bl.entries))
	}
	bp.Hash = scmp.Hash(bp.Path, bp.Line)
	for i, existing := range bl.entries {
		if existing.Hash == bp.Hash && existing.Line == bp.Line && scmp.PathEqual(existing.Path, bp.Path) {
			bl.entries[i] = bp
			return nil
		}
	}
	bl.entries = append(bl.entries, bp)
	return nil
}

func (bl *breakpointList) remove(path string, line int32) bool {
	hash := scmp.Hash(path, line)
	for i, bp := range bl.entries {
		if bp.Hash == hash && bp.Line == line && scmp.PathEqual(bp.Path, path) {
			bl.entries = append(bl.entries[:i], bl.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (bl *breakpointList) clear() { bl.entries = bl.entries[:0] }

func (bl *breakpointList) find(path string, line int32) (Breakpoint, bool) {
	hash := scmp.Hash(path, line)
	for _, bp := range bl.entries {
		if bp.Hash == hash && bp.Line == line && scmp.PathEqual(bp.Path, path) {
			return bp, true
		}
	}
	return Breakpoint{}, false
}

func (bl *breakpointList) isEmpty() bool { return len(bl.entries) == 0 }

// stepState tracks the stepping engine's notion of "stop relative to this
// depth" across line hooks (spec §4.9).
type stepState struct {
	mode            plugin.DebugMode
	depthAtLastStop int
}

// chopPath applies the configurable prefix trim / host callback and skips
// a leading '@' source marker (spec §4.9).
func chopPath(cfg Config, source string) string {
	s := strings.TrimPrefix(source, "@")
	if cfg.ChopPath != nil {
		return cfg.ChopPath(s)
	}
	if cfg.NumPathChopChars > 0 && len(s) > cfg.NumPathChopChars {
		return s[cfg.NumPathChopChars:]
	}
	return s
}

// shouldStopUnconditionally and shouldStopForStep implement the per-line
// decision tree of spec §4.9, except for the breakpoint-condition
// evaluation itself (evaluateCondition).
func (ss *stepState) shouldStopUnconditionally() bool {
	return ss.mode == plugin.ModeStepInto || ss.mode == plugin.ModeStop
}

func (ss *stepState) shouldStopForStep(currentDepth int) bool {
	switch ss.mode {
	case plugin.ModeStepOver:
		return currentDepth <= ss.depthAtLastStop
	case plugin.ModeStepOut:
		return currentDepth < ss.depthAtLastStop
	default:
		return false
	}
}

// evaluateCondition implements spec §4.9's synthesized-function technique:
// build `function libsledluaplugin:bp_func(<locals>, <upvalues>) return
// (<condition>) end` — Lua method-call sugar for a function stored at
// libsledluaplugin.bp_func with an implicit leading self parameter — load
// it, bind its environment, and call it as a method (self pushed first)
// with the captured values. Returns whether the condition's boolean result
// equals the breakpoint's FiresWhenTrue.
func evaluateCondition(L luahost.Interpreter, ar luahost.ActivationRecord, level int, bp Breakpoint, evaluateInFunctionEnv bool) (bool, error) {
	if bp.Condition == "" {
		return true, nil
	}

	locals, localNames := captureNonTemp(L, ar, level, true)
	upvalues, upvalNames := captureNonTemp(L, ar, level, false)

	params := append(append([]string{}, localNames...), upvalNames...)
	src := fmt.Sprintf("function libsledluaplugin:bp_func(%s) return (%s) end",
		strings.Join(params, ", "), bp.Condition)

	top := L.Top()
	if err := L.LoadString(src, "=bp_condition"); err != nil {
		L.SetTop(top)
		return false, fmt.Errorf("luaplugin: condition compile failed: %w", err)
	}
	if err := L.Call(0, 0); err != nil {
		L.SetTop(top)
		return false, fmt.Errorf("luaplugin: condition definition failed: %w", err)
	}

	// Fetch libsledluaplugin.bp_func without going through a global lookup
	// (the function lives on the table, not as a global itself).
	L.GetGlobal(libsledluapluginGlobal)
	L.PushString("bp_func")
	L.RawGet(-2)
	L.Remove(-2) // stack: [func]

	if evaluateInFunctionEnv {
		L.GetFEnv(-2)
	} else {
		L.GetGlobal("_G")
	}
	L.SetFEnv(-2)

	L.GetGlobal(libsledluapluginGlobal) // self, stack: [func, self]
	for _, v := range locals {
		pushValue(L, v)
	}
	for _, v := range upvalues {
		pushValue(L, v)
	}
	if err := L.Call(1+len(locals)+len(upvalues), 1); err != nil {
		L.SetTop(top)
		return false, fmt.Errorf("luaplugin: condition evaluation failed: %w", err)
	}
	result := L.ToBoolean(-1)
	L.SetTop(top)

	return result == bp.FiresWhenTrue, nil
}

// capturedValue is a (type, raw-stack-index-free) snapshot of a local or
// upvalue captured before the stack is unwound to load the condition
// chunk, since Lua's loadstring invalidates stack offsets.
type capturedValue struct {
	typ    luahost.ValueType
	number float64
	str    string
	boo    bool
}

func pushValue(L luahost.Interpreter, v capturedValue) {
	switch v.typ {
	case luahost.TypeNumber:
		L.PushNumber(v.number)
	case luahost.TypeString:
		L.PushString(v.str)
	case luahost.TypeBoolean:
		L.PushBoolean(v.boo)
	default:
		L.PushNil()
	}
}

// captureNonTemp walks locals (local=true) or upvalues (local=false),
// skipping names that start with "(" (compiler temporaries, spec §4.9),
// and snapshots each as a capturedValue plus its name.
func captureNonTemp(L luahost.Interpreter, ar luahost.ActivationRecord, level int, local bool) ([]capturedValue, []string) {
	var values []capturedValue
	var names []string
	if !local {
		// Upvalues are read off the running function, pushed at -1.
		if !L.PushFunction(level) {
			return nil, nil
		}
		defer L.Pop(1)
	}
	for i := 1; ; i++ {
		var name string
		var ok bool
		if local {
			name, ok = L.GetLocal(ar, level, i)
		} else {
			name, ok = L.GetUpvalue(-1, i)
		}
		if !ok {
			break
		}
		if strings.HasPrefix(name, "(") {
			L.Pop(1)
			continue
		}
		values = append(values, snapshotTop(L))
		names = append(names, name)
		L.Pop(1)
	}
	return values, names
}

func snapshotTop(L luahost.Interpreter) capturedValue {
	switch L.Type(-1) {
	case luahost.TypeNumber:
		return capturedValue{typ: luahost.TypeNumber, number: L.ToNumber(-1)}
	case luahost.TypeString:
		return capturedValue{typ: luahost.TypeString, str: L.ToString(-1)}
	case luahost.TypeBoolean:
		return capturedValue{typ: luahost.TypeBoolean, boo: L.ToBoolean(-1)}
	default:
		return capturedValue{typ: luahost.TypeNil}
	}
}
