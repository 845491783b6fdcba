package luaplugin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/sled-run/sleddbg/pkg/luahost"
)

// varEngine implements spec §4.10: scoped enumeration, typed value
// encoding, and path lookup/mutation.
type varEngine struct {
	cfg      Config
	filters  *filterSet
	sender   plugin.Sender
	pluginID scmp.PluginID
}

func newVarEngine(cfg Config, filters *filterSet, sender plugin.Sender, pluginID scmp.PluginID) *varEngine {
	return &varEngine{cfg: cfg, filters: filters, sender: sender, pluginID: pluginID}
}

// encodeValue implements the "Typed value encoding" rules of spec §4.10
// for the value currently at idx.
func (e *varEngine) encodeValue(L luahost.Interpreter, idx int) (uint8, string) {
	t := L.Type(idx)
	switch t {
	case luahost.TypeNumber:
		n := L.ToNumber(idx)
		if n == float64(int64(n)) {
			return uint8(t), strconv.FormatInt(int64(n), 10)
		}
		return uint8(t), L.ToString(idx)
	case luahost.TypeString:
		return uint8(t), L.ToString(idx)
	case luahost.TypeBoolean:
		if L.ToBoolean(idx) {
			return uint8(t), "true"
		}
		return uint8(t), "false"
	case luahost.TypeFunction:
		return uint8(t), "Lua function"
	case luahost.TypeTable:
		return uint8(t), "<table>"
	case luahost.TypeNil:
		return uint8(t), "nil"
	default:
		return uint8(t), fmt.Sprintf("0x%x", L.ToPointer(idx))
	}
}

func encodeNameAt(L luahost.Interpreter, idx int) (uint8, string) {
	return uint8(L.Type(idx)), L.ToString(idx)
}

// enumerateGlobals iterates the globals table and emits a filtered
// GlobalVarBegin/*/End frame (spec §4.10).
func (e *varEngine) enumerateGlobals(L luahost.Interpreter) {
	e.send(scmp.Empty{Code: scmp.TypeGlobalVarBegin})
	L.GetGlobal("_G")
	tableIdx := L.Top()
	L.PushNil()
	for L.Next(tableIdx) {
		nameType, name := encodeNameAt(L, -2)
		if nameType == uint8(luahost.TypeString) {
			valueType, value := e.encodeValue(L, -1)
			if !e.filters.isFiltered(ScopeGlobal, name, luahost.ValueType(valueType)) {
				e.send(scmp.VarRecord{Code: scmp.TypeGlobalVar, Name: name, NameType: nameType, Value: value, ValueType: valueType})
			}
		}
		L.Pop(1)
	}
	L.Pop(1)
	e.send(scmp.Empty{Code: scmp.TypeGlobalVarEnd})
}

// enumerateLocals walks get_local(ar, i) until it fails, skipping
// compiler temporaries (spec §4.10).
func (e *varEngine) enumerateLocals(L luahost.Interpreter, ar luahost.ActivationRecord, level int) {
	e.send(scmp.Empty{Code: scmp.TypeLocalVarBegin})
	for i := 1; ; i++ {
		name, ok := L.GetLocal(ar, level, i)
		if !ok {
			break
		}
		if strings.HasPrefix(name, "(") {
			L.Pop(1)
			continue
		}
		valueType, value := e.encodeValue(L, -1)
		if !e.filters.isFiltered(ScopeLocal, name, luahost.ValueType(valueType)) {
			e.send(scmp.VarRecord{Code: scmp.TypeLocalVar, StackLevel: int32(level), Name: name, NameType: uint8(luahost.TypeString), Value: value, ValueType: valueType})
		}
		L.Pop(1)
	}
	e.send(scmp.Empty{Code: scmp.TypeLocalVarEnd})
}

// enumerateUpvalues walks get_upvalue(func, i) on the function at funcIdx
// (spec §4.10).
func (e *varEngine) enumerateUpvalues(L luahost.Interpreter, funcIdx int) {
	e.send(scmp.Empty{Code: scmp.TypeUpvalueVarBegin})
	for i := 1; ; i++ {
		name, ok := L.GetUpvalue(funcIdx, i)
		if !ok {
			break
		}
		if strings.HasPrefix(name, "(") {
			L.Pop(1)
			continue
		}
		valueType, value := e.encodeValue(L, -1)
		if !e.filters.isFiltered(ScopeUpvalue, name, luahost.ValueType(valueType)) {
			e.send(scmp.VarRecord{Code: scmp.TypeUpvalueVar, Index: int32(i), Name: name, NameType: uint8(luahost.TypeString), Value: value, ValueType: valueType})
		}
		L.Pop(1)
	}
	e.send(scmp.Empty{Code: scmp.TypeUpvalueVarEnd})
}

// enumerateEnv pushes the running function's environment — getfenv on Lua
// 5.1, the `_ENV` upvalue on 5.2 — and enumerates its string-keyed
// entries (spec §4.10).
func (e *varEngine) enumerateEnv(L luahost.Interpreter, funcIdx int, lua51 bool) {
	e.send(scmp.Empty{Code: scmp.TypeEnvVarBegin})
	if lua51 {
		L.GetFEnv(funcIdx)
	} else {
		found := false
		for i := 1; ; i++ {
			name, ok := L.GetUpvalue(funcIdx, i)
			if !ok {
				break
			}
			if name == "_ENV" {
				found = true
				break
			}
			L.Pop(1)
		}
		if !found {
			e.send(scmp.Empty{Code: scmp.TypeEnvVarEnd})
			return
		}
	}
	tableIdx := L.Top()
	L.PushNil()
	for L.Next(tableIdx) {
		nameType, name := encodeNameAt(L, -2)
		if nameType == uint8(luahost.TypeString) {
			valueType, value := e.encodeValue(L, -1)
			if !e.filters.isFiltered(ScopeEnv, name, luahost.ValueType(valueType)) {
				e.send(scmp.VarRecord{Code: scmp.TypeEnvVar, Name: name, NameType: nameType, Value: value, ValueType: valueType})
			}
		}
		L.Pop(1)
	}
	L.Pop(1)
	e.send(scmp.Empty{Code: scmp.TypeEnvVarEnd})
}

// lookup walks a VarLookUp's root and chain, using rawget unless the
// request marks custom-watch (spec §4.10: "gettable, which permits
// metamethods").
func (e *varEngine) lookup(L luahost.Interpreter, req scmp.VarLookUp, rootPusher func(scope uint8, root string) bool) {
	if !rootPusher(req.Scope, req.Root) {
		return
	}
	for _, step := range req.Chain {
		pushKey(L, step)
		if req.CustomWatch {
			L.GetTable(-2)
		} else {
			L.RawGet(-2)
		}
		L.Remove(-2)
	}

	valueType, value := e.encodeValue(L, -1)
	if L.Type(-1) == luahost.TypeTable && !req.Shallow {
		tableIdx := L.Top()
		L.PushNil()
		for L.Next(tableIdx) {
			childNameType, childName := encodeNameAt(L, -2)
			childValueType, childValue := e.encodeValue(L, -1)
			e.send(scmp.VarRecord{Code: scmp.TypeLocalVar, Name: childName, NameType: childNameType, Value: childValue, ValueType: childValueType})
			L.Pop(1)
		}
		L.Pop(1)
	} else {
		e.send(scmp.VarRecord{Code: scmp.TypeLocalVar, Name: req.Root, NameType: uint8(luahost.TypeString), Value: value, ValueType: valueType})
	}
	L.Pop(1)
}

// update walks to the parent table and rawset/settable's the terminal key
// (spec §4.10 "Mutation"). An empty Chain names the root itself — a bare
// global, local, or upvalue, with no table to walk into — and is handled
// by rootSetter's direct write instead (spec §4.10's bTable==false branch).
func (e *varEngine) update(L luahost.Interpreter, req scmp.VarUpdate, rootPusher func(scope uint8, root string) bool, rootSetter func(scope uint8, root string, newType uint8, newValue string) bool) error {
	if len(req.Chain) == 0 {
		if !rootSetter(req.Scope, req.Root, req.NewType, req.NewValue) {
			return fmt.Errorf("luaplugin: var update root %q not found", req.Root)
		}
		return nil
	}
	if !rootPusher(req.Scope, req.Root) {
		return fmt.Errorf("luaplugin: var update root %q not found", req.Root)
	}
	for _, step := range req.Chain[:len(req.Chain)-1] {
		pushKey(L, step)
		if req.CustomWatch {
			L.GetTable(-2)
		} else {
			L.RawGet(-2)
		}
		L.Remove(-2)
	}
	last := req.Chain[len(req.Chain)-1]
	pushKey(L, last)
	pushWireValue(L, req.NewType, req.NewValue)
	if req.CustomWatch {
		L.SetTable(-3)
	} else {
		L.RawSet(-3)
	}
	L.Pop(1)
	return nil
}

func pushKey(L luahost.Interpreter, step scmp.PathStep) {
	pushWireValue(L, step.KeyType, step.Key)
}

// pushWireValue constructs a value from a (type, string) wire pair —
// spec §4.10: "Only number, boolean, string are push-constructible."
func pushWireValue(L luahost.Interpreter, valueType uint8, raw string) {
	switch luahost.ValueType(valueType) {
	case luahost.TypeNumber:
		f, _ := strconv.ParseFloat(raw, 64)
		L.PushNumber(f)
	case luahost.TypeBoolean:
		L.PushBoolean(raw == "true")
	default:
		L.PushString(raw)
	}
}

func (e *varEngine) send(body scmp.Message) {
	_ = e.sender.SendPlugin(e.pluginID, body)
}
