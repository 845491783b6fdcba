package scmp

import "github.com/sled-run/sleddbg/internal/sled/buffer"

// Lua-plugin (codes 200+) message payloads, spec §4.10-§4.14, §6.3.

// VarRecord is the shared shape of GlobalVar/LocalVar/UpvalueVar/EnvVar:
// a typed name and a typed leaf-or-marker value (spec §4.10 "Typed value
// encoding").
type VarRecord struct {
	Code       TypeCode
	StackLevel int32 // meaningful for LocalVar only
	Index      int32 // meaningful for UpvalueVar only
	Name       string
	NameType   uint8
	Value      string
	ValueType  uint8
}

func (v VarRecord) TypeCode() TypeCode { return v.Code }

func (v VarRecord) Pack(p *buffer.Packer) bool {
	if v.Code == TypeLocalVar {
		if !p.PutI32(v.StackLevel) {
			return false
		}
	}
	if v.Code == TypeUpvalueVar {
		if !p.PutI32(v.Index) {
			return false
		}
	}
	return p.PutString(v.Name) && p.PutU8(v.NameType) && p.PutString(v.Value) && p.PutU8(v.ValueType)
}

func UnpackVarRecord(code TypeCode, r *buffer.Reader) VarRecord {
	v := VarRecord{Code: code}
	if code == TypeLocalVar {
		v.StackLevel = r.GetI32()
	}
	if code == TypeUpvalueVar {
		v.Index = r.GetI32()
	}
	v.Name = r.GetString()
	v.NameType = r.GetU8()
	v.Value = r.GetString()
	v.ValueType = r.GetU8()
	return v
}

// PathStep is one (key, key_type) hop of a VarLookUp/VarUpdate chain.
type PathStep struct {
	KeyType uint8
	Key     string
}

// VarLookUp is a client request to walk a variable path (spec §4.10).
type VarLookUp struct {
	Scope       uint8 // 'g','l','u','e'
	Root        string
	RootType    uint8
	Chain       []PathStep
	Shallow     bool
	CustomWatch bool
}

func (VarLookUp) TypeCode() TypeCode { return TypeVarLookUp }

func (v VarLookUp) Pack(p *buffer.Packer) bool {
	if !p.PutU8(v.Scope) || !p.PutString(v.Root) || !p.PutU8(v.RootType) {
		return false
	}
	if !p.PutU16(uint16(len(v.Chain))) {
		return false
	}
	for _, step := range v.Chain {
		if !p.PutU8(step.KeyType) || !p.PutString(step.Key) {
			return false
		}
	}
	return p.PutU8(boolToU8(v.Shallow)) && p.PutU8(boolToU8(v.CustomWatch))
}

func UnpackVarLookUp(r *buffer.Reader) VarLookUp {
	v := VarLookUp{}
	v.Scope = r.GetU8()
	v.Root = r.GetString()
	v.RootType = r.GetU8()
	n := r.GetU16()
	v.Chain = make([]PathStep, n)
	for i := range v.Chain {
		v.Chain[i] = PathStep{KeyType: r.GetU8(), Key: r.GetString()}
	}
	v.Shallow = r.GetU8() != 0
	v.CustomWatch = r.GetU8() != 0
	return v
}

// VarUpdate is a client request to mutate a variable path.
type VarUpdate struct {
	Scope       uint8
	Root        string
	RootType    uint8
	Chain       []PathStep
	NewValue    string
	NewType     uint8
	CustomWatch bool
}

func (VarUpdate) TypeCode() TypeCode { return TypeVarUpdate }

func (v VarUpdate) Pack(p *buffer.Packer) bool {
	if !p.PutU8(v.Scope) || !p.PutString(v.Root) || !p.PutU8(v.RootType) {
		return false
	}
	if !p.PutU16(uint16(len(v.Chain))) {
		return false
	}
	for _, step := range v.Chain {
		if !p.PutU8(step.KeyType) || !p.PutString(step.Key) {
			return false
		}
	}
	return p.PutString(v.NewValue) && p.PutU8(v.NewType) && p.PutU8(boolToU8(v.CustomWatch))
}

func UnpackVarUpdate(r *buffer.Reader) VarUpdate {
	v := VarUpdate{}
	v.Scope = r.GetU8()
	v.Root = r.GetString()
	v.RootType = r.GetU8()
	n := r.GetU16()
	v.Chain = make([]PathStep, n)
	for i := range v.Chain {
		v.Chain[i] = PathStep{KeyType: r.GetU8(), Key: r.GetString()}
	}
	v.NewValue = r.GetString()
	v.NewType = r.GetU8()
	v.CustomWatch = r.GetU8() != 0
	return v
}

// CallStack is one profiler call-stack frame record (spec §4.12).
type CallStack struct {
	Tag       string
	File      string
	Line      int32
	Calls     int32
	Inclusive float64
	Exclusive float64
	Avg       float64
	Min       float64
	Max       float64
}

func (CallStack) TypeCode() TypeCode { return TypeCallStack }

func (c CallStack) Pack(p *buffer.Packer) bool {
	return p.PutString(c.Tag) && p.PutString(c.File) && p.PutI32(c.Line) && p.PutI32(c.Calls) &&
		p.PutF64(c.Inclusive) && p.PutF64(c.Exclusive) && p.PutF64(c.Avg) && p.PutF64(c.Min) && p.PutF64(c.Max)
}

func UnpackCallStack(r *buffer.Reader) CallStack {
	return CallStack{
		Tag:       r.GetString(),
		File:      r.GetString(),
		Line:      r.GetI32(),
		Calls:     r.GetI32(),
		Inclusive: r.GetF64(),
		Exclusive: r.GetF64(),
		Avg:       r.GetF64(),
		Min:       r.GetF64(),
		Max:       r.GetF64(),
	}
}

// MemoryTraceEntry is one allocator event (spec §4.13).
type MemoryTraceEntry struct {
	Code     TypeCode // TypeMemoryTrace or TypeMemoryTraceStream
	Kind     uint8    // 0=allocate 1=free 2=realloc
	OldPtr   uint64
	NewPtr   uint64
	OldSize  int32
	NewSize  int32
}

func (m MemoryTraceEntry) TypeCode() TypeCode { return m.Code }

func (m MemoryTraceEntry) Pack(p *buffer.Packer) bool {
	return p.PutU8(m.Kind) && p.PutU64(m.OldPtr) && p.PutU64(m.NewPtr) && p.PutI32(m.OldSize) && p.PutI32(m.NewSize)
}

func UnpackMemoryTraceEntry(code TypeCode, r *buffer.Reader) MemoryTraceEntry {
	return MemoryTraceEntry{
		Code:    code,
		Kind:    r.GetU8(),
		OldPtr:  r.GetU64(),
		NewPtr:  r.GetU64(),
		OldSize: r.GetI32(),
		NewSize: r.GetI32(),
	}
}

// VarFilterStateType carries the 9-bit interpreter-type exclusion mask
// (spec §4.11).
type VarFilterStateType struct {
	Scope    uint8
	TypeMask uint16
}

func (VarFilterStateType) TypeCode() TypeCode { return TypeVarFilterStateType }

func (f VarFilterStateType) Pack(p *buffer.Packer) bool {
	return p.PutU8(f.Scope) && p.PutU16(f.TypeMask)
}

func UnpackVarFilterStateType(r *buffer.Reader) VarFilterStateType {
	return VarFilterStateType{Scope: r.GetU8(), TypeMask: r.GetU16()}
}

// VarFilterName carries one name-pattern filter (spec §4.11).
type VarFilterName struct {
	Scope   uint8
	Pattern string
}

func (VarFilterName) TypeCode() TypeCode { return TypeVarFilterName }

func (f VarFilterName) Pack(p *buffer.Packer) bool {
	return p.PutU8(f.Scope) && p.PutString(f.Pattern)
}

func UnpackVarFilterName(r *buffer.Reader) VarFilterName {
	return VarFilterName{Scope: r.GetU8(), Pattern: r.GetString()}
}

// LuaStateInfo describes one registered interpreter state (spec §4.8).
type LuaStateInfo struct {
	ID   int32
	Name string
}

func (LuaStateInfo) TypeCode() TypeCode { return TypeLuaState }

func (s LuaStateInfo) Pack(p *buffer.Packer) bool {
	return p.PutI32(s.ID) && p.PutString(s.Name)
}

func UnpackLuaStateInfo(r *buffer.Reader) LuaStateInfo {
	return LuaStateInfo{ID: r.GetI32(), Name: r.GetString()}
}

// BreakpointSet is the client's add/remove/update of one Lua breakpoint
// (spec §6.3's partial catalog reserves code 206 for this extension).
type BreakpointSet struct {
	RelativePath  string
	Line          int32
	Condition     string
	FiresWhenTrue bool
	Remove        bool
}

func (BreakpointSet) TypeCode() TypeCode { return TypeBreakpointSet }

func (b BreakpointSet) Pack(p *buffer.Packer) bool {
	return p.PutString(b.RelativePath) && p.PutI32(b.Line) && p.PutString(b.Condition) &&
		p.PutU8(boolToU8(b.FiresWhenTrue)) && p.PutU8(boolToU8(b.Remove))
}

func UnpackBreakpointSet(r *buffer.Reader) BreakpointSet {
	return BreakpointSet{
		RelativePath:  r.GetString(),
		Line:          r.GetI32(),
		Condition:     r.GetString(),
		FiresWhenTrue: r.GetU8() != 0,
		Remove:        r.GetU8() != 0,
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
