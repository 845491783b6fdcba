// Package scmp implements the SLED Control Message Protocol: the envelope,
// the stable message-type catalog, and the path hash used to key
// breakpoints (spec §3, §4.4, §6.1, §6.3).
package scmp

// TypeCode is the wire-stable numeric message type (spec §6.3). Values are
// pinned to the source's numbering; never renumber an existing constant.
type TypeCode uint16

const (
	TypeBreakpointDetails  TypeCode = 1
	TypeBreakpointBegin    TypeCode = 2
	TypeBreakpointSync     TypeCode = 3
	TypeBreakpointEnd      TypeCode = 4
	TypeBreakpointContinue TypeCode = 5
	TypeDisconnect         TypeCode = 6
	TypeHeartbeat          TypeCode = 8
	TypeSuccess            TypeCode = 9
	TypeFailure            TypeCode = 10
	TypeVersion            TypeCode = 11
	TypeDebugStart         TypeCode = 12
	TypeDebugStepInto      TypeCode = 13
	TypeDebugStepOver      TypeCode = 14
	TypeDebugStepOut       TypeCode = 15
	TypeDebugStop          TypeCode = 16
	TypeScriptCache        TypeCode = 17
	TypeAuthenticated      TypeCode = 18
	TypeReady              TypeCode = 20
	TypePluginsReady       TypeCode = 21
	TypeFunctionInfo       TypeCode = 22
	TypeTTYBegin           TypeCode = 23
	TypeTTY                TypeCode = 24
	TypeTTYEnd             TypeCode = 25
	TypeDevCmd             TypeCode = 26
	TypeEditAndContinue    TypeCode = 27
	TypeEndianness         TypeCode = 28
	TypeProtocolDebugMark  TypeCode = 29

	// Lua plugin message codes (200+).
	TypeMemoryTraceBegin       TypeCode = 200
	TypeMemoryTrace            TypeCode = 201
	TypeMemoryTraceEnd         TypeCode = 202
	TypeMemoryTraceStreamBegin TypeCode = 203
	TypeMemoryTraceStream      TypeCode = 204
	TypeMemoryTraceStreamEnd   TypeCode = 205

	// TypeBreakpointSet is a Lua-plugin extension (the partial catalog of
	// spec §6.3 reserves 206 unassigned): the client's add/remove/update
	// of one breakpoint, sent at any time — most commonly during the
	// BreakpointSync phase of spec §4.6.
	TypeBreakpointSet TypeCode = 206

	TypeProfileInfoBegin   TypeCode = 207
	TypeProfileInfo        TypeCode = 208
	TypeProfileInfoEnd     TypeCode = 209
	TypeProfileInfoClear   TypeCode = 210
	TypeProfileInfoToggle  TypeCode = 211
	TypeProfileInfoSet     TypeCode = 212
	TypeProfileInfoSetAck  TypeCode = 213

	TypeVarFilterStateTypeBegin TypeCode = 214
	TypeVarFilterStateType      TypeCode = 215
	TypeVarFilterStateTypeEnd   TypeCode = 216
	TypeVarFilterNameBegin      TypeCode = 217
	TypeVarFilterName           TypeCode = 218
	TypeVarFilterNameEnd        TypeCode = 219

	TypeGlobalVarBegin TypeCode = 220
	TypeGlobalVar      TypeCode = 221
	TypeGlobalVarEnd   TypeCode = 222
	TypeGlobalVarSet   TypeCode = 223
	TypeGlobalVarSetAck TypeCode = 224

	TypeLocalVarBegin  TypeCode = 230
	TypeLocalVar       TypeCode = 231
	TypeLocalVarEnd    TypeCode = 232
	TypeLocalVarSet    TypeCode = 233
	TypeLocalVarSetAck TypeCode = 234

	TypeUpvalueVarBegin  TypeCode = 240
	TypeUpvalueVar       TypeCode = 241
	TypeUpvalueVarEnd    TypeCode = 242
	TypeUpvalueVarSet    TypeCode = 243
	TypeUpvalueVarSetAck TypeCode = 244

	TypeEnvVarBegin  TypeCode = 250
	TypeEnvVar       TypeCode = 251
	TypeEnvVarEnd    TypeCode = 252
	TypeEnvVarSet    TypeCode = 253
	TypeEnvVarSetAck TypeCode = 254

	TypeVarLookUp TypeCode = 255
	TypeVarUpdate TypeCode = 256

	TypeCallStackBegin  TypeCode = 260
	TypeCallStack       TypeCode = 261
	TypeCallStackEnd    TypeCode = 262
	TypeCallStackClear  TypeCode = 263
	TypeCallStackToggle TypeCode = 264
	TypeCallStackSet    TypeCode = 265
	TypeCallStackSetAck TypeCode = 266

	TypeWatchLookUpBegin TypeCode = 270
	TypeWatchLookUp      TypeCode = 271
	TypeWatchLookUpEnd   TypeCode = 272
	TypeWatchUpdateBegin TypeCode = 280
	TypeWatchUpdate      TypeCode = 281
	TypeWatchUpdateEnd   TypeCode = 282
	TypeWatchUpdateAck   TypeCode = 283

	TypeLuaStateBegin TypeCode = 290
	TypeLuaState      TypeCode = 291
	TypeLuaStateEnd   TypeCode = 292
	TypeLuaStateSet   TypeCode = 293
	TypeLuaStateSetAck TypeCode = 294

	TypeToggleDebug   TypeCode = 300
	TypeToggleProfile TypeCode = 301

	TypeLimits TypeCode = 310
)

// IsBreakpoint reports whether code falls in the breakpoint-phase range.
// TypeBreakpointDetails (1) is excluded: it is a one-shot detail dump, not
// one of the four phases a breakpoint loop cycles through.
func (t TypeCode) IsBreakpoint() bool {
	return t >= TypeBreakpointBegin && t <= TypeBreakpointEnd
}

// IsDebug reports whether code is one of the debug-mode-change messages.
func (t TypeCode) IsDebug() bool {
	return t >= TypeDebugStart && t <= TypeDebugStop
}

// IsReady reports whether code is the Ready handshake message.
func (t TypeCode) IsReady() bool { return t == TypeReady }

// PluginID addresses a message to the core (0) or a registered plugin.
type PluginID uint16

// CorePluginID is the reserved plugin id for the Debugger Core itself.
const CorePluginID PluginID = 0

// Base is the shared envelope prefix of every SCMP message (spec §3, §6.1).
// Length is the total byte count of the message including this field.
type Base struct {
	Length   int32
	Type     TypeCode
	PluginID PluginID
}

// BaseWireSize is the size in bytes of a packed Base: i32 + u16 + u16.
const BaseWireSize = 4 + 2 + 2
