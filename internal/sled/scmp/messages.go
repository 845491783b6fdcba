package scmp

import (
	"encoding/binary"
	"fmt"

	"github.com/sled-run/sleddbg/internal/sled/buffer"
)

// Message is satisfied by every wire message body in this package: the
// core-owned messages in this file and the Lua-plugin-owned types (code
// 200+) in messages_lua.go. The core never needs to understand the
// plugin-owned fields, only their envelope (spec §4.6.4: core dispatch only
// inspects Base for non-core plugin ids and forwards the raw payload).
type Message interface {
	TypeCode() TypeCode
	// Pack appends this message's fields (after the envelope, which the
	// caller writes first) to p.
	Pack(p *buffer.Packer) bool
}

// Envelope packs the Base prefix followed by body's fields, back-patching
// the length field with the true total size, and returns the fully framed
// bytes ready to send. The core sends its own messages with CorePluginID;
// a plugin sending through core.SendPlugin passes its own id, also for
// types from this file such as TTY and FunctionInfo.
func Envelope(order binary.ByteOrder, pluginID PluginID, body Message) ([]byte, error) {
	scratch := make([]byte, 0, 256)
	buf := buffer.New(scratch, cap(scratch))
	p := buffer.NewPacker(buf, order)

	// Reserve space for length, then write type/plugin/fields, then
	// back-patch length once the true size is known.
	if !p.PutI32(0) {
		return nil, fmt.Errorf("scmp: failed to reserve length field")
	}
	if !p.PutU16(uint16(body.TypeCode())) {
		return nil, fmt.Errorf("scmp: failed to pack type code")
	}
	if !p.PutU16(uint16(pluginID)) {
		return nil, fmt.Errorf("scmp: failed to pack plugin id")
	}
	if !body.Pack(p) {
		return nil, fmt.Errorf("scmp: failed to pack body for type %d", body.TypeCode())
	}

	out := append([]byte(nil), buf.Data()...)
	order.PutUint32(out[0:4], uint32(len(out)))
	return out, nil
}

// DecodeBase reads just the envelope prefix from data, which must contain
// at least BaseWireSize bytes.
func DecodeBase(data []byte, order binary.ByteOrder) Base {
	r := buffer.NewReader(data, order)
	length := r.GetI32()
	typeCode := TypeCode(r.GetU16())
	pluginID := PluginID(r.GetU16())
	return Base{Length: length, Type: typeCode, PluginID: pluginID}
}

// --- Core-owned message bodies (plugin id 0) ---

// Endianness signals the server's byte order to the client via the literal
// layout of this message (spec §9 open question: no explicit sentinel by
// default, mirroring the source; see config.WithEndiannessSentinel).
type Endianness struct {
	Sentinel    uint32 // only packed when the strict-mode sentinel is enabled
	useSentinel bool
}

func NewEndianness(useSentinel bool) Endianness {
	return Endianness{Sentinel: 0x01020304, useSentinel: useSentinel}
}

func (Endianness) TypeCode() TypeCode { return TypeEndianness }
func (e Endianness) Pack(p *buffer.Packer) bool {
	if !e.useSentinel {
		return true
	}
	return p.PutU32(e.Sentinel)
}

// Version carries the core library's semantic version.
type Version struct {
	Major, Minor, Revision uint16
}

func (Version) TypeCode() TypeCode { return TypeVersion }
func (v Version) Pack(p *buffer.Packer) bool {
	return p.PutU16(v.Major) && p.PutU16(v.Minor) && p.PutU16(v.Revision)
}

func UnpackVersion(r *buffer.Reader) Version {
	return Version{Major: r.GetU16(), Minor: r.GetU16(), Revision: r.GetU16()}
}

// Empty is used for every message that carries no fields beyond the
// envelope: Success, Failure, Authenticated, Ready, PluginsReady,
// Disconnect, Heartbeat, BreakpointBegin/Sync/End/Continue, DebugStart/
// StepInto/StepOver/StepOut/Stop, ProtocolDebugMark.
type Empty struct{ Code TypeCode }

func (e Empty) TypeCode() TypeCode        { return e.Code }
func (Empty) Pack(p *buffer.Packer) bool { return true }

// ScriptCache carries one relative script path, replayed once per cached
// entry at handshake (spec §6.2 step 5, scenario B).
type ScriptCache struct {
	RelativePath string
}

func (ScriptCache) TypeCode() TypeCode { return TypeScriptCache }
func (s ScriptCache) Pack(p *buffer.Packer) bool { return p.PutString(s.RelativePath) }

func UnpackScriptCache(r *buffer.Reader) ScriptCache {
	return ScriptCache{RelativePath: r.GetString()}
}

// EditAndContinue carries a relative path to reload on the next resume
// (spec §4.14, §6.3 type 27).
type EditAndContinue struct {
	RelativePath string
}

func (EditAndContinue) TypeCode() TypeCode { return TypeEditAndContinue }
func (e EditAndContinue) Pack(p *buffer.Packer) bool { return p.PutString(e.RelativePath) }

func UnpackEditAndContinue(r *buffer.Reader) EditAndContinue {
	return EditAndContinue{RelativePath: r.GetString()}
}

// TTY carries one line of text for the IDE's console pane.
type TTY struct {
	Text string
}

func (TTY) TypeCode() TypeCode        { return TypeTTY }
func (t TTY) Pack(p *buffer.Packer) bool { return p.PutString(t.Text) }

func UnpackTTY(r *buffer.Reader) TTY { return TTY{Text: r.GetString()} }

// DevCmd carries an opaque developer-command payload (spec's SPEC_FULL §3
// DevCmd passthrough), forwarded verbatim to a host-registered handler.
type DevCmd struct {
	Payload []byte
}

func (DevCmd) TypeCode() TypeCode { return TypeDevCmd }
func (d DevCmd) Pack(p *buffer.Packer) bool {
	if !p.PutU32(uint32(len(d.Payload))) {
		return false
	}
	for _, b := range d.Payload {
		if !p.PutU8(b) {
			return false
		}
	}
	return true
}

func UnpackDevCmd(r *buffer.Reader) DevCmd {
	n := int(r.GetU32())
	out := make([]byte, n)
	for i := range out {
		out[i] = r.GetU8()
	}
	return DevCmd{Payload: out}
}

// BreakpointDetails carries the parameters of a just-hit breakpoint,
// matching plugin.BreakpointParams (spec §4.7).
type BreakpointDetails struct {
	PluginIDThatHit uint16
	LineNumber      int32
	RelativeFile    string
}

func (BreakpointDetails) TypeCode() TypeCode { return TypeBreakpointDetails }
func (b BreakpointDetails) Pack(p *buffer.Packer) bool {
	return p.PutU16(b.PluginIDThatHit) && p.PutI32(b.LineNumber) && p.PutString(b.RelativeFile)
}

func UnpackBreakpointDetails(r *buffer.Reader) BreakpointDetails {
	return BreakpointDetails{
		PluginIDThatHit: r.GetU16(),
		LineNumber:      r.GetI32(),
		RelativeFile:    r.GetString(),
	}
}

// FunctionInfo answers an IDE lookup of a function's declared location
// (SPEC_FULL §3), keyed by the profiler's function-tag table.
type FunctionInfo struct {
	Tag         string
	ScriptPath  string
	DefinedLine int32
}

func (FunctionInfo) TypeCode() TypeCode { return TypeFunctionInfo }
func (f FunctionInfo) Pack(p *buffer.Packer) bool {
	return p.PutString(f.Tag) && p.PutString(f.ScriptPath) && p.PutI32(f.DefinedLine)
}

func UnpackFunctionInfo(r *buffer.Reader) FunctionInfo {
	return FunctionInfo{Tag: r.GetString(), ScriptPath: r.GetString(), DefinedLine: r.GetI32()}
}
