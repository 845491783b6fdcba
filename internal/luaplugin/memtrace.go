package luaplugin

import (
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

const (
	memKindAllocate uint8 = 0
	memKindFree     uint8 = 1
	memKindRealloc  uint8 = 2
)

// memTracer buffers allocator events from the host's interpreter
// allocator into a fixed array, flushing via streamed or breakpoint-begin
// framing (spec §4.13).
type memTracer struct {
	entries  []scmp.MemoryTraceEntry
	sender   plugin.Sender
	pluginID scmp.PluginID
}

func newMemTracer(entries []scmp.MemoryTraceEntry, sender plugin.Sender, pluginID scmp.PluginID) *memTracer {
	return &memTracer{entries: entries[:0], sender: sender, pluginID: pluginID}
}

// record classifies and buffers one (old_ptr, new_ptr, old_size, new_size)
// event (spec §4.13): free iff new_size==0; realloc iff both pointers
// non-null; else allocate. A full buffer triggers an immediate streamed
// flush so no event is ever dropped.
func (m *memTracer) record(oldPtr, newPtr uint64, oldSize, newSize int32) {
	kind := memKindAllocate
	switch {
	case newSize == 0:
		kind = memKindFree
	case oldPtr != 0 && newPtr != 0:
		kind = memKindRealloc
	}
	m.entries = append(m.entries, scmp.MemoryTraceEntry{
		Code: scmp.TypeMemoryTraceStream, Kind: kind,
		OldPtr: oldPtr, NewPtr: newPtr, OldSize: oldSize, NewSize: newSize,
	})
	if len(m.entries) >= cap(m.entries) {
		m.flushStream()
	}
}

// flushStream empties the buffer as a MemoryTraceStreamBegin/N-items/End
// frame (spec §4.13, used when the buffer fills mid-run).
func (m *memTracer) flushStream() {
	if len(m.entries) == 0 {
		return
	}
	m.send(scmp.Empty{Code: scmp.TypeMemoryTraceStreamBegin})
	for _, e := range m.entries {
		m.send(e)
	}
	m.send(scmp.Empty{Code: scmp.TypeMemoryTraceStreamEnd})
	m.entries = m.entries[:0]
}

// flushBreakpoint empties the buffer as a MemoryTraceBegin/N-items/End
// frame (spec §4.13, used on breakpoint-begin).
func (m *memTracer) flushBreakpoint() {
	m.send(scmp.Empty{Code: scmp.TypeMemoryTraceBegin})
	for _, e := range m.entries {
		e.Code = scmp.TypeMemoryTrace
		m.send(e)
	}
	m.send(scmp.Empty{Code: scmp.TypeMemoryTraceEnd})
	m.entries = m.entries[:0]
}

func (m *memTracer) send(body scmp.Message) {
	_ = m.sender.SendPlugin(m.pluginID, body)
}
