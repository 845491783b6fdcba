package luaplugin

import (
	"testing"

	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/stretchr/testify/require"
)

type capturingSender struct {
	sent []scmp.Message
}

func (c *capturingSender) SendPlugin(id scmp.PluginID, body scmp.Message) error {
	c.sent = append(c.sent, body)
	return nil
}

func newTestMemTracer(capacity int, sender *capturingSender) *memTracer {
	return newMemTracer(make([]scmp.MemoryTraceEntry, 0, capacity), sender, 1)
}

func TestMemTracerClassifiesEventKind(t *testing.T) {
	sender := &capturingSender{}
	m := newTestMemTracer(8, sender)

	m.record(0, 0x1000, 0, 64) // allocate
	m.record(0x1000, 0x2000, 64, 128) // realloc
	m.record(0x2000, 0, 128, 0) // free

	require.Len(t, m.entries, 3)
	require.Equal(t, memKindAllocate, m.entries[0].Kind)
	require.Equal(t, memKindRealloc, m.entries[1].Kind)
	require.Equal(t, memKindFree, m.entries[2].Kind)
}

func TestMemTracerAutoFlushesWhenFull(t *testing.T) {
	sender := &capturingSender{}
	m := newTestMemTracer(2, sender)

	m.record(0, 1, 0, 8)
	require.Empty(t, sender.sent)
	m.record(0, 2, 0, 8) // fills the 2-entry buffer, triggers a stream flush

	require.NotEmpty(t, sender.sent)
	require.Equal(t, scmp.TypeMemoryTraceStreamBegin, sender.sent[0].TypeCode())
	require.Equal(t, scmp.TypeMemoryTraceStreamEnd, sender.sent[len(sender.sent)-1].TypeCode())
	require.Empty(t, m.entries)
}

func TestMemTracerFlushBreakpointUsesBreakpointFraming(t *testing.T) {
	sender := &capturingSender{}
	m := newTestMemTracer(8, sender)
	m.record(0, 1, 0, 8)

	m.flushBreakpoint()

	require.Equal(t, scmp.TypeMemoryTraceBegin, sender.sent[0].TypeCode())
	require.Equal(t, scmp.TypeMemoryTrace, sender.sent[1].TypeCode())
	require.Equal(t, scmp.TypeMemoryTraceEnd, sender.sent[2].TypeCode())
	require.Empty(t, m.entries)
}
