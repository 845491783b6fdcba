package scmp

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/sled-run/sleddbg/internal/sled/buffer"
	"github.com/stretchr/testify/require"
)

func TestHashInvariantToCaseAndSlash(t *testing.T) {
	h1 := Hash("scripts/x.lua", 10)
	h2 := Hash("SCRIPTS/X.LUA", 10)
	h3 := Hash(`scripts\x.lua`, 10)
	require.Equal(t, h1, h2)
	require.Equal(t, h1, h3)
}

func TestHashDoesNotImplyEquality(t *testing.T) {
	// Anagram paths have the same character sum, so their hashes collide
	// (collisions are legal); the path comparison must still tell them apart.
	h1 := Hash("scripts/xy.lua", 10)
	h2 := Hash("scripts/yx.lua", 10)
	require.Equal(t, h1, h2)
	require.False(t, PathEqual("scripts/xy.lua", "scripts/yx.lua"))
}

func TestPathEqualCaseAndSlashInsensitive(t *testing.T) {
	require.True(t, PathEqual("Scripts/X.lua", `scripts\x.LUA`))
	require.False(t, PathEqual("scripts/x.lua", "scripts/x2.lua"))
}

func TestHashWraparoundMatchesInt32Semantics(t *testing.T) {
	// 20,000,000 'z' bytes sum to 2,440,000,000, past int32 range; the sum
	// must wrap exactly like a C `int` would.
	path := strings.Repeat("z", 20_000_000)
	got := Hash(path, 0)
	var want int32
	for i := 0; i < len(path); i++ {
		want += int32('z')
	}
	require.Equal(t, want, got)
}

func TestEnvelopeRoundtripVersion(t *testing.T) {
	order := binary.LittleEndian
	wire, err := Envelope(order, CorePluginID, Version{Major: 1, Minor: 2, Revision: 3})
	require.NoError(t, err)

	base := DecodeBase(wire, order)
	require.Equal(t, TypeVersion, base.Type)
	require.Equal(t, CorePluginID, base.PluginID)
	require.EqualValues(t, len(wire), base.Length)

	r := buffer.NewReader(wire[BaseWireSize:], order)
	got := UnpackVersion(r)
	require.Equal(t, Version{Major: 1, Minor: 2, Revision: 3}, got)
}

func TestEnvelopeRoundtripScriptCache(t *testing.T) {
	order := binary.BigEndian
	wire, err := Envelope(order, CorePluginID, ScriptCache{RelativePath: "a/foo.lua"})
	require.NoError(t, err)
	base := DecodeBase(wire, order)
	require.Equal(t, TypeScriptCache, base.Type)
	r := buffer.NewReader(wire[BaseWireSize:], order)
	require.Equal(t, ScriptCache{RelativePath: "a/foo.lua"}, UnpackScriptCache(r))
}

func TestExtractMessagesHandlesArbitraryChunking(t *testing.T) {
	order := binary.LittleEndian
	m1, _ := Envelope(order, CorePluginID, Empty{Code: TypeHeartbeat})
	m2, _ := Envelope(order, CorePluginID, ScriptCache{RelativePath: "x.lua"})
	m3, _ := Envelope(order, CorePluginID, Version{Major: 9, Minor: 9, Revision: 9})

	full := append(append(append([]byte{}, m1...), m2...), m3...)

	// Try every possible chunk split point and make sure the accumulated
	// set of extracted messages matches, and no partial message is ever
	// returned.
	for split := 0; split <= len(full); split++ {
		var buf []byte
		var allMsgs [][]byte

		feed := func(chunk []byte) {
			buf = append(buf, chunk...)
			msgs, consumed, err := ExtractMessages(buf, order)
			require.NoError(t, err)
			allMsgs = append(allMsgs, msgs...)
			buf = buf[consumed:]
		}

		feed(full[:split])
		feed(full[split:])

		require.Len(t, allMsgs, 3)
		require.Equal(t, m1, allMsgs[0])
		require.Equal(t, m2, allMsgs[1])
		require.Equal(t, m3, allMsgs[2])
		require.Empty(t, buf)
	}
}

func TestExtractMessagesRejectsNegativeLength(t *testing.T) {
	order := binary.LittleEndian
	bad := make([]byte, BaseWireSize)
	order.PutUint32(bad[0:4], uint32(int32(-1)))
	_, _, err := ExtractMessages(bad, order)
	require.Error(t, err)
}

func TestIsBreakpointIsDebugIsReady(t *testing.T) {
	require.True(t, TypeBreakpointBegin.IsBreakpoint())
	require.False(t, TypeHeartbeat.IsBreakpoint())
	require.True(t, TypeDebugStepOver.IsDebug())
	require.False(t, TypeReady.IsDebug())
	require.True(t, TypeReady.IsReady())
}

func TestIsBreakpointExcludesBreakpointDetails(t *testing.T) {
	require.False(t, TypeBreakpointDetails.IsBreakpoint())
	require.True(t, TypeBreakpointEnd.IsBreakpoint())
}
