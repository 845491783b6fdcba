package luaplugin

import (
	"testing"

	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/stretchr/testify/require"
)

func TestBreakpointListAddFindRemove(t *testing.T) {
	bl := newBreakpointList(make([]Breakpoint, 0, 4))
	require.NoError(t, bl.add(Breakpoint{Path: "a/foo.lua", Line: 10}))

	bp, found := bl.find("A/Foo.lua", 10) // case/slash-insensitive, spec §4.4
	require.True(t, found)
	require.Equal(t, int32(10), bp.Line)

	require.True(t, bl.remove("a/foo.lua", 10))
	require.True(t, bl.isEmpty())
}

func TestBreakpointListRejectsOverCapacity(t *testing.T) {
	bl := newBreakpointList(make([]Breakpoint, 0, 1))
	require.NoError(t, bl.add(Breakpoint{Path: "a.lua", Line: 1}))
	require.Error(t, bl.add(Breakpoint{Path: "b.lua", Line: 2}))
}

func TestBreakpointListUpsertSamePathLine(t *testing.T) {
	bl := newBreakpointList(make([]Breakpoint, 0, 4))
	require.NoError(t, bl.add(Breakpoint{Path: "a.lua", Line: 1, Condition: "x > 1"}))
	require.NoError(t, bl.add(Breakpoint{Path: "a.lua", Line: 1, Condition: "x > 2"}))
	require.Len(t, bl.entries, 1)
	bp, _ := bl.find("a.lua", 1)
	require.Equal(t, "x > 2", bp.Condition)
}

func TestStepStateUnconditionalStop(t *testing.T) {
	ss := &stepState{mode: plugin.ModeStepInto}
	require.True(t, ss.shouldStopUnconditionally())

	ss = &stepState{mode: plugin.ModeStop}
	require.True(t, ss.shouldStopUnconditionally())

	ss = &stepState{mode: plugin.ModeNormal}
	require.False(t, ss.shouldStopUnconditionally())
}

func TestStepStateStepOverStopsAtSameOrShallowerDepth(t *testing.T) {
	ss := &stepState{mode: plugin.ModeStepOver, depthAtLastStop: 3}
	require.True(t, ss.shouldStopForStep(3))
	require.True(t, ss.shouldStopForStep(2))
	require.False(t, ss.shouldStopForStep(4))
}

func TestStepStateStepOutStopsOnlyShallower(t *testing.T) {
	ss := &stepState{mode: plugin.ModeStepOut, depthAtLastStop: 3}
	require.False(t, ss.shouldStopForStep(3))
	require.True(t, ss.shouldStopForStep(2))
}

func TestChopPathSkipsLeadingAtAndPrefix(t *testing.T) {
	cfg := Config{NumPathChopChars: 5}
	require.Equal(t, "bar.lua", chopPath(cfg, "@/tmp/bar.lua"))
}

func TestChopPathUsesHostCallback(t *testing.T) {
	cfg := Config{ChopPath: func(s string) string { return "CHOPPED:" + s }}
	require.Equal(t, "CHOPPED:foo.lua", chopPath(cfg, "@foo.lua"))
}
