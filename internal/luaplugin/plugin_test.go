package luaplugin

import (
	"encoding/binary"
	"testing"

	"github.com/sled-run/sleddbg/internal/sled/buffer"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	capturingSender
	breakpointHits []plugin.BreakpointParams
}

func (h *fakeHost) BreakpointReached(params plugin.BreakpointParams) error {
	h.breakpointHits = append(h.breakpointHits, params)
	return nil
}

func testPluginConfig() Config {
	return Config{
		MaxSendBufferSize:          4096,
		MaxLuaStates:               4,
		MaxLuaStateNameLen:         32,
		MaxMemTraces:               16,
		MaxBreakpoints:             16,
		MaxEditAndContinues:        4,
		MaxEditAndContinueEntryLen: 64,
		MaxNumVarFilters:           4,
		MaxVarFilterPatternLen:     32,
		MaxPatternsPerVarFilter:    4,
		MaxProfileFunctions:        16,
		MaxProfileCallStackDepth:   16,
	}
}

func newTestPlugin(id scmp.PluginID, name string, cfg Config, host Host, lua51 bool) (*Plugin, error) {
	size, err := RequiredMemory(cfg)
	if err != nil {
		return nil, err
	}
	return New(id, name, cfg, host, lua51, make([]byte, size))
}

func packBody(body scmp.Message) []byte {
	buf := buffer.New(make([]byte, 0, 256), 256)
	p := buffer.NewPacker(buf, binary.LittleEndian)
	require.True(nopT{}, body.Pack(p))
	return buf.Data()
}

// nopT satisfies require.TestingT without a *testing.T, for use inside a
// non-test helper.
type nopT struct{}

func (nopT) Errorf(format string, args ...interface{}) {}
func (nopT) FailNow()                                   {}

func TestPluginAddAndRemoveBreakpointViaWireMessage(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	payload := packBody(scmp.BreakpointSet{RelativePath: "a.lua", Line: 5, FiresWhenTrue: true})
	require.NoError(t, p.ClientMessage(scmp.TypeBreakpointSet, payload))
	_, found := p.breakpoints.find("a.lua", 5)
	require.True(t, found)

	removePayload := packBody(scmp.BreakpointSet{RelativePath: "a.lua", Line: 5, Remove: true})
	require.NoError(t, p.ClientMessage(scmp.TypeBreakpointSet, removePayload))
	_, found = p.breakpoints.find("a.lua", 5)
	require.False(t, found)
}

func TestPluginVarFilterMessagesPopulateFilterSet(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	payload := packBody(scmp.VarFilterName{Scope: byte(ScopeGlobal), Pattern: "_*"})
	require.NoError(t, p.ClientMessage(scmp.TypeVarFilterName, payload))
	require.Len(t, p.filters.patterns, 1)
}

func TestPluginDebugModeChangeReconcilesHooks(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	L := &fakeInterpreter{}
	id, err := p.RegisterState("main", L)
	require.NoError(t, err)

	p.ClientDebugModeChanged(plugin.ModeStepInto)
	require.Equal(t, plugin.ModeStepInto, p.step.mode)
	st, ok := p.reg.get(id)
	require.True(t, ok)
	require.True(t, st.lineHookInstalled)
}

func TestPluginEditAndContinueEnqueueViaWireMessage(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	payload := packBody(scmp.EditAndContinue{RelativePath: "hot.lua"})
	require.NoError(t, p.ClientMessage(scmp.TypeEditAndContinue, payload))
	require.False(t, p.edits.pending.IsEmpty())
}

func TestPluginFunctionInfoAnswersFromProfilerTags(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	p.prof.setRunning(true)
	p.prof.enter("onUpdate", "scripts/main.lua", 42)
	p.prof.leave()

	payload := packBody(scmp.FunctionInfo{Tag: "onUpdate"})
	require.NoError(t, p.ClientMessage(scmp.TypeFunctionInfo, payload))

	require.NotEmpty(t, host.sent)
	reply, ok := host.sent[len(host.sent)-1].(scmp.FunctionInfo)
	require.True(t, ok)
	require.Equal(t, "scripts/main.lua", reply.ScriptPath)
	require.Equal(t, int32(42), reply.DefinedLine)
}

func TestPluginFunctionInfoUnknownTagSendsNothing(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	payload := packBody(scmp.FunctionInfo{Tag: "neverCalled"})
	require.NoError(t, p.ClientMessage(scmp.TypeFunctionInfo, payload))
	require.Empty(t, host.sent)
}

func TestPluginTTYfFormatsAndSends(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(1, "lua", testPluginConfig(), host, true)
	require.NoError(t, err)

	require.NoError(t, p.TTYf("hit %d breakpoints", 3))
	require.Len(t, host.sent, 1)
	tty, ok := host.sent[0].(scmp.TTY)
	require.True(t, ok)
	require.Equal(t, "hit 3 breakpoints", tty.Text)
}

func TestPluginIdentity(t *testing.T) {
	host := &fakeHost{}
	p, err := newTestPlugin(7, "lua-5.1", testPluginConfig(), host, true)
	require.NoError(t, err)
	require.Equal(t, scmp.PluginID(7), p.ID())
	require.Equal(t, "lua-5.1", p.Name())
	major, minor, rev := p.Version()
	require.Equal(t, uint16(1), major)
	require.Equal(t, uint16(0), minor)
	require.Equal(t, uint16(0), rev)
}
