package luaplugin

import (
	"errors"
	"testing"

	"github.com/sled-run/sleddbg/pkg/luahost"
	"github.com/stretchr/testify/require"
)

// fakeInterpreter is a minimal, non-cgo stand-in for luahost.Interpreter
// used to test plugin logic in isolation from a real Lua C state.
type fakeInterpreter struct {
	loadedChunks []string
	loadErr      error
	callErr      error
}

func (f *fakeInterpreter) Push()                     {}
func (f *fakeInterpreter) Pop(n int)                  {}
func (f *fakeInterpreter) Top() int                   { return 0 }
func (f *fakeInterpreter) SetTop(idx int)             {}
func (f *fakeInterpreter) Type(idx int) luahost.ValueType { return luahost.TypeNil }
func (f *fakeInterpreter) Remove(idx int)             {}

func (f *fakeInterpreter) ToNumber(idx int) float64 { return 0 }
func (f *fakeInterpreter) ToInteger(idx int) int64  { return 0 }
func (f *fakeInterpreter) ToString(idx int) string  { return "" }
func (f *fakeInterpreter) ToBoolean(idx int) bool   { return false }
func (f *fakeInterpreter) ToPointer(idx int) uintptr { return 0 }

func (f *fakeInterpreter) PushNumber(v float64) {}
func (f *fakeInterpreter) PushInteger(v int64)  {}
func (f *fakeInterpreter) PushString(v string)  {}
func (f *fakeInterpreter) PushBoolean(v bool)   {}
func (f *fakeInterpreter) PushNil()             {}

func (f *fakeInterpreter) NewTable()             {}
func (f *fakeInterpreter) RawGet(tableIdx int)   {}
func (f *fakeInterpreter) RawSet(tableIdx int)   {}
func (f *fakeInterpreter) GetTable(tableIdx int) {}
func (f *fakeInterpreter) SetTable(tableIdx int) {}
func (f *fakeInterpreter) GetGlobal(name string) {}
func (f *fakeInterpreter) SetGlobal(name string) {}
func (f *fakeInterpreter) Next(tableIdx int) bool { return false }

func (f *fakeInterpreter) GetStack(level int) (luahost.ActivationRecord, bool) {
	return luahost.ActivationRecord{}, false
}
func (f *fakeInterpreter) PushFunction(level int) bool { return false }
func (f *fakeInterpreter) GetLocal(ar luahost.ActivationRecord, level, n int) (string, bool) {
	return "", false
}
func (f *fakeInterpreter) SetLocal(ar luahost.ActivationRecord, level, n int) (string, bool) {
	return "", false
}
func (f *fakeInterpreter) GetUpvalue(funcIdx, n int) (string, bool) { return "", false }
func (f *fakeInterpreter) SetUpvalue(funcIdx, n int) (string, bool) { return "", false }
func (f *fakeInterpreter) GetFEnv(funcIdx int)                      {}
func (f *fakeInterpreter) SetFEnv(funcIdx int)                      {}

func (f *fakeInterpreter) SetHook(fn luahost.HookFunc, wantLine, wantCall, wantReturn bool) {}
func (f *fakeInterpreter) ClearHook()                                                       {}
func (f *fakeInterpreter) LoadString(chunk, chunkName string) error {
	f.loadedChunks = append(f.loadedChunks, chunk)
	return f.loadErr
}
func (f *fakeInterpreter) Call(nargs, nresults int) error  { return f.callErr }
func (f *fakeInterpreter) PCall(nargs, nresults int) error { return f.callErr }
func (f *fakeInterpreter) StackDepth() int                 { return 0 }

func newTestEditQueue(cfg Config, sender *capturingSender) *editQueue {
	return newEditQueue(cfg, make([]string, cfg.MaxEditAndContinues), make([]bool, cfg.MaxEditAndContinues), sender, 1)
}

func TestEditQueueAppliesLoadedChunksOnResume(t *testing.T) {
	var loaded []string
	var finished bool
	cfg := Config{
		MaxEditAndContinues:        4,
		MaxEditAndContinueEntryLen: 64,
		EditLoad: func(path string, userdata any) ([]byte, error) {
			loaded = append(loaded, path)
			return []byte("return 1"), nil
		},
		EditFinish: func(userdata any) { finished = true },
	}
	sender := &capturingSender{}
	q := newTestEditQueue(cfg, sender)
	require.NoError(t, q.enqueue("a.lua"))
	require.NoError(t, q.enqueue("b.lua"))

	L := &fakeInterpreter{}
	var ttyMsgs []string
	q.applyOnResume(L, func(text string) { ttyMsgs = append(ttyMsgs, text) })

	require.ElementsMatch(t, []string{"a.lua", "b.lua"}, loaded)
	require.True(t, finished)
	require.Empty(t, ttyMsgs)
	require.True(t, q.pending.IsEmpty())
}

func TestEditQueueReportsLoadErrorsOnTTYAndClearsQueue(t *testing.T) {
	cfg := Config{
		MaxEditAndContinues:        4,
		MaxEditAndContinueEntryLen: 64,
		EditLoad: func(path string, userdata any) ([]byte, error) {
			return nil, errors.New("not found")
		},
	}
	q := newTestEditQueue(cfg, &capturingSender{})
	require.NoError(t, q.enqueue("missing.lua"))

	var ttyMsgs []string
	q.applyOnResume(&fakeInterpreter{}, func(text string) { ttyMsgs = append(ttyMsgs, text) })

	require.Len(t, ttyMsgs, 1)
	require.True(t, q.pending.IsEmpty())
}

func TestEditQueueNoopWhenEmpty(t *testing.T) {
	q := newTestEditQueue(Config{MaxEditAndContinues: 4, MaxEditAndContinueEntryLen: 64}, &capturingSender{})
	q.applyOnResume(&fakeInterpreter{}, func(string) { t.Fatal("should not be called") })
}
