package luaplugin

import (
	"fmt"

	"github.com/sled-run/sleddbg/internal/sled/alloc"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

// ChopCallback trims a script path for display/hashing (spec §4.9: "trim a
// configurable prefix length or dispatch through a host callback").
type ChopCallback func(path string) string

// EditLoadCallback fetches the replacement bytecode/source for a path
// queued by EditAndContinue (spec §4.14).
type EditLoadCallback func(relativePath string, userdata any) ([]byte, error)

// EditFinishCallback runs once after all queued edits for a resume have
// been applied.
type EditFinishCallback func(userdata any)

// Config is the Lua plugin's construction-time configuration (spec §6.5
// LuaPluginConfig).
type Config struct {
	MaxSendBufferSize          int
	MaxLuaStates               int
	MaxLuaStateNameLen         int
	MaxMemTraces               int
	MaxBreakpoints             int
	MaxEditAndContinues        int
	MaxEditAndContinueEntryLen int
	MaxNumVarFilters           int
	MaxVarFilterPatternLen     int
	MaxPatternsPerVarFilter    int
	MaxProfileFunctions        int
	MaxProfileCallStackDepth   int
	NumPathChopChars           int
	MaxWorkBufferSize          int

	EvaluateInFunctionEnv bool

	ChopPath      ChopCallback
	EditLoad      EditLoadCallback
	EditFinish    EditFinishCallback
	EditUserdata  any
}

// Validate checks the minimums spec §6.5 implies are load-bearing.
func (c Config) Validate() error {
	if c.MaxLuaStates <= 0 {
		return fmt.Errorf("luaplugin: max_lua_states must be positive")
	}
	if c.MaxSendBufferSize < 1024 {
		return fmt.Errorf("luaplugin: max_send_buffer_size must be >= 1024")
	}
	if c.MaxProfileCallStackDepth <= 0 {
		return fmt.Errorf("luaplugin: max_profile_call_stack_depth must be positive")
	}
	return nil
}

// layout mirrors the exact allocation sequence New() performs, so that
// RequiredMemory(cfg) and the real construction path stay provably in sync
// (spec §8 "Size determinism"), following core/config.go's own pattern.
func layout(cfg Config, a alloc.Allocator) error {
	if err := alloc.SizeSlice[registeredState](a, cfg.MaxLuaStates); err != nil {
		return err
	}
	if err := alloc.SizeSlice[bool](a, cfg.MaxLuaStates); err != nil {
		return err
	}
	if err := alloc.SizeSlice[Breakpoint](a, cfg.MaxBreakpoints); err != nil {
		return err
	}
	if err := alloc.SizeSlice[namePattern](a, cfg.MaxNumVarFilters); err != nil {
		return err
	}
	if err := alloc.SizeSlice[profileFunc](a, cfg.MaxProfileFunctions); err != nil {
		return err
	}
	if err := alloc.SizeSlice[callFrame](a, cfg.MaxProfileCallStackDepth); err != nil {
		return err
	}
	if err := alloc.SizeSlice[scmp.MemoryTraceEntry](a, cfg.MaxMemTraces); err != nil {
		return err
	}
	if err := alloc.SizeSlice[string](a, cfg.MaxEditAndContinues); err != nil {
		return err
	}
	if err := alloc.SizeSlice[bool](a, cfg.MaxEditAndContinues); err != nil {
		return err
	}
	return nil
}

// RequiredMemory returns the number of bytes New(id, name, cfg, host, lua51,
// buf) will consume from buf, computed by replaying layout against a sizing
// allocator (spec §4.1).
func RequiredMemory(cfg Config) (uintptr, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	return alloc.RequiredMemory(func(a alloc.Allocator) error { return layout(cfg, a) })
}
