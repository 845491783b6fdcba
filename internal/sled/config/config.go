// Package config provides YAML host configuration for sleddbg, mirroring
// the teacher's internal/config package: a struct decoded via
// gopkg.in/yaml.v3 with a custom UnmarshalYAML that seeds defaults before
// decoding. It has no validation of its own; core.New and luaplugin.New
// check the projected configs.
package config

import (
	"fmt"
	"os"

	"github.com/sled-run/sleddbg/internal/sled/core"
	"gopkg.in/yaml.v3"
)

// NetworkConfig is the YAML-facing shape of core.NetworkParams.
type NetworkConfig struct {
	Port              int  `yaml:"port"`
	BlockUntilConnect bool `yaml:"block_until_connect"`
}

// DebuggerConfig is spec §6.5's SledDebuggerConfig, YAML-tagged.
type DebuggerConfig struct {
	MaxPlugins             int           `yaml:"max_plugins"`
	MaxScriptCacheEntries  int           `yaml:"max_script_cache_entries"`
	MaxScriptCacheEntryLen int           `yaml:"max_script_cache_entry_len"`
	MaxRecvBufferSize      int           `yaml:"max_recv_buffer_size"`
	MaxSendBufferSize      int           `yaml:"max_send_buffer_size"`
	Network                NetworkConfig `yaml:"network"`
	WithEndiannessSentinel bool          `yaml:"with_endianness_sentinel,omitempty"`
}

// LuaPluginConfig is spec §6.5's LuaPluginConfig, YAML-tagged.
type LuaPluginConfig struct {
	MaxSendBufferSize         int `yaml:"max_send_buffer_size"`
	MaxLuaStates              int `yaml:"max_lua_states"`
	MaxLuaStateNameLen        int `yaml:"max_lua_state_name_len"`
	MaxMemTraces              int `yaml:"max_mem_traces"`
	MaxBreakpoints            int `yaml:"max_breakpoints"`
	MaxEditAndContinues       int `yaml:"max_edit_and_continues"`
	MaxEditAndContinueEntryLen int `yaml:"max_edit_and_continue_entry_len"`
	MaxNumVarFilters          int `yaml:"max_num_var_filters"`
	MaxVarFilterPatternLen    int `yaml:"max_var_filter_pattern_len"`
	MaxPatternsPerVarFilter   int `yaml:"max_patterns_per_var_filter"`
	MaxProfileFunctions       int `yaml:"max_profile_functions"`
	MaxProfileCallStackDepth  int `yaml:"max_profile_call_stack_depth"`
	NumPathChopChars          int `yaml:"num_path_chop_chars"`
	MaxWorkBufferSize         int `yaml:"max_work_buffer_size"`
}

// Config is the top-level host file, combining the debugger core config
// with the Lua plugin config under distinct keys so a host ships one
// sled-debugger.yaml.
type Config struct {
	Debugger   DebuggerConfig  `yaml:"debugger"`
	LuaPlugin  LuaPluginConfig `yaml:"lua_plugin"`
	ScriptsDir string          `yaml:"scripts_dir,omitempty"`
}

// UnmarshalYAML seeds defaults before decoding, the same rawConfig-alias
// trick the teacher's config.go uses, so any Config decoded from YAML has
// every field the document omits set to its default. A Config built as a
// Go literal gets no defaults.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	type rawConfig Config
	raw := rawConfig{
		Debugger: DebuggerConfig{
			MaxPlugins:             1,
			MaxScriptCacheEntries:  64,
			MaxScriptCacheEntryLen: 256,
			MaxRecvBufferSize:      1 << 16,
			MaxSendBufferSize:      1 << 16,
			Network:                NetworkConfig{Port: 18171, BlockUntilConnect: true},
		},
		LuaPlugin: LuaPluginConfig{
			MaxSendBufferSize:         1 << 15,
			MaxLuaStates:              8,
			MaxLuaStateNameLen:        64,
			MaxMemTraces:              256,
			MaxBreakpoints:            128,
			MaxEditAndContinues:       16,
			MaxEditAndContinueEntryLen: 256,
			MaxNumVarFilters:          16,
			MaxVarFilterPatternLen:    64,
			MaxPatternsPerVarFilter:   8,
			MaxProfileFunctions:       512,
			MaxProfileCallStackDepth:  256,
			NumPathChopChars:          0,
			MaxWorkBufferSize:         1 << 14,
		},
		ScriptsDir: "./scripts",
	}

	if err := value.Decode(&raw); err != nil {
		return err
	}
	*c = Config(raw)
	return nil
}

// ToCoreConfig converts the YAML-facing debugger section into core.Config.
func (c Config) ToCoreConfig() core.Config {
	return core.Config{
		MaxPlugins:             c.Debugger.MaxPlugins,
		MaxScriptCacheEntries:  c.Debugger.MaxScriptCacheEntries,
		MaxScriptCacheEntryLen: c.Debugger.MaxScriptCacheEntryLen,
		MaxRecvBufferSize:      c.Debugger.MaxRecvBufferSize,
		MaxSendBufferSize:      c.Debugger.MaxSendBufferSize,
		WithEndiannessSentinel: c.Debugger.WithEndiannessSentinel,
		Network: core.NetworkParams{
			Protocol:          core.ProtocolTCP,
			Port:              c.Debugger.Network.Port,
			BlockUntilConnect: c.Debugger.Network.BlockUntilConnect,
		},
	}
}

// Load reads and decodes a YAML config file from path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return &cfg, nil
}
