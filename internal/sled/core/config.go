package core

import (
	"fmt"

	"github.com/sled-run/sleddbg/internal/sled/alloc"
)

// Protocol enumerates transport protocol variants. TCP is the only one
// today (spec §4.5).
type Protocol int

const (
	ProtocolTCP Protocol = iota
)

// NetworkParams configures the transport (spec §6.5).
type NetworkParams struct {
	Protocol          Protocol
	Port              int
	BlockUntilConnect bool
}

// Config is SledDebuggerConfig from spec §6.5.
type Config struct {
	MaxPlugins             int
	MaxScriptCacheEntries  int
	MaxScriptCacheEntryLen int
	MaxRecvBufferSize      int
	MaxSendBufferSize      int
	Network                NetworkParams

	// WithEndiannessSentinel opts into an explicit u32 sentinel on the
	// Endianness handshake message (spec §9 open question). Defaults to
	// false to mirror the source's literal-layout-only behavior.
	WithEndiannessSentinel bool
}

// Validate checks the invariants construction relies on (spec §4.6
// Construction: "Validates config").
func (c Config) Validate() error {
	if c.MaxPlugins <= 0 {
		return fmt.Errorf("core: max_plugins must be > 0")
	}
	if c.MaxRecvBufferSize <= 0 || c.MaxSendBufferSize <= 0 {
		return fmt.Errorf("core: send/recv buffer sizes must be > 0")
	}
	if c.Network.Protocol != ProtocolTCP {
		return fmt.Errorf("core: unsupported protocol")
	}
	return nil
}

// layout mirrors the exact allocation sequence New() performs, so that
// RequiredMemory(cfg) and the real construction path stay provably in sync
// (spec §8: "Size determinism").
func layout(cfg Config, a alloc.Allocator) error {
	if err := alloc.SizeSlice[byte](a, cfg.MaxRecvBufferSize); err != nil {
		return err
	}
	if err := alloc.SizeSlice[byte](a, cfg.MaxSendBufferSize); err != nil {
		return err
	}
	if err := alloc.SizeSlice[string](a, cfg.MaxScriptCacheEntries); err != nil {
		return err
	}
	if err := alloc.SizeSlice[bool](a, cfg.MaxScriptCacheEntries); err != nil {
		return err
	}
	return nil
}

// RequiredMemory returns the number of bytes New(cfg, buf) will consume from
// buf, computed by replaying layout against a sizing allocator (spec §4.1).
func RequiredMemory(cfg Config) (uintptr, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	return alloc.RequiredMemory(func(a alloc.Allocator) error { return layout(cfg, a) })
}
