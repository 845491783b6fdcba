// Package core implements the Debugger Core of spec §4.6: the connection
// state machine, plugin registry, script cache, message dispatch, and
// breakpoint-loop orchestration that every language plugin sits behind.
package core

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sled-run/sleddbg/internal/sled/alloc"
	"github.com/sled-run/sleddbg/internal/sled/buffer"
	"github.com/sled-run/sleddbg/internal/sled/errs"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
	"github.com/sled-run/sleddbg/internal/sled/stringset"
	"github.com/sled-run/sleddbg/internal/sled/transport"
	"golang.org/x/sync/semaphore"
)

// ConnState is the connection state machine of spec §3/§4.6.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

const (
	libraryVersionMajor    = 1
	libraryVersionMinor    = 0
	libraryVersionRevision = 0

	recvPumpChunkSize = 2048 // spec §4.6: "up to 2048 bytes are recv'd"
)

// Core is the Debugger Core. It exclusively owns the script cache, plugin
// registry, network transport, and the send/recv buffers (spec §3
// "Ownership and lifecycle").
type Core struct {
	cfg   Config
	order binary.ByteOrder

	transport *transport.TCP
	recvBuf   *buffer.Buffer
	sendBuf   *buffer.Buffer
	scripts   *stringset.Set

	plugins   map[scmp.PluginID]plugin.Capability
	pluginsMu sync.Mutex

	mu          sync.Mutex
	updateGuard *semaphore.Weighted

	networkingStarted       bool
	connState               ConnState
	mode                    plugin.DebugMode
	awaitingClientReady     bool
	awaitingDebugModeMsg    bool
	lastBreakpointPhaseType scmp.TypeCode

	devCmdHandler func(payload []byte)
}

// New constructs a Core into buf, sized exactly as RequiredMemory(cfg)
// reports (spec §4.6 Construction).
func New(cfg Config, buf []byte) (*Core, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("core: %w: %v", errs.ErrInvalidConfiguration, err)
	}
	required, err := RequiredMemory(cfg)
	if err != nil {
		return nil, err
	}
	if uintptr(len(buf)) < required {
		return nil, fmt.Errorf("core: buffer too small: need %d bytes, have %d", required, len(buf))
	}

	arena := alloc.NewArena(buf)
	recvRaw, err := alloc.AllocSlice[byte](arena, cfg.MaxRecvBufferSize)
	if err != nil {
		return nil, err
	}
	sendRaw, err := alloc.AllocSlice[byte](arena, cfg.MaxSendBufferSize)
	if err != nil {
		return nil, err
	}
	scriptSlots, err := alloc.AllocSlice[string](arena, cfg.MaxScriptCacheEntries)
	if err != nil {
		return nil, err
	}
	scriptUsed, err := alloc.AllocSlice[bool](arena, cfg.MaxScriptCacheEntries)
	if err != nil {
		return nil, err
	}

	c := &Core{
		cfg:         cfg,
		order:       binary.LittleEndian,
		transport:   transport.New(cfg.Network.Port),
		recvBuf:     buffer.New(recvRaw[:0], cfg.MaxRecvBufferSize),
		sendBuf:     buffer.New(sendRaw[:0], cfg.MaxSendBufferSize),
		scripts:     stringset.New(scriptSlots, scriptUsed, cfg.MaxScriptCacheEntryLen, false),
		plugins:     make(map[scmp.PluginID]plugin.Capability, cfg.MaxPlugins),
		updateGuard: semaphore.NewWeighted(1),
		connState:   Disconnected,
		mode:        plugin.ModeNormal,
	}
	return c, nil
}

// AddScriptCacheEntry registers a relative path to be replayed to the IDE
// at the next handshake (spec §3 "Script cache").
func (c *Core) AddScriptCacheEntry(relativePath string) error {
	return c.scripts.Add(relativePath)
}

// RegisterDevCommandHandler wires a handler for DevCmd messages (SPEC_FULL
// §3: the original's generic developer-command passthrough).
func (c *Core) RegisterDevCommandHandler(fn func(payload []byte)) {
	c.devCmdHandler = fn
}

// AddPlugin registers a plugin. Adding the same id twice fails (spec §4.6).
func (c *Core) AddPlugin(p plugin.Capability) error {
	c.pluginsMu.Lock()
	defer c.pluginsMu.Unlock()

	if p.ID() == scmp.CorePluginID {
		return fmt.Errorf("core: %w: plugin id 0 is reserved for the core", errs.ErrInvalidPlugin)
	}
	if len(c.plugins) >= c.cfg.MaxPlugins {
		return errs.ErrMaxPluginsReached
	}
	if _, exists := c.plugins[p.ID()]; exists {
		return errs.ErrPluginAlreadyAdded
	}
	c.plugins[p.ID()] = p
	slog.Info("sled_plugin_registered", "plugin_id", p.ID(), "name", p.Name(), "component", "core")
	return nil
}

func (c *Core) soloPlugin() (plugin.Capability, bool) {
	if len(c.plugins) != 1 {
		return nil, false
	}
	for _, p := range c.plugins {
		return p, true
	}
	return nil, false
}

func (c *Core) forEachPlugin(fn func(plugin.Capability)) {
	c.pluginsMu.Lock()
	snapshot := make([]plugin.Capability, 0, len(c.plugins))
	for _, p := range c.plugins {
		snapshot = append(snapshot, p)
	}
	c.pluginsMu.Unlock()
	for _, p := range snapshot {
		fn(p)
	}
}

// ConnState reports the current connection state.
func (c *Core) ConnState() ConnState { return c.connState }

// Mode reports the current debugger mode.
func (c *Core) Mode() plugin.DebugMode { return c.mode }

// Shutdown tears every plugin down, bottom-up and idempotently (spec §3).
func (c *Core) Shutdown() {
	_ = c.StopNetworking()
	c.forEachPlugin(func(p plugin.Capability) { p.Shutdown() })
}
