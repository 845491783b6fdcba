package core

import (
	"fmt"
	"log/slog"

	"github.com/sled-run/sleddbg/internal/sled/errs"
	"github.com/sled-run/sleddbg/internal/sled/plugin"
	"github.com/sled-run/sleddbg/internal/sled/scmp"
)

// StartNetworking begins listening. If the config requests
// block-until-connect, it blocks until a client has connected and the
// handshake has fully completed (spec §4.6).
func (c *Core) StartNetworking() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connState != Disconnected {
		return errs.ErrAlreadyNetworking
	}
	if err := c.transport.Start(); err != nil {
		return err
	}
	c.networkingStarted = true
	c.connState = Connecting

	if c.cfg.Network.BlockUntilConnect {
		if _, err := c.transport.Accept(true); err != nil {
			_ = c.transport.Stop()
			c.connState = Disconnected
			return err
		}
		if err := c.handshake(); err != nil {
			_ = c.transport.Stop()
			c.connState = Disconnected
			return fmt.Errorf("core: %w: %v", errs.ErrNegotiation, err)
		}
	}
	return nil
}

// StopNetworking sends a Disconnect if connected, then tears down the
// transport entirely.
func (c *Core) StopNetworking() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connState == Disconnected {
		return nil
	}
	if c.connState == Connected {
		c.sendCore(scmp.Empty{Code: scmp.TypeDisconnect})
	}
	err := c.transport.Stop()
	c.connState = Disconnected
	c.networkingStarted = false
	return err
}

// handshake drives the server-initiated sequence of spec §4.6/§6.2. Caller
// must hold c.mu and have already accepted a connection.
func (c *Core) handshake() error {
	c.sendCore(scmp.NewEndianness(c.cfg.WithEndiannessSentinel))
	c.sendCore(scmp.Version{Major: libraryVersionMajor, Minor: libraryVersionMinor, Revision: libraryVersionRevision})

	reply := make([]byte, scmp.BaseWireSize+4096)
	n, err := c.transport.Recv(reply, true)
	if err != nil {
		return err
	}
	base := scmp.DecodeBase(reply[:n], c.order)
	if base.Type != scmp.TypeSuccess {
		c.sendCore(scmp.Empty{Code: scmp.TypeDisconnect})
		c.transport.Disconnect()
		return fmt.Errorf("core: handshake: expected Success, got type %d", base.Type)
	}

	c.sendCore(scmp.Empty{Code: scmp.TypeAuthenticated})

	c.scripts.Each(func(path string) bool {
		c.sendCore(scmp.ScriptCache{RelativePath: path})
		return true
	})

	c.forEachPlugin(func(p plugin.Capability) { p.ClientConnected() })
	c.sendCore(scmp.Empty{Code: scmp.TypePluginsReady})

	c.connState = Connected
	slog.Info("sled_client_connected", "component", "core")

	c.awaitingClientReady = true
	for c.awaitingClientReady {
		if err := c.pumpOnce(); err != nil {
			return err
		}
		if c.connState != Connected {
			return errs.ErrNoClientConnected
		}
	}
	c.sendCore(scmp.Empty{Code: scmp.TypeReady})
	return nil
}

// pumpOnce drains and dispatches whatever complete messages are buffered,
// then attempts one non-blocking recv to pull in more bytes — the same
// inner loop Update() runs, factored out so the handshake and the
// breakpoint-loop phases (which must pump while already holding c.mu) can
// reuse it without re-entering the public, lock-acquiring Update().
func (c *Core) pumpOnce() error {
	for {
		msgs, consumed, ferr := scmp.ExtractMessages(c.recvBuf.Data(), c.order)
		if ferr != nil {
			slog.Warn("sled_framing_error", "error", ferr, "component", "core")
			c.disconnectLocked()
			return nil
		}
		c.recvBuf.Shuffle(consumed)
		if len(msgs) == 0 {
			break
		}
		for _, m := range msgs {
			c.dispatch(m)
		}
	}

	if c.connState != Connected {
		ok, err := c.transport.Accept(false)
		if err != nil {
			return nil
		}
		if ok {
			if err := c.handshake(); err != nil {
				slog.Warn("sled_handshake_failed", "error", err, "component", "core")
			}
		}
		return nil
	}

	chunk := make([]byte, recvPumpChunkSize)
	n, err := c.transport.Recv(chunk, false)
	if err != nil {
		c.disconnectLocked()
		return nil
	}
	if n > 0 {
		c.recvBuf.Append(chunk[:n])
	}
	return nil
}

func (c *Core) disconnectLocked() {
	if c.connState == Disconnected {
		return
	}
	c.transport.Disconnect()
	c.connState = Disconnected
	c.recvBuf.Reset()
	c.sendBuf.Reset()
	c.forEachPlugin(func(p plugin.Capability) { p.ClientDisconnected() })
	slog.Info("sled_client_disconnected", "component", "core")
}

// SendPlugin lets a registered plugin push one of its own messages to the
// connected IDE, implementing plugin.Sender. A send while disconnected is
// reported, not silently dropped, so callers can decide whether to retry
// on the next breakpoint pump.
func (c *Core) SendPlugin(id scmp.PluginID, body scmp.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connState != Connected {
		return errs.ErrNoClientConnected
	}
	wire, err := scmp.Envelope(c.order, id, body)
	if err != nil {
		return err
	}
	if _, err := c.transport.Send(wire); err != nil {
		c.disconnectLocked()
		return err
	}
	return nil
}

// sendCore packs and transmits a core-owned (plugin id 0) message,
// logging but not failing the caller on a transport error — the next
// recv/send cycle will observe the disconnect.
func (c *Core) sendCore(body scmp.Message) {
	wire, err := scmp.Envelope(c.order, scmp.CorePluginID, body)
	if err != nil {
		slog.Error("sled_pack_failed", "type", body.TypeCode(), "error", err, "component", "core")
		return
	}
	if _, err := c.transport.Send(wire); err != nil {
		slog.Warn("sled_send_failed", "type", body.TypeCode(), "error", err, "component", "core")
		c.disconnectLocked()
	}
}
