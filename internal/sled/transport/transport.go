// Package transport implements the blocking/non-blocking TCP transport of
// spec §4.5: listen/accept/send/recv with a platform-agnostic error enum
// (internal/sled/errs), one listener, and at most one active connection.
//
// Go's net package has no select(); the replacement for "is this socket
// ready without blocking" is a short deadline poll (SetDeadline on the
// listener, SetReadDeadline on the connection), which is what Accept and
// Recv use below in their non-blocking paths. Send always writes under a
// bounded SetWriteDeadline (grounded on the teacher's own explicit-timeout
// style in internal/http/transport.go).
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/sled-run/sleddbg/internal/sled/errs"
)

const (
	listenBacklogHint   = 10 // net.Listen has no backlog knob; documented for parity with spec §4.5.
	selectWriteTimeout  = 200 * time.Millisecond
	nonBlockingPollWait = time.Millisecond // short poll; an already-expired deadline fails without looking for pending data
)

// TCP is the only transport protocol variant today (spec §4.5).
type TCP struct {
	port int

	listener net.Listener
	conn     net.Conn
}

// New constructs a transport bound to the given port on all interfaces.
func New(port int) *TCP {
	return &TCP{port: port}
}

// Start initializes the listen socket. Matches spec: bind all interfaces,
// reuse-addr semantics are the platform default for net.Listen on most
// OSes; backlog is a hint only (Go does not expose it).
func (t *TCP) Start() error {
	if t.listener != nil {
		return errs.New(errs.CodeAlreadyNetworking, "listener already started")
	}
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", t.port))
	if err != nil {
		return fmt.Errorf("transport: listen failed: %w", errs.New(errs.CodeTCPListenFail, err.Error()))
	}
	t.listener = ln
	slog.Info("sled_transport_listening", "port", t.port, "component", "transport")
	return nil
}

// Stop closes both the connection and listen sockets.
func (t *TCP) Stop() error {
	var errList []error
	if t.conn != nil {
		if err := t.conn.Close(); err != nil {
			errList = append(errList, err)
		}
		t.conn = nil
	}
	if t.listener != nil {
		if err := t.listener.Close(); err != nil {
			errList = append(errList, err)
		}
		t.listener = nil
	}
	return errors.Join(errList...)
}

// Accept accepts one pending connection. If blocking is false and no
// connection is pending, it returns (false, nil) so the caller can re-poll
// next tick (spec §4.5: "not networking" sentinel for a non-blocking miss).
func (t *TCP) Accept(blocking bool) (accepted bool, err error) {
	if t.listener == nil {
		return false, errs.ErrNotNetworking
	}
	if t.conn != nil {
		return false, errs.New(errs.CodeInvalidState, "connection already established")
	}

	if !blocking {
		tl, ok := t.listener.(*net.TCPListener)
		if ok {
			if err := tl.SetDeadline(time.Now().Add(nonBlockingPollWait)); err != nil {
				return false, fmt.Errorf("transport: set accept deadline: %w", err)
			}
		}
		conn, err := t.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return false, nil
			}
			return false, fmt.Errorf("transport: accept failed: %w", errs.New(errs.CodeTCPListenFail, err.Error()))
		}
		t.conn = conn
		slog.Info("sled_transport_accepted", "remote", conn.RemoteAddr().String(), "component", "transport")
		return true, nil
	}

	conn, err := t.listener.Accept()
	if err != nil {
		return false, fmt.Errorf("transport: accept failed: %w", errs.New(errs.CodeTCPListenFail, err.Error()))
	}
	t.conn = conn
	slog.Info("sled_transport_accepted", "remote", conn.RemoteAddr().String(), "component", "transport")
	return true, nil
}

// Connected reports whether a client connection is currently established.
func (t *TCP) Connected() bool { return t.conn != nil }

// Send writes bytes to the current connection in one call, after a brief
// write-readiness wait. Any transport error recreates the connection socket
// (closes it and clears state) and is reported to the caller.
func (t *TCP) Send(data []byte) (n int, err error) {
	if t.conn == nil {
		return 0, errs.ErrTCPNotConnected
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(selectWriteTimeout)); err != nil {
		return 0, fmt.Errorf("transport: set write deadline: %w", err)
	}
	n, err = t.conn.Write(data)
	if err != nil {
		t.disconnectLocked()
		return n, fmt.Errorf("transport: send failed: %w", errs.New(errs.CodeTCPFailSelectWrite, err.Error()))
	}
	return n, nil
}

// Recv reads up to len(buf) bytes. blocking=true waits indefinitely for at
// least one byte; blocking=false polls and returns (0, nil) if nothing is
// ready. Any error or a zero-byte read recreates the connection socket and
// is reported as disconnect via a negative-equivalent error.
func (t *TCP) Recv(buf []byte, blocking bool) (n int, err error) {
	if t.conn == nil {
		return 0, errs.ErrTCPNotConnected
	}

	if blocking {
		if err := t.conn.SetReadDeadline(time.Time{}); err != nil {
			return 0, fmt.Errorf("transport: clear read deadline: %w", err)
		}
	} else {
		if err := t.conn.SetReadDeadline(time.Now().Add(nonBlockingPollWait)); err != nil {
			return 0, fmt.Errorf("transport: set read deadline: %w", err)
		}
	}

	n, err = t.conn.Read(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() && !blocking {
			return 0, nil
		}
		t.disconnectLocked()
		return 0, fmt.Errorf("transport: recv failed, disconnecting: %w", errs.ErrTCPNotConnected)
	}
	if n == 0 {
		t.disconnectLocked()
		return 0, fmt.Errorf("transport: recv got zero bytes, disconnecting: %w", errs.ErrTCPNotConnected)
	}
	return n, nil
}

// Disconnect recreates the connection socket and marks disconnected; the
// listen socket remains bound so new clients can still connect.
func (t *TCP) Disconnect() {
	t.disconnectLocked()
}

func (t *TCP) disconnectLocked() {
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
		slog.Info("sled_transport_disconnected", "component", "transport")
	}
}
