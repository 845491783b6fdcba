// Package errs defines the stable error taxonomy shared by every sled
// subsystem. Codes are numeric and stable across releases so a host bridging
// to a native SLED IDE (or to C callers) can rely on their values, while Go
// callers compare with errors.Is against the exported sentinels.
package errs

import "fmt"

// Code is a stable numeric error identifier, mirroring the source's
// errorcodes.h enum values.
type Code int

const (
	CodeOK Code = iota
	CodeInvalidProtocol
	CodeNotInitialized
	CodeAlreadyNetworking
	CodeNotNetworking
	CodePluginAlreadyAdded
	CodeInvalidPlugin
	CodeMaxPluginsReached
	CodeRecursiveUpdate
	CodeNetSubsystemFail
	CodeTCPNonBlockingFail
	CodeTCPListenFail
	CodeTCPBindFail
	CodeTCPSocketInitFail
	CodeTCPSocketInvalid
	CodeTCPNotConnected
	CodeTCPFailSelectWrite
	CodeNegotiation
	CodeInvalidConfiguration
	CodeNullParameter
	CodeInvalidParameter
	CodeNoClientConnected
	CodeNotAligned
	CodeInvalidState
	CodeNoSearch

	// Lua plugin codes.
	CodeNoDebuggerInstance
	CodeInvalidLuaState
	CodeDuplicateLuaState
	CodeLuaStateNotFound
	CodeLuaStateAlreadyRegistered
	CodeOverLuaStateLimit
)

var names = map[Code]string{
	CodeOK:                        "ok",
	CodeInvalidProtocol:           "invalid protocol",
	CodeNotInitialized:            "not initialized",
	CodeAlreadyNetworking:         "already networking",
	CodeNotNetworking:             "not networking",
	CodePluginAlreadyAdded:        "plugin already added",
	CodeInvalidPlugin:             "invalid plugin",
	CodeMaxPluginsReached:         "max plugins reached",
	CodeRecursiveUpdate:           "recursive update",
	CodeNetSubsystemFail:          "network subsystem failure",
	CodeTCPNonBlockingFail:        "tcp non-blocking mode failed",
	CodeTCPListenFail:             "tcp listen failed",
	CodeTCPBindFail:               "tcp bind failed",
	CodeTCPSocketInitFail:         "tcp socket init failed",
	CodeTCPSocketInvalid:          "tcp socket invalid",
	CodeTCPNotConnected:           "tcp not connected",
	CodeTCPFailSelectWrite:        "tcp select-write failed",
	CodeNegotiation:               "negotiation failed",
	CodeInvalidConfiguration:      "invalid configuration",
	CodeNullParameter:             "null parameter",
	CodeInvalidParameter:          "invalid parameter",
	CodeNoClientConnected:         "no client connected",
	CodeNotAligned:                "not aligned",
	CodeInvalidState:              "invalid state",
	CodeNoSearch:                  "no search",
	CodeNoDebuggerInstance:        "no debugger instance",
	CodeInvalidLuaState:           "invalid lua state",
	CodeDuplicateLuaState:         "duplicate lua state",
	CodeLuaStateNotFound:          "lua state not found",
	CodeLuaStateAlreadyRegistered: "lua state already registered",
	CodeOverLuaStateLimit:         "over lua state limit",
}

// Error is the concrete error type returned by sled subsystems. It carries a
// stable Code plus optional free-form detail.
type Error struct {
	code   Code
	detail string
}

func New(code Code, detail string) *Error {
	return &Error{code: code, detail: detail}
}

func (e *Error) Code() Code { return e.code }

func (e *Error) Error() string {
	if e.detail == "" {
		return names[e.code]
	}
	return fmt.Sprintf("%s: %s", names[e.code], e.detail)
}

// Is allows errors.Is(err, errs.Sentinel(CodeX)) style comparisons by code,
// ignoring detail text.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.code == e.code
}

// Sentinel returns a bare *Error for a code, suitable for use with errors.Is.
func Sentinel(code Code) *Error { return &Error{code: code} }

var (
	ErrNotInitialized        = Sentinel(CodeNotInitialized)
	ErrAlreadyNetworking     = Sentinel(CodeAlreadyNetworking)
	ErrNotNetworking         = Sentinel(CodeNotNetworking)
	ErrPluginAlreadyAdded    = Sentinel(CodePluginAlreadyAdded)
	ErrInvalidPlugin         = Sentinel(CodeInvalidPlugin)
	ErrMaxPluginsReached     = Sentinel(CodeMaxPluginsReached)
	ErrRecursiveUpdate       = Sentinel(CodeRecursiveUpdate)
	ErrNegotiation           = Sentinel(CodeNegotiation)
	ErrInvalidConfiguration  = Sentinel(CodeInvalidConfiguration)
	ErrNoClientConnected     = Sentinel(CodeNoClientConnected)
	ErrTCPNotConnected       = Sentinel(CodeTCPNotConnected)
	ErrDuplicateLuaState     = Sentinel(CodeDuplicateLuaState)
	ErrLuaStateNotFound      = Sentinel(CodeLuaStateNotFound)
	ErrLuaStateAlreadyRegist = Sentinel(CodeLuaStateAlreadyRegistered)
	ErrOverLuaStateLimit     = Sentinel(CodeOverLuaStateLimit)
	ErrInvalidLuaState       = Sentinel(CodeInvalidLuaState)
)
