package mcpstdio

import "github.com/wagiedev/mcp-stdio-go/internal/errors"

// Re-export error types from internal package

// MCPStdioError is the base interface for all typed errors.
type MCPStdioError = errors.MCPStdioError

// SpawnError indicates the server process could not be launched.
type SpawnError = errors.SpawnError

// CommandNotFoundError indicates the server executable could not be found.
// It is carried inside SpawnError and matches exec.ErrNotFound.
type CommandNotFoundError = errors.CommandNotFoundError

// StartupTimeoutError indicates the server never printed its readiness line.
type StartupTimeoutError = errors.StartupTimeoutError

// TransportWriteError indicates a message could not be written to the server.
type TransportWriteError = errors.TransportWriteError

// ResponseTimeoutError indicates a request got no response in time.
type ResponseTimeoutError = errors.ResponseTimeoutError

// ProtocolError is a JSON-RPC error object returned by the server.
type ProtocolError = errors.ProtocolError

// ProcessError indicates the server process exited.
type ProcessError = errors.ProcessError

// Re-export sentinel errors from internal package.
var (
	// ErrNotInitialized indicates a request was made before the handshake completed.
	ErrNotInitialized = errors.ErrNotInitialized

	// ErrAlreadyInitialized indicates Initialize was called twice.
	ErrAlreadyInitialized = errors.ErrAlreadyInitialized

	// ErrSessionFailed indicates the handshake failed earlier.
	ErrSessionFailed = errors.ErrSessionFailed

	// ErrTransportNotStarted indicates the server has not been started.
	ErrTransportNotStarted = errors.ErrTransportNotStarted

	// ErrTransportAlreadyStarted indicates Start was called on a running server.
	ErrTransportAlreadyStarted = errors.ErrTransportAlreadyStarted

	// ErrTransportClosed indicates the transport was stopped or the server exited.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrStdinClosed indicates the server's stdin was closed after a blocked write.
	ErrStdinClosed = errors.ErrStdinClosed

	// ErrRequestTimeout matches every ResponseTimeoutError.
	ErrRequestTimeout = errors.ErrRequestTimeout
)
