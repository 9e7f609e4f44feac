package errors

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// MCPStdioError is the base interface for all typed errors in this module.
type MCPStdioError interface {
	error
	IsMCPStdioError() bool
}

// Compile-time verification that all error types implement MCPStdioError.
var (
	_ MCPStdioError = (*SpawnError)(nil)
	_ MCPStdioError = (*CommandNotFoundError)(nil)
	_ MCPStdioError = (*StartupTimeoutError)(nil)
	_ MCPStdioError = (*TransportWriteError)(nil)
	_ MCPStdioError = (*ResponseTimeoutError)(nil)
	_ MCPStdioError = (*ProtocolError)(nil)
	_ MCPStdioError = (*ProcessError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotInitialized indicates an operation was issued before the handshake completed.
	ErrNotInitialized = errors.New("session not initialized")

	// ErrAlreadyInitialized indicates Initialize was called on a session that is
	// initializing or ready.
	ErrAlreadyInitialized = errors.New("session already initialized")

	// ErrSessionFailed indicates the handshake failed and the session cannot be reused.
	ErrSessionFailed = errors.New("session failed: stop it and create a new one")

	// ErrTransportNotStarted indicates the transport has no running process.
	ErrTransportNotStarted = errors.New("transport not started")

	// ErrTransportAlreadyStarted indicates Start was called on a running transport.
	ErrTransportAlreadyStarted = errors.New("transport already started")

	// ErrTransportClosed indicates the transport was stopped or its process exited.
	ErrTransportClosed = errors.New("transport closed")

	// ErrStdinClosed indicates stdin was closed after a write was abandoned.
	ErrStdinClosed = errors.New("stdin closed")

	// ErrRequestTimeout indicates a request received no response in time.
	ErrRequestTimeout = errors.New("request timeout")
)

// SpawnError indicates the child process could not be created.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to spawn %q: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *SpawnError) IsMCPStdioError() bool { return true }

// CommandNotFoundError indicates the server executable was not found in PATH
// or any of the common install locations. It matches exec.ErrNotFound.
type CommandNotFoundError struct {
	Name          string
	SearchedPaths []string
}

func (e *CommandNotFoundError) Error() string {
	return fmt.Sprintf("%s not found in: %s", e.Name, strings.Join(e.SearchedPaths, ", "))
}

func (e *CommandNotFoundError) Unwrap() error {
	return exec.ErrNotFound
}

// IsMCPStdioError implements MCPStdioError.
func (e *CommandNotFoundError) IsMCPStdioError() bool { return true }

// StartupTimeoutError indicates the readiness signal never appeared on stderr.
// RecentStderr holds the last diagnostic lines seen before giving up.
type StartupTimeoutError struct {
	Signal       string
	Timeout      time.Duration
	RecentStderr []string
}

func (e *StartupTimeoutError) Error() string {
	msg := fmt.Sprintf("server did not report %q within %s", e.Signal, e.Timeout)
	if len(e.RecentStderr) == 0 {
		return msg
	}

	return msg + "; recent stderr:\n  " + strings.Join(e.RecentStderr, "\n  ")
}

// IsMCPStdioError implements MCPStdioError.
func (e *StartupTimeoutError) IsMCPStdioError() bool { return true }

// TransportWriteError indicates a frame could not be written to the child's stdin.
// ID is zero for notifications.
type TransportWriteError struct {
	Method string
	ID     int64
	Err    error
}

func (e *TransportWriteError) Error() string {
	if e.ID == 0 {
		return fmt.Sprintf("write %s notification: %v", e.Method, e.Err)
	}

	return fmt.Sprintf("write %s request (id %d): %v", e.Method, e.ID, e.Err)
}

func (e *TransportWriteError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *TransportWriteError) IsMCPStdioError() bool { return true }

// ResponseTimeoutError indicates no correlated response arrived within the
// per-request timeout. It matches ErrRequestTimeout with errors.Is.
type ResponseTimeoutError struct {
	ID      int64
	Method  string
	Timeout time.Duration
}

func (e *ResponseTimeoutError) Error() string {
	return fmt.Sprintf("%s (id %d) timed out after %s", e.Method, e.ID, e.Timeout)
}

func (e *ResponseTimeoutError) Unwrap() error {
	return ErrRequestTimeout
}

// IsMCPStdioError implements MCPStdioError.
func (e *ResponseTimeoutError) IsMCPStdioError() bool { return true }

// ProtocolError is the error object carried by a JSON-RPC error response.
//
// Responses carry it as data; it only becomes a returned error in the
// handshake and in the typed decode helpers.
type ProtocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// Is matches another *ProtocolError with the same code.
func (e *ProtocolError) Is(target error) bool {
	t, ok := target.(*ProtocolError)
	if !ok {
		return false
	}

	return e.Code == t.Code
}

// IsMCPStdioError implements MCPStdioError.
func (e *ProtocolError) IsMCPStdioError() bool { return true }

// ProcessError indicates the child process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("server process exited (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("server process exited (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsMCPStdioError implements MCPStdioError.
func (e *ProcessError) IsMCPStdioError() bool { return true }
