// Package config provides configuration types for the stdio client.
package config

import (
	"context"
	"io"
	"time"

	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// Transport defines the interface between a session and the server process.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementation is the stdio transport which spawns a subprocess.
// Custom transports can be injected via Options.Transport.
type Transport interface {
	// Start launches the server and waits for its readiness signal.
	Start(ctx context.Context) error

	// Stop terminates the server. It's safe to call Stop multiple times.
	Stop(ctx context.Context) error

	// SendRequest writes a request and blocks until the correlated response
	// arrives or timeout elapses. Error responses are returned as data.
	SendRequest(ctx context.Context, method string, params any, timeout time.Duration) (*jsonrpc.Response, error)

	// SendNotification writes a notification. No response is awaited.
	SendNotification(ctx context.Context, method string, params any) error

	// IsReady returns true if the transport is ready for communication.
	IsReady() bool
}

// Command describes the process a Spawner launches.
type Command struct {
	Path string
	Args []string
	Env  []string
	Dir  string
}

// Process is a running child with its three standard streams.
type Process interface {
	Stdin() io.WriteCloser
	Stdout() io.ReadCloser
	Stderr() io.ReadCloser

	Pid() int

	// Alive reports whether the process has not yet exited.
	Alive() bool

	// Done is closed once the process has exited and ExitCode is valid.
	Done() <-chan struct{}
	ExitCode() int

	// Terminate asks the process to exit; Kill forces it.
	Terminate() error
	Kill() error
}

// Spawner launches server processes.
type Spawner interface {
	Spawn(ctx context.Context, cmd Command) (Process, error)
}
