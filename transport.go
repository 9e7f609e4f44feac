package mcpstdio

import (
	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/subprocess"
)

// Transport carries JSON-RPC between a session and the server.
// Implement this to provide custom transports for testing or mocking.
//
// The default implementation is StdioTransport which spawns a subprocess.
// Custom transports can be injected via WithTransport.
type Transport = config.Transport

// StdioTransport runs the server as a child process.
type StdioTransport = subprocess.StdioTransport

// Spawner launches server processes. Inject one via WithSpawner to run the
// server somewhere other than a local child process.
type Spawner = config.Spawner

// Process is a running server as seen by the transport.
type Process = config.Process

// Command describes the process a Spawner launches.
type Command = config.Command

// NewStdioTransport creates a stdio transport from options without a Client.
func NewStdioTransport(opts ...Option) *StdioTransport {
	options := applyOptions(opts)

	log := options.Logger
	if log == nil {
		log = NopLogger()
	}

	return subprocess.NewStdioTransport(log, options)
}
