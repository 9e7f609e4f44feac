package mcpstdio

import (
	"context"

	"github.com/wagiedev/mcp-stdio-go/internal/client"
)

// clientWrapper wraps the internal client to adapt it to the public interface.
type clientWrapper struct {
	impl *client.Client
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

// newClientImpl creates the internal client implementation.
func newClientImpl() Client {
	return &clientWrapper{impl: client.New()}
}

// Start launches the server process.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	return c.impl.Start(ctx, applyOptions(opts))
}

// Initialize performs the MCP handshake.
func (c *clientWrapper) Initialize(ctx context.Context) error {
	return c.impl.Initialize(ctx)
}

// ListTools sends tools/list.
func (c *clientWrapper) ListTools(ctx context.Context) (*Response, error) {
	return c.impl.ListTools(ctx)
}

// Tools sends tools/list and decodes the result.
func (c *clientWrapper) Tools(ctx context.Context) ([]Tool, error) {
	return c.impl.Tools(ctx)
}

// CallTool sends tools/call.
func (c *clientWrapper) CallTool(ctx context.Context, name string, arguments map[string]any) (*Response, error) {
	return c.impl.CallTool(ctx, name, arguments)
}

// Ping sends ping.
func (c *clientWrapper) Ping(ctx context.Context) error {
	return c.impl.Ping(ctx)
}

// ServerInfoRequest sends server/info.
func (c *clientWrapper) ServerInfoRequest(ctx context.Context) (*Response, error) {
	return c.impl.ServerInfoRequest(ctx)
}

// ServerInfo returns the handshake result.
func (c *clientWrapper) ServerInfo() *ServerInfo {
	return c.impl.ServerInfo()
}

// State returns the handshake state.
func (c *clientWrapper) State() State {
	return c.impl.State()
}

// Stop terminates the server.
func (c *clientWrapper) Stop(ctx context.Context) error {
	return c.impl.Stop(ctx)
}
