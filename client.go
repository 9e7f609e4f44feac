package mcpstdio

import "context"

// Client talks to an MCP server running as a child process over
// line-delimited JSON-RPC on its stdin and stdout.
//
// Lifecycle: Start launches the server, Initialize performs the handshake,
// then requests may be issued concurrently from any goroutine. After Stop the
// client may be started again; request ids keep increasing per transport.
//
// Example usage:
//
//	client := mcpstdio.NewClient()
//	defer client.Stop(ctx)
//
//	err := client.Start(ctx,
//	    mcpstdio.WithCommand("npx", "-y", "@modelcontextprotocol/server-everything"),
//	    mcpstdio.WithReadySignal("running on stdio"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := client.Initialize(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.CallTool(ctx, "echo", map[string]any{"message": "hi"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println(string(resp.Result))
type Client interface {
	// Start launches the server and waits for its ready signal.
	// Returns SpawnError if the executable cannot be launched,
	// StartupTimeoutError if it never becomes ready, ProcessError if it
	// exits first and ErrTransportAlreadyStarted if it is already running.
	Start(ctx context.Context, opts ...Option) error

	// Initialize performs the initialize handshake and sends
	// notifications/initialized. Returns ErrAlreadyInitialized on a second call.
	Initialize(ctx context.Context) error

	// ListTools sends tools/list and returns the raw response.
	ListTools(ctx context.Context) (*Response, error)

	// Tools sends tools/list and decodes the tool list.
	Tools(ctx context.Context) ([]Tool, error)

	// CallTool invokes a tool and returns the raw response. A nil arguments
	// map is sent as an empty object. Error responses are returned as data.
	CallTool(ctx context.Context, name string, arguments map[string]any) (*Response, error)

	// Ping checks the server is responsive.
	Ping(ctx context.Context) error

	// ServerInfoRequest sends server/info and returns the raw response.
	// Servers that do not implement it answer with a method-not-found error.
	ServerInfoRequest(ctx context.Context) (*Response, error)

	// ServerInfo returns what the server reported during the handshake,
	// or nil before a successful Initialize.
	ServerInfo() *ServerInfo

	// State returns the handshake state.
	State() State

	// Stop terminates the server, failing pending requests with
	// ErrTransportClosed. Safe to call more than once.
	Stop(ctx context.Context) error
}

// NewClient creates a new client. Nothing is spawned until Start.
func NewClient() Client {
	return newClientImpl()
}
