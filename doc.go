// Package mcpstdio is a client for Model Context Protocol servers that run as
// a child process and speak line-delimited JSON-RPC 2.0 over stdin and stdout.
//
// The client spawns the server, waits for a readiness line on its stderr,
// performs the initialize handshake and then correlates concurrent requests
// with their responses by id. Stderr is kept in a bounded buffer so startup
// and exit failures carry the server's last words.
//
// # Basic Usage
//
// Use WithClient for automatic lifecycle management:
//
//	err := mcpstdio.WithClient(ctx, func(c mcpstdio.Client) error {
//	    resp, err := c.CallTool(ctx, "echo", map[string]any{"x": 1})
//	    if err != nil {
//	        return err
//	    }
//	    if resp.IsError() {
//	        return resp.Error
//	    }
//	    fmt.Println(string(resp.Result))
//	    return nil
//	},
//	    mcpstdio.WithCommand("my-mcp-server", "--stdio"),
//	    mcpstdio.WithReadySignal("running on stdio"),
//	    mcpstdio.WithEnv(map[string]string{"API_TOKEN": token}),
//	)
//
// Or manage the client explicitly with NewClient, Start, Initialize and Stop.
//
// # Error Handling
//
// Failures are typed. Use errors.As to recover details:
//
//	var startErr *mcpstdio.StartupTimeoutError
//	if errors.As(err, &startErr) {
//	    for _, line := range startErr.RecentStderr {
//	        fmt.Println(line)
//	    }
//	}
//
// A response that carries a JSON-RPC error object is not a Go error: the
// request reached the server and its answer is returned as data.
//
// # Logging
//
// The client uses log/slog. Pass a logger with WithLogger; without one it
// is silent.
//
// # Telemetry
//
// Requests are counted, timed and traced with OpenTelemetry. Providers are
// set with WithMeterProvider and WithTracerProvider and default to the
// global ones.
package mcpstdio
