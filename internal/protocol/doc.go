// Package protocol implements the client side of the MCP handshake on top of
// a JSON-RPC transport.
//
// The Correlator matches responses to the callers waiting on them by request
// id, so any number of requests can be in flight and answered in any order.
// The Session drives the handshake state machine and issues tools/list and
// tools/call once the server is ready.
//
// Example usage:
//
//	transport := subprocess.NewStdioTransport(log, options)
//	if err := transport.Start(ctx); err != nil {
//		return err
//	}
//
//	session := protocol.NewSession(log, transport, options)
//	if err := session.Initialize(ctx); err != nil {
//		return err
//	}
//
//	resp, err := session.CallTool(ctx, "echo", map[string]any{"x": 1})
package protocol
