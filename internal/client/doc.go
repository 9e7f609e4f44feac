// Package client implements the Client that drives an MCP server over stdio.
//
// A Client owns one transport and the session running over it. Start spawns
// the server (retrying startup timeouts with backoff when configured),
// Initialize performs the handshake, and the request methods delegate to the
// session once it is ready.
package client
