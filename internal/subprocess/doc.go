// Package subprocess runs an MCP server as a child process and speaks
// line-delimited JSON-RPC 2.0 over its standard streams.
//
// The transport owns the process lifecycle: spawning, waiting for the
// readiness line on stderr, correlating responses to concurrent callers,
// and graceful shutdown with a SIGTERM followed by a kill.
package subprocess
