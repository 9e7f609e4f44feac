// Package errors defines error types for the stdio MCP client.
//
// Each failure mode of spawning, starting and talking to a server has its own
// type so callers can recover details such as the exit code or the last stderr
// lines. All error types support unwrapping and can be checked using
// errors.Is, errors.As, and errors.AsType.
package errors
