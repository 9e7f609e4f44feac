// Package stubserver implements a small MCP server that speaks
// line-delimited JSON-RPC on stdio.
//
// It backs the mcpstub command and the end-to-end tests. Tools are held in a
// Registry using the MCP go-sdk types; echo is special and returns its
// arguments unchanged as the call result.
package stubserver
