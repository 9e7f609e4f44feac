package mcpstdio

import (
	"github.com/wagiedev/mcp-stdio-go/internal/config"
	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
	"github.com/wagiedev/mcp-stdio-go/internal/protocol"
	"github.com/wagiedev/mcp-stdio-go/internal/subprocess"
)

// ===== Configuration =====

// Options configures the client, its transport and its session.
type Options = config.Options

// ===== JSON-RPC =====

// Response is a JSON-RPC response. Requests that reach the server return
// one even when it carries an error object; inspect Error or IsError.
type Response = jsonrpc.Response

// Notification is a JSON-RPC message without an id sent by the server.
type Notification = jsonrpc.Notification

// Standard JSON-RPC error codes.
const (
	CodeParseError     = jsonrpc.CodeParseError
	CodeInvalidRequest = jsonrpc.CodeInvalidRequest
	CodeMethodNotFound = jsonrpc.CodeMethodNotFound
	CodeInvalidParams  = jsonrpc.CodeInvalidParams
	CodeInternalError  = jsonrpc.CodeInternalError
)

// ===== Session =====

// State is the handshake state of a session.
type State = protocol.State

// Session states.
const (
	StateUninitialized = protocol.StateUninitialized
	StateInitializing  = protocol.StateInitializing
	StateReady         = protocol.StateReady
	StateFailed        = protocol.StateFailed
)

// ServerInfo is what the server reported in its initialize result.
type ServerInfo = protocol.ServerInfo

// TransportState is the lifecycle state of a stdio transport.
type TransportState = subprocess.State

// Transport states.
const (
	TransportNotStarted = subprocess.StateNotStarted
	TransportRunning    = subprocess.StateRunning
	TransportTerminated = subprocess.StateTerminated
)

// ===== Tools =====

// Tool describes a tool advertised by tools/list.
type Tool = protocol.Tool

// Content is one content block of a tools/call result.
type Content = protocol.Content

// ToolResult is the standard shape of a tools/call result.
type ToolResult = protocol.ToolResult

// DecodeTools extracts the tool list from a tools/list response.
func DecodeTools(resp *Response) ([]Tool, error) {
	return protocol.DecodeTools(resp)
}

// DecodeToolResult decodes a tools/call response in the standard result
// shape. Servers that return other shapes should read Response.Result directly.
func DecodeToolResult(resp *Response) (*ToolResult, error) {
	return protocol.DecodeToolResult(resp)
}
