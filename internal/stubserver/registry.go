package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RawHandler answers tools/call with an arbitrary JSON result instead of a
// CallToolResult.
type RawHandler func(ctx context.Context, arguments json.RawMessage) (json.RawMessage, error)

// registeredTool holds tool metadata and exactly one of the two handler kinds.
type registeredTool struct {
	tool    *mcp.Tool
	handler mcp.ToolHandler
	raw     RawHandler
}

// Registry is a thread-safe tool table.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*registeredTool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*registeredTool, 8)}
}

// AddTool registers a tool answered with a CallToolResult.
func (r *Registry) AddTool(tool *mcp.Tool, handler mcp.ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name] = &registeredTool{tool: tool, handler: handler}
}

// AddRawTool registers a tool whose handler produces the result verbatim.
func (r *Registry) AddRawTool(tool *mcp.Tool, handler RawHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Name] = &registeredTool{tool: tool, raw: handler}
}

// ListTools returns tools/list entries sorted by name.
func (r *Registry) ListTools() []map[string]any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}

	slices.Sort(names)

	result := make([]map[string]any, 0, len(names))

	for _, name := range names {
		t := r.tools[name].tool

		entry := map[string]any{
			"name":        t.Name,
			"description": t.Description,
		}

		if t.InputSchema != nil {
			entry["inputSchema"] = t.InputSchema
		}

		if t.Annotations != nil {
			entry["annotations"] = t.Annotations
		}

		result = append(result, entry)
	}

	return result
}

// CallTool runs the named tool. Unknown tools and handler failures are
// reported inside the result with isError set, not as an error.
func (r *Registry) CallTool(ctx context.Context, name string, arguments json.RawMessage) (any, error) {
	r.mu.RLock()
	t, exists := r.tools[name]
	r.mu.RUnlock()

	if !exists {
		return toolResultMap(ErrorResult("Tool not found: " + name)), nil
	}

	if len(arguments) == 0 {
		arguments = json.RawMessage(`{}`)
	}

	if t.raw != nil {
		return t.raw(ctx, arguments)
	}

	result, err := t.handler(ctx, &mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: name, Arguments: arguments},
	})
	if err != nil {
		//nolint:nilerr // the failure is encoded in the result
		return toolResultMap(ErrorResult("Tool execution failed: " + err.Error())), nil
	}

	return toolResultMap(result), nil
}

// toolResultMap renders a CallToolResult in its wire shape.
func toolResultMap(result *mcp.CallToolResult) map[string]any {
	if result == nil {
		return map[string]any{"content": []map[string]any{}}
	}

	content := make([]map[string]any, 0, len(result.Content))

	for _, c := range result.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			content = append(content, map[string]any{"type": "text", "text": v.Text})
		case *mcp.ImageContent:
			content = append(content, map[string]any{"type": "image", "data": v.Data, "mimeType": v.MIMEType})
		case *mcp.AudioContent:
			content = append(content, map[string]any{"type": "audio", "data": v.Data, "mimeType": v.MIMEType})
		case *mcp.ResourceLink:
			content = append(content, map[string]any{"type": "resource_link", "uri": v.URI, "name": v.Name})
		}
	}

	out := map[string]any{"content": content}

	if result.IsError {
		out["isError"] = true
	}

	return out
}

// SimpleSchema creates an object schema from a property-to-type map.
// Every property is required.
//
// Input format: {"a": "number", "b": "string"}
func SimpleSchema(props map[string]string) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(props))
	required := make([]string, 0, len(props))

	for name, typ := range props {
		properties[name] = &jsonschema.Schema{Type: typ}
		required = append(required, name)
	}

	slices.Sort(required)

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

// NewTool creates an mcp.Tool.
func NewTool(name, description string, inputSchema *jsonschema.Schema) *mcp.Tool {
	return &mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: inputSchema,
	}
}

// TextResult creates a CallToolResult with text content.
func TextResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ErrorResult creates a CallToolResult flagged as an error.
func ErrorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}
}

// ParseArguments unmarshals CallToolRequest arguments into a map.
func ParseArguments(req *mcp.CallToolRequest) (map[string]any, error) {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return make(map[string]any), nil
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("unmarshal arguments: %w", err)
	}

	return args, nil
}
