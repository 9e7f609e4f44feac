package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/wagiedev/mcp-stdio-go/internal/jsonrpc"
)

// Tool describes one entry of a tools/list result.
type Tool struct {
	Name        string             `json:"name"`
	Title       string             `json:"title,omitempty"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"inputSchema,omitempty"`
	Annotations map[string]any     `json:"annotations,omitempty"`
}

// SchemaType returns the top-level type of the input schema, or "" if the
// tool declares none.
func (t *Tool) SchemaType() string {
	if t.InputSchema == nil {
		return ""
	}

	if t.InputSchema.Type != "" {
		return t.InputSchema.Type
	}

	return strings.Join(t.InputSchema.Types, "|")
}

// Content is one content block of a tools/call result.
type Content struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MIMEType string `json:"mimeType,omitempty"`
	URI      string `json:"uri,omitempty"`
	Name     string `json:"name,omitempty"`
}

// ToolResult is the standard shape of a tools/call result.
type ToolResult struct {
	Content           []Content       `json:"content"`
	IsError           bool            `json:"isError,omitempty"`
	StructuredContent json.RawMessage `json:"structuredContent,omitempty"`
}

// Text concatenates the text blocks of the result.
func (r *ToolResult) Text() string {
	var parts []string

	for _, c := range r.Content {
		if c.Type == "text" {
			parts = append(parts, c.Text)
		}
	}

	return strings.Join(parts, "\n")
}

// DecodeTools extracts the tool list from a tools/list response. An error
// response is returned as its *errors.ProtocolError.
func DecodeTools(resp *jsonrpc.Response) ([]Tool, error) {
	var result struct {
		Tools *[]Tool `json:"tools"`
	}

	if err := resp.DecodeResult(&result); err != nil {
		return nil, err
	}

	if result.Tools == nil {
		return nil, fmt.Errorf("tools/list result has no tools list")
	}

	return *result.Tools, nil
}

// DecodeToolResult decodes a tools/call response into a ToolResult. An error
// response is returned as its *errors.ProtocolError.
func DecodeToolResult(resp *jsonrpc.Response) (*ToolResult, error) {
	var result ToolResult

	if err := resp.DecodeResult(&result); err != nil {
		return nil, err
	}

	return &result, nil
}
