package stubserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddToolAndList(t *testing.T) {
	r := NewRegistry()
	schema := SimpleSchema(map[string]string{"text": "string", "count": "integer"})

	r.AddTool(NewTool("shout", "upper-cases text", schema),
		func(_ context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult(text + "!"), nil
		})

	tools := r.ListTools()
	require.Len(t, tools, 1)
	require.Equal(t, "shout", tools[0]["name"])
	require.Equal(t, schema, tools[0]["inputSchema"])
	require.Equal(t, []string{"count", "text"}, schema.Required)

	result, err := r.CallTool(context.Background(), "shout", json.RawMessage(`{"text":"hi"}`))
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"content": []map[string]any{{"type": "text", "text": "hi!"}},
	}, result)
}

func TestRegistry_RawTool(t *testing.T) {
	r := NewRegistry()
	r.AddRawTool(NewTool("echo", "", nil), func(_ context.Context, args json.RawMessage) (json.RawMessage, error) {
		return args, nil
	})

	result, err := r.CallTool(context.Background(), "echo", json.RawMessage(`{"nested":{"a":[1,2]}}`))
	require.NoError(t, err)
	require.JSONEq(t, `{"nested":{"a":[1,2]}}`, string(result.(json.RawMessage)))
}

func TestParseArguments_Invalid(t *testing.T) {
	_, err := ParseArguments(&mcp.CallToolRequest{
		Params: &mcp.CallToolParamsRaw{Name: "x", Arguments: json.RawMessage(`[1]`)},
	})
	require.Error(t, err)

	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)
}
