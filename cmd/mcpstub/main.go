// Command mcpstub is a stdio MCP server for exercising clients.
package main

import (
	"os"

	"github.com/wagiedev/mcp-stdio-go/internal/stubserver"
)

func main() {
	os.Exit(stubserver.Main())
}
