// Package main provides the entry point for the mcpstdio CLI.
package main

import (
	"fmt"
	"os"

	"github.com/wagiedev/mcp-stdio-go/cmd/mcpstdio/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
