package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	mcpstdio "github.com/wagiedev/mcp-stdio-go"
)

func newToolsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withSession(cmd.Context(), cmd, func(c mcpstdio.Client) error {
				tools, err := c.Tools(cmd.Context())
				if err != nil {
					return fmt.Errorf("list tools: %w", err)
				}

				printTools(cmd.OutOrStdout(), tools)

				return nil
			})
		},
	}
}

func printTools(w io.Writer, tools []mcpstdio.Tool) {
	fmt.Fprintf(w, "Found %d available tools:\n", len(tools))

	for i, tool := range tools {
		description := tool.Description
		if description == "" {
			description = "No description"
		}

		fmt.Fprintf(w, "%d. %s\n", i+1, tool.Name)
		fmt.Fprintf(w, "   Description: %s\n", description)

		if tool.InputSchema != nil {
			fmt.Fprintf(w, "   Input schema: %s\n", tool.SchemaType())
		}
	}
}
