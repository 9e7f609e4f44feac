package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	mcpstdio "github.com/wagiedev/mcp-stdio-go"
)

func newCallCommand(a *app) *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool and print its result",
		Long: `Invoke a tool and print the JSON result.

Examples:
  mcpstdio call echo --args '{"message":"hi"}'
  mcpstdio --config slack.yaml call slack_list_channels`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var arguments map[string]any

			if rawArgs != "" {
				if err := json.Unmarshal([]byte(rawArgs), &arguments); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}

			return a.withSession(cmd.Context(), cmd, func(c mcpstdio.Client) error {
				resp, err := c.CallTool(cmd.Context(), args[0], arguments)
				if err != nil {
					return fmt.Errorf("call %s: %w", args[0], err)
				}

				if resp.IsError() {
					return fmt.Errorf("call %s: %w", args[0], resp.Error)
				}

				return printJSON(cmd.OutOrStdout(), resp.Result)
			})
		},
	}

	cmd.Flags().StringVar(&rawArgs, "args", "", "Tool arguments as a JSON object")

	return cmd
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("format result: %w", err)
	}

	buf.WriteByte('\n')

	_, err := buf.WriteTo(w)

	return err
}
