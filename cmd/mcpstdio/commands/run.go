package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpstdio "github.com/wagiedev/mcp-stdio-go"
)

func newRunCommand(a *app) *cobra.Command {
	var (
		probe    bool
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the server, list its tools and keep it running",
		Long: `Start the server, perform the handshake, list its tools and keep the
session open until interrupted.

With --probe the first tool is called with empty arguments. With --duration
the command exits on its own after that long.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return a.withSession(ctx, cmd, func(c mcpstdio.Client) error {
				return monitor(ctx, cmd, c, probe, duration)
			})
		},
	}

	cmd.Flags().BoolVar(&probe, "probe", false, "Call the first tool with empty arguments")
	cmd.Flags().DurationVar(&duration, "duration", 0, "Stop after this long (0 waits for a signal)")

	return cmd
}

func monitor(ctx context.Context, cmd *cobra.Command, c mcpstdio.Client, probe bool, duration time.Duration) error {
	out := cmd.OutOrStdout()

	if info := c.ServerInfo(); info != nil {
		fmt.Fprintf(out, "Connected to %s %s (protocol %s)\n", info.Name, info.Version, info.ProtocolVersion)
	}

	tools, err := c.Tools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}

	printTools(out, tools)

	if probe && len(tools) > 0 {
		fmt.Fprintf(out, "Testing tool: %s\n", tools[0].Name)

		resp, err := c.CallTool(ctx, tools[0].Name, nil)
		if err != nil {
			return fmt.Errorf("call %s: %w", tools[0].Name, err)
		}

		if resp.IsError() {
			fmt.Fprintf(out, "Error: %v\n", resp.Error)
		} else if err := printJSON(out, resp.Result); err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "Monitoring server (Ctrl+C to exit)...")

	if duration > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	<-ctx.Done()

	return nil
}
